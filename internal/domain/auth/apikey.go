// Package auth authenticates staff API keys.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrKeyNotFound is returned by repositories for unknown or revoked keys.
var ErrKeyNotFound = errors.New("api key not found")

// API key scopes.
const (
	// ScopeOrdersRead allows reading any order.
	ScopeOrdersRead = "orders:read"
	// ScopeOrdersWrite allows reading any order and changing its status.
	ScopeOrdersWrite = "orders:write"
)

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key was granted scope.
func (k *APIKeyInfo) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// HashKey returns the hex HMAC-SHA256 of key under pepper, the form keys are
// stored in.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}
