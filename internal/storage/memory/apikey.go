package memory

import (
	"context"
	"sync"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/auth"
)

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository implements auth.Repository in memory.
type APIKeyRepository struct {
	mu   sync.RWMutex
	keys map[string]auth.APIKeyInfo // by hash
}

// NewAPIKeyRepository returns an empty APIKeyRepository.
func NewAPIKeyRepository() *APIKeyRepository {
	return &APIKeyRepository{keys: make(map[string]auth.APIKeyInfo)}
}

// Put stores a key by its hash.
func (r *APIKeyRepository) Put(info auth.APIKeyInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[info.KeyHash] = info
}

// FindByHash returns the key with the given hash.
func (r *APIKeyRepository) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.keys[hash]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	return &info, nil
}
