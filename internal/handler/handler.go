// Package handler serves the storefront JSON API.
package handler

import (
	"net/http"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/auth"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/cart"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/checkout"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/order"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/product"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/shipping"
)

const (
	// HeaderSessionID carries the shopper session.
	HeaderSessionID = "X-Session-ID"
	// CookieSession is the session cookie set for browsers.
	CookieSession = "session_id"
	// HeaderAPIKey carries the back office API key.
	HeaderAPIKey = "X-API-Key"

	maxBodyBytes = 1 << 20
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// Currency is the ISO code reported next to prices.
	Currency string
	// APIKeyPepper is the HMAC key API keys are hashed with.
	APIKeyPepper []byte
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
}

// Services are the domain dependencies of the Handler.
type Services struct {
	Products product.Repository
	Carts    *cart.Service
	Shipping *shipping.Resolver
	Checkout *checkout.Service
	Orders   *order.Service
	APIKeys  auth.Repository
}

// Handler serves the /api routes.
type Handler struct {
	cfg HandlerConfig
	svc Services
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg HandlerConfig, svc Services) *Handler {
	if cfg.Currency == "" {
		cfg.Currency = "ARS"
	}
	return &Handler{cfg: cfg, svc: svc}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)

	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart/items", h.AddCartItem)
	mux.HandleFunc("PATCH /api/cart/items/{productId}", h.UpdateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{productId}", h.RemoveCartItem)

	mux.HandleFunc("GET /api/shipping/zones", h.ListZones)
	mux.HandleFunc("GET /api/shipping/estimate", h.EstimateShipping)

	mux.HandleFunc("POST /api/checkout", h.Checkout)
	mux.HandleFunc("GET /api/orders/{number}", h.GetOrder)

	mux.Handle("PATCH /api/admin/orders/{number}/status",
		h.requireAPIKey(auth.ScopeOrdersWrite, http.HandlerFunc(h.UpdateOrderStatus)))
}
