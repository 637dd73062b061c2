package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/auth"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/cart"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/checkout"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/order"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/product"
)

// Error kinds reported in the "kind" field of error bodies.
const (
	KindValidation        = "validation"
	KindEmptyCart         = "empty_cart"
	KindInsufficientStock = "insufficient_stock"
	KindNotFound          = "not_found"
	KindInvalidTransition = "invalid_transition"
	KindUnauthorized      = "unauthorized"
	KindTransactionFailed = "transaction_failed"
	KindInternal          = "internal"
)

type apiError struct {
	status  int
	kind    string
	message string
	details func(e *jx.Encoder)
}

// classify maps a domain error to its HTTP representation. ok is false for
// unexpected errors.
func classify(err error) (_ apiError, ok bool) {
	var (
		vErr  *checkout.ValidationError
		sErr  *checkout.InsufficientStockError
		tErr  *checkout.TransactionError
		trErr *order.InvalidTransitionError
	)
	switch {
	case errors.As(err, &vErr):
		return apiError{
			status:  http.StatusBadRequest,
			kind:    KindValidation,
			message: "some fields are missing or invalid",
			details: func(e *jx.Encoder) {
				e.ArrStart()
				for _, f := range vErr.Fields {
					e.ObjStart()
					encodeStr(e, "field", f.Field)
					encodeStr(e, "reason", f.Reason)
					e.ObjEnd()
				}
				e.ArrEnd()
			},
		}, true
	case errors.As(err, &sErr):
		return apiError{
			status:  http.StatusConflict,
			kind:    KindInsufficientStock,
			message: "not enough stock for some products",
			details: func(e *jx.Encoder) {
				e.ArrStart()
				for _, s := range sErr.Items {
					e.ObjStart()
					encodeStr(e, "productId", s.ProductID)
					encodeStr(e, "name", s.Name)
					encodeInt(e, "requested", s.Requested)
					encodeInt(e, "available", s.Available)
					e.ObjEnd()
				}
				e.ArrEnd()
			},
		}, true
	case errors.As(err, &tErr):
		return apiError{
			status:  http.StatusServiceUnavailable,
			kind:    KindTransactionFailed,
			message: "the order could not be placed, please try again",
		}, true
	case errors.As(err, &trErr):
		return apiError{status: http.StatusConflict, kind: KindInvalidTransition, message: trErr.Error()}, true
	case errors.Is(err, order.ErrConflict):
		return apiError{status: http.StatusConflict, kind: KindInvalidTransition, message: "order status changed concurrently"}, true
	case errors.Is(err, checkout.ErrEmptyCart):
		return apiError{status: http.StatusConflict, kind: KindEmptyCart, message: "the cart is empty"}, true
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, cart.ErrProductInactive):
		return apiError{status: http.StatusNotFound, kind: KindNotFound, message: "product not found"}, true
	case errors.Is(err, order.ErrNotFound):
		return apiError{status: http.StatusNotFound, kind: KindNotFound, message: "order not found"}, true
	case errors.Is(err, cart.ErrItemNotFound):
		return apiError{status: http.StatusNotFound, kind: KindNotFound, message: "product is not in the cart"}, true
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrSessionRequired),
		errors.Is(err, order.ErrUnknownStatus),
		errors.Is(err, errMalformedBody),
		errors.Is(err, errInvalidSubtotal):
		return apiError{status: http.StatusBadRequest, kind: KindValidation, message: err.Error()}, true
	case errors.Is(err, auth.ErrKeyNotFound), errors.Is(err, errUnauthorized):
		return apiError{status: http.StatusUnauthorized, kind: KindUnauthorized, message: "invalid or missing API key"}, true
	default:
		return apiError{status: http.StatusInternalServerError, kind: KindInternal, message: "internal server error"}, false
	}
}

// writeError renders err as an API error body. Unexpected errors are logged
// and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := classify(err)
	lg := zctx.From(r.Context())
	switch {
	case !ok:
		lg.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	case ae.status >= http.StatusInternalServerError:
		lg.Warn("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}

	writeJSON(w, ae.status, func(e *jx.Encoder) {
		e.ObjStart()
		encodeInt(e, "code", ae.status)
		encodeStr(e, "kind", ae.kind)
		encodeStr(e, "message", ae.message)
		if ae.details != nil {
			e.FieldStart("details")
			ae.details(e)
		}
		e.ObjEnd()
	})
}
