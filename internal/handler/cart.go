package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/cart"
)

// GetCart returns the session cart, starting a session when needed.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Carts.Get(r.Context(), h.ensureSession(w, r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, v)
}

// AddCartItem adds {productId, quantity} to the session cart.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var (
		productID string
		qty       = 1
	)
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			productID, err = d.Str()
		case "quantity":
			qty, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	v, err := h.svc.Carts.AddItem(r.Context(), h.ensureSession(w, r), productID, qty)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, v)
}

// UpdateCartItem sets the quantity of a cart line. Zero removes it.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	qty := -1
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		var err error
		qty, err = d.Int()
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	v, err := h.svc.Carts.UpdateQuantity(r.Context(), h.ensureSession(w, r), r.PathValue("productId"), qty)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, v)
}

// RemoveCartItem deletes a product from the cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Carts.RemoveItem(r.Context(), h.ensureSession(w, r), r.PathValue("productId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, v)
}

func (h *Handler) writeCart(w http.ResponseWriter, status int, v *cart.View) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		encodeStr(e, "id", v.Cart.ID)
		encodeStr(e, "sessionId", v.Cart.SessionID)
		encodeStr(e, "currency", h.cfg.Currency)
		e.FieldStart("items")
		e.ArrStart()
		for _, l := range v.Lines {
			e.ObjStart()
			encodeStr(e, "productId", l.Product.ID)
			encodeStr(e, "sku", l.Product.SKU)
			encodeStr(e, "name", l.Product.Name)
			encodeInt(e, "quantity", l.Quantity)
			encodeMoney(e, "unitPrice", l.Product.Price)
			encodeMoney(e, "transferPrice", l.Product.DisplayTransferPrice())
			encodeMoney(e, "lineTotal", l.LineTotal)
			encodeInt(e, "stock", l.Product.Stock)
			e.ObjEnd()
		}
		e.ArrEnd()
		encodeMoney(e, "subtotal", v.Totals.Subtotal)
		encodeMoney(e, "transferSubtotal", v.Totals.TransferSubtotal)
		encodeInt(e, "itemCount", v.Totals.ItemCount)
		e.ObjEnd()
	})
}
