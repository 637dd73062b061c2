package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/order"
)

// GetOrder returns an order by its public number. Order numbers are
// sequential, so callers other than the placing session or a back office
// key get not found, exactly as for a missing order.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Orders.Get(r.Context(), r.PathValue("number"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok, err := h.canReadOrder(r, o)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, order.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeOrder(e, o)
	})
}

// UpdateOrderStatus applies {status} to an order.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var raw string
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		var err error
		raw, err = d.Str()
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	target, err := order.ParseStatus(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.svc.Orders.UpdateStatus(r.Context(), r.PathValue("number"), target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeOrder(e, o)
	})
}

func (h *Handler) encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	encodeStr(e, "id", o.ID)
	encodeStr(e, "number", o.Number)
	encodeStr(e, "status", string(o.Status))
	encodeStr(e, "paymentStatus", string(o.PaymentStatus))
	encodeStr(e, "paymentMethod", o.PaymentMethod)
	encodeStr(e, "shippingMethod", o.ShippingMethod)
	encodeStr(e, "currency", h.cfg.Currency)
	encodeMoney(e, "subtotal", o.Subtotal)
	encodeMoney(e, "shippingCost", o.ShippingCost)
	encodeMoney(e, "discount", o.Discount)
	encodeMoney(e, "total", o.Total)

	e.FieldStart("contact")
	e.ObjStart()
	encodeStr(e, "email", o.Email)
	encodeStr(e, "firstName", o.FirstName)
	encodeStr(e, "lastName", o.LastName)
	if o.Phone != "" {
		encodeStr(e, "phone", o.Phone)
	}
	e.ObjEnd()

	e.FieldStart("address")
	if a := o.ShippingAddress; a != nil {
		e.ObjStart()
		encodeStr(e, "street", a.Street)
		encodeStr(e, "number", a.Number)
		if a.Apartment != "" {
			encodeStr(e, "apartment", a.Apartment)
		}
		encodeStr(e, "city", a.City)
		encodeStr(e, "province", a.Province)
		encodeStr(e, "postalCode", a.PostalCode)
		e.ObjEnd()
	} else {
		e.Null()
	}

	if o.Notes != "" {
		encodeStr(e, "notes", o.Notes)
	}

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		encodeStr(e, "productId", it.ProductID)
		encodeStr(e, "sku", it.SKU)
		encodeStr(e, "name", it.Name)
		encodeInt(e, "quantity", it.Quantity)
		encodeMoney(e, "unitPrice", it.UnitPrice)
		encodeMoney(e, "lineTotal", it.LineTotal)
		e.ObjEnd()
	}
	e.ArrEnd()

	encodeTime(e, "createdAt", o.CreatedAt)
	encodeTime(e, "updatedAt", o.UpdatedAt)
	e.ObjEnd()
}
