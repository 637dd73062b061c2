package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/checkout"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/order"
)

// Checkout places an order from the session cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkout.Request
	if err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		return decodeCheckoutField(d, key, &req)
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if req.SessionID == "" {
		req.SessionID = sessionID(r)
	}

	res, err := h.svc.Checkout.Checkout(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		h.encodeOrder(e, res.Order)
	})
}

func decodeCheckoutField(d *jx.Decoder, key string, req *checkout.Request) error {
	var err error
	switch key {
	case "sessionId":
		req.SessionID, err = d.Str()
	case "contact":
		err = d.Obj(func(d *jx.Decoder, key string) error {
			return decodeContactField(d, key, &req.Contact)
		})
	case "address":
		if d.Next() == jx.Null {
			return d.Null()
		}
		req.Address = new(order.Address)
		err = d.Obj(func(d *jx.Decoder, key string) error {
			return decodeAddressField(d, key, req.Address)
		})
	case "shippingMethod":
		req.ShippingMethod, err = d.Str()
	case "paymentMethod":
		req.PaymentMethod, err = d.Str()
	case "notes":
		req.Notes, err = optStr(d)
	default:
		err = d.Skip()
	}
	return err
}

func decodeContactField(d *jx.Decoder, key string, c *checkout.Contact) error {
	var err error
	switch key {
	case "email":
		c.Email, err = d.Str()
	case "firstName":
		c.FirstName, err = d.Str()
	case "lastName":
		c.LastName, err = d.Str()
	case "phone":
		c.Phone, err = optStr(d)
	default:
		err = d.Skip()
	}
	return err
}

func decodeAddressField(d *jx.Decoder, key string, a *order.Address) error {
	var err error
	switch key {
	case "street":
		a.Street, err = d.Str()
	case "number":
		a.Number, err = d.Str()
	case "apartment":
		a.Apartment, err = optStr(d)
	case "city":
		a.City, err = d.Str()
	case "province":
		a.Province, err = d.Str()
	case "postalCode":
		a.PostalCode, err = d.Str()
	default:
		err = d.Skip()
	}
	return err
}

// optStr reads a string that may be null.
func optStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
