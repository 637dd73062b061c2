package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

var errInvalidSubtotal = errors.New("subtotal must be a non-negative number")

// ListZones returns the active delivery zones.
func (h *Handler) ListZones(w http.ResponseWriter, r *http.Request) {
	zones, err := h.svc.Shipping.Zones(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, z := range zones {
			e.ObjStart()
			encodeStr(e, "id", z.ID)
			encodeStr(e, "name", z.Name)
			encodeStr(e, "province", z.Province)
			e.FieldStart("cities")
			e.ArrStart()
			for _, c := range z.Cities {
				e.Str(c)
			}
			e.ArrEnd()
			encodeMoney(e, "price", z.Price)
			encodeOptMoney(e, "freeShippingMin", z.FreeShippingMin)
			e.ObjEnd()
		}
		e.ArrEnd()
	})
}

// EstimateShipping prices delivery of ?subtotal= to ?postalCode=.
func (h *Handler) EstimateShipping(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	subtotal := decimal.Zero
	if s := q.Get("subtotal"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil || d.IsNegative() {
			writeError(w, r, errInvalidSubtotal)
			return
		}
		subtotal = d
	}

	est, err := h.svc.Shipping.Estimate(r.Context(), q.Get("postalCode"), subtotal)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		encodeStr(e, "postalCode", est.PostalCode)
		encodeBool(e, "available", est.Available)
		if est.Province != "" {
			encodeStr(e, "province", est.Province)
			encodeStr(e, "zone", est.Zone)
		}
		if est.Available {
			encodeMoney(e, "cost", est.Cost)
			encodeBool(e, "free", est.Free)
			encodeOptMoney(e, "freeShippingMin", est.FreeShippingMin)
			encodeMoney(e, "remainingForFree", est.Remaining)
		}
		e.ObjEnd()
	})
}
