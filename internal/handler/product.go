package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/pricing"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/product"
)

// ListProducts returns the products for sale with their transfer price and
// installment amount.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Products.List(r.Context())
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list products"))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, p := range products {
			if p.Active {
				h.encodeProduct(e, p)
			}
		}
		e.ArrEnd()
	})
}

func (h *Handler) encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	encodeStr(e, "id", p.ID)
	encodeStr(e, "sku", p.SKU)
	encodeStr(e, "name", p.Name)
	encodeStr(e, "currency", h.cfg.Currency)
	encodeMoney(e, "price", p.Price)
	encodeOptMoney(e, "compareAtPrice", p.CompareAtPrice)
	encodeMoney(e, "transferPrice", p.DisplayTransferPrice())
	e.FieldStart("installments")
	e.ObjStart()
	encodeInt(e, "count", pricing.DefaultInstallments)
	encodeMoney(e, "amount", pricing.InstallmentAmount(p.Price, pricing.DefaultInstallments))
	e.ObjEnd()
	encodeInt(e, "stock", p.Stock)
	encodeBool(e, "inStock", p.Stock > 0)
	encodeBool(e, "freeShipping", p.FreeShipping)
	e.ObjEnd()
}
