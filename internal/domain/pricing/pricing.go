// Package pricing holds the storefront money rules: bank transfer discount,
// installment amounts, cart totals and free shipping thresholds.
//
// All amounts are whole currency units carried as decimal.Decimal so that
// sums over many cart lines never drift.
package pricing

import "github.com/shopspring/decimal"

const (
	// TransferDiscount is the fraction taken off when paying by bank transfer.
	TransferDiscount = "0.09"
	// DefaultInstallments is the installment count advertised on product cards.
	DefaultInstallments = 12
)

var transferFactor = decimal.NewFromInt(1).Sub(decimal.RequireFromString(TransferDiscount))

// Line is a priced cart line.
type Line struct {
	Price    decimal.Decimal
	Quantity int
}

// Totals summarizes a set of cart lines.
type Totals struct {
	Subtotal         decimal.Decimal
	TransferSubtotal decimal.Decimal
	ItemCount        int
}

// TransferPrice returns amount with the transfer discount applied, rounded to
// whole units half away from zero. amount must not be negative.
func TransferPrice(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(transferFactor).Round(0)
}

// InstallmentAmount splits amount into count installments rounded to whole
// units. A non-positive count means DefaultInstallments.
func InstallmentAmount(amount decimal.Decimal, count int) decimal.Decimal {
	if count <= 0 {
		count = DefaultInstallments
	}
	return amount.Div(decimal.NewFromInt(int64(count))).Round(0)
}

// CartTotals sums the lines. An empty slice yields zero totals.
func CartTotals(lines []Line) Totals {
	subtotal := decimal.Zero
	count := 0
	for _, l := range lines {
		subtotal = subtotal.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		count += l.Quantity
	}
	return Totals{
		Subtotal:         subtotal,
		TransferSubtotal: TransferPrice(subtotal),
		ItemCount:        count,
	}
}

// QualifiesForFreeShipping reports whether subtotal reaches minimum.
func QualifiesForFreeShipping(subtotal, minimum decimal.Decimal) bool {
	return subtotal.GreaterThanOrEqual(minimum)
}

// RemainingForFreeShipping returns how much is missing to reach minimum,
// never less than zero.
func RemainingForFreeShipping(subtotal, minimum decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, minimum.Sub(subtotal))
}
