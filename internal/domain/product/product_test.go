package product

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestUnitPrice(t *testing.T) {
	transfer := decimal.NewFromInt(9100)
	withTransfer := Product{Price: decimal.NewFromInt(10000), TransferPrice: &transfer}
	listOnly := Product{Price: decimal.NewFromInt(10000)}

	assert.True(t, transfer.Equal(withTransfer.UnitPrice(PaymentTransfer)))
	assert.True(t, decimal.NewFromInt(10000).Equal(withTransfer.UnitPrice("mercadopago")))
	assert.True(t, decimal.NewFromInt(10000).Equal(listOnly.UnitPrice(PaymentTransfer)))
}

func TestDisplayTransferPrice(t *testing.T) {
	stored := decimal.NewFromInt(8000)
	assert.True(t, stored.Equal(Product{Price: decimal.NewFromInt(10000), TransferPrice: &stored}.DisplayTransferPrice()))
	assert.True(t, decimal.NewFromInt(909).Equal(Product{Price: decimal.NewFromInt(999)}.DisplayTransferPrice()))
}
