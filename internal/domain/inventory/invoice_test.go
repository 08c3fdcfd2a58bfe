package inventory

import (
	"testing"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolutionPolicy_Resolve(t *testing.T) {
	byName := &Product{BaseEntity: shared.NewBaseEntity(), Name: "Pen", SKU: "SKU-PEN"}
	bySKU := &Product{BaseEntity: shared.NewBaseEntity(), Name: "Ballpoint", SKU: "Pen"}
	byID := &Product{BaseEntity: shared.NewBaseEntity(), Name: "Pencil", SKU: "SKU-PCL"}
	products := []*Product{bySKU, byName, byID}

	tests := []struct {
		name     string
		item     InvoiceLineItem
		expected *Product
	}{
		{"id wins over name", InvoiceLineItem{ProductID: byID.ID.String(), Description: "Pen"}, byID},
		{"name wins over sku", InvoiceLineItem{Description: "Pen", SKU: "Pen"}, byName},
		{"sku when nothing else matches", InvoiceLineItem{Description: "Blue pen", SKU: "Pen"}, bySKU},
		{"unknown id falls through to name", InvoiceLineItem{ProductID: "missing", Description: "Pencil"}, byID},
		{"name match is exact", InvoiceLineItem{Description: "pen"}, nil},
		{"nothing matches", InvoiceLineItem{Description: "Eraser"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.expected, DefaultResolutionPolicy.Resolve(tt.item, products))
		})
	}
}

func TestResolutionPolicy_CustomOrder(t *testing.T) {
	byName := &Product{BaseEntity: shared.NewBaseEntity(), Name: "Pen", SKU: "A"}
	bySKU := &Product{BaseEntity: shared.NewBaseEntity(), Name: "B", SKU: "X-1"}
	item := InvoiceLineItem{Description: "Pen", SKU: "X-1"}

	policy := ResolutionPolicy{MatchBySKU, MatchByName}
	assert.Same(t, bySKU, policy.Resolve(item, []*Product{byName, bySKU}))
}

func TestParseResolutionPolicy(t *testing.T) {
	policy, err := ParseResolutionPolicy(nil)
	require.NoError(t, err)
	assert.Len(t, policy, len(DefaultResolutionPolicy))

	policy, err = ParseResolutionPolicy([]string{"SKU", " name ", "sku"})
	require.NoError(t, err)
	require.Len(t, policy, 2)
	assert.Equal(t, "sku", policy[0].Name)
	assert.Equal(t, "name", policy[1].Name)

	_, err = ParseResolutionPolicy([]string{"id", "barcode"})
	assert.ErrorContains(t, err, "barcode")
}

func TestInventoryStore_UpdateStockOnPayment_WithResolutionPolicy(t *testing.T) {
	policy, err := ParseResolutionPolicy([]string{"sku"})
	require.NoError(t, err)
	s := NewInventoryStore(WithResolutionPolicy(policy))
	named := mustAddProduct(t, s, ProductInput{SKU: "PEN-RED", Name: "Pen", Quantity: "10"})
	coded := mustAddProduct(t, s, ProductInput{SKU: "PEN-BLUE", Name: "Blue pen", Quantity: "10"})

	entries, err := s.UpdateStockOnPayment(Invoice{
		Number: "5",
		Items: []InvoiceLineItem{
			{Description: "Pen", SKU: "PEN-BLUE", Quantity: qty(2)},
			{ProductID: named.ID.String(), Description: "Pen", Quantity: qty(1)},
		},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the sku matcher is active")
	assert.Equal(t, coded.ID, entries[0].ProductID)

	got, _ := s.GetProduct(named.ID)
	assert.Equal(t, "10", got.Quantity.String())
}

func TestInvoice_IsPaid(t *testing.T) {
	assert.True(t, Invoice{}.IsPaid())
	assert.True(t, Invoice{Status: "PAID"}.IsPaid())
	assert.False(t, Invoice{Status: "sent"}.IsPaid())
}
