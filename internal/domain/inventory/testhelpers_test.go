package inventory

import (
	"testing"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func qty(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

func mustAddProduct(t *testing.T, s *InventoryStore, input ProductInput) *Product {
	t.Helper()
	p, err := s.AddProduct(input)
	require.NoError(t, err)
	return p
}

func mustAddCategory(t *testing.T, s *InventoryStore, name string) *Category {
	t.Helper()
	c, err := s.AddCategory(CategoryInput{Name: name})
	require.NoError(t, err)
	return c
}

func mustAddSupplier(t *testing.T, s *InventoryStore, name string) *Supplier {
	t.Helper()
	sup, err := s.AddSupplier(SupplierInput{Name: name})
	require.NoError(t, err)
	return sup
}

func idPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

func strPtr(s string) *string {
	return &s
}

func eventsOfType(events []shared.DomainEvent, eventType string) []shared.DomainEvent {
	out := make([]shared.DomainEvent, 0)
	for _, e := range events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// assertCounters checks every category counter against the live product set
func assertCounters(t *testing.T, s *InventoryStore) {
	t.Helper()
	for _, c := range s.ListCategories() {
		require.Equal(t, len(s.ProductsByCategory(c.ID)), c.ProductCount, "category %s", c.Name)
	}
}
