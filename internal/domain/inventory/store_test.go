package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryStore_InitializeDefaults(t *testing.T) {
	s := NewInventoryStore()

	assert.True(t, s.InitializeDefaults())
	assert.Len(t, s.ListCategories(), len(defaultCategories))
	assert.Len(t, s.ListSuppliers(), len(defaultSuppliers))

	assert.False(t, s.InitializeDefaults(), "only seeds empty registries")
	assert.Len(t, s.ListCategories(), len(defaultCategories))

	other := NewInventoryStore()
	mustAddSupplier(t, other, "Mine")
	assert.False(t, other.InitializeDefaults())
	assert.Empty(t, other.ListCategories())
}

func TestInventoryStore_TakeDirty(t *testing.T) {
	s := NewInventoryStore()
	c := mustAddCategory(t, s, "A")
	assert.Equal(t, []Collection{CollectionCategories}, s.TakeDirty())
	assert.Empty(t, s.TakeDirty())

	p := mustAddProduct(t, s, ProductInput{SKU: "P", Name: "P", CategoryID: idPtr(c.ID), Quantity: "3"})
	assert.Equal(t, []Collection{CollectionProducts, CollectionCategories, CollectionAdjustments}, s.TakeDirty())

	_, err := s.AddStockAdjustment(p.ID, AdjustmentTypeSale, qty(1), "", "")
	require.NoError(t, err)
	assert.Equal(t, []Collection{CollectionProducts, CollectionCategories, CollectionAdjustments}, s.TakeDirty())

	s.Reset()
	assert.Equal(t, AllCollections, s.TakeDirty())
	assert.Empty(t, s.ListProducts())
}

func TestInventoryStore_SnapshotRestore(t *testing.T) {
	s := NewInventoryStore()
	c := mustAddCategory(t, s, "A")
	sup := mustAddSupplier(t, s, "S")
	p1 := mustAddProduct(t, s, ProductInput{SKU: "1", Name: "One", CategoryID: idPtr(c.ID), SupplierID: idPtr(sup.ID), Quantity: "5", Price: "2"})
	p2 := mustAddProduct(t, s, ProductInput{SKU: "2", Name: "Two", CategoryID: idPtr(c.ID), Quantity: "1"})

	snap := s.Snapshot()
	require.Len(t, snap.Products, 2)
	require.Len(t, snap.Adjustments, 2)

	// corrupt derived fields the way a stale persisted copy could
	snap.Products[0].Status = StockStatusOutOfStock
	snap.Products[0].TotalValue = qty(999)
	snap.Categories[0].ProductCount = 17
	snap.Suppliers[0].Products = []uuid.UUID{p2.ID, uuid.New(), p2.ID}

	restored := NewInventoryStore()
	restored.Restore(snap)

	got, err := restored.GetProduct(p1.ID)
	require.NoError(t, err)
	assert.Equal(t, StockStatusLowStock, got.Status)
	assert.Equal(t, "10", got.TotalValue.String())

	cat, _ := restored.GetCategory(c.ID)
	assert.Equal(t, 2, cat.ProductCount)
	assert.Equal(t, "10", cat.TotalValue.String())

	gotSup, _ := restored.GetSupplier(sup.ID)
	assert.Equal(t, []uuid.UUID{p2.ID, p1.ID}, gotSup.Products)

	assert.Len(t, restored.ListAdjustments(AdjustmentFilter{}), 2)
	assert.Equal(t, []string{"One", "Two"}, []string{restored.ListProducts()[0].Name, restored.ListProducts()[1].Name})
}

func TestInventoryStore_Stats(t *testing.T) {
	s := NewInventoryStore()
	c := mustAddCategory(t, s, "A")
	mustAddProduct(t, s, ProductInput{SKU: "1", Name: "One", CategoryID: idPtr(c.ID), Quantity: "20", Price: "2", CostPrice: "1"})
	mustAddProduct(t, s, ProductInput{SKU: "2", Name: "Two", Quantity: "3", Price: "10"})
	mustAddProduct(t, s, ProductInput{SKU: "3", Name: "Three"})

	st := s.Stats()
	assert.Equal(t, 3, st.TotalProducts)
	assert.Equal(t, "23", st.TotalQuantity.String())
	assert.Equal(t, "70", st.TotalValue.String())
	assert.Equal(t, "20", st.TotalCost.String())
	assert.Equal(t, 1, st.LowStockCount)
	low, err := s.GetProduct(st.LowStockProductIDs[0])
	require.NoError(t, err)
	assert.True(t, low.IsLowStock())
	assert.Equal(t, "Two", low.Name)
	assert.Equal(t, 1, st.OutOfStockCount)
	assert.Equal(t, 2, st.UncategorizedCount)
	assert.Equal(t, 2, st.AdjustmentCount)
	require.Len(t, st.CategoryBreakdown, 1)
	assert.Equal(t, 1, st.CategoryBreakdown[0].ProductCount)
	assert.Equal(t, "40", st.CategoryBreakdown[0].TotalValue.String())
}
