package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stats summarizes the state of the inventory
type Stats struct {
	TotalProducts        int                 `json:"totalProducts"`
	TotalQuantity        decimal.Decimal     `json:"totalQuantity"`
	TotalValue           decimal.Decimal     `json:"totalValue"`
	TotalCost            decimal.Decimal     `json:"totalCost"`
	LowStockCount        int                 `json:"lowStockCount"`
	OutOfStockCount      int                 `json:"outOfStockCount"`
	CategoryCount        int                 `json:"categoryCount"`
	SupplierCount        int                 `json:"supplierCount"`
	AdjustmentCount      int                 `json:"adjustmentCount"`
	UncategorizedCount   int                 `json:"uncategorizedCount"`
	CategoryBreakdown    []CategoryBreakdown `json:"categoryBreakdown"`
	LowStockProductIDs   []uuid.UUID         `json:"lowStockProductIds"`
	OutOfStockProductIDs []uuid.UUID         `json:"outOfStockProductIds"`
}

// CategoryBreakdown is one category's share of the inventory
type CategoryBreakdown struct {
	CategoryID   uuid.UUID       `json:"categoryId"`
	Name         string          `json:"name"`
	ProductCount int             `json:"productCount"`
	TotalValue   decimal.Decimal `json:"totalValue"`
}

// Stats computes inventory statistics
func (s *InventoryStore) Stats() Stats {
	s.refreshCategoryTotals()
	st := Stats{
		TotalProducts:        len(s.products),
		TotalQuantity:        decimal.Zero,
		TotalValue:           decimal.Zero,
		TotalCost:            decimal.Zero,
		CategoryCount:        len(s.categories),
		SupplierCount:        len(s.suppliers),
		AdjustmentCount:      len(s.adjustments),
		CategoryBreakdown:    make([]CategoryBreakdown, 0, len(s.categories)),
		LowStockProductIDs:   make([]uuid.UUID, 0),
		OutOfStockProductIDs: make([]uuid.UUID, 0),
	}
	for _, p := range s.orderedProducts() {
		st.TotalQuantity = st.TotalQuantity.Add(p.Quantity)
		st.TotalValue = st.TotalValue.Add(p.TotalValue)
		st.TotalCost = st.TotalCost.Add(p.Quantity.Mul(p.CostPrice))
		switch {
		case p.IsLowStock():
			st.LowStockCount++
			st.LowStockProductIDs = append(st.LowStockProductIDs, p.ID)
		case p.Status == StockStatusOutOfStock:
			st.OutOfStockCount++
			st.OutOfStockProductIDs = append(st.OutOfStockProductIDs, p.ID)
		}
		if p.CategoryID == nil {
			st.UncategorizedCount++
		}
	}
	for _, id := range s.categoryOrder {
		c := s.categories[id]
		st.CategoryBreakdown = append(st.CategoryBreakdown, CategoryBreakdown{
			CategoryID:   c.ID,
			Name:         c.Name,
			ProductCount: c.ProductCount,
			TotalValue:   c.TotalValue,
		})
	}
	return st
}
