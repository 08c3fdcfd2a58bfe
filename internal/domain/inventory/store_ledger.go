package inventory

import (
	"fmt"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddStockAdjustment changes a product's quantity by magnitude in the
// direction of adjType and records the ledger entry. The resulting quantity
// is floored at zero; the entry still records the requested delta.
func (s *InventoryStore) AddStockAdjustment(productID uuid.UUID, adjType AdjustmentType, magnitude decimal.Decimal, reason, user string) (*StockAdjustment, error) {
	p, ok := s.products[productID]
	if !ok {
		return nil, productNotFound(productID)
	}

	entry, err := s.applyAdjustment(p, adjType, magnitude, reason, user)
	if err != nil {
		return nil, err
	}

	s.refreshCategoryTotals()
	s.AddDomainEvent(NewStockAdjustedEvent(entry))
	if entry.CrossedReorderLevel(p.ReorderLevel) {
		s.AddDomainEvent(NewLowStockEvent(p))
	}
	cp := *entry
	return &cp, nil
}

// UpdateStockOnPayment records a Sale for every line of a paid invoice that
// resolves to a product with enough stock on hand. Lines that do not resolve,
// or that ask for more than is on hand, are skipped.
func (s *InventoryStore) UpdateStockOnPayment(invoice Invoice) ([]*StockAdjustment, error) {
	if !invoice.IsPaid() {
		return nil, shared.NewValidationError(fmt.Sprintf("Invoice %s is not paid (status %q)", invoice.Number, invoice.Status))
	}

	reason := "Invoice payment"
	if invoice.Number != "" {
		reason = "Invoice #" + invoice.Number
	}

	entries := make([]*StockAdjustment, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		if !item.Quantity.IsPositive() {
			continue
		}
		p := s.policy.Resolve(item, s.orderedProducts())
		if p == nil || p.Quantity.LessThan(item.Quantity) {
			continue
		}
		entry, err := s.applyAdjustment(p, AdjustmentTypeSale, item.Quantity, reason, "")
		if err != nil {
			continue
		}
		if entry.CrossedReorderLevel(p.ReorderLevel) {
			s.AddDomainEvent(NewLowStockEvent(p))
		}
		cp := *entry
		entries = append(entries, &cp)
	}

	if len(entries) > 0 {
		s.refreshCategoryTotals()
		s.AddDomainEvent(NewStockSoldEvent(invoice, entries))
	}
	return entries, nil
}

// ListAdjustments returns ledger entries newest first
func (s *InventoryStore) ListAdjustments(filter AdjustmentFilter) []*StockAdjustment {
	out := make([]*StockAdjustment, 0)
	for i := len(s.adjustments) - 1; i >= 0; i-- {
		a := s.adjustments[i]
		if !filter.Matches(a) {
			continue
		}
		cp := *a
		out = append(out, &cp)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// ProductHistory returns every ledger entry for a product, newest first.
// History outlives the product, so deleted products still have one.
func (s *InventoryStore) ProductHistory(productID uuid.UUID) []*StockAdjustment {
	return s.ListAdjustments(AdjustmentFilter{ProductID: &productID})
}

// applyAdjustment is the only place product quantity is written
func (s *InventoryStore) applyAdjustment(p *Product, adjType AdjustmentType, magnitude decimal.Decimal, reason, user string) (*StockAdjustment, error) {
	entry, err := NewStockAdjustment(p, adjType, magnitude, reason, s.userOrDefault(user), s.clock())
	if err != nil {
		return nil, err
	}

	p.Quantity = entry.NewStock
	p.Touch()
	p.Recompute()
	s.adjustments = append(s.adjustments, entry)

	s.markDirty(CollectionProducts, CollectionAdjustments)
	if p.CategoryID != nil {
		s.markDirty(CollectionCategories)
	}
	return entry, nil
}
