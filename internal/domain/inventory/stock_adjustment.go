package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockAdjustment is an immutable ledger entry recording one quantity change.
// Quantity is the signed requested delta; NewStock is the clamped result.
type StockAdjustment struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"productId"`
	ProductName   string          `json:"productName"`
	Type          AdjustmentType  `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	PreviousStock decimal.Decimal `json:"previousStock"`
	NewStock      decimal.Decimal `json:"newStock"`
	Reason        string          `json:"reason"`
	Date          time.Time       `json:"date"`
	User          string          `json:"user"`
}

// ApplyAdjustment returns the stock level after applying a signed change of
// the given magnitude, floored at zero.
func ApplyAdjustment(previous decimal.Decimal, adjType AdjustmentType, magnitude decimal.Decimal) decimal.Decimal {
	next := previous.Add(SignedQuantity(adjType, magnitude))
	if next.IsNegative() {
		return decimal.Zero
	}
	return next
}

// SignedQuantity returns |magnitude| carrying the sign of the adjustment type
func SignedQuantity(adjType AdjustmentType, magnitude decimal.Decimal) decimal.Decimal {
	return magnitude.Abs().Mul(decimal.NewFromInt(int64(adjType.Sign())))
}

// NewStockAdjustment builds the ledger entry for adjusting product by magnitude.
// The product itself is not modified.
func NewStockAdjustment(product *Product, adjType AdjustmentType, magnitude decimal.Decimal, reason, user string, at time.Time) (*StockAdjustment, error) {
	if !adjType.IsValid() {
		return nil, shared.NewValidationError("Unknown adjustment type: " + adjType.String())
	}
	if magnitude.IsZero() {
		return nil, shared.NewValidationError("Adjustment quantity cannot be zero")
	}
	return &StockAdjustment{
		ID:            uuid.New(),
		ProductID:     product.ID,
		ProductName:   product.Name,
		Type:          adjType,
		Quantity:      SignedQuantity(adjType, magnitude),
		PreviousStock: product.Quantity,
		NewStock:      ApplyAdjustment(product.Quantity, adjType, magnitude),
		Reason:        reason,
		Date:          at,
		User:          user,
	}, nil
}

// CrossedReorderLevel reports whether the adjustment moved stock from above
// the reorder level to a positive level at or below it.
func (a *StockAdjustment) CrossedReorderLevel(reorderLevel decimal.Decimal) bool {
	return a.NewStock.IsPositive() &&
		a.NewStock.LessThanOrEqual(reorderLevel) &&
		a.PreviousStock.GreaterThan(reorderLevel)
}

// AdjustmentFilter narrows a ledger query. Zero values match everything.
type AdjustmentFilter struct {
	ProductID *uuid.UUID
	Type      AdjustmentType
	Limit     int
}

// Matches reports whether the entry satisfies the filter's predicates
func (f AdjustmentFilter) Matches(a *StockAdjustment) bool {
	if f.ProductID != nil && a.ProductID != *f.ProductID {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	return true
}
