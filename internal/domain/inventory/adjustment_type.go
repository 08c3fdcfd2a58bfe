package inventory

import (
	"strings"

	"github.com/erp/stockledger/internal/domain/shared"
)

// AdjustmentType is the closed set of reasons a product's quantity may change
type AdjustmentType string

const (
	// AdjustmentTypeRestock represents stock received from a supplier
	AdjustmentTypeRestock AdjustmentType = "RESTOCK"
	// AdjustmentTypeSale represents stock leaving through a sale
	AdjustmentTypeSale AdjustmentType = "SALE"
	// AdjustmentTypeReturn represents stock returned by a customer
	AdjustmentTypeReturn AdjustmentType = "RETURN"
	// AdjustmentTypeDamage represents stock written off as damaged or lost
	AdjustmentTypeDamage AdjustmentType = "DAMAGE"
	// AdjustmentTypeIncrease represents a positive manual correction
	AdjustmentTypeIncrease AdjustmentType = "ADJUSTMENT_INCREASE"
	// AdjustmentTypeDecrease represents a negative manual correction
	AdjustmentTypeDecrease AdjustmentType = "ADJUSTMENT_DECREASE"
	// AdjustmentTypeNewProduct represents the opening balance of a new product
	AdjustmentTypeNewProduct AdjustmentType = "NEW_PRODUCT"
)

// AllAdjustmentTypes lists every adjustment type in display order
var AllAdjustmentTypes = []AdjustmentType{
	AdjustmentTypeRestock,
	AdjustmentTypeSale,
	AdjustmentTypeReturn,
	AdjustmentTypeDamage,
	AdjustmentTypeIncrease,
	AdjustmentTypeDecrease,
	AdjustmentTypeNewProduct,
}

// String returns the string representation of AdjustmentType
func (t AdjustmentType) String() string {
	return string(t)
}

// Sign returns +1 for types that add stock, -1 for types that remove it
// and 0 for unknown types.
func (t AdjustmentType) Sign() int {
	switch t {
	case AdjustmentTypeRestock,
		AdjustmentTypeReturn,
		AdjustmentTypeIncrease,
		AdjustmentTypeNewProduct:
		return 1
	case AdjustmentTypeSale,
		AdjustmentTypeDamage,
		AdjustmentTypeDecrease:
		return -1
	}
	return 0
}

// IsValid returns true if the adjustment type is one of the known types
func (t AdjustmentType) IsValid() bool {
	return t.Sign() != 0
}

// IsIncrease returns true if this adjustment type increases quantity
func (t AdjustmentType) IsIncrease() bool {
	return t.Sign() > 0
}

// IsDecrease returns true if this adjustment type decreases quantity
func (t AdjustmentType) IsDecrease() bool {
	return t.Sign() < 0
}

// ParseAdjustmentType accepts both the wire form ("ADJUSTMENT_INCREASE")
// and the display form ("Adjustment (Increase)").
func ParseAdjustmentType(raw string) (AdjustmentType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.NewReplacer(" (", "_", "(", "_", ")", "", " ", "_", "-", "_").Replace(normalized)

	t := AdjustmentType(normalized)
	if !t.IsValid() {
		return "", shared.NewValidationError("Unknown adjustment type: " + raw)
	}
	return t, nil
}
