package inventory

import (
	"strings"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockStatus is derived from a product's quantity and reorder level
type StockStatus string

const (
	StockStatusInStock    StockStatus = "IN_STOCK"
	StockStatusLowStock   StockStatus = "LOW_STOCK"
	StockStatusOutOfStock StockStatus = "OUT_OF_STOCK"
)

// DeriveStockStatus classifies a quantity against a reorder level
func DeriveStockStatus(quantity, reorderLevel decimal.Decimal) StockStatus {
	switch {
	case quantity.LessThanOrEqual(decimal.Zero):
		return StockStatusOutOfStock
	case quantity.LessThanOrEqual(reorderLevel):
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}

// Product is a catalog entry. Quantity is only ever written by the stock ledger.
type Product struct {
	shared.BaseEntity
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	CategoryID   *uuid.UUID      `json:"categoryId,omitempty"`
	SupplierID   *uuid.UUID      `json:"supplierId,omitempty"`
	Price        decimal.Decimal `json:"price"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	Quantity     decimal.Decimal `json:"quantity"`
	ReorderLevel decimal.Decimal `json:"reorderLevel"`
	Unit         string          `json:"unit"`
	Image        string          `json:"image,omitempty"`
	Status       StockStatus     `json:"status"`
	TotalValue   decimal.Decimal `json:"totalValue"`
}

// Recompute re-derives Status and TotalValue from Quantity and Price
func (p *Product) Recompute() {
	p.Status = DeriveStockStatus(p.Quantity, p.ReorderLevel)
	p.TotalValue = p.Quantity.Mul(p.Price)
}

// IsLowStock reports whether quantity is positive and at or below the reorder level
func (p *Product) IsLowStock() bool {
	return p.Status == StockStatusLowStock
}

// InCategory reports whether the product references the given category
func (p *Product) InCategory(categoryID uuid.UUID) bool {
	return p.CategoryID != nil && *p.CategoryID == categoryID
}

// FromSupplier reports whether the product references the given supplier
func (p *Product) FromSupplier(supplierID uuid.UUID) bool {
	return p.SupplierID != nil && *p.SupplierID == supplierID
}

// Clone returns a deep copy of the product
func (p *Product) Clone() *Product {
	c := *p
	c.CategoryID = cloneID(p.CategoryID)
	c.SupplierID = cloneID(p.SupplierID)
	return &c
}

// PickerItem is the projection of a product used by the invoice line picker
type PickerItem struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}

// ProductInput carries the raw fields of a product to create.
// Numeric fields are parsed leniently.
type ProductInput struct {
	SKU          string
	Name         string
	Description  string
	CategoryID   *uuid.UUID
	SupplierID   *uuid.UUID
	Price        string
	CostPrice    string
	Quantity     string
	ReorderLevel string
	Unit         string
	Image        string
}

// ProductPatch carries the fields to change on an existing product.
// Nil fields are left untouched. Quantity cannot be patched.
type ProductPatch struct {
	SKU           *string
	Name          *string
	Description   *string
	CategoryID    *uuid.UUID
	ClearCategory bool
	SupplierID    *uuid.UUID
	ClearSupplier bool
	Price         *string
	CostPrice     *string
	ReorderLevel  *string
	Unit          *string
	Image         *string
}

// IsEmpty reports whether the patch changes nothing
func (pp ProductPatch) IsEmpty() bool {
	return pp.SKU == nil && pp.Name == nil && pp.Description == nil &&
		pp.CategoryID == nil && !pp.ClearCategory &&
		pp.SupplierID == nil && !pp.ClearSupplier &&
		pp.Price == nil && pp.CostPrice == nil && pp.ReorderLevel == nil &&
		pp.Unit == nil && pp.Image == nil
}

func (pp ProductPatch) validate() error {
	if pp.IsEmpty() {
		return shared.NewValidationError("Product update has no fields to change")
	}
	if pp.Name != nil && strings.TrimSpace(*pp.Name) == "" {
		return shared.NewValidationError("Product name cannot be empty")
	}
	if pp.SKU != nil && strings.TrimSpace(*pp.SKU) == "" {
		return shared.NewValidationError("Product SKU cannot be empty")
	}
	return nil
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
