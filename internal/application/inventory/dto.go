package inventory

import (
	"encoding/json"
	"strings"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Amount is a leniently parsed numeric input. JSON numbers and strings are
// both accepted; a value that does not parse is stored as zero.
type Amount string

// UnmarshalJSON accepts a JSON number, a JSON string or null
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	switch {
	case raw == "null":
		*a = ""
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
	default:
		*a = Amount(raw)
	}
	return nil
}

func (a *Amount) stringPtr() *string {
	if a == nil {
		return nil
	}
	s := string(*a)
	return &s
}

// CreateProductRequest represents a request to add a product to the catalog
type CreateProductRequest struct {
	SKU          string     `json:"sku" binding:"required,max=64"`
	Name         string     `json:"name" binding:"required,max=200"`
	Description  string     `json:"description" binding:"max=2000"`
	CategoryID   *uuid.UUID `json:"categoryId"`
	SupplierID   *uuid.UUID `json:"supplierId"`
	Price        Amount     `json:"price"`
	CostPrice    Amount     `json:"costPrice"`
	Quantity     Amount     `json:"quantity"`
	ReorderLevel Amount     `json:"reorderLevel"`
	Unit         string     `json:"unit" binding:"max=32"`
	Image        string     `json:"image"`
}

func (r CreateProductRequest) toInput(clean func(string) string) inventory.ProductInput {
	return inventory.ProductInput{
		SKU:          clean(r.SKU),
		Name:         clean(r.Name),
		Description:  clean(r.Description),
		CategoryID:   r.CategoryID,
		SupplierID:   r.SupplierID,
		Price:        string(r.Price),
		CostPrice:    string(r.CostPrice),
		Quantity:     string(r.Quantity),
		ReorderLevel: string(r.ReorderLevel),
		Unit:         clean(r.Unit),
		Image:        strings.TrimSpace(r.Image),
	}
}

// UpdateProductRequest represents a partial product update.
// Quantity is changed through stock adjustments only.
type UpdateProductRequest struct {
	SKU           *string    `json:"sku" binding:"omitempty,max=64"`
	Name          *string    `json:"name" binding:"omitempty,max=200"`
	Description   *string    `json:"description" binding:"omitempty,max=2000"`
	CategoryID    *uuid.UUID `json:"categoryId"`
	ClearCategory bool       `json:"clearCategory"`
	SupplierID    *uuid.UUID `json:"supplierId"`
	ClearSupplier bool       `json:"clearSupplier"`
	Price         *Amount    `json:"price"`
	CostPrice     *Amount    `json:"costPrice"`
	ReorderLevel  *Amount    `json:"reorderLevel"`
	Unit          *string    `json:"unit" binding:"omitempty,max=32"`
	Image         *string    `json:"image"`
}

func (r UpdateProductRequest) toPatch(clean func(string) string) inventory.ProductPatch {
	return inventory.ProductPatch{
		SKU:           cleanPtr(r.SKU, clean),
		Name:          cleanPtr(r.Name, clean),
		Description:   cleanPtr(r.Description, clean),
		CategoryID:    r.CategoryID,
		ClearCategory: r.ClearCategory,
		SupplierID:    r.SupplierID,
		ClearSupplier: r.ClearSupplier,
		Price:         r.Price.stringPtr(),
		CostPrice:     r.CostPrice.stringPtr(),
		ReorderLevel:  r.ReorderLevel.stringPtr(),
		Unit:          cleanPtr(r.Unit, clean),
		Image:         r.Image,
	}
}

// BulkUpdateProductsRequest applies one patch to many products
type BulkUpdateProductsRequest struct {
	IDs   []uuid.UUID          `json:"ids" binding:"required,min=1,max=500"`
	Patch UpdateProductRequest `json:"patch"`
}

// ProductListFilter represents filter options for the product list
type ProductListFilter struct {
	Search     string `form:"search" binding:"max=200"`
	CategoryID string `form:"category_id" binding:"omitempty,uuid"`
}

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=500"`
	Color       string `json:"color" binding:"max=32"`
	Icon        string `json:"icon" binding:"max=64"`
}

// UpdateCategoryRequest represents a partial category update
type UpdateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	Color       *string `json:"color" binding:"omitempty,max=32"`
	Icon        *string `json:"icon" binding:"omitempty,max=64"`
}

// CreateSupplierRequest represents a request to create a supplier
type CreateSupplierRequest struct {
	Name          string `json:"name" binding:"required,max=200"`
	ContactPerson string `json:"contactPerson" binding:"max=200"`
	Email         string `json:"email" binding:"omitempty,email,max=200"`
	Phone         string `json:"phone" binding:"max=32"`
	Address       string `json:"address" binding:"max=500"`
}

// UpdateSupplierRequest represents a partial supplier update
type UpdateSupplierRequest struct {
	Name          *string `json:"name" binding:"omitempty,max=200"`
	ContactPerson *string `json:"contactPerson" binding:"omitempty,max=200"`
	Email         *string `json:"email" binding:"omitempty,email,max=200"`
	Phone         *string `json:"phone" binding:"omitempty,max=32"`
	Address       *string `json:"address" binding:"omitempty,max=500"`
}

// StockAdjustmentRequest represents a manual stock adjustment
type StockAdjustmentRequest struct {
	ProductID uuid.UUID       `json:"productId" binding:"required"`
	Type      string          `json:"type" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reason    string          `json:"reason" binding:"max=500"`
	User      string          `json:"user" binding:"max=100"`
}

// AdjustmentListFilter represents filter options for the ledger
type AdjustmentListFilter struct {
	ProductID string `form:"product_id" binding:"omitempty,uuid"`
	Type      string `form:"type"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// PaymentLineRequest is one sold invoice line
type PaymentLineRequest struct {
	ProductID   string          `json:"productId"`
	Description string          `json:"description" binding:"max=500"`
	SKU         string          `json:"sku" binding:"max=64"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// ApplyPaymentRequest carries a paid invoice whose lines leave stock
type ApplyPaymentRequest struct {
	ID     string               `json:"id" binding:"max=64"`
	Number string               `json:"number" binding:"max=64"`
	Status string               `json:"status" binding:"max=32"`
	Items  []PaymentLineRequest `json:"items" binding:"dive"`
}

func (r ApplyPaymentRequest) toInvoice(clean func(string) string) inventory.Invoice {
	inv := inventory.Invoice{
		ID:     strings.TrimSpace(r.ID),
		Number: clean(r.Number),
		Status: strings.TrimSpace(r.Status),
		Items:  make([]inventory.InvoiceLineItem, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		inv.Items = append(inv.Items, inventory.InvoiceLineItem{
			ProductID:   strings.TrimSpace(item.ProductID),
			Description: clean(item.Description),
			SKU:         clean(item.SKU),
			Quantity:    item.Quantity,
		})
	}
	return inv
}

// ApplyPaymentResponse lists the sale entries recorded for an invoice
type ApplyPaymentResponse struct {
	InvoiceID   string                       `json:"invoiceId"`
	Recorded    int                          `json:"recorded"`
	Skipped     int                          `json:"skipped"`
	Adjustments []*inventory.StockAdjustment `json:"adjustments"`
}

// DeleteResponse reports the outcome of a guarded delete
type DeleteResponse struct {
	Deleted             bool   `json:"deleted"`
	Reason              string `json:"reason,omitempty"`
	ReferencingProducts int    `json:"referencingProducts,omitempty"`
}

func toDeleteResponse(r inventory.DeleteResult) DeleteResponse {
	return DeleteResponse{
		Deleted:             r.Deleted,
		Reason:              r.Reason,
		ReferencingProducts: r.ReferencingProducts,
	}
}

// ResetResponse reports an operator reset
type ResetResponse struct {
	Cleared []string `json:"cleared"`
}

func cleanPtr(s *string, clean func(string) string) *string {
	if s == nil {
		return nil
	}
	v := clean(*s)
	return &v
}
