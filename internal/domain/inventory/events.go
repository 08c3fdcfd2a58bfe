package inventory

import (
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeProduct  = "Product"
	AggregateTypeCategory = "Category"
	AggregateTypeSupplier = "Supplier"
	AggregateTypeLedger   = "StockLedger"
	AggregateTypeStorage  = "Storage"
)

// Event type constants
const (
	EventTypeProductCreated         = "ProductCreated"
	EventTypeProductUpdated         = "ProductUpdated"
	EventTypeProductDeleted         = "ProductDeleted"
	EventTypeProductsBulkUpdated    = "ProductsBulkUpdated"
	EventTypeImageCompressionFailed = "ImageCompressionFailed"
	EventTypeStockAdjusted          = "StockAdjusted"
	EventTypeLowStock               = "LowStock"
	EventTypeStockSold              = "StockSold"
	EventTypeCategoryCreated        = "CategoryCreated"
	EventTypeCategoryUpdated        = "CategoryUpdated"
	EventTypeCategoryDeleted        = "CategoryDeleted"
	EventTypeSupplierCreated        = "SupplierCreated"
	EventTypeSupplierUpdated        = "SupplierUpdated"
	EventTypeSupplierDeleted        = "SupplierDeleted"
	EventTypeSupplierOrderRecorded  = "SupplierOrderRecorded"
	EventTypeDefaultsInitialized    = "DefaultsInitialized"
	EventTypeInventoryReset         = "InventoryReset"
	EventTypeStorageDegraded        = "StorageDegraded"
	EventTypeStorageFailed          = "StorageFailed"
)

// ProductCreatedEvent is raised when a product is added to the catalog
type ProductCreatedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// NewProductCreatedEvent creates a new ProductCreatedEvent
func NewProductCreatedEvent(p *Product) *ProductCreatedEvent {
	return &ProductCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductCreated, AggregateTypeProduct, p.ID),
		ProductID:       p.ID,
		SKU:             p.SKU,
		Name:            p.Name,
		Quantity:        p.Quantity,
	}
}

// ProductUpdatedEvent is raised when a product's catalog fields change
type ProductUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductID       uuid.UUID `json:"product_id"`
	Name            string    `json:"name"`
	CategoryChanged bool      `json:"category_changed"`
	SupplierChanged bool      `json:"supplier_changed"`
}

// NewProductUpdatedEvent creates a new ProductUpdatedEvent
func NewProductUpdatedEvent(p *Product, categoryChanged, supplierChanged bool) *ProductUpdatedEvent {
	return &ProductUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductUpdated, AggregateTypeProduct, p.ID),
		ProductID:       p.ID,
		Name:            p.Name,
		CategoryChanged: categoryChanged,
		SupplierChanged: supplierChanged,
	}
}

// ProductDeletedEvent is raised when a product is removed from the catalog
type ProductDeletedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
}

// NewProductDeletedEvent creates a new ProductDeletedEvent
func NewProductDeletedEvent(p *Product) *ProductDeletedEvent {
	return &ProductDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductDeleted, AggregateTypeProduct, p.ID),
		ProductID:       p.ID,
		Name:            p.Name,
	}
}

// ProductsBulkUpdatedEvent is raised once per bulk update that touched products
type ProductsBulkUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductIDs []uuid.UUID `json:"product_ids"`
}

// NewProductsBulkUpdatedEvent creates a new ProductsBulkUpdatedEvent
func NewProductsBulkUpdatedEvent(ids []uuid.UUID) *ProductsBulkUpdatedEvent {
	return &ProductsBulkUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductsBulkUpdated, AggregateTypeProduct, uuid.Nil),
		ProductIDs:      ids,
	}
}

// ImageCompressionFailedEvent is raised when an uploaded image could not be
// compressed and was stored as received
type ImageCompressionFailedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Reason    string    `json:"reason"`
	ImageSize int       `json:"image_size"`
}

// NewImageCompressionFailedEvent creates a new ImageCompressionFailedEvent
func NewImageCompressionFailedEvent(p *Product, size int, cause error) *ImageCompressionFailedEvent {
	return &ImageCompressionFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeImageCompressionFailed, AggregateTypeProduct, p.ID),
		ProductID:       p.ID,
		Name:            p.Name,
		Reason:          cause.Error(),
		ImageSize:       size,
	}
}

// StockAdjustedEvent is raised for every ledger entry appended
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	AdjustmentID   uuid.UUID       `json:"adjustment_id"`
	ProductID      uuid.UUID       `json:"product_id"`
	ProductName    string          `json:"product_name"`
	AdjustmentType AdjustmentType  `json:"adjustment_type"`
	Quantity       decimal.Decimal `json:"quantity"`
	PreviousStock  decimal.Decimal `json:"previous_stock"`
	NewStock       decimal.Decimal `json:"new_stock"`
	User           string          `json:"user"`
}

// NewStockAdjustedEvent creates a new StockAdjustedEvent
func NewStockAdjustedEvent(a *StockAdjustment) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, AggregateTypeProduct, a.ProductID),
		AdjustmentID:    a.ID,
		ProductID:       a.ProductID,
		ProductName:     a.ProductName,
		AdjustmentType:  a.Type,
		Quantity:        a.Quantity,
		PreviousStock:   a.PreviousStock,
		NewStock:        a.NewStock,
		User:            a.User,
	}
}

// LowStockEvent is raised when an adjustment brings a product from above its
// reorder level to a positive level at or below it
type LowStockEvent struct {
	shared.BaseDomainEvent
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	SKU          string          `json:"sku"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
}

// NewLowStockEvent creates a new LowStockEvent
func NewLowStockEvent(p *Product) *LowStockEvent {
	return &LowStockEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLowStock, AggregateTypeProduct, p.ID),
		ProductID:       p.ID,
		ProductName:     p.Name,
		SKU:             p.SKU,
		CurrentStock:    p.Quantity,
		ReorderLevel:    p.ReorderLevel,
	}
}

// StockSoldEvent is raised once per paid invoice that released stock
type StockSoldEvent struct {
	shared.BaseDomainEvent
	InvoiceID     string          `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	AdjustmentIDs []uuid.UUID     `json:"adjustment_ids"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
}

// NewStockSoldEvent creates a new StockSoldEvent
func NewStockSoldEvent(invoice Invoice, entries []*StockAdjustment) *StockSoldEvent {
	ids := make([]uuid.UUID, 0, len(entries))
	total := decimal.Zero
	for _, e := range entries {
		ids = append(ids, e.ID)
		total = total.Add(e.Quantity.Abs())
	}
	return &StockSoldEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockSold, AggregateTypeLedger, uuid.Nil),
		InvoiceID:       invoice.ID,
		InvoiceNumber:   invoice.Number,
		AdjustmentIDs:   ids,
		TotalQuantity:   total,
	}
}

// CategoryEvent is raised when a category is created, updated or deleted
type CategoryEvent struct {
	shared.BaseDomainEvent
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
}

func newCategoryEvent(eventType string, c *Category) *CategoryEvent {
	return &CategoryEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeCategory, c.ID),
		CategoryID:      c.ID,
		Name:            c.Name,
	}
}

// SupplierEvent is raised when a supplier is created, updated, deleted or ordered from
type SupplierEvent struct {
	shared.BaseDomainEvent
	SupplierID uuid.UUID `json:"supplier_id"`
	Name       string    `json:"name"`
	OrderCount int       `json:"order_count"`
}

func newSupplierEvent(eventType string, s *Supplier) *SupplierEvent {
	return &SupplierEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeSupplier, s.ID),
		SupplierID:      s.ID,
		Name:            s.Name,
		OrderCount:      s.OrderCount,
	}
}

// DefaultsInitializedEvent is raised when default categories and suppliers are seeded
type DefaultsInitializedEvent struct {
	shared.BaseDomainEvent
	Categories int `json:"categories"`
	Suppliers  int `json:"suppliers"`
}

// InventoryResetEvent is raised when every collection was wiped
type InventoryResetEvent struct {
	shared.BaseDomainEvent
}

// Storage degradation actions
const (
	DegradeImagesOptimized = "images_optimized"
	DegradeImagesStripped  = "images_stripped"
	DegradeTruncated       = "truncated"
	DegradeQuotaRecovered  = "quota_recovered"
	DegradeQuotaSkipped    = "quota_skipped"
)

// StorageDegradedEvent is raised when the persisted copy of a collection had
// to be reduced to fit the store. The in-memory collection is untouched.
type StorageDegradedEvent struct {
	shared.BaseDomainEvent
	Collection Collection `json:"collection"`
	Action     string     `json:"action"`
	Kept       int        `json:"kept"`
	Dropped    int        `json:"dropped"`
	Message    string     `json:"message"`
}

// NewStorageDegradedEvent creates a new StorageDegradedEvent
func NewStorageDegradedEvent(collection Collection, action string, kept, dropped int, message string) *StorageDegradedEvent {
	return &StorageDegradedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStorageDegraded, AggregateTypeStorage, uuid.Nil),
		Collection:      collection,
		Action:          action,
		Kept:            kept,
		Dropped:         dropped,
		Message:         message,
	}
}

// Storage failure operations
const (
	StorageOpLoad  = "load"
	StorageOpSave  = "save"
	StorageOpClear = "clear"
)

// StorageFailedEvent is raised when a collection could not be loaded or saved.
// A failed load leaves the collection empty.
type StorageFailedEvent struct {
	shared.BaseDomainEvent
	Collection Collection `json:"collection"`
	Operation  string     `json:"operation"`
	Reason     string     `json:"reason"`
}

// NewStorageFailedEvent creates a new StorageFailedEvent
func NewStorageFailedEvent(collection Collection, operation string, cause error) *StorageFailedEvent {
	return &StorageFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStorageFailed, AggregateTypeStorage, uuid.Nil),
		Collection:      collection,
		Operation:       operation,
		Reason:          cause.Error(),
	}
}
