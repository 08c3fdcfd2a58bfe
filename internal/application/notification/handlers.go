package notification

import (
	"context"
	"fmt"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductLink returns the UI path of a product
func ProductLink(id uuid.UUID) string {
	return "/inventory/products/" + id.String()
}

// NotificationHandler turns catalog, stock and storage events into
// persistent notifications
type NotificationHandler struct {
	emitter *Emitter
	logger  *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(emitter *Emitter, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{emitter: emitter, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *NotificationHandler) EventTypes() []string {
	return []string{
		inventory.EventTypeProductCreated,
		inventory.EventTypeStockAdjusted,
		inventory.EventTypeLowStock,
		inventory.EventTypeStockSold,
		inventory.EventTypeStorageDegraded,
		inventory.EventTypeStorageFailed,
	}
}

// Handle emits the notification for one event
func (h *NotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *inventory.ProductCreatedEvent:
		h.emitter.Notify(ctx, KindProductCreated,
			"Product added: "+e.Name,
			fmt.Sprintf("%s (%s) was added with %s in stock", e.Name, e.SKU, e.Quantity),
			map[string]string{
				"productId": e.ProductID.String(),
				"sku":       e.SKU,
				"quantity":  e.Quantity.String(),
			},
			ProductLink(e.ProductID),
			"package",
		)
	case *inventory.StockAdjustedEvent:
		h.emitter.Notify(ctx, KindStockAdjusted,
			"Stock adjusted: "+e.ProductName,
			fmt.Sprintf("%s %s: %s → %s", e.AdjustmentType, e.Quantity, e.PreviousStock, e.NewStock),
			map[string]string{
				"adjustmentId":  e.AdjustmentID.String(),
				"productId":     e.ProductID.String(),
				"type":          string(e.AdjustmentType),
				"quantity":      e.Quantity.String(),
				"previousStock": e.PreviousStock.String(),
				"newStock":      e.NewStock.String(),
				"user":          e.User,
			},
			ProductLink(e.ProductID),
			"sliders",
		)
	case *inventory.LowStockEvent:
		h.logger.Warn("low stock detected",
			zap.String("product_id", e.ProductID.String()),
			zap.String("sku", e.SKU),
			zap.String("current_stock", e.CurrentStock.String()),
			zap.String("reorder_level", e.ReorderLevel.String()),
		)
		h.emitter.Notify(ctx, KindLowStock,
			"Low stock: "+e.ProductName,
			fmt.Sprintf("%s is down to %s (reorder level %s)", e.ProductName, e.CurrentStock, e.ReorderLevel),
			map[string]string{
				"productId":    e.ProductID.String(),
				"sku":          e.SKU,
				"currentStock": e.CurrentStock.String(),
				"reorderLevel": e.ReorderLevel.String(),
			},
			ProductLink(e.ProductID),
			"alert-triangle",
		)
	case *inventory.StockSoldEvent:
		h.emitter.Notify(ctx, KindStockSold,
			invoiceTitle(e.InvoiceNumber),
			fmt.Sprintf("%d line(s) released %s unit(s) from stock", len(e.AdjustmentIDs), e.TotalQuantity),
			map[string]string{
				"invoiceId":     e.InvoiceID,
				"invoiceNumber": e.InvoiceNumber,
				"entries":       fmt.Sprint(len(e.AdjustmentIDs)),
			},
			"/inventory/adjustments",
			"shopping-cart",
		)
	case *inventory.StorageDegradedEvent:
		h.emitter.Notify(ctx, KindStorage,
			"Storage limit reached",
			e.Message,
			map[string]string{
				"collection": string(e.Collection),
				"action":     e.Action,
				"kept":       fmt.Sprint(e.Kept),
				"dropped":    fmt.Sprint(e.Dropped),
			},
			"",
			"hard-drive",
		)
	case *inventory.StorageFailedEvent:
		h.emitter.Notify(ctx, KindStorage,
			"Storage error",
			fmt.Sprintf("Could not %s %s: %s", e.Operation, e.Collection, e.Reason),
			map[string]string{
				"collection": string(e.Collection),
				"operation":  e.Operation,
			},
			"",
			"alert-octagon",
		)
	default:
		h.logger.Error("unexpected event type",
			zap.Strings("expected", h.EventTypes()),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	return nil
}

// ToastHandler turns the outcome of every mutation into a short transient message
type ToastHandler struct {
	emitter *Emitter
	logger  *zap.Logger
}

// NewToastHandler creates a new ToastHandler
func NewToastHandler(emitter *Emitter, logger *zap.Logger) *ToastHandler {
	return &ToastHandler{emitter: emitter, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *ToastHandler) EventTypes() []string {
	return []string{
		inventory.EventTypeProductCreated,
		inventory.EventTypeProductUpdated,
		inventory.EventTypeProductDeleted,
		inventory.EventTypeProductsBulkUpdated,
		inventory.EventTypeStockAdjusted,
		inventory.EventTypeCategoryCreated,
		inventory.EventTypeCategoryUpdated,
		inventory.EventTypeCategoryDeleted,
		inventory.EventTypeSupplierCreated,
		inventory.EventTypeSupplierUpdated,
		inventory.EventTypeSupplierDeleted,
		inventory.EventTypeSupplierOrderRecorded,
		inventory.EventTypeLowStock,
		inventory.EventTypeStockSold,
		inventory.EventTypeImageCompressionFailed,
		inventory.EventTypeStorageDegraded,
		inventory.EventTypeStorageFailed,
		inventory.EventTypeInventoryReset,
		inventory.EventTypeDefaultsInitialized,
	}
}

// Handle emits the toast for one event
func (h *ToastHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *inventory.ProductCreatedEvent:
		h.emitter.Toast(ctx, fmt.Sprintf("Product %s added", e.Name), LevelSuccess)
	case *inventory.ProductUpdatedEvent:
		h.emitter.Toast(ctx, fmt.Sprintf("Product %s updated", e.Name), LevelSuccess)
	case *inventory.ProductDeletedEvent:
		h.emitter.Toast(ctx, fmt.Sprintf("Product %s deleted", e.Name), LevelSuccess)
	case *inventory.ProductsBulkUpdatedEvent:
		h.emitter.Toast(ctx, fmt.Sprintf("%d product(s) updated", len(e.ProductIDs)), LevelSuccess)
	case *inventory.StockAdjustedEvent:
		h.emitter.Toast(ctx, fmt.Sprintf("Stock for %s is now %s", e.ProductName, e.NewStock), LevelSuccess)
	case *inventory.CategoryEvent:
		h.emitter.Toast(ctx, fmt.Sprintf("Category %s %s", e.Name, outcome(e.EventType())), LevelSuccess)
	case *inventory.SupplierEvent:
		if e.EventType() == inventory.EventTypeSupplierOrderRecorded {
			h.emitter.Toast(ctx, fmt.Sprintf("Order recorded for %s (%d total)", e.Name, e.OrderCount), LevelSuccess)
		} else {
			h.emitter.Toast(ctx, fmt.Sprintf("Supplier %s %s", e.Name, outcome(e.EventType())), LevelSuccess)
		}
	case *inventory.LowStockEvent:
		h.emitter.Toast(ctx, fmt.Sprintf("%s is running low (%s left)", e.ProductName, e.CurrentStock), LevelWarning)
	case *inventory.StockSoldEvent:
		h.emitter.Toast(ctx, fmt.Sprintf("Stock updated for %d item(s)", len(e.AdjustmentIDs)), LevelSuccess)
	case *inventory.ImageCompressionFailedEvent:
		h.emitter.Toast(ctx, fmt.Sprintf("Image for %s could not be compressed; the original was kept", e.Name), LevelWarning)
	case *inventory.StorageDegradedEvent:
		h.emitter.Toast(ctx, e.Message, LevelWarning)
	case *inventory.StorageFailedEvent:
		if e.Operation == inventory.StorageOpLoad {
			h.emitter.Toast(ctx, fmt.Sprintf("Saved %s could not be read and were reset", e.Collection), LevelError)
		} else {
			h.emitter.Toast(ctx, fmt.Sprintf("Could not %s %s", e.Operation, e.Collection), LevelError)
		}
	case *inventory.InventoryResetEvent:
		h.emitter.Toast(ctx, "All inventory data was cleared", LevelInfo)
	case *inventory.DefaultsInitializedEvent:
		h.emitter.Toast(ctx, fmt.Sprintf("Added %d default categories and %d suppliers", e.Categories, e.Suppliers), LevelInfo)
	default:
		h.logger.Error("unexpected event type",
			zap.Strings("expected", h.EventTypes()),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	return nil
}

// outcome names the change a registry event reports
func outcome(eventType string) string {
	switch eventType {
	case inventory.EventTypeCategoryCreated, inventory.EventTypeSupplierCreated:
		return "added"
	case inventory.EventTypeCategoryDeleted, inventory.EventTypeSupplierDeleted:
		return "deleted"
	default:
		return "updated"
	}
}

func invoiceTitle(number string) string {
	if number == "" {
		return "Stock updated for paid invoice"
	}
	return "Stock updated for invoice #" + number
}

// Ensure handlers implement shared.EventHandler
var (
	_ shared.EventHandler = (*NotificationHandler)(nil)
	_ shared.EventHandler = (*ToastHandler)(nil)
)
