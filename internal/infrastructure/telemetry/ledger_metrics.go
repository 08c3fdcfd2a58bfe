package telemetry

import (
	"context"
	"fmt"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StatsFunc returns a current inventory summary for the observable gauges
type StatsFunc func() inventory.Stats

// LedgerMetrics records stock ledger activity as OpenTelemetry metrics. It
// is an event handler and is fed from the event bus.
type LedgerMetrics struct {
	adjustments  metric.Int64Counter
	units        metric.Float64Counter
	lowStock     metric.Int64Counter
	sales        metric.Int64Counter
	unitsSold    metric.Float64Counter
	degradations metric.Int64Counter
	registration metric.Registration
}

// NewLedgerMetrics creates the instruments on meter. When stats is not nil
// inventory gauges are observed from it on every collection.
func NewLedgerMetrics(meter metric.Meter, stats StatsFunc) (*LedgerMetrics, error) {
	m := &LedgerMetrics{}
	var err error

	if m.adjustments, err = meter.Int64Counter("stockledger.adjustments",
		metric.WithDescription("Stock adjustments recorded"),
		metric.WithUnit("{adjustment}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create adjustments counter: %w", err)
	}
	if m.units, err = meter.Float64Counter("stockledger.adjustment.units",
		metric.WithDescription("Absolute units moved by stock adjustments"),
		metric.WithUnit("{unit}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create units counter: %w", err)
	}
	if m.lowStock, err = meter.Int64Counter("stockledger.low_stock.alerts",
		metric.WithDescription("Products that crossed their reorder level"),
	); err != nil {
		return nil, fmt.Errorf("failed to create low stock counter: %w", err)
	}
	if m.sales, err = meter.Int64Counter("stockledger.invoices.applied",
		metric.WithDescription("Paid invoices that released stock"),
	); err != nil {
		return nil, fmt.Errorf("failed to create sales counter: %w", err)
	}
	if m.unitsSold, err = meter.Float64Counter("stockledger.units.sold",
		metric.WithDescription("Units released by paid invoices"),
		metric.WithUnit("{unit}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create units sold counter: %w", err)
	}
	if m.degradations, err = meter.Int64Counter("stockledger.storage.degradations",
		metric.WithDescription("Degradations applied to persisted collections"),
	); err != nil {
		return nil, fmt.Errorf("failed to create degradations counter: %w", err)
	}

	if stats != nil {
		if err := m.observeStats(meter, stats); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *LedgerMetrics) observeStats(meter metric.Meter, stats StatsFunc) error {
	products, err := meter.Int64ObservableGauge("stockledger.products",
		metric.WithDescription("Products by stock status"))
	if err != nil {
		return fmt.Errorf("failed to create products gauge: %w", err)
	}
	value, err := meter.Float64ObservableGauge("stockledger.inventory.value",
		metric.WithDescription("Total inventory value at sale price"))
	if err != nil {
		return fmt.Errorf("failed to create value gauge: %w", err)
	}

	m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		st := stats()
		inStock := st.TotalProducts - st.LowStockCount - st.OutOfStockCount
		o.ObserveInt64(products, int64(inStock), metric.WithAttributes(statusAttr(inventory.StockStatusInStock)))
		o.ObserveInt64(products, int64(st.LowStockCount), metric.WithAttributes(statusAttr(inventory.StockStatusLowStock)))
		o.ObserveInt64(products, int64(st.OutOfStockCount), metric.WithAttributes(statusAttr(inventory.StockStatusOutOfStock)))
		o.ObserveFloat64(value, st.TotalValue.InexactFloat64())
		return nil
	}, products, value)
	if err != nil {
		return fmt.Errorf("failed to register inventory callback: %w", err)
	}
	return nil
}

func statusAttr(s inventory.StockStatus) attribute.KeyValue {
	return attribute.String("status", string(s))
}

// Handle implements shared.EventHandler
func (m *LedgerMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *inventory.StockAdjustedEvent:
		attrs := metric.WithAttributes(attribute.String("type", string(e.AdjustmentType)))
		m.adjustments.Add(ctx, 1, attrs)
		m.units.Add(ctx, e.Quantity.Abs().InexactFloat64(), attrs)
	case *inventory.LowStockEvent:
		m.lowStock.Add(ctx, 1)
	case *inventory.StockSoldEvent:
		m.sales.Add(ctx, 1)
		m.unitsSold.Add(ctx, e.TotalQuantity.InexactFloat64())
		m.adjustments.Add(ctx, int64(len(e.AdjustmentIDs)),
			metric.WithAttributes(attribute.String("type", string(inventory.AdjustmentTypeSale))))
	case *inventory.StorageDegradedEvent:
		m.degradations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("collection", string(e.Collection)),
			attribute.String("action", e.Action),
		))
	}
	return nil
}

// EventTypes implements shared.EventHandler
func (m *LedgerMetrics) EventTypes() []string {
	return []string{
		inventory.EventTypeStockAdjusted,
		inventory.EventTypeLowStock,
		inventory.EventTypeStockSold,
		inventory.EventTypeStorageDegraded,
	}
}

// Close unregisters the gauge callback
func (m *LedgerMetrics) Close() error {
	if m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}

var _ shared.EventHandler = (*LedgerMetrics)(nil)
