package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{
		events: make([]shared.DomainEvent, 0),
	}
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

func (m *MockEventPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = make([]shared.DomainEvent, 0)
}

// MockPersister is a mock implementation of Persister
type MockPersister struct {
	mock.Mock
}

func (m *MockPersister) Save(ctx context.Context, snap inventory.Snapshot, collections []inventory.Collection) []persistence.SaveResult {
	args := m.Called(ctx, snap, collections)
	return args.Get(0).([]persistence.SaveResult)
}

func (m *MockPersister) Load(ctx context.Context) inventory.Snapshot {
	args := m.Called(ctx)
	return args.Get(0).(inventory.Snapshot)
}

func (m *MockPersister) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type serviceFixture struct {
	svc       *InventoryService
	kv        *persistence.MemoryStore
	manager   *persistence.Manager
	publisher *MockEventPublisher
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	kv := persistence.NewMemoryStore(0)
	publisher := NewMockEventPublisher()
	manager := persistence.NewManager(kv, persistence.DefaultConfig(), persistence.WithEventPublisher(publisher))
	svc := NewInventoryService(inventory.NewInventoryStore(), manager, zap.NewNop())
	svc.SetEventPublisher(publisher)
	return &serviceFixture{svc: svc, kv: kv, manager: manager, publisher: publisher}
}

func (f *serviceFixture) addProduct(t *testing.T, req CreateProductRequest) *inventory.Product {
	t.Helper()
	p, err := f.svc.AddProduct(context.Background(), req)
	require.NoError(t, err)
	return p
}

func TestInventoryService_AddProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("persists product, category counter and opening entry", func(t *testing.T) {
		f := newServiceFixture(t)
		cat, err := f.svc.AddCategory(ctx, CreateCategoryRequest{Name: "Tools"})
		require.NoError(t, err)

		p := f.addProduct(t, CreateProductRequest{
			SKU:        "HAM-01",
			Name:       "Hammer",
			CategoryID: &cat.ID,
			Price:      "4.50",
			Quantity:   "25",
		})

		assert.True(t, p.Quantity.Equal(decimal.NewFromInt(25)))
		assert.Equal(t, inventory.StockStatusInStock, p.Status)
		assert.True(t, p.TotalValue.Equal(decimal.RequireFromString("112.5")))

		loaded := f.manager.Load(ctx)
		require.Len(t, loaded.Products, 1)
		assert.Equal(t, p.ID, loaded.Products[0].ID)
		require.Len(t, loaded.Categories, 1)
		assert.Equal(t, 1, loaded.Categories[0].ProductCount)
		require.Len(t, loaded.Adjustments, 1)
		assert.Equal(t, inventory.AdjustmentTypeNewProduct, loaded.Adjustments[0].Type)

		assert.Len(t, f.publisher.GetEventsByType(inventory.EventTypeProductCreated), 1)
	})

	t.Run("strips markup from text fields", func(t *testing.T) {
		f := newServiceFixture(t)
		p := f.addProduct(t, CreateProductRequest{
			SKU:         " W-1 ",
			Name:        "<b>Widget</b>",
			Description: "Nuts & <i>bolts</i>",
		})
		assert.Equal(t, "W-1", p.SKU)
		assert.Equal(t, "Widget", p.Name)
		assert.Equal(t, "Nuts & bolts", p.Description)
	})

	t.Run("rejects missing name", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.AddProduct(ctx, CreateProductRequest{SKU: "X-1"})
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeValidation))
		assert.Contains(t, err.Error(), "name is required")
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		f := newServiceFixture(t)
		missing := uuid.New()
		_, err := f.svc.AddProduct(ctx, CreateProductRequest{SKU: "X-1", Name: "X", CategoryID: &missing})
		require.Error(t, err)
		assert.Empty(t, f.svc.ListCategories(ctx))
		_, found, _ := f.kv.Get(ctx, f.manager.Key(inventory.CollectionProducts))
		assert.False(t, found, "a rejected operation persists nothing")
	})
}

func TestInventoryService_AddStockAdjustment(t *testing.T) {
	ctx := context.Background()

	t.Run("sign convention", func(t *testing.T) {
		f := newServiceFixture(t)
		p := f.addProduct(t, CreateProductRequest{SKU: "A", Name: "A", Quantity: "10", ReorderLevel: "2"})

		entry, err := f.svc.AddStockAdjustment(ctx, StockAdjustmentRequest{
			ProductID: p.ID, Type: "SALE", Quantity: decimal.NewFromInt(3),
		})
		require.NoError(t, err)
		assert.True(t, entry.NewStock.Equal(decimal.NewFromInt(7)))
		assert.True(t, entry.Quantity.Equal(decimal.NewFromInt(-3)))

		entry, err = f.svc.AddStockAdjustment(ctx, StockAdjustmentRequest{
			ProductID: p.ID, Type: "Restock", Quantity: decimal.NewFromInt(5),
		})
		require.NoError(t, err)
		assert.True(t, entry.NewStock.Equal(decimal.NewFromInt(12)))

		got, err := f.svc.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, got.Quantity.Equal(decimal.NewFromInt(12)))
		assert.Len(t, f.publisher.GetEventsByType(inventory.EventTypeStockAdjusted), 2)
	})

	t.Run("operator from context is recorded as user", func(t *testing.T) {
		f := newServiceFixture(t)
		p := f.addProduct(t, CreateProductRequest{SKU: "A", Name: "A", Quantity: "10"})

		opCtx := logger.WithOperator(ctx, "alice")
		entry, err := f.svc.AddStockAdjustment(opCtx, StockAdjustmentRequest{
			ProductID: p.ID, Type: "DAMAGE", Quantity: decimal.NewFromInt(1),
		})
		require.NoError(t, err)
		assert.Equal(t, "alice", entry.User)
	})

	t.Run("emits one low stock event", func(t *testing.T) {
		f := newServiceFixture(t)
		p := f.addProduct(t, CreateProductRequest{SKU: "A", Name: "A", Quantity: "20", ReorderLevel: "10"})

		_, err := f.svc.AddStockAdjustment(ctx, StockAdjustmentRequest{ProductID: p.ID, Type: "SALE", Quantity: decimal.NewFromInt(12)})
		require.NoError(t, err)
		_, err = f.svc.AddStockAdjustment(ctx, StockAdjustmentRequest{ProductID: p.ID, Type: "SALE", Quantity: decimal.NewFromInt(2)})
		require.NoError(t, err)

		assert.Len(t, f.publisher.GetEventsByType(inventory.EventTypeLowStock), 1)
	})

	t.Run("rejects unknown type and missing product", func(t *testing.T) {
		f := newServiceFixture(t)
		p := f.addProduct(t, CreateProductRequest{SKU: "A", Name: "A", Quantity: "1"})

		_, err := f.svc.AddStockAdjustment(ctx, StockAdjustmentRequest{ProductID: p.ID, Type: "GIFT", Quantity: decimal.NewFromInt(1)})
		assert.True(t, shared.HasCode(err, shared.CodeValidation))

		_, err = f.svc.AddStockAdjustment(ctx, StockAdjustmentRequest{ProductID: uuid.New(), Type: "SALE", Quantity: decimal.NewFromInt(1)})
		assert.True(t, errors.Is(err, shared.ErrNotFound))

		_, err = f.svc.AddStockAdjustment(ctx, StockAdjustmentRequest{Type: "SALE", Quantity: decimal.NewFromInt(1)})
		assert.True(t, shared.HasCode(err, shared.CodeValidation), "nil product id fails validation")
	})
}

func TestInventoryService_UpdateStockOnPayment(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	mouse := f.addProduct(t, CreateProductRequest{SKU: "M-1", Name: "Mouse", Quantity: "10", ReorderLevel: "2"})
	f.addProduct(t, CreateProductRequest{SKU: "K-1", Name: "Keyboard", Quantity: "6", ReorderLevel: "2"})

	resp, err := f.svc.UpdateStockOnPayment(ctx, ApplyPaymentRequest{
		ID:     "inv-1",
		Number: "1001",
		Status: "paid",
		Items: []PaymentLineRequest{
			{ProductID: mouse.ID.String(), Description: "Mouse", Quantity: decimal.NewFromInt(4)},
			{Description: "Keyboard", Quantity: decimal.NewFromInt(20)},
			{Description: "Unknown", Quantity: decimal.NewFromInt(1)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Recorded)
	assert.Equal(t, 2, resp.Skipped)

	got, err := f.svc.GetProduct(ctx, mouse.ID)
	require.NoError(t, err)
	assert.True(t, got.Quantity.Equal(decimal.NewFromInt(6)))
	assert.Len(t, f.publisher.GetEventsByType(inventory.EventTypeStockSold), 1)

	_, err = f.svc.UpdateStockOnPayment(ctx, ApplyPaymentRequest{Number: "1002", Status: "draft"})
	assert.True(t, shared.HasCode(err, shared.CodeValidation))
}

type fakeInvoiceGuard struct {
	claimed  map[string]bool
	claimErr error
	released []string
}

func (g *fakeInvoiceGuard) Claim(_ context.Context, id string) (bool, error) {
	if g.claimErr != nil {
		return false, g.claimErr
	}
	if g.claimed[id] {
		return false, nil
	}
	g.claimed[id] = true
	return true, nil
}

func (g *fakeInvoiceGuard) Release(_ context.Context, id string) error {
	delete(g.claimed, id)
	g.released = append(g.released, id)
	return nil
}

func TestInventoryService_UpdateStockOnPayment_Replay(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	guard := &fakeInvoiceGuard{claimed: map[string]bool{}}
	f.svc.SetInvoiceGuard(guard)
	mouse := f.addProduct(t, CreateProductRequest{SKU: "M-1", Name: "Mouse", Quantity: "10"})

	req := ApplyPaymentRequest{
		ID:     "inv-9",
		Status: "paid",
		Items:  []PaymentLineRequest{{ProductID: mouse.ID.String(), Quantity: decimal.NewFromInt(3)}},
	}
	_, err := f.svc.UpdateStockOnPayment(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.UpdateStockOnPayment(ctx, req)
	assert.True(t, shared.HasCode(err, shared.CodeConflict))

	got, err := f.svc.GetProduct(ctx, mouse.ID)
	require.NoError(t, err)
	assert.True(t, got.Quantity.Equal(decimal.NewFromInt(7)), "stock released once")

	// unpaid invoices are never claimed
	_, err = f.svc.UpdateStockOnPayment(ctx, ApplyPaymentRequest{ID: "inv-10", Status: "draft"})
	assert.True(t, shared.HasCode(err, shared.CodeValidation))
	assert.False(t, guard.claimed["inv-10"])

	// an unreachable guard does not block the sale
	guard.claimErr = errors.New("redis down")
	req.ID = "inv-11"
	_, err = f.svc.UpdateStockOnPayment(ctx, req)
	require.NoError(t, err)
}

func TestInventoryService_CategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	cat, err := f.svc.AddCategory(ctx, CreateCategoryRequest{Name: "Paper", Color: "#fff"})
	require.NoError(t, err)
	p := f.addProduct(t, CreateProductRequest{SKU: "P-1", Name: "A4", CategoryID: &cat.ID})

	res, err := f.svc.DeleteCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.False(t, res.Deleted)
	assert.Equal(t, 1, res.ReferencingProducts)

	_, err = f.svc.UpdateProduct(ctx, p.ID, UpdateProductRequest{ClearCategory: true})
	require.NoError(t, err)

	res, err = f.svc.DeleteCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.Empty(t, f.svc.ListCategories(ctx))
	assert.Empty(t, f.manager.Load(ctx).Categories)
}

func TestInventoryService_SupplierOperations(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	_, err := f.svc.AddSupplier(ctx, CreateSupplierRequest{Name: "Acme", Email: "not-an-email"})
	assert.True(t, shared.HasCode(err, shared.CodeValidation))

	sup, err := f.svc.AddSupplier(ctx, CreateSupplierRequest{Name: "Acme", Email: "sales@acme.example"})
	require.NoError(t, err)
	p := f.addProduct(t, CreateProductRequest{SKU: "A", Name: "A"})

	added, err := f.svc.AddProductToSupplier(ctx, sup.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = f.svc.AddProductToSupplier(ctx, sup.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, added)

	sup, err = f.svc.RecordSupplierOrder(ctx, sup.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sup.OrderCount)
	assert.Equal(t, []uuid.UUID{p.ID}, sup.Products)

	loaded := f.manager.Load(ctx)
	require.Len(t, loaded.Suppliers, 1)
	assert.Equal(t, 1, loaded.Suppliers[0].OrderCount)
}

func TestInventoryService_ListAdjustments(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	a := f.addProduct(t, CreateProductRequest{SKU: "A", Name: "A", Quantity: "5"})
	b := f.addProduct(t, CreateProductRequest{SKU: "B", Name: "B", Quantity: "5"})
	_, err := f.svc.AddStockAdjustment(ctx, StockAdjustmentRequest{ProductID: a.ID, Type: "SALE", Quantity: decimal.NewFromInt(1)})
	require.NoError(t, err)

	all, err := f.svc.ListAdjustments(ctx, AdjustmentListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, inventory.AdjustmentTypeSale, all[0].Type, "newest first")

	forB, err := f.svc.ListAdjustments(ctx, AdjustmentListFilter{ProductID: b.ID.String()})
	require.NoError(t, err)
	assert.Len(t, forB, 1)

	sales, err := f.svc.ListAdjustments(ctx, AdjustmentListFilter{Type: "sale"})
	require.NoError(t, err)
	assert.Len(t, sales, 1)

	_, err = f.svc.ListAdjustments(ctx, AdjustmentListFilter{ProductID: "nope"})
	assert.True(t, shared.HasCode(err, shared.CodeValidation))

	require.NoError(t, f.svc.DeleteProduct(ctx, a.ID))
	assert.Len(t, f.svc.ProductHistory(ctx, a.ID), 2, "history outlives the product")
}

func TestInventoryService_ListProducts(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	cat, err := f.svc.AddCategory(ctx, CreateCategoryRequest{Name: "Cables"})
	require.NoError(t, err)
	f.addProduct(t, CreateProductRequest{SKU: "USB-C", Name: "USB cable", CategoryID: &cat.ID, Quantity: "3"})
	f.addProduct(t, CreateProductRequest{SKU: "HDMI", Name: "HDMI cable"})
	f.addProduct(t, CreateProductRequest{SKU: "LMP", Name: "Lamp", Quantity: "1"})

	got, err := f.svc.ListProducts(ctx, ProductListFilter{Search: "CABLE"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = f.svc.ListProducts(ctx, ProductListFilter{Search: "cable", CategoryID: cat.ID.String()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "USB-C", got[0].SKU)

	pos := f.svc.ProductsForPOS(ctx)
	require.Len(t, pos, 2)
	assert.Equal(t, "Lamp", pos[0].Name)

	picker := f.svc.ProductsForInvoicePicker(ctx)
	require.Len(t, picker, 3)
	assert.Equal(t, "HDMI cable", picker[0].Name)
}

func TestInventoryService_BulkUpdate(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	a := f.addProduct(t, CreateProductRequest{SKU: "A", Name: "A"})
	b := f.addProduct(t, CreateProductRequest{SKU: "B", Name: "B"})
	unit := "box"

	updated, err := f.svc.BulkUpdate(ctx, BulkUpdateProductsRequest{
		IDs:   []uuid.UUID{a.ID, uuid.New(), b.ID},
		Patch: UpdateProductRequest{Unit: &unit},
	})
	require.NoError(t, err)
	require.Len(t, updated, 2)
	for _, p := range updated {
		assert.Equal(t, "box", p.Unit)
	}

	_, err = f.svc.BulkUpdate(ctx, BulkUpdateProductsRequest{})
	assert.True(t, shared.HasCode(err, shared.CodeValidation))
}

func TestInventoryService_LoadAndDefaults(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	seeded, err := f.svc.InitializeDefaults(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)
	f.addProduct(t, CreateProductRequest{SKU: "A", Name: "A", Quantity: "4"})

	seeded, err = f.svc.InitializeDefaults(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	restarted := NewInventoryService(inventory.NewInventoryStore(), f.manager, zap.NewNop())
	require.NoError(t, restarted.Load(ctx))

	stats := restarted.Stats(ctx)
	assert.Equal(t, 1, stats.TotalProducts)
	assert.Equal(t, f.svc.Stats(ctx).CategoryCount, stats.CategoryCount)
	assert.Equal(t, 1, stats.AdjustmentCount)
	assert.True(t, stats.LowStockCount == 1, "4 is at or below the default reorder level")
}

func TestInventoryService_Reset(t *testing.T) {
	ctx := context.Background()

	t.Run("wipes memory and store", func(t *testing.T) {
		f := newServiceFixture(t)
		f.addProduct(t, CreateProductRequest{SKU: "A", Name: "A", Quantity: "4"})

		resp, err := f.svc.Reset(ctx)
		require.NoError(t, err)
		assert.Len(t, resp.Cleared, 4)
		products, err := f.svc.ListProducts(ctx, ProductListFilter{})
		require.NoError(t, err)
		assert.Empty(t, products)
		assert.Zero(t, f.kv.Used())
		assert.Len(t, f.publisher.GetEventsByType(inventory.EventTypeInventoryReset), 1)
	})

	t.Run("falls back to writing empty collections when clear fails", func(t *testing.T) {
		persister := new(MockPersister)
		persister.On("Clear", mock.Anything).Return(errors.New("store offline"))
		persister.On("Save", mock.Anything, mock.Anything, inventory.AllCollections).
			Return([]persistence.SaveResult{})

		svc := NewInventoryService(inventory.NewInventoryStore(), persister, zap.NewNop())
		_, err := svc.Reset(ctx)
		require.NoError(t, err)
		persister.AssertExpectations(t)
	})
}

func TestInventoryService_ProductImage(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	p := f.addProduct(t, CreateProductRequest{SKU: "A", Name: "A", Image: "data:image/png;base64,AAAA"})
	img, err := f.svc.ProductImage(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AAAA", img)

	q := f.addProduct(t, CreateProductRequest{SKU: "B", Name: "B"})
	_, err = f.svc.ProductImage(ctx, q.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestAmount_UnmarshalJSON(t *testing.T) {
	var req CreateProductRequest
	require.NoError(t, json.Unmarshal([]byte(`{"sku":"A","name":"A","price":12.5,"quantity":"7","costPrice":null,"reorderLevel":"abc"}`), &req))
	assert.Equal(t, Amount("12.5"), req.Price)
	assert.Equal(t, Amount("7"), req.Quantity)
	assert.Equal(t, Amount(""), req.CostPrice)
	assert.Equal(t, Amount("abc"), req.ReorderLevel)

	f := newServiceFixture(t)
	p, err := f.svc.AddProduct(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, p.ReorderLevel.Equal(inventory.DefaultReorderLevel))
}
