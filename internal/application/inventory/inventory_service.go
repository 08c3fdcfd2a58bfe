package inventory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Persister stores and loads the inventory collections
type Persister interface {
	Save(ctx context.Context, snap inventory.Snapshot, collections []inventory.Collection) []persistence.SaveResult
	Load(ctx context.Context) inventory.Snapshot
	Clear(ctx context.Context) error
}

// ImageFetcher resolves an archived image reference to the image payload
type ImageFetcher interface {
	FetchArchivedImage(ctx context.Context, ref string) (string, error)
}

// InvoiceGuard remembers which invoices have already released stock
type InvoiceGuard interface {
	Claim(ctx context.Context, invoiceID string) (bool, error)
	Release(ctx context.Context, invoiceID string) error
}

// InventoryService is the single entry point for inventory reads and writes.
// Every call runs under one lock; a mutating call flushes the collections it
// changed and then publishes the events it raised before the lock is
// released. Event handlers must not call back into the service.
type InventoryService struct {
	mu             sync.Mutex
	store          *inventory.InventoryStore
	persister      Persister
	images         ImageFetcher
	invoices       InvoiceGuard
	eventPublisher shared.EventPublisher
	validate       *validator.Validate
	sanitizer      textSanitizer
	logger         *zap.Logger
}

// NewInventoryService creates a new InventoryService. persister may be nil,
// in which case the inventory lives in memory only.
func NewInventoryService(store *inventory.InventoryStore, persister Persister, log *zap.Logger) *InventoryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &InventoryService{
		store:     store,
		persister: persister,
		validate:  newValidator(),
		sanitizer: newTextSanitizer(),
		logger:    log,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *InventoryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetImageFetcher enables resolving archived product images
func (s *InventoryService) SetImageFetcher(fetcher ImageFetcher) {
	s.images = fetcher
}

// SetInvoiceGuard rejects a paid invoice that was already applied
func (s *InventoryService) SetInvoiceGuard(guard InvoiceGuard) {
	s.invoices = guard
}

// mutate runs op under the service lock and flushes what it changed
func mutate[T any](ctx context.Context, s *InventoryService, name string, op func(ctx context.Context, st *inventory.InventoryStore) (T, error), attrs ...attribute.KeyValue) (T, error) {
	ctx, span := telemetry.StartSpan(ctx, "inventory."+name, attrs...)
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := op(ctx, s.store)
	s.flush(ctx)
	telemetry.EndSpan(span, err)
	if err != nil {
		logger.Enrich(ctx, s.logger).Debug("Inventory operation rejected",
			zap.String("operation", name),
			zap.Error(err),
		)
	}
	return result, err
}

// read runs op under the service lock without flushing
func read[T any](s *InventoryService, op func(st *inventory.InventoryStore) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return op(s.store)
}

// flush persists the dirty collections and publishes pending events.
// Persistence failures are handled by the persister and only logged here.
func (s *InventoryService) flush(ctx context.Context) {
	if dirty := s.store.TakeDirty(); len(dirty) > 0 && s.persister != nil {
		for _, res := range s.persister.Save(ctx, s.store.Snapshot(), dirty) {
			if res.Err != nil {
				logger.Enrich(ctx, s.logger).Warn("Collection not persisted",
					zap.String("collection", string(res.Collection)),
					zap.Error(res.Err),
				)
			}
		}
	}
	s.publishDomainEvents(ctx)
}

// publishDomainEvents publishes all domain events raised by the store
func (s *InventoryService) publishDomainEvents(ctx context.Context) {
	events := s.store.PullDomainEvents()
	if len(events) == 0 || s.eventPublisher == nil {
		return
	}
	// Handler errors are logged by the event bus, not propagated
	_ = s.eventPublisher.Publish(ctx, events...)
}

func (s *InventoryService) check(req any) error {
	if err := s.validate.Struct(req); err != nil {
		return validationError(err)
	}
	return nil
}

// Load replaces the in-memory inventory with the persisted collections
func (s *InventoryService) Load(ctx context.Context) error {
	_, err := mutate(ctx, s, "Load", func(ctx context.Context, st *inventory.InventoryStore) (struct{}, error) {
		if s.persister == nil {
			return struct{}{}, nil
		}
		st.Restore(s.persister.Load(ctx))
		stats := st.Stats()
		logger.Enrich(ctx, s.logger).Info("Inventory loaded",
			zap.Int("products", stats.TotalProducts),
			zap.Int("categories", stats.CategoryCount),
			zap.Int("suppliers", stats.SupplierCount),
			zap.Int("adjustments", stats.AdjustmentCount),
		)
		return struct{}{}, nil
	})
	return err
}

// InitializeDefaults seeds the default categories and suppliers when both
// registries are empty. It reports whether anything was seeded.
func (s *InventoryService) InitializeDefaults(ctx context.Context) (bool, error) {
	return mutate(ctx, s, "InitializeDefaults", func(_ context.Context, st *inventory.InventoryStore) (bool, error) {
		return st.InitializeDefaults(), nil
	})
}

// Reset wipes the inventory and its persisted copy
func (s *InventoryService) Reset(ctx context.Context) (*ResetResponse, error) {
	return mutate(ctx, s, "Reset", func(ctx context.Context, st *inventory.InventoryStore) (*ResetResponse, error) {
		st.Reset()
		resp := &ResetResponse{Cleared: make([]string, 0, len(inventory.AllCollections))}
		for _, c := range inventory.AllCollections {
			resp.Cleared = append(resp.Cleared, string(c))
		}
		if s.persister == nil {
			return resp, nil
		}
		if err := s.persister.Clear(ctx); err != nil {
			// The collections stay dirty so the flush overwrites them with empty ones
			logger.Enrich(ctx, s.logger).Warn("Persisted inventory not cleared", zap.Error(err))
			return resp, nil
		}
		st.TakeDirty()
		return resp, nil
	})
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

// AddProduct creates a product
func (s *InventoryService) AddProduct(ctx context.Context, req CreateProductRequest) (*inventory.Product, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	input := req.toInput(s.sanitizer.clean)
	return mutate(ctx, s, "AddProduct", func(_ context.Context, st *inventory.InventoryStore) (*inventory.Product, error) {
		return st.AddProduct(input)
	}, attribute.String("product.sku", input.SKU))
}

// UpdateProduct applies a partial update to a product
func (s *InventoryService) UpdateProduct(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*inventory.Product, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	patch := req.toPatch(s.sanitizer.clean)
	return mutate(ctx, s, "UpdateProduct", func(_ context.Context, st *inventory.InventoryStore) (*inventory.Product, error) {
		return st.UpdateProduct(id, patch)
	}, attribute.String("product.id", id.String()))
}

// BulkUpdate applies one patch to several products. Unknown ids are skipped.
func (s *InventoryService) BulkUpdate(ctx context.Context, req BulkUpdateProductsRequest) ([]*inventory.Product, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	patch := req.Patch.toPatch(s.sanitizer.clean)
	return mutate(ctx, s, "BulkUpdate", func(_ context.Context, st *inventory.InventoryStore) ([]*inventory.Product, error) {
		return st.BulkUpdate(req.IDs, patch)
	}, attribute.Int("products.requested", len(req.IDs)))
}

// DeleteProduct removes a product. Its ledger history is kept.
func (s *InventoryService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	_, err := mutate(ctx, s, "DeleteProduct", func(_ context.Context, st *inventory.InventoryStore) (struct{}, error) {
		return struct{}{}, st.DeleteProduct(id)
	}, attribute.String("product.id", id.String()))
	return err
}

// GetProduct returns a product by id
func (s *InventoryService) GetProduct(_ context.Context, id uuid.UUID) (*inventory.Product, error) {
	type result struct {
		p   *inventory.Product
		err error
	}
	r := read(s, func(st *inventory.InventoryStore) result {
		p, err := st.GetProduct(id)
		return result{p, err}
	})
	return r.p, r.err
}

// ProductImage returns the product's image, resolving an archived reference
func (s *InventoryService) ProductImage(ctx context.Context, id uuid.UUID) (string, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return "", err
	}
	if p.Image == "" {
		return "", shared.NewNotFoundError("Product has no image")
	}
	if strings.HasPrefix(p.Image, persistence.ArchivedImageScheme) && s.images != nil {
		return s.images.FetchArchivedImage(ctx, p.Image)
	}
	return p.Image, nil
}

// ListProducts returns the products matching the filter in insertion order
func (s *InventoryService) ListProducts(_ context.Context, filter ProductListFilter) ([]*inventory.Product, error) {
	if err := s.check(filter); err != nil {
		return nil, err
	}
	var categoryID uuid.UUID
	if filter.CategoryID != "" {
		categoryID = uuid.MustParse(filter.CategoryID)
	}
	return read(s, func(st *inventory.InventoryStore) []*inventory.Product {
		products := st.SearchProducts(filter.Search)
		if categoryID == uuid.Nil {
			return products
		}
		out := make([]*inventory.Product, 0, len(products))
		for _, p := range products {
			if p.InCategory(categoryID) {
				out = append(out, p)
			}
		}
		return out
	}), nil
}

// SearchProducts matches term against name, sku and description
func (s *InventoryService) SearchProducts(_ context.Context, term string) []*inventory.Product {
	term = s.sanitizer.clean(term)
	return read(s, func(st *inventory.InventoryStore) []*inventory.Product {
		return st.SearchProducts(term)
	})
}

// ProductsByCategory returns the products of a category
func (s *InventoryService) ProductsByCategory(_ context.Context, categoryID uuid.UUID) []*inventory.Product {
	return read(s, func(st *inventory.InventoryStore) []*inventory.Product {
		return st.ProductsByCategory(categoryID)
	})
}

// ProductsForPOS returns the products in stock, sorted by name
func (s *InventoryService) ProductsForPOS(_ context.Context) []*inventory.Product {
	return read(s, (*inventory.InventoryStore).ProductsForPOS)
}

// ProductsForInvoicePicker returns the invoice picker projection, sorted by name
func (s *InventoryService) ProductsForInvoicePicker(_ context.Context) []inventory.PickerItem {
	return read(s, (*inventory.InventoryStore).ProductsForInvoicePicker)
}

// ProductHistory returns the ledger entries of a product, newest first
func (s *InventoryService) ProductHistory(_ context.Context, productID uuid.UUID) []*inventory.StockAdjustment {
	return read(s, func(st *inventory.InventoryStore) []*inventory.StockAdjustment {
		return st.ProductHistory(productID)
	})
}

// ---------------------------------------------------------------------------
// Stock ledger
// ---------------------------------------------------------------------------

// AddStockAdjustment records a manual stock movement. The operator from the
// request context is used when the request names no user.
func (s *InventoryService) AddStockAdjustment(ctx context.Context, req StockAdjustmentRequest) (*inventory.StockAdjustment, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	adjType, err := inventory.ParseAdjustmentType(req.Type)
	if err != nil {
		return nil, err
	}
	user := s.sanitizer.clean(req.User)
	if user == "" {
		user = logger.GetOperator(ctx)
	}
	reason := s.sanitizer.clean(req.Reason)
	return mutate(ctx, s, "AddStockAdjustment", func(_ context.Context, st *inventory.InventoryStore) (*inventory.StockAdjustment, error) {
		return st.AddStockAdjustment(req.ProductID, adjType, req.Quantity, reason, user)
	},
		attribute.String("product.id", req.ProductID.String()),
		attribute.String("adjustment.type", string(adjType)),
	)
}

// UpdateStockOnPayment records a sale for every resolvable line of a paid invoice
func (s *InventoryService) UpdateStockOnPayment(ctx context.Context, req ApplyPaymentRequest) (*ApplyPaymentResponse, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	invoice := req.toInvoice(s.sanitizer.clean)
	claimed, err := s.claimInvoice(ctx, invoice)
	if err != nil {
		return nil, err
	}
	resp, err := mutate(ctx, s, "UpdateStockOnPayment", func(_ context.Context, st *inventory.InventoryStore) (*ApplyPaymentResponse, error) {
		entries, err := st.UpdateStockOnPayment(invoice)
		if err != nil {
			return nil, err
		}
		return &ApplyPaymentResponse{
			InvoiceID:   invoice.ID,
			Recorded:    len(entries),
			Skipped:     len(invoice.Items) - len(entries),
			Adjustments: entries,
		}, nil
	}, attribute.String("invoice.number", invoice.Number))
	if err != nil && claimed {
		if relErr := s.invoices.Release(ctx, invoice.ID); relErr != nil {
			logger.Enrich(ctx, s.logger).Warn("Failed to release invoice claim",
				zap.String("invoice_id", invoice.ID),
				zap.Error(relErr),
			)
		}
	}
	return resp, err
}

// claimInvoice reports whether a guard claim was taken for invoice. A guard
// that cannot be reached is logged and the invoice is applied unguarded.
func (s *InventoryService) claimInvoice(ctx context.Context, invoice inventory.Invoice) (bool, error) {
	if s.invoices == nil || invoice.ID == "" || !invoice.IsPaid() {
		return false, nil
	}
	first, err := s.invoices.Claim(ctx, invoice.ID)
	if err != nil {
		logger.Enrich(ctx, s.logger).Warn("Invoice replay check unavailable",
			zap.String("invoice_id", invoice.ID),
			zap.Error(err),
		)
		return false, nil
	}
	if !first {
		return false, shared.NewDomainError(shared.CodeConflict,
			fmt.Sprintf("Invoice %s was already applied to stock", invoice.ID))
	}
	return true, nil
}

// ListAdjustments returns ledger entries newest first
func (s *InventoryService) ListAdjustments(_ context.Context, filter AdjustmentListFilter) ([]*inventory.StockAdjustment, error) {
	if err := s.check(filter); err != nil {
		return nil, err
	}
	f := inventory.AdjustmentFilter{Limit: filter.Limit}
	if filter.ProductID != "" {
		id := uuid.MustParse(filter.ProductID)
		f.ProductID = &id
	}
	if filter.Type != "" {
		t, err := inventory.ParseAdjustmentType(filter.Type)
		if err != nil {
			return nil, err
		}
		f.Type = t
	}
	return read(s, func(st *inventory.InventoryStore) []*inventory.StockAdjustment {
		return st.ListAdjustments(f)
	}), nil
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

// AddCategory creates a category
func (s *InventoryService) AddCategory(ctx context.Context, req CreateCategoryRequest) (*inventory.Category, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	clean := s.sanitizer.clean
	input := inventory.CategoryInput{
		Name:        clean(req.Name),
		Description: clean(req.Description),
		Color:       clean(req.Color),
		Icon:        clean(req.Icon),
	}
	return mutate(ctx, s, "AddCategory", func(_ context.Context, st *inventory.InventoryStore) (*inventory.Category, error) {
		return st.AddCategory(input)
	})
}

// UpdateCategory applies a partial update to a category
func (s *InventoryService) UpdateCategory(ctx context.Context, id uuid.UUID, req UpdateCategoryRequest) (*inventory.Category, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	clean := s.sanitizer.clean
	patch := inventory.CategoryPatch{
		Name:        cleanPtr(req.Name, clean),
		Description: cleanPtr(req.Description, clean),
		Color:       cleanPtr(req.Color, clean),
		Icon:        cleanPtr(req.Icon, clean),
	}
	return mutate(ctx, s, "UpdateCategory", func(_ context.Context, st *inventory.InventoryStore) (*inventory.Category, error) {
		return st.UpdateCategory(id, patch)
	})
}

// DeleteCategory removes a category unless products still reference it
func (s *InventoryService) DeleteCategory(ctx context.Context, id uuid.UUID) (DeleteResponse, error) {
	return mutate(ctx, s, "DeleteCategory", func(_ context.Context, st *inventory.InventoryStore) (DeleteResponse, error) {
		res, err := st.DeleteCategory(id)
		return toDeleteResponse(res), err
	})
}

// GetCategory returns a category by id
func (s *InventoryService) GetCategory(_ context.Context, id uuid.UUID) (*inventory.Category, error) {
	type result struct {
		c   *inventory.Category
		err error
	}
	r := read(s, func(st *inventory.InventoryStore) result {
		c, err := st.GetCategory(id)
		return result{c, err}
	})
	return r.c, r.err
}

// ListCategories returns every category
func (s *InventoryService) ListCategories(_ context.Context) []*inventory.Category {
	return read(s, (*inventory.InventoryStore).ListCategories)
}

// IncrementProductCount adjusts a category counter directly, clamping at zero
func (s *InventoryService) IncrementProductCount(ctx context.Context, categoryID uuid.UUID, delta int) error {
	_, err := mutate(ctx, s, "IncrementProductCount", func(_ context.Context, st *inventory.InventoryStore) (struct{}, error) {
		return struct{}{}, st.IncrementProductCount(categoryID, delta)
	})
	return err
}

// ---------------------------------------------------------------------------
// Suppliers
// ---------------------------------------------------------------------------

// AddSupplier creates a supplier
func (s *InventoryService) AddSupplier(ctx context.Context, req CreateSupplierRequest) (*inventory.Supplier, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	clean := s.sanitizer.clean
	input := inventory.SupplierInput{
		Name:          clean(req.Name),
		ContactPerson: clean(req.ContactPerson),
		Email:         clean(req.Email),
		Phone:         clean(req.Phone),
		Address:       clean(req.Address),
	}
	return mutate(ctx, s, "AddSupplier", func(_ context.Context, st *inventory.InventoryStore) (*inventory.Supplier, error) {
		return st.AddSupplier(input)
	})
}

// UpdateSupplier applies a partial update to a supplier
func (s *InventoryService) UpdateSupplier(ctx context.Context, id uuid.UUID, req UpdateSupplierRequest) (*inventory.Supplier, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	clean := s.sanitizer.clean
	patch := inventory.SupplierPatch{
		Name:          cleanPtr(req.Name, clean),
		ContactPerson: cleanPtr(req.ContactPerson, clean),
		Email:         cleanPtr(req.Email, clean),
		Phone:         cleanPtr(req.Phone, clean),
		Address:       cleanPtr(req.Address, clean),
	}
	return mutate(ctx, s, "UpdateSupplier", func(_ context.Context, st *inventory.InventoryStore) (*inventory.Supplier, error) {
		return st.UpdateSupplier(id, patch)
	})
}

// DeleteSupplier removes a supplier unless products still reference it
func (s *InventoryService) DeleteSupplier(ctx context.Context, id uuid.UUID) (DeleteResponse, error) {
	return mutate(ctx, s, "DeleteSupplier", func(_ context.Context, st *inventory.InventoryStore) (DeleteResponse, error) {
		res, err := st.DeleteSupplier(id)
		return toDeleteResponse(res), err
	})
}

// GetSupplier returns a supplier by id
func (s *InventoryService) GetSupplier(_ context.Context, id uuid.UUID) (*inventory.Supplier, error) {
	type result struct {
		sup *inventory.Supplier
		err error
	}
	r := read(s, func(st *inventory.InventoryStore) result {
		sup, err := st.GetSupplier(id)
		return result{sup, err}
	})
	return r.sup, r.err
}

// ListSuppliers returns every supplier
func (s *InventoryService) ListSuppliers(_ context.Context) []*inventory.Supplier {
	return read(s, (*inventory.InventoryStore).ListSuppliers)
}

// AddProductToSupplier associates a product with a supplier.
// It reports false when the association already existed.
func (s *InventoryService) AddProductToSupplier(ctx context.Context, supplierID, productID uuid.UUID) (bool, error) {
	return mutate(ctx, s, "AddProductToSupplier", func(_ context.Context, st *inventory.InventoryStore) (bool, error) {
		return st.AddProductToSupplier(supplierID, productID)
	})
}

// RecordSupplierOrder increments a supplier's order counter
func (s *InventoryService) RecordSupplierOrder(ctx context.Context, supplierID uuid.UUID) (*inventory.Supplier, error) {
	return mutate(ctx, s, "RecordSupplierOrder", func(_ context.Context, st *inventory.InventoryStore) (*inventory.Supplier, error) {
		return st.RecordSupplierOrder(supplierID)
	})
}

// ---------------------------------------------------------------------------
// Statistics
// ---------------------------------------------------------------------------

// Stats summarizes the inventory
func (s *InventoryService) Stats(_ context.Context) inventory.Stats {
	return read(s, (*inventory.InventoryStore).Stats)
}
