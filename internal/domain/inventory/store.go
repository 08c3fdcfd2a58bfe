package inventory

import (
	"slices"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Collection names one of the independently persisted collections
type Collection string

const (
	CollectionProducts    Collection = "products"
	CollectionCategories  Collection = "categories"
	CollectionAdjustments Collection = "stock_adjustments"
	CollectionSuppliers   Collection = "suppliers"
)

// AllCollections lists every collection in flush order
var AllCollections = []Collection{
	CollectionProducts,
	CollectionCategories,
	CollectionAdjustments,
	CollectionSuppliers,
}

// ImageCompressor shrinks an embedded image payload
type ImageCompressor interface {
	Compress(image string) (string, error)
}

// Snapshot is a detached copy of every collection in insertion order
type Snapshot struct {
	Products    []*Product
	Categories  []*Category
	Suppliers   []*Supplier
	Adjustments []*StockAdjustment
}

// InventoryStore is the aggregate owning products, categories, suppliers and
// the stock ledger. Products are held in an arena keyed by id; insertion order
// is kept separately so persisted collections stay oldest to newest.
//
// InventoryStore is not safe for concurrent use. Callers serialize access.
type InventoryStore struct {
	shared.BaseAggregateRoot

	products      map[uuid.UUID]*Product
	productOrder  []uuid.UUID
	categories    map[uuid.UUID]*Category
	categoryOrder []uuid.UUID
	suppliers     map[uuid.UUID]*Supplier
	supplierOrder []uuid.UUID
	adjustments   []*StockAdjustment

	dirty map[Collection]struct{}

	compressor        ImageCompressor
	compressThreshold int
	policy            ResolutionPolicy
	reorderLevel      decimal.Decimal
	defaultUser       string
	clock             func() time.Time
}

// StoreOption configures an InventoryStore
type StoreOption func(*InventoryStore)

// WithImageCompressor compresses images larger than threshold bytes on write
func WithImageCompressor(c ImageCompressor, threshold int) StoreOption {
	return func(s *InventoryStore) {
		s.compressor = c
		s.compressThreshold = threshold
	}
}

// WithResolutionPolicy replaces the invoice line resolution policy
func WithResolutionPolicy(policy ResolutionPolicy) StoreOption {
	return func(s *InventoryStore) {
		s.policy = policy
	}
}

// WithDefaultReorderLevel sets the reorder level for products created without one
func WithDefaultReorderLevel(level decimal.Decimal) StoreOption {
	return func(s *InventoryStore) {
		s.reorderLevel = level
	}
}

// WithDefaultUser sets the user recorded on entries that have none
func WithDefaultUser(user string) StoreOption {
	return func(s *InventoryStore) {
		s.defaultUser = user
	}
}

// WithClock sets the time source for ledger entries
func WithClock(clock func() time.Time) StoreOption {
	return func(s *InventoryStore) {
		s.clock = clock
	}
}

// NewInventoryStore creates an empty store
func NewInventoryStore(opts ...StoreOption) *InventoryStore {
	s := &InventoryStore{
		policy:       DefaultResolutionPolicy,
		reorderLevel: DefaultReorderLevel,
		defaultUser:  "system",
		clock:        time.Now,
	}
	s.resetCollections()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InventoryStore) resetCollections() {
	s.products = make(map[uuid.UUID]*Product)
	s.productOrder = nil
	s.categories = make(map[uuid.UUID]*Category)
	s.categoryOrder = nil
	s.suppliers = make(map[uuid.UUID]*Supplier)
	s.supplierOrder = nil
	s.adjustments = nil
	s.dirty = make(map[Collection]struct{})
}

func (s *InventoryStore) markDirty(collections ...Collection) {
	for _, c := range collections {
		s.dirty[c] = struct{}{}
	}
}

// TakeDirty returns the collections modified since the last call, in flush order
func (s *InventoryStore) TakeDirty() []Collection {
	out := make([]Collection, 0, len(s.dirty))
	for _, c := range AllCollections {
		if _, ok := s.dirty[c]; ok {
			out = append(out, c)
		}
	}
	s.dirty = make(map[Collection]struct{})
	return out
}

// Snapshot returns detached copies of every collection
func (s *InventoryStore) Snapshot() Snapshot {
	s.refreshCategoryTotals()
	snap := Snapshot{
		Products:    make([]*Product, 0, len(s.productOrder)),
		Categories:  make([]*Category, 0, len(s.categoryOrder)),
		Suppliers:   make([]*Supplier, 0, len(s.supplierOrder)),
		Adjustments: make([]*StockAdjustment, 0, len(s.adjustments)),
	}
	for _, id := range s.productOrder {
		snap.Products = append(snap.Products, s.products[id].Clone())
	}
	for _, id := range s.categoryOrder {
		snap.Categories = append(snap.Categories, s.categories[id].Clone())
	}
	for _, id := range s.supplierOrder {
		snap.Suppliers = append(snap.Suppliers, s.suppliers[id].Clone())
	}
	for _, a := range s.adjustments {
		entry := *a
		snap.Adjustments = append(snap.Adjustments, &entry)
	}
	return snap
}

// Restore replaces the store contents with a persisted snapshot.
// Derived fields are recomputed, category counters are rebuilt from the
// products that reference them, and supplier sets are repaired so they
// contain every product pointing at the supplier exactly once and no id of
// a product that no longer exists.
func (s *InventoryStore) Restore(snap Snapshot) {
	s.resetCollections()

	for _, c := range snap.Categories {
		if c == nil || c.ID == uuid.Nil {
			continue
		}
		if _, dup := s.categories[c.ID]; dup {
			continue
		}
		cp := c.Clone()
		cp.ProductCount = 0
		s.categories[cp.ID] = cp
		s.categoryOrder = append(s.categoryOrder, cp.ID)
	}
	for _, sup := range snap.Suppliers {
		if sup == nil || sup.ID == uuid.Nil {
			continue
		}
		if _, dup := s.suppliers[sup.ID]; dup {
			continue
		}
		cp := sup.Clone()
		cp.dedupe()
		s.suppliers[cp.ID] = cp
		s.supplierOrder = append(s.supplierOrder, cp.ID)
	}
	for _, p := range snap.Products {
		if p == nil || p.ID == uuid.Nil {
			continue
		}
		if _, dup := s.products[p.ID]; dup {
			continue
		}
		cp := p.Clone()
		if cp.Quantity.IsNegative() {
			cp.Quantity = decimal.Zero
		}
		cp.Recompute()
		s.products[cp.ID] = cp
		s.productOrder = append(s.productOrder, cp.ID)

		if cp.CategoryID != nil {
			if c, ok := s.categories[*cp.CategoryID]; ok {
				c.IncrementProductCount(1)
			}
		}
		if cp.SupplierID != nil {
			if sup, ok := s.suppliers[*cp.SupplierID]; ok {
				sup.AddProduct(cp.ID)
			}
		}
	}
	for _, sup := range s.suppliers {
		sup.Products = slices.DeleteFunc(sup.Products, func(id uuid.UUID) bool {
			_, ok := s.products[id]
			return !ok
		})
	}
	for _, a := range snap.Adjustments {
		if a == nil || a.ID == uuid.Nil {
			continue
		}
		entry := *a
		s.adjustments = append(s.adjustments, &entry)
	}
	s.refreshCategoryTotals()
}

// Reset wipes every collection
func (s *InventoryStore) Reset() {
	s.resetCollections()
	s.markDirty(AllCollections...)
	s.AddDomainEvent(&InventoryResetEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInventoryReset, AggregateTypeLedger, uuid.Nil),
	})
}

// refreshCategoryTotals recomputes every category's TotalValue from its products
func (s *InventoryStore) refreshCategoryTotals() {
	totals := make(map[uuid.UUID]decimal.Decimal, len(s.categories))
	for _, id := range s.productOrder {
		p := s.products[id]
		if p.CategoryID == nil {
			continue
		}
		totals[*p.CategoryID] = totals[*p.CategoryID].Add(p.TotalValue)
	}
	for id, c := range s.categories {
		c.TotalValue = totals[id]
	}
}

func (s *InventoryStore) orderedProducts() []*Product {
	out := make([]*Product, 0, len(s.productOrder))
	for _, id := range s.productOrder {
		out = append(out, s.products[id])
	}
	return out
}

func (s *InventoryStore) userOrDefault(user string) string {
	if user == "" {
		return s.defaultUser
	}
	return user
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
