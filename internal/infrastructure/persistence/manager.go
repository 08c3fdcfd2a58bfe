package persistence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"go.uber.org/zap"
)

// Image placeholders written in place of oversized images
const (
	PlaceholderImageTooLarge = "placeholder://image-too-large"
	ArchivedImageScheme      = "objstore://"
)

// ImageArchive keeps the originals of images that were too large to persist inline
type ImageArchive interface {
	Put(ctx context.Context, name, image string) (key string, err error)
	Fetch(ctx context.Context, key string) (string, error)
}

// Config holds the size-degradation policy
type Config struct {
	KeyPrefix           string
	CeilingBytes        int // per collection, 0 disables the soft overflow step
	SoftKeep            int
	HardKeepProducts    int
	HardKeepAdjustments int
	OptimizeThreshold   int // 0 disables image optimization
}

// DefaultConfig returns the default degradation policy
func DefaultConfig() Config {
	return Config{
		KeyPrefix:           "inventory:",
		CeilingBytes:        4_718_592,
		SoftKeep:            50,
		HardKeepProducts:    100,
		HardKeepAdjustments: 200,
		OptimizeThreshold:   100 * 1024,
	}
}

// SaveResult describes what was persisted for one collection
type SaveResult struct {
	Collection inventory.Collection
	Records    int // records handed in
	Stored     int // records written
	Bytes      int
	Actions    []string
	Err        error
}

// Degraded reports whether the persisted copy differs from what was handed in
func (r SaveResult) Degraded() bool {
	return len(r.Actions) > 0
}

// Manager persists the inventory collections to a KVStore, one JSON array
// per collection, and keeps each payload under the configured ceiling.
// Degradation only ever applies to the persisted copy.
type Manager struct {
	store     KVStore
	cfg       Config
	archive   ImageArchive
	publisher shared.EventPublisher
	metrics   *Metrics
	logger    *zap.Logger

	mu       sync.Mutex
	archived map[string]string // content hash -> archive key
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithImageArchive archives oversized images instead of discarding them
func WithImageArchive(archive ImageArchive) ManagerOption {
	return func(m *Manager) {
		m.archive = archive
	}
}

// WithEventPublisher publishes degradation and failure events
func WithEventPublisher(publisher shared.EventPublisher) ManagerOption {
	return func(m *Manager) {
		m.publisher = publisher
	}
}

// WithMetrics records persistence metrics
func WithMetrics(metrics *Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a persistence manager over store
func NewManager(store KVStore, cfg Config, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		cfg:      cfg,
		logger:   zap.NewNop(),
		archived: make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Key returns the store key of a collection
func (m *Manager) Key(c inventory.Collection) string {
	return m.cfg.KeyPrefix + string(c)
}

// Save persists the listed collections from snap
func (m *Manager) Save(ctx context.Context, snap inventory.Snapshot, collections []inventory.Collection) []SaveResult {
	results := make([]SaveResult, 0, len(collections))
	for _, c := range collections {
		switch c {
		case inventory.CollectionProducts:
			results = append(results, m.SaveProducts(ctx, snap.Products))
		case inventory.CollectionCategories:
			results = append(results, m.SaveCategories(ctx, snap.Categories))
		case inventory.CollectionAdjustments:
			results = append(results, m.SaveAdjustments(ctx, snap.Adjustments))
		case inventory.CollectionSuppliers:
			results = append(results, m.SaveSuppliers(ctx, snap.Suppliers))
		}
	}
	return results
}

// SaveProducts persists products. Oversized images are replaced by a
// placeholder; on overflow every image is stripped; on a quota rejection
// only the most recent products are kept.
func (m *Manager) SaveProducts(ctx context.Context, products []*inventory.Product) SaveResult {
	records := make([]*inventory.Product, 0, len(products))
	for _, p := range products {
		records = append(records, p.Clone())
	}

	optimized := m.optimizeImages(ctx, records)
	var actions []string
	if optimized > 0 {
		actions = append(actions, inventory.DegradeImagesOptimized)
		m.degraded(ctx, inventory.CollectionProducts, inventory.DegradeImagesOptimized, len(records), 0,
			fmt.Sprintf("%d product image(s) were too large to save and were replaced by a placeholder", optimized))
	}

	res := saveRecords(ctx, m, inventory.CollectionProducts, records, degradePolicy[*inventory.Product]{
		soft: func(in []*inventory.Product) ([]*inventory.Product, string) {
			return stripImages(in), inventory.DegradeImagesStripped
		},
		hard: func(in []*inventory.Product) []*inventory.Product {
			return stripImages(tail(in, m.cfg.HardKeepProducts))
		},
	})
	res.Actions = append(actions, res.Actions...)
	return res
}

// SaveCategories persists categories
func (m *Manager) SaveCategories(ctx context.Context, categories []*inventory.Category) SaveResult {
	return saveRecords(ctx, m, inventory.CollectionCategories, categories, degradePolicy[*inventory.Category]{
		soft: func(in []*inventory.Category) ([]*inventory.Category, string) {
			return tail(in, m.cfg.SoftKeep), inventory.DegradeTruncated
		},
	})
}

// SaveSuppliers persists suppliers
func (m *Manager) SaveSuppliers(ctx context.Context, suppliers []*inventory.Supplier) SaveResult {
	return saveRecords(ctx, m, inventory.CollectionSuppliers, suppliers, degradePolicy[*inventory.Supplier]{
		soft: func(in []*inventory.Supplier) ([]*inventory.Supplier, string) {
			return tail(in, m.cfg.SoftKeep), inventory.DegradeTruncated
		},
	})
}

// SaveAdjustments persists the stock ledger
func (m *Manager) SaveAdjustments(ctx context.Context, adjustments []*inventory.StockAdjustment) SaveResult {
	return saveRecords(ctx, m, inventory.CollectionAdjustments, adjustments, degradePolicy[*inventory.StockAdjustment]{
		soft: func(in []*inventory.StockAdjustment) ([]*inventory.StockAdjustment, string) {
			return tail(in, m.cfg.SoftKeep), inventory.DegradeTruncated
		},
		hard: func(in []*inventory.StockAdjustment) []*inventory.StockAdjustment {
			return tail(in, m.cfg.HardKeepAdjustments)
		},
	})
}

// Load reads every collection. A collection that cannot be read or decoded
// comes back empty and a failure event is published.
func (m *Manager) Load(ctx context.Context) inventory.Snapshot {
	return inventory.Snapshot{
		Products:    loadRecords[*inventory.Product](ctx, m, inventory.CollectionProducts),
		Categories:  loadRecords[*inventory.Category](ctx, m, inventory.CollectionCategories),
		Suppliers:   loadRecords[*inventory.Supplier](ctx, m, inventory.CollectionSuppliers),
		Adjustments: loadRecords[*inventory.StockAdjustment](ctx, m, inventory.CollectionAdjustments),
	}
}

// Clear deletes every persisted collection
func (m *Manager) Clear(ctx context.Context) error {
	keys := make([]string, 0, len(inventory.AllCollections))
	for _, c := range inventory.AllCollections {
		keys = append(keys, m.Key(c))
	}
	if err := m.store.Delete(ctx, keys...); err != nil {
		for _, c := range inventory.AllCollections {
			m.publish(ctx, inventory.NewStorageFailedEvent(c, inventory.StorageOpClear, err))
		}
		return fmt.Errorf("failed to clear persisted collections: %w", err)
	}
	m.logger.Info("Persisted collections cleared", zap.Strings("keys", keys))
	return nil
}

// FetchArchivedImage resolves an objstore:// placeholder to the archived image
func (m *Manager) FetchArchivedImage(ctx context.Context, ref string) (string, error) {
	key, ok := strings.CutPrefix(ref, ArchivedImageScheme)
	if !ok || key == "" {
		return "", shared.NewNotFoundError("Image reference is not archived: " + ref)
	}
	if m.archive == nil {
		return "", shared.NewNotFoundError("Image archive is not configured")
	}
	return m.archive.Fetch(ctx, key)
}

// degradePolicy holds the overflow steps for one collection. hard is nil
// for collections that keep their last persisted copy on a quota rejection.
type degradePolicy[T any] struct {
	soft func([]T) ([]T, string)
	hard func([]T) []T
}

func saveRecords[T any](ctx context.Context, m *Manager, collection inventory.Collection, records []T, policy degradePolicy[T]) SaveResult {
	res := SaveResult{Collection: collection, Records: len(records)}
	key := m.Key(collection)
	log := m.logger.With(zap.String("collection", string(collection)), zap.String("key", key))

	payload, err := marshalRecords(records)
	if err != nil {
		return m.failed(ctx, res, err)
	}

	if m.cfg.CeilingBytes > 0 && len(payload) > m.cfg.CeilingBytes && policy.soft != nil {
		degraded, action := policy.soft(records)
		degradedPayload, err := marshalRecords(degraded)
		if err != nil {
			return m.failed(ctx, res, err)
		}
		log.Warn("Collection exceeds storage ceiling, degrading persisted copy",
			zap.Int("bytes", len(payload)),
			zap.Int("ceiling", m.cfg.CeilingBytes),
			zap.String("action", action),
		)
		m.degraded(ctx, collection, action, len(degraded), len(records)-len(degraded), softMessage(collection, action, len(records)-len(degraded)))
		res.Actions = append(res.Actions, action)
		records, payload = degraded, degradedPayload
	}

	err = m.store.Set(ctx, key, payload)
	if err == nil {
		m.stored(&res, len(records), len(payload), writeResultOK)
		return res
	}
	if !errors.Is(err, shared.ErrQuotaExceeded) {
		return m.failed(ctx, res, err)
	}

	m.metrics.recordWrite(collection, writeResultQuota)
	log.Warn("Storage quota exceeded", zap.Error(err), zap.Int("bytes", len(payload)))

	if policy.hard == nil {
		m.degraded(ctx, collection, inventory.DegradeQuotaSkipped, 0, 0,
			fmt.Sprintf("Storage is full; %s were not saved and the previous copy is kept", collection))
		res.Actions = append(res.Actions, inventory.DegradeQuotaSkipped)
		res.Err = err
		return res
	}

	recovered := policy.hard(records)
	payload, err = marshalRecords(recovered)
	if err != nil {
		return m.failed(ctx, res, err)
	}
	if err := m.store.Set(ctx, key, payload); err != nil {
		return m.failed(ctx, res, err)
	}

	dropped := res.Records - len(recovered)
	m.degraded(ctx, collection, inventory.DegradeQuotaRecovered, len(recovered), dropped,
		fmt.Sprintf("Storage is full; only the %d most recent %s were saved", len(recovered), collection))
	res.Actions = append(res.Actions, inventory.DegradeQuotaRecovered)
	m.stored(&res, len(recovered), len(payload), writeResultRecovery)
	return res
}

func loadRecords[T any](ctx context.Context, m *Manager, collection inventory.Collection) []T {
	out := make([]T, 0)
	data, ok, err := m.store.Get(ctx, m.Key(collection))
	if err != nil {
		m.loadFailed(ctx, collection, err)
		return out
	}
	if !ok {
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil {
		m.loadFailed(ctx, collection, fmt.Errorf("%w: %w", shared.ErrLoad, err))
		return make([]T, 0)
	}
	if out == nil {
		out = make([]T, 0)
	}
	return out
}

// optimizeImages replaces images over the optimize threshold with a
// placeholder, archiving the original when an archive is configured.
func (m *Manager) optimizeImages(ctx context.Context, products []*inventory.Product) int {
	if m.cfg.OptimizeThreshold <= 0 {
		return 0
	}
	replaced := 0
	for _, p := range products {
		if len(p.Image) <= m.cfg.OptimizeThreshold {
			continue
		}
		p.Image = m.placeholderFor(ctx, p)
		replaced++
	}
	return replaced
}

func (m *Manager) placeholderFor(ctx context.Context, p *inventory.Product) string {
	if m.archive == nil {
		return PlaceholderImageTooLarge
	}

	sum := sha256.Sum256([]byte(p.Image))
	hash := hex.EncodeToString(sum[:])

	m.mu.Lock()
	key, ok := m.archived[hash]
	m.mu.Unlock()
	if ok {
		return ArchivedImageScheme + key
	}

	key, err := m.archive.Put(ctx, p.ID.String()+"-"+hash[:16], p.Image)
	if err != nil {
		m.logger.Warn("Failed to archive oversized image",
			zap.String("product_id", p.ID.String()),
			zap.Error(err),
		)
		return PlaceholderImageTooLarge
	}

	m.mu.Lock()
	m.archived[hash] = key
	m.mu.Unlock()
	return ArchivedImageScheme + key
}

func (m *Manager) stored(res *SaveResult, records, bytes int, result string) {
	res.Stored = records
	res.Bytes = bytes
	m.metrics.recordWrite(res.Collection, result)
	m.metrics.recordStored(res.Collection, bytes, records)
}

func (m *Manager) degraded(ctx context.Context, c inventory.Collection, action string, kept, dropped int, message string) {
	m.metrics.recordDegradation(c, action)
	m.publish(ctx, inventory.NewStorageDegradedEvent(c, action, kept, dropped, message))
}

func (m *Manager) failed(ctx context.Context, res SaveResult, err error) SaveResult {
	m.metrics.recordWrite(res.Collection, writeResultError)
	m.logger.Error("Failed to persist collection",
		zap.String("collection", string(res.Collection)),
		zap.Error(err),
	)
	res.Err = fmt.Errorf("%w: %w", shared.ErrStorage, err)
	m.publish(ctx, inventory.NewStorageFailedEvent(res.Collection, inventory.StorageOpSave, err))
	return res
}

func (m *Manager) loadFailed(ctx context.Context, c inventory.Collection, err error) {
	m.metrics.recordLoadFailure(c)
	m.logger.Error("Failed to load collection, starting empty",
		zap.String("collection", string(c)),
		zap.Error(err),
	)
	m.publish(ctx, inventory.NewStorageFailedEvent(c, inventory.StorageOpLoad, err))
}

func (m *Manager) publish(ctx context.Context, events ...shared.DomainEvent) {
	if m.publisher == nil {
		return
	}
	// Event delivery failures must not affect persistence
	_ = m.publisher.Publish(ctx, events...)
}

func marshalRecords[T any](records []T) ([]byte, error) {
	if records == nil {
		records = make([]T, 0)
	}
	return json.Marshal(records)
}

// tail returns the n most recent records. Collections are ordered oldest first.
func tail[T any](records []T, n int) []T {
	if n < 0 || len(records) <= n {
		return records
	}
	return records[len(records)-n:]
}

func stripImages(products []*inventory.Product) []*inventory.Product {
	out := make([]*inventory.Product, 0, len(products))
	for _, p := range products {
		cp := p.Clone()
		cp.Image = ""
		out = append(out, cp)
	}
	return out
}

func softMessage(c inventory.Collection, action string, dropped int) string {
	if action == inventory.DegradeImagesStripped {
		return "Saved products exceeded the storage limit; product images were not saved"
	}
	return fmt.Sprintf("Saved %s exceeded the storage limit; the %d oldest record(s) were not saved", c, dropped)
}
