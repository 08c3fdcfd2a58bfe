package inventory

import (
	"cmp"
	"slices"
	"strings"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// AddProduct creates a product. A positive opening quantity is recorded in
// the ledger as a NewProduct entry so the ledger stays the only writer of
// quantity.
func (s *InventoryStore) AddProduct(input ProductInput) (*Product, error) {
	name := strings.TrimSpace(input.Name)
	sku := strings.TrimSpace(input.SKU)
	if name == "" {
		return nil, shared.NewValidationError("Product name is required")
	}
	if sku == "" {
		return nil, shared.NewValidationError("Product SKU is required")
	}
	if err := s.checkReferences(input.CategoryID, input.SupplierID); err != nil {
		return nil, err
	}

	p := &Product{
		BaseEntity:   shared.NewBaseEntity(),
		SKU:          sku,
		Name:         name,
		Description:  input.Description,
		CategoryID:   cloneID(input.CategoryID),
		SupplierID:   cloneID(input.SupplierID),
		Price:        parseNonNegative(input.Price),
		CostPrice:    parseNonNegative(input.CostPrice),
		ReorderLevel: parseReorderLevel(input.ReorderLevel, s.reorderLevel),
		Unit:         input.Unit,
	}
	p.Recompute()
	s.setImage(p, input.Image)

	s.products[p.ID] = p
	s.productOrder = append(s.productOrder, p.ID)
	s.markDirty(CollectionProducts)

	if p.CategoryID != nil {
		s.categories[*p.CategoryID].IncrementProductCount(1)
		s.markDirty(CollectionCategories)
	}
	if p.SupplierID != nil {
		s.suppliers[*p.SupplierID].AddProduct(p.ID)
		s.markDirty(CollectionSuppliers)
	}

	opening := parseNonNegative(input.Quantity)
	if opening.IsPositive() {
		if _, err := s.applyAdjustment(p, AdjustmentTypeNewProduct, opening, "Initial stock", ""); err != nil {
			return nil, err
		}
	}

	s.refreshCategoryTotals()
	s.AddDomainEvent(NewProductCreatedEvent(p))
	return p.Clone(), nil
}

// UpdateProduct merges patch into the product with the given id
func (s *InventoryStore) UpdateProduct(id uuid.UUID, patch ProductPatch) (*Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, productNotFound(id)
	}
	if err := patch.validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(patch.CategoryID, patch.SupplierID); err != nil {
		return nil, err
	}

	categoryChanged, supplierChanged := s.applyPatch(p, patch)
	s.refreshCategoryTotals()
	s.AddDomainEvent(NewProductUpdatedEvent(p, categoryChanged, supplierChanged))
	return p.Clone(), nil
}

// BulkUpdate applies patch to every product in ids. Unknown ids are skipped.
func (s *InventoryStore) BulkUpdate(ids []uuid.UUID, patch ProductPatch) ([]*Product, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(patch.CategoryID, patch.SupplierID); err != nil {
		return nil, err
	}

	updated := make([]*Product, 0, len(ids))
	updatedIDs := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		p, ok := s.products[id]
		if !ok {
			continue
		}
		s.applyPatch(p, patch)
		updated = append(updated, p.Clone())
		updatedIDs = append(updatedIDs, id)
	}

	if len(updated) > 0 {
		s.refreshCategoryTotals()
		s.AddDomainEvent(NewProductsBulkUpdatedEvent(updatedIDs))
	}
	return updated, nil
}

// DeleteProduct removes a product. Its ledger history is kept.
func (s *InventoryStore) DeleteProduct(id uuid.UUID) error {
	p, ok := s.products[id]
	if !ok {
		return productNotFound(id)
	}

	delete(s.products, id)
	s.productOrder = removeID(s.productOrder, id)
	s.markDirty(CollectionProducts)

	if p.CategoryID != nil {
		if c, ok := s.categories[*p.CategoryID]; ok {
			c.IncrementProductCount(-1)
			s.markDirty(CollectionCategories)
		}
	}
	// AddProductToSupplier may have listed the product under any supplier
	for _, sup := range s.suppliers {
		if sup.RemoveProduct(id) {
			s.markDirty(CollectionSuppliers)
		}
	}

	s.refreshCategoryTotals()
	s.AddDomainEvent(NewProductDeletedEvent(p))
	return nil
}

// GetProduct returns a copy of the product with the given id
func (s *InventoryStore) GetProduct(id uuid.UUID) (*Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, productNotFound(id)
	}
	return p.Clone(), nil
}

// ListProducts returns every product in insertion order
func (s *InventoryStore) ListProducts() []*Product {
	return s.selectProducts(func(*Product) bool { return true })
}

// ProductsByCategory returns the products referencing a category
func (s *InventoryStore) ProductsByCategory(categoryID uuid.UUID) []*Product {
	return s.selectProducts(func(p *Product) bool { return p.InCategory(categoryID) })
}

// SearchProducts matches term against name, sku and description using
// Unicode case folding. An empty term matches everything.
func (s *InventoryStore) SearchProducts(term string) []*Product {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(term))
	if needle == "" {
		return s.ListProducts()
	}
	return s.selectProducts(func(p *Product) bool {
		return strings.Contains(fold.String(p.Name), needle) ||
			strings.Contains(fold.String(p.SKU), needle) ||
			strings.Contains(fold.String(p.Description), needle)
	})
}

// ProductsForPOS returns the products that can be sold now, sorted by name
func (s *InventoryStore) ProductsForPOS() []*Product {
	out := s.selectProducts(func(p *Product) bool { return p.Quantity.IsPositive() })
	sortByName(out)
	return out
}

// ProductsForInvoicePicker projects every product for the invoice line picker
func (s *InventoryStore) ProductsForInvoicePicker() []PickerItem {
	products := s.ListProducts()
	sortByName(products)
	out := make([]PickerItem, 0, len(products))
	for _, p := range products {
		out = append(out, PickerItem{
			ID:       p.ID,
			Name:     p.Name,
			SKU:      p.SKU,
			Price:    p.Price,
			Quantity: p.Quantity,
			Unit:     p.Unit,
		})
	}
	return out
}

func (s *InventoryStore) selectProducts(keep func(*Product) bool) []*Product {
	out := make([]*Product, 0)
	for _, id := range s.productOrder {
		p := s.products[id]
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// applyPatch mutates p and keeps the registries in step with it
func (s *InventoryStore) applyPatch(p *Product, patch ProductPatch) (categoryChanged, supplierChanged bool) {
	if patch.SKU != nil {
		p.SKU = strings.TrimSpace(*patch.SKU)
	}
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = parseNonNegative(*patch.Price)
	}
	if patch.CostPrice != nil {
		p.CostPrice = parseNonNegative(*patch.CostPrice)
	}
	if patch.ReorderLevel != nil {
		p.ReorderLevel = parseReorderLevel(*patch.ReorderLevel, p.ReorderLevel)
	}
	if patch.Unit != nil {
		p.Unit = *patch.Unit
	}
	if patch.Image != nil && *patch.Image != p.Image {
		s.setImage(p, *patch.Image)
	}

	newCategory := p.CategoryID
	switch {
	case patch.ClearCategory:
		newCategory = nil
	case patch.CategoryID != nil:
		newCategory = cloneID(patch.CategoryID)
	}
	if !sameID(newCategory, p.CategoryID) {
		if p.CategoryID != nil {
			if old, ok := s.categories[*p.CategoryID]; ok {
				old.IncrementProductCount(-1)
			}
		}
		if newCategory != nil {
			s.categories[*newCategory].IncrementProductCount(1)
		}
		p.CategoryID = newCategory
		categoryChanged = true
	}

	newSupplier := p.SupplierID
	switch {
	case patch.ClearSupplier:
		newSupplier = nil
	case patch.SupplierID != nil:
		newSupplier = cloneID(patch.SupplierID)
	}
	if !sameID(newSupplier, p.SupplierID) {
		if p.SupplierID != nil {
			if old, ok := s.suppliers[*p.SupplierID]; ok {
				old.RemoveProduct(p.ID)
			}
		}
		if newSupplier != nil {
			s.suppliers[*newSupplier].AddProduct(p.ID)
		}
		p.SupplierID = newSupplier
		supplierChanged = true
	}

	p.Touch()
	p.Recompute()

	s.markDirty(CollectionProducts, CollectionCategories)
	if supplierChanged {
		s.markDirty(CollectionSuppliers)
	}
	return categoryChanged, supplierChanged
}

// setImage stores image on p, compressing it first when it is over the
// compression threshold. A failed compression keeps the original.
func (s *InventoryStore) setImage(p *Product, image string) {
	p.Image = image
	if image == "" || s.compressor == nil || len(image) <= s.compressThreshold {
		return
	}
	compressed, err := s.compressor.Compress(image)
	if err != nil {
		s.AddDomainEvent(NewImageCompressionFailedEvent(p, len(image), err))
		return
	}
	p.Image = compressed
}

func (s *InventoryStore) checkReferences(categoryID, supplierID *uuid.UUID) error {
	if categoryID != nil {
		if _, ok := s.categories[*categoryID]; !ok {
			return shared.NewValidationError("Category " + categoryID.String() + " does not exist")
		}
	}
	if supplierID != nil {
		if _, ok := s.suppliers[*supplierID]; !ok {
			return shared.NewValidationError("Supplier " + supplierID.String() + " does not exist")
		}
	}
	return nil
}

func sortByName(products []*Product) {
	fold := cases.Fold()
	slices.SortStableFunc(products, func(a, b *Product) int {
		return cmp.Compare(fold.String(a.Name), fold.String(b.Name))
	})
}

func productNotFound(id uuid.UUID) error {
	return shared.NewNotFoundError("Product " + id.String() + " not found")
}
