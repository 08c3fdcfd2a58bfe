package inventory

import (
	"fmt"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// DeleteResult reports whether a registry entry was deleted.
// A blocked deletion is a normal outcome, not an error.
type DeleteResult struct {
	Deleted             bool   `json:"deleted"`
	Reason              string `json:"reason,omitempty"`
	ReferencingProducts int    `json:"referencingProducts,omitempty"`
}

// AddCategory creates a category
func (s *InventoryStore) AddCategory(input CategoryInput) (*Category, error) {
	c, err := NewCategory(input)
	if err != nil {
		return nil, err
	}
	s.categories[c.ID] = c
	s.categoryOrder = append(s.categoryOrder, c.ID)
	s.markDirty(CollectionCategories)
	s.AddDomainEvent(newCategoryEvent(EventTypeCategoryCreated, c))
	return c.Clone(), nil
}

// UpdateCategory merges patch into the category with the given id
func (s *InventoryStore) UpdateCategory(id uuid.UUID, patch CategoryPatch) (*Category, error) {
	c, ok := s.categories[id]
	if !ok {
		return nil, categoryNotFound(id)
	}
	if err := c.Apply(patch); err != nil {
		return nil, err
	}
	s.markDirty(CollectionCategories)
	s.AddDomainEvent(newCategoryEvent(EventTypeCategoryUpdated, c))
	return c.Clone(), nil
}

// DeleteCategory removes a category unless a product still references it
func (s *InventoryStore) DeleteCategory(id uuid.UUID) (DeleteResult, error) {
	c, ok := s.categories[id]
	if !ok {
		return DeleteResult{}, categoryNotFound(id)
	}
	if n := len(s.ProductsByCategory(id)); n > 0 {
		return DeleteResult{
			Reason:              fmt.Sprintf("Category %q still has %d product(s); reassign them first", c.Name, n),
			ReferencingProducts: n,
		}, nil
	}

	delete(s.categories, id)
	s.categoryOrder = removeID(s.categoryOrder, id)
	s.markDirty(CollectionCategories)
	s.AddDomainEvent(newCategoryEvent(EventTypeCategoryDeleted, c))
	return DeleteResult{Deleted: true}, nil
}

// GetCategory returns a copy of the category with the given id
func (s *InventoryStore) GetCategory(id uuid.UUID) (*Category, error) {
	c, ok := s.categories[id]
	if !ok {
		return nil, categoryNotFound(id)
	}
	s.refreshCategoryTotals()
	return c.Clone(), nil
}

// ListCategories returns every category in insertion order
func (s *InventoryStore) ListCategories() []*Category {
	s.refreshCategoryTotals()
	out := make([]*Category, 0, len(s.categoryOrder))
	for _, id := range s.categoryOrder {
		out = append(out, s.categories[id].Clone())
	}
	return out
}

// IncrementProductCount adjusts a category's product counter by delta, clamping at zero
func (s *InventoryStore) IncrementProductCount(categoryID uuid.UUID, delta int) error {
	c, ok := s.categories[categoryID]
	if !ok {
		return categoryNotFound(categoryID)
	}
	c.IncrementProductCount(delta)
	s.markDirty(CollectionCategories)
	return nil
}

// AddSupplier creates a supplier
func (s *InventoryStore) AddSupplier(input SupplierInput) (*Supplier, error) {
	sup, err := NewSupplier(input)
	if err != nil {
		return nil, err
	}
	s.suppliers[sup.ID] = sup
	s.supplierOrder = append(s.supplierOrder, sup.ID)
	s.markDirty(CollectionSuppliers)
	s.AddDomainEvent(newSupplierEvent(EventTypeSupplierCreated, sup))
	return sup.Clone(), nil
}

// UpdateSupplier merges patch into the supplier with the given id
func (s *InventoryStore) UpdateSupplier(id uuid.UUID, patch SupplierPatch) (*Supplier, error) {
	sup, ok := s.suppliers[id]
	if !ok {
		return nil, supplierNotFound(id)
	}
	if err := sup.Apply(patch); err != nil {
		return nil, err
	}
	s.markDirty(CollectionSuppliers)
	s.AddDomainEvent(newSupplierEvent(EventTypeSupplierUpdated, sup))
	return sup.Clone(), nil
}

// DeleteSupplier removes a supplier unless a product still references it
func (s *InventoryStore) DeleteSupplier(id uuid.UUID) (DeleteResult, error) {
	sup, ok := s.suppliers[id]
	if !ok {
		return DeleteResult{}, supplierNotFound(id)
	}
	n := len(s.selectProducts(func(p *Product) bool { return p.FromSupplier(id) }))
	if n > 0 {
		return DeleteResult{
			Reason:              fmt.Sprintf("Supplier %q still supplies %d product(s); reassign them first", sup.Name, n),
			ReferencingProducts: n,
		}, nil
	}

	delete(s.suppliers, id)
	s.supplierOrder = removeID(s.supplierOrder, id)
	s.markDirty(CollectionSuppliers)
	s.AddDomainEvent(newSupplierEvent(EventTypeSupplierDeleted, sup))
	return DeleteResult{Deleted: true}, nil
}

// GetSupplier returns a copy of the supplier with the given id
func (s *InventoryStore) GetSupplier(id uuid.UUID) (*Supplier, error) {
	sup, ok := s.suppliers[id]
	if !ok {
		return nil, supplierNotFound(id)
	}
	return sup.Clone(), nil
}

// ListSuppliers returns every supplier in insertion order
func (s *InventoryStore) ListSuppliers() []*Supplier {
	out := make([]*Supplier, 0, len(s.supplierOrder))
	for _, id := range s.supplierOrder {
		out = append(out, s.suppliers[id].Clone())
	}
	return out
}

// AddProductToSupplier associates a product with a supplier.
// It reports false when the association already existed.
func (s *InventoryStore) AddProductToSupplier(supplierID, productID uuid.UUID) (bool, error) {
	sup, ok := s.suppliers[supplierID]
	if !ok {
		return false, supplierNotFound(supplierID)
	}
	if _, ok := s.products[productID]; !ok {
		return false, productNotFound(productID)
	}
	if !sup.AddProduct(productID) {
		return false, nil
	}
	sup.Touch()
	s.markDirty(CollectionSuppliers)
	return true, nil
}

// RecordSupplierOrder increments the supplier's order counter
func (s *InventoryStore) RecordSupplierOrder(supplierID uuid.UUID) (*Supplier, error) {
	sup, ok := s.suppliers[supplierID]
	if !ok {
		return nil, supplierNotFound(supplierID)
	}
	sup.OrderCount++
	sup.Touch()
	s.markDirty(CollectionSuppliers)
	s.AddDomainEvent(newSupplierEvent(EventTypeSupplierOrderRecorded, sup))
	return sup.Clone(), nil
}

func categoryNotFound(id uuid.UUID) error {
	return shared.NewNotFoundError("Category " + id.String() + " not found")
}

func supplierNotFound(id uuid.UUID) error {
	return shared.NewNotFoundError("Supplier " + id.String() + " not found")
}
