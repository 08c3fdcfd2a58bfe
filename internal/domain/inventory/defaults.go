package inventory

import (
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

var defaultCategories = []CategoryInput{
	{Name: "Electronics", Description: "Devices, components and accessories", Color: "#3B82F6", Icon: "cpu"},
	{Name: "Office Supplies", Description: "Stationery and consumables", Color: "#10B981", Icon: "paperclip"},
	{Name: "Furniture", Description: "Desks, chairs and storage", Color: "#F59E0B", Icon: "armchair"},
	{Name: "Raw Materials", Description: "Inputs for production", Color: "#6B7280", Icon: "package"},
	{Name: "Services", Description: "Billable non-stock items", Color: "#8B5CF6", Icon: "briefcase"},
}

var defaultSuppliers = []SupplierInput{
	{Name: "General Wholesale Ltd", ContactPerson: "Purchasing Desk", Email: "orders@general-wholesale.example", Phone: "+1 555 0100"},
	{Name: "Local Distributor", ContactPerson: "Sales Team", Email: "sales@local-distributor.example", Phone: "+1 555 0199"},
}

// InitializeDefaults seeds the default categories and suppliers when both
// registries are empty. It reports whether anything was seeded.
func (s *InventoryStore) InitializeDefaults() bool {
	if len(s.categories) > 0 || len(s.suppliers) > 0 {
		return false
	}
	for _, input := range defaultCategories {
		c, _ := NewCategory(input)
		s.categories[c.ID] = c
		s.categoryOrder = append(s.categoryOrder, c.ID)
	}
	for _, input := range defaultSuppliers {
		sup, _ := NewSupplier(input)
		s.suppliers[sup.ID] = sup
		s.supplierOrder = append(s.supplierOrder, sup.ID)
	}
	s.markDirty(CollectionCategories, CollectionSuppliers)
	s.AddDomainEvent(&DefaultsInitializedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDefaultsInitialized, AggregateTypeCategory, uuid.Nil),
		Categories:      len(defaultCategories),
		Suppliers:       len(defaultSuppliers),
	})
	return true
}
