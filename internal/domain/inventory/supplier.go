package inventory

import (
	"slices"
	"strings"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Supplier is a vendor. Products holds the ids of associated products
// in the order they were associated, without duplicates.
type Supplier struct {
	shared.BaseEntity
	Name          string      `json:"name"`
	ContactPerson string      `json:"contactPerson"`
	Email         string      `json:"email"`
	Phone         string      `json:"phone"`
	Address       string      `json:"address"`
	Products      []uuid.UUID `json:"products"`
	OrderCount    int         `json:"orderCount"`
}

// SupplierInput carries the fields of a supplier to create
type SupplierInput struct {
	Name          string
	ContactPerson string
	Email         string
	Phone         string
	Address       string
}

// SupplierPatch carries the fields to change on an existing supplier
type SupplierPatch struct {
	Name          *string
	ContactPerson *string
	Email         *string
	Phone         *string
	Address       *string
}

// NewSupplier creates a supplier without associated products
func NewSupplier(input SupplierInput) (*Supplier, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, shared.NewValidationError("Supplier name is required")
	}
	return &Supplier{
		BaseEntity:    shared.NewBaseEntity(),
		Name:          name,
		ContactPerson: input.ContactPerson,
		Email:         input.Email,
		Phone:         input.Phone,
		Address:       input.Address,
		Products:      make([]uuid.UUID, 0),
	}, nil
}

// Apply merges the patch into the supplier
func (s *Supplier) Apply(patch SupplierPatch) error {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return shared.NewValidationError("Supplier name cannot be empty")
		}
		s.Name = name
	}
	if patch.ContactPerson != nil {
		s.ContactPerson = *patch.ContactPerson
	}
	if patch.Email != nil {
		s.Email = *patch.Email
	}
	if patch.Phone != nil {
		s.Phone = *patch.Phone
	}
	if patch.Address != nil {
		s.Address = *patch.Address
	}
	s.Touch()
	return nil
}

// HasProduct reports whether the product id is associated with the supplier
func (s *Supplier) HasProduct(productID uuid.UUID) bool {
	return slices.Contains(s.Products, productID)
}

// AddProduct associates a product id. Adding an id already present is a no-op.
func (s *Supplier) AddProduct(productID uuid.UUID) bool {
	if s.HasProduct(productID) {
		return false
	}
	s.Products = append(s.Products, productID)
	return true
}

// RemoveProduct drops a product id from the association list
func (s *Supplier) RemoveProduct(productID uuid.UUID) bool {
	idx := slices.Index(s.Products, productID)
	if idx < 0 {
		return false
	}
	s.Products = slices.Delete(s.Products, idx, idx+1)
	return true
}

// dedupe removes repeated ids while keeping first occurrences in order
func (s *Supplier) dedupe() {
	seen := make(map[uuid.UUID]struct{}, len(s.Products))
	out := make([]uuid.UUID, 0, len(s.Products))
	for _, id := range s.Products {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	s.Products = out
}

// Clone returns a deep copy of the supplier
func (s *Supplier) Clone() *Supplier {
	cp := *s
	cp.Products = slices.Clone(s.Products)
	if cp.Products == nil {
		cp.Products = make([]uuid.UUID, 0)
	}
	return &cp
}
