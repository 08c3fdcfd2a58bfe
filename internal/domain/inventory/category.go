package inventory

import (
	"strings"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Category is a named bucket of products.
// ProductCount and TotalValue are derived from the products that reference it.
type Category struct {
	shared.BaseEntity
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Color        string          `json:"color"`
	Icon         string          `json:"icon"`
	ProductCount int             `json:"productCount"`
	TotalValue   decimal.Decimal `json:"totalValue"`
}

// CategoryInput carries the fields of a category to create
type CategoryInput struct {
	Name        string
	Description string
	Color       string
	Icon        string
}

// CategoryPatch carries the fields to change on an existing category
type CategoryPatch struct {
	Name        *string
	Description *string
	Color       *string
	Icon        *string
}

// NewCategory creates a category with zero derived counters
func NewCategory(input CategoryInput) (*Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, shared.NewValidationError("Category name is required")
	}
	return &Category{
		BaseEntity:  shared.NewBaseEntity(),
		Name:        name,
		Description: input.Description,
		Color:       input.Color,
		Icon:        input.Icon,
		TotalValue:  decimal.Zero,
	}, nil
}

// Apply merges the patch into the category
func (c *Category) Apply(patch CategoryPatch) error {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return shared.NewValidationError("Category name cannot be empty")
		}
		c.Name = name
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.Color != nil {
		c.Color = *patch.Color
	}
	if patch.Icon != nil {
		c.Icon = *patch.Icon
	}
	c.Touch()
	return nil
}

// IncrementProductCount adds delta to the product counter, clamping at zero
func (c *Category) IncrementProductCount(delta int) {
	c.ProductCount += delta
	if c.ProductCount < 0 {
		c.ProductCount = 0
	}
}

// Clone returns a copy of the category
func (c *Category) Clone() *Category {
	cp := *c
	return &cp
}
