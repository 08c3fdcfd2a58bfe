package inventory

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// InvoiceStatusPaid is the status of an invoice whose stock may be released
const InvoiceStatusPaid = "paid"

// Invoice is the paid invoice handed over by the invoicing subsystem
type Invoice struct {
	ID     string            `json:"id"`
	Number string            `json:"number"`
	Status string            `json:"status"`
	Items  []InvoiceLineItem `json:"items"`
}

// InvoiceLineItem is one sold line. Any of ProductID, Description and SKU
// may identify the product.
type InvoiceLineItem struct {
	ProductID   string          `json:"productId,omitempty"`
	Description string          `json:"description"`
	SKU         string          `json:"sku,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// IsPaid reports whether the invoice may be applied to stock.
// An empty status is treated as paid.
func (i Invoice) IsPaid() bool {
	return i.Status == "" || strings.EqualFold(i.Status, InvoiceStatusPaid)
}

// ProductMatcher decides whether a line item refers to a product
type ProductMatcher struct {
	Name  string
	Match func(item InvoiceLineItem, product *Product) bool
}

// MatchByID matches the line's product id against the product id
var MatchByID = ProductMatcher{
	Name: "id",
	Match: func(item InvoiceLineItem, p *Product) bool {
		return item.ProductID != "" && item.ProductID == p.ID.String()
	},
}

// MatchByName matches the line description exactly against the product name
var MatchByName = ProductMatcher{
	Name: "name",
	Match: func(item InvoiceLineItem, p *Product) bool {
		return item.Description != "" && item.Description == p.Name
	},
}

// MatchBySKU matches the line sku exactly against the product sku
var MatchBySKU = ProductMatcher{
	Name: "sku",
	Match: func(item InvoiceLineItem, p *Product) bool {
		return item.SKU != "" && item.SKU == p.SKU
	},
}

// ResolutionPolicy is an ordered list of matchers. The first matcher that
// matches any product wins, and within a matcher the earliest product wins.
type ResolutionPolicy []ProductMatcher

// DefaultResolutionPolicy resolves by id, then by exact name, then by exact sku
var DefaultResolutionPolicy = ResolutionPolicy{MatchByID, MatchByName, MatchBySKU}

// ParseResolutionPolicy builds a policy from matcher names ("id", "name",
// "sku") in the order given. An empty list yields the default policy.
func ParseResolutionPolicy(names []string) (ResolutionPolicy, error) {
	if len(names) == 0 {
		return DefaultResolutionPolicy, nil
	}
	known := map[string]ProductMatcher{
		MatchByID.Name:   MatchByID,
		MatchByName.Name: MatchByName,
		MatchBySKU.Name:  MatchBySKU,
	}
	policy := make(ResolutionPolicy, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		m, ok := known[key]
		if !ok {
			return nil, fmt.Errorf("unknown invoice line matcher %q", name)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		policy = append(policy, m)
	}
	return policy, nil
}

// Resolve finds the product a line item refers to, or nil
func (rp ResolutionPolicy) Resolve(item InvoiceLineItem, products []*Product) *Product {
	for _, matcher := range rp {
		for _, p := range products {
			if matcher.Match(item, p) {
				return p
			}
		}
	}
	return nil
}
