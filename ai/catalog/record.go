// Package catalog holds the product/policy records and the in-memory index
// the retrieval pipeline queries.
package catalog

import (
	"fmt"
	"strings"
)

// Kind discriminates the record variant.
type Kind string

const (
	// KindProduct is a sellable product entry.
	KindProduct Kind = "product"
	// KindPolicy is a section of a policy document.
	KindPolicy Kind = "policy_section"
)

// Record is a catalog entry. Kind selects which of the kind-specific fields
// are meaningful: Price/Unit for products, Section for policy sections.
// Records are immutable once handed to an index.
type Record struct {
	ID            string   `json:"id"`
	Kind          Kind     `json:"kind"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Keywords      []string `json:"keywords,omitempty"`
	Description   string   `json:"description,omitempty"`
	Specification string   `json:"specification,omitempty"`

	// Product fields.
	Price float64 `json:"price,omitempty"`
	Unit  string  `json:"unit,omitempty"`

	// Policy fields.
	Section string `json:"section,omitempty"`
}

// SearchText returns the free-text fields joined for fuzzy scoring.
func (r *Record) SearchText() string {
	parts := []string{r.Name, r.Category}
	parts = append(parts, r.Keywords...)
	if r.Description != "" {
		parts = append(parts, r.Description)
	}
	if r.Specification != "" {
		parts = append(parts, r.Specification)
	}
	return strings.Join(parts, " ")
}

// PriceLabel renders the product price for prompt context, e.g. "60元/斤".
func (r *Record) PriceLabel() string {
	if r.Kind != KindProduct {
		return ""
	}
	unit := r.Unit
	if unit == "" {
		unit = "件"
	}
	return fmt.Sprintf("%g元/%s", r.Price, unit)
}

// Validate checks the fields required for indexing.
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("record missing id")
	}
	if r.Kind != KindProduct && r.Kind != KindPolicy {
		return fmt.Errorf("record %s: unknown kind %q", r.ID, r.Kind)
	}
	if r.Name == "" {
		return fmt.Errorf("record %s: missing name", r.ID)
	}
	return nil
}
