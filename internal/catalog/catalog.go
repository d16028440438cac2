// Package catalog holds the closed set of product modules and the
// business-category recommendations that drive tenant onboarding.
// The registry is built once at startup and never mutated afterwards,
// so lookups are safe for concurrent use without locking.
package catalog

import (
	"fmt"
	"sort"

	id "vendo/pkg/domain"
	dErrors "vendo/pkg/domain-errors"
)

// Module is a sellable feature area of the product.
type Module struct {
	Code        id.ModuleCode `json:"code"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
}

// Recommendation ties a module to a business category. Required
// recommendations are pre-activated during signup, optional ones are
// only suggested in the onboarding UI.
type Recommendation struct {
	Module   id.ModuleCode `json:"module"`
	Required bool          `json:"required"`
	Priority int           `json:"priority"`
}

// BusinessCategory describes a retail vertical and the modules a
// tenant in that vertical typically needs.
type BusinessCategory struct {
	Code        string           `json:"code"`
	Name        string           `json:"name"`
	Recommended []Recommendation `json:"recommended"`
}

// Registry is the immutable module catalog.
type Registry struct {
	modules    map[id.ModuleCode]Module
	ordered    []Module
	categories map[string]BusinessCategory
}

// NewRegistry validates the module set and category recommendations.
// Duplicate module codes and recommendations that reference a module
// outside the set are configuration errors and fail construction.
func NewRegistry(modules []Module, categories []BusinessCategory) (*Registry, error) {
	byCode := make(map[id.ModuleCode]Module, len(modules))
	ordered := make([]Module, 0, len(modules))
	for _, m := range modules {
		if m.Code == "" {
			return nil, dErrors.New(dErrors.CodeUnknownModule, "module with empty code")
		}
		if _, dup := byCode[m.Code]; dup {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("duplicate module code %q", m.Code))
		}
		byCode[m.Code] = m
		ordered = append(ordered, m)
	}

	byCat := make(map[string]BusinessCategory, len(categories))
	for _, c := range categories {
		if _, dup := byCat[c.Code]; dup {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("duplicate business category %q", c.Code))
		}
		for _, rec := range c.Recommended {
			if _, ok := byCode[rec.Module]; !ok {
				return nil, dErrors.New(dErrors.CodeUnknownModule,
					fmt.Sprintf("category %q recommends unknown module %q", c.Code, rec.Module))
			}
		}
		sorted := append([]Recommendation(nil), c.Recommended...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
		c.Recommended = sorted
		byCat[c.Code] = c
	}

	return &Registry{modules: byCode, ordered: ordered, categories: byCat}, nil
}

// Validate rejects module codes outside the catalog. Unknown codes are
// always a caller bug or stale data, never silently tolerated.
func (r *Registry) Validate(code id.ModuleCode) error {
	if _, ok := r.modules[code]; !ok {
		return dErrors.New(dErrors.CodeUnknownModule, fmt.Sprintf("unknown module %q", code))
	}
	return nil
}

// Has reports whether code is part of the catalog.
func (r *Registry) Has(code id.ModuleCode) bool {
	_, ok := r.modules[code]
	return ok
}

// Module returns the catalog entry for code.
func (r *Registry) Module(code id.ModuleCode) (Module, error) {
	m, ok := r.modules[code]
	if !ok {
		return Module{}, dErrors.New(dErrors.CodeUnknownModule, fmt.Sprintf("unknown module %q", code))
	}
	return m, nil
}

// Modules returns the catalog in declaration order.
func (r *Registry) Modules() []Module {
	return append([]Module(nil), r.ordered...)
}

// Category returns the business category for code.
func (r *Registry) Category(code string) (BusinessCategory, error) {
	c, ok := r.categories[code]
	if !ok {
		return BusinessCategory{}, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("unknown business category %q", code))
	}
	return c, nil
}

// Categories returns all business categories sorted by code.
func (r *Registry) Categories() []BusinessCategory {
	out := make([]BusinessCategory, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
