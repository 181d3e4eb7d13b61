// Package inventory reports stock levels across the catalog. It only reads;
// counters are changed by the stock ledger alone.
package inventory

import (
	"context"
	"sort"

	"github.com/georgemunganga/supply-backend/internal/apperr"
	"github.com/georgemunganga/supply-backend/internal/modules/catalog"
)

// Service defines inventory reporting.
type Service interface {
	// Levels lists one entry per stock counter, in catalog order.
	Levels(ctx context.Context, f Filter) ([]Level, error)
	// Totals summarises every category of the configured set.
	Totals(ctx context.Context) ([]CategoryTotal, error)
}

type service struct {
	products   catalog.Repository
	categories catalog.Categories
}

// NewService creates an inventory report over the catalog store.
func NewService(products catalog.Repository, categories catalog.Categories) Service {
	if len(categories) == 0 {
		categories = catalog.DefaultCategories
	}
	return &service{products: products, categories: categories}
}

func (s *service) Levels(ctx context.Context, f Filter) ([]Level, error) {
	if f.Below < 0 {
		return nil, apperr.Invalid("below", "must be >= 0, got %d", f.Below)
	}
	if f.Category != "" && !s.categories.Contains(f.Category) {
		return nil, apperr.Invalid("category", "%q is not a known category", f.Category)
	}
	products, err := s.products.List(ctx, catalog.Filter{Category: f.Category})
	if err != nil {
		return nil, err
	}
	levels := []Level{}
	for _, p := range products {
		for _, l := range levelsOf(p) {
			if f.Below > 0 && l.Stock >= f.Below {
				continue
			}
			levels = append(levels, l)
		}
	}
	return levels, nil
}

func (s *service) Totals(ctx context.Context) ([]CategoryTotal, error) {
	products, err := s.products.List(ctx, catalog.Filter{})
	if err != nil {
		return nil, err
	}
	byCategory := make(map[string]*CategoryTotal, len(s.categories))
	for _, c := range s.categories {
		byCategory[c] = &CategoryTotal{Category: c}
	}
	for _, p := range products {
		t, ok := byCategory[p.Category]
		if !ok {
			t = &CategoryTotal{Category: p.Category}
			byCategory[p.Category] = t
		}
		t.Products++
		for _, l := range levelsOf(p) {
			t.Counters++
			t.Stock += l.Stock
			if l.Stock == 0 {
				t.SoldOut++
			}
		}
	}

	out := make([]CategoryTotal, 0, len(byCategory))
	for _, c := range s.categories {
		out = append(out, *byCategory[c])
		delete(byCategory, c)
	}
	// Categories dropped from configuration still hold products.
	extra := make([]CategoryTotal, 0, len(byCategory))
	for _, t := range byCategory {
		extra = append(extra, *t)
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Category < extra[j].Category })
	return append(out, extra...), nil
}

func levelsOf(p *catalog.Product) []Level {
	base := Level{ProductID: p.ID, ProductName: p.Name, Category: p.Category, UpdatedAt: p.UpdatedAt}
	switch s := p.Stock.(type) {
	case catalog.VariantStock:
		var out []Level
		for _, g := range s.Groups {
			for _, v := range g.Values {
				l := base
				l.Group, l.Value, l.Stock = g.Name, v.Label, v.Stock
				out = append(out, l)
			}
		}
		return out
	case catalog.SimpleStock:
		base.Stock = s.Count
		return []Level{base}
	default:
		return nil
	}
}
