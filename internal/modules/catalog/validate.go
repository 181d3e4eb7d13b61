package catalog

import (
	"fmt"
	"strings"

	"github.com/georgemunganga/supply-backend/internal/apperr"
)

var (
	// ErrAlreadyExists is returned by Create when the id is taken.
	ErrAlreadyExists = apperr.NewConflict("catalog: product already exists")
	// ErrVersionConflict is returned by Update when the stored version moved.
	ErrVersionConflict = apperr.NewConflict("catalog: product version conflict")
)

// ValidateProduct checks the fields every stored product must satisfy.
func ValidateProduct(p *Product, categories Categories) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Invalid("name", "is required")
	}
	if strings.TrimSpace(p.Category) == "" {
		return apperr.Invalid("category", "is required")
	}
	if !categories.Contains(p.Category) {
		return apperr.Invalid("category", "%q is not one of %s", p.Category, strings.Join(categories, ", "))
	}
	return ValidateStock(p.Stock)
}

// ValidateStock checks the option/stock consistency rules of a stock mode:
// counters are non-negative, variant mode has 1..2 uniquely named groups and
// every group has 1..5 uniquely labelled values.
func ValidateStock(mode StockMode) error {
	switch s := mode.(type) {
	case SimpleStock:
		if s.Count < 0 {
			return apperr.Invalid("baseStock", "must be >= 0, got %d", s.Count)
		}
		return nil
	case VariantStock:
		return validateGroups(s.Groups)
	case nil:
		return apperr.Invalid("stock", "is required")
	default:
		return apperr.Invalid("stock", "unknown stock mode %T", mode)
	}
}

func validateGroups(groups []OptionGroup) error {
	if len(groups) == 0 || len(groups) > MaxOptionGroups {
		return apperr.Invalid("optionGroups", "must have 1 to %d groups, got %d", MaxOptionGroups, len(groups))
	}
	seenGroups := make(map[string]bool, len(groups))
	for gi, g := range groups {
		field := fmt.Sprintf("optionGroups[%d]", gi)
		if strings.TrimSpace(g.Name) == "" {
			return apperr.Invalid(field+".name", "is required")
		}
		if seenGroups[g.Name] {
			return apperr.Invalid(field+".name", "duplicate group %q", g.Name)
		}
		seenGroups[g.Name] = true

		if len(g.Values) == 0 || len(g.Values) > MaxOptionValues {
			return apperr.Invalid(field+".values", "group %q must have 1 to %d values, got %d", g.Name, MaxOptionValues, len(g.Values))
		}
		seenLabels := make(map[string]bool, len(g.Values))
		for vi, v := range g.Values {
			vf := fmt.Sprintf("%s.values[%d]", field, vi)
			if strings.TrimSpace(v.Label) == "" {
				return apperr.Invalid(vf+".label", "is required")
			}
			if seenLabels[v.Label] {
				return apperr.Invalid(vf+".label", "duplicate value %q in group %q", v.Label, g.Name)
			}
			seenLabels[v.Label] = true
			if v.Stock < 0 {
				return apperr.Invalid(vf+".stock", "must be >= 0, got %d", v.Stock)
			}
		}
	}
	return nil
}

// CheckOptionStockCap is the creation-form sanity check: the option stock summed
// over every group must not exceed the base stock entered alongside it.
func CheckOptionStockCap(baseStock int, groups []OptionGroup) error {
	total := 0
	for _, g := range groups {
		for _, v := range g.Values {
			total += v.Stock
		}
	}
	if total > baseStock {
		return apperr.Invalid("baseStock", "option stock total %d exceeds base stock %d", total, baseStock)
	}
	return nil
}
