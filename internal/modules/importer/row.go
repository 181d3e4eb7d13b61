package importer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/georgemunganga/supply-backend/internal/apperr"
	"github.com/georgemunganga/supply-backend/internal/modules/catalog"
)

// Row is one product in wide form: column name to raw cell, as produced by a
// spreadsheet or CSV decoder. Cells may be strings or numbers.
//
// Option groups are inline columns: group1 names the first group and
// group1Value1/group1Stock1 … group1Value5/group1Stock5 hold its values; the
// same for group2.
type Row map[string]any

const (
	ColID          = "id"
	ColCategory    = "category"
	ColName        = "name"
	ColBaseStock   = "baseStock"
	ColDescription = "description"
	ColImageRef    = "imageRef"
)

// GroupColumn is the column naming option group g (1-based).
func GroupColumn(g int) string { return fmt.Sprintf("group%d", g) }

// ValueColumn is the column holding the label of value v of group g.
func ValueColumn(g, v int) string { return fmt.Sprintf("group%dValue%d", g, v) }

// StockColumn is the column holding the stock of value v of group g.
func StockColumn(g, v int) string { return fmt.Sprintf("group%dStock%d", g, v) }

// Cell returns the trimmed, NFC-normalised text of a column. Spreadsheets
// saved on macOS carry decomposed Hangul, which would otherwise never match
// the category set or an existing option label.
func (r Row) Cell(col string) string {
	var s string
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	default:
		s = fmt.Sprint(v)
	}
	return norm.NFC.String(strings.TrimSpace(s))
}

// decodeRow turns one wide row into a product draft. num is the 1-based row
// number used in errors.
func decodeRow(num int, r Row, categories catalog.Categories) (*catalog.Product, error) {
	category := r.Cell(ColCategory)
	if category == "" {
		return nil, rowError(num, ColCategory, "is required")
	}
	if !categories.Contains(category) {
		return nil, rowError(num, ColCategory, fmt.Sprintf("%q is not one of %s", category, strings.Join(categories, ", ")))
	}
	name := r.Cell(ColName)
	if name == "" {
		return nil, rowError(num, ColName, "is required")
	}

	var groups []catalog.OptionGroup
	seenGroups := map[string]bool{}
	for g := 1; g <= catalog.MaxOptionGroups; g++ {
		groupName := r.Cell(GroupColumn(g))
		if groupName == "" {
			continue
		}
		if seenGroups[groupName] {
			return nil, rowError(num, GroupColumn(g), fmt.Sprintf("duplicate group %q", groupName))
		}
		seenGroups[groupName] = true

		group := catalog.OptionGroup{Name: groupName}
		seenLabels := map[string]bool{}
		for v := 1; v <= catalog.MaxOptionValues; v++ {
			label := r.Cell(ValueColumn(g, v))
			if label == "" {
				if r.Cell(StockColumn(g, v)) != "" {
					return nil, rowError(num, ValueColumn(g, v), fmt.Sprintf("is required when %s is set", StockColumn(g, v)))
				}
				continue
			}
			if seenLabels[label] {
				return nil, rowError(num, ValueColumn(g, v), fmt.Sprintf("duplicate value %q in group %q", label, groupName))
			}
			seenLabels[label] = true
			n, err := parseCount(r.Cell(StockColumn(g, v)))
			if err != nil {
				return nil, rowError(num, StockColumn(g, v), err.Error())
			}
			group.Values = append(group.Values, catalog.OptionValue{Label: label, Stock: n})
		}
		// A group without values is dropped.
		if len(group.Values) > 0 {
			groups = append(groups, group)
		}
	}

	// baseStock is the authority when no group survives, so it is required then.
	baseStock := 0
	if raw := r.Cell(ColBaseStock); raw != "" || len(groups) == 0 {
		n, err := parseCount(raw)
		if err != nil {
			return nil, rowError(num, ColBaseStock, err.Error())
		}
		baseStock = n
	}
	if len(groups) > 0 {
		// Rows with option groups carry base stock 0 by convention; the value
		// is not an authority, so it is not kept.
		baseStock = 0
	}

	return &catalog.Product{
		ID:          r.Cell(ColID),
		Category:    category,
		Name:        name,
		Description: r.Cell(ColDescription),
		ImageRef:    r.Cell(ColImageRef),
		Stock:       catalog.ModeFor(baseStock, groups),
	}, nil
}

// parseCount reads a non-negative integer. Spreadsheet exports sometimes write
// whole numbers as "12.0", which is accepted.
func parseCount(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("is required")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
			return 0, fmt.Errorf("%q is not an integer", s)
		}
		n = int(f)
	}
	if n < 0 {
		return 0, fmt.Errorf("must be >= 0, got %d", n)
	}
	return n, nil
}

func rowError(num int, field, reason string) *apperr.ValidationError {
	return &apperr.ValidationError{Row: num, Field: field, Reason: reason}
}
