package catalog

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	// MaxOptionGroups is the largest number of option groups a product may define.
	MaxOptionGroups = 2
	// MaxOptionValues is the largest number of values an option group may define.
	MaxOptionValues = 5
)

// StockMode says which counter is the stock authority for a product.
// It is either SimpleStock or VariantStock, never both.
type StockMode interface {
	stockMode()
	clone() StockMode
}

// SimpleStock is the mode of a product without option groups: Count is authoritative.
type SimpleStock struct {
	Count int
}

// VariantStock is the mode of a product with one or two option groups: each
// OptionValue carries its own authoritative stock.
type VariantStock struct {
	Groups []OptionGroup
}

func (SimpleStock) stockMode()  {}
func (VariantStock) stockMode() {}

func (s SimpleStock) clone() StockMode { return s }

func (v VariantStock) clone() StockMode {
	groups := make([]OptionGroup, len(v.Groups))
	for i, g := range v.Groups {
		groups[i] = OptionGroup{Name: g.Name, Values: append([]OptionValue(nil), g.Values...)}
	}
	return VariantStock{Groups: groups}
}

// Group returns the group called name.
func (v VariantStock) Group(name string) (*OptionGroup, bool) {
	for i := range v.Groups {
		if v.Groups[i].Name == name {
			return &v.Groups[i], true
		}
	}
	return nil, false
}

// OptionGroup is a named attribute such as a size, with 1..5 values.
type OptionGroup struct {
	Name   string        `json:"name"`
	Values []OptionValue `json:"values"`
}

// Value returns the value labelled label.
func (g *OptionGroup) Value(label string) (*OptionValue, bool) {
	for i := range g.Values {
		if g.Values[i].Label == label {
			return &g.Values[i], true
		}
	}
	return nil, false
}

// OptionValue is one choice of an option group and its stock.
type OptionValue struct {
	Label string `json:"label"`
	Stock int    `json:"stock"`
}

// Product is a supply item in the catalog.
type Product struct {
	ID          string
	Category    string
	Name        string
	Description string
	ImageRef    string
	Stock       StockMode
	// Version is bumped by every successful write and guards conditional updates.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasOptions reports whether the product is in variant mode.
func (p *Product) HasOptions() bool {
	_, ok := p.Stock.(VariantStock)
	return ok
}

// OptionGroups returns the product's groups, nil in simple mode.
func (p *Product) OptionGroups() []OptionGroup {
	if v, ok := p.Stock.(VariantStock); ok {
		return v.Groups
	}
	return nil
}

// Clone returns a deep copy so stores and callers never share counters.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	if p.Stock != nil {
		c.Stock = p.Stock.clone()
	}
	return &c
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Category string
}

// Categories is the closed set of product categories.
type Categories []string

// DefaultCategories are the five supply categories used by the training centre.
var DefaultCategories = Categories{"견옷", "하네스용품", "사료", "간식", "위생용품"}

// ParseCategories splits a comma separated list, falling back to DefaultCategories.
func ParseCategories(raw string) Categories {
	var out Categories
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return DefaultCategories
	}
	return out
}

// Contains reports whether c is a member of the set.
func (cs Categories) Contains(c string) bool {
	for _, v := range cs {
		if v == c {
			return true
		}
	}
	return false
}

// productJSON is the wire form of Product. Exactly one of BaseStock and
// OptionGroups is populated.
type productJSON struct {
	ID           string        `json:"id"`
	Category     string        `json:"category"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	ImageRef     string        `json:"image_ref,omitempty"`
	StockMode    string        `json:"stock_mode"`
	BaseStock    *int          `json:"base_stock,omitempty"`
	OptionGroups []OptionGroup `json:"option_groups,omitempty"`
	Version      int64         `json:"version"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

const (
	modeSimple  = "simple"
	modeVariant = "variant"
)

func (p Product) MarshalJSON() ([]byte, error) {
	out := productJSON{
		ID:          p.ID,
		Category:    p.Category,
		Name:        p.Name,
		Description: p.Description,
		ImageRef:    p.ImageRef,
		Version:     p.Version,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	switch s := p.Stock.(type) {
	case VariantStock:
		out.StockMode = modeVariant
		out.OptionGroups = s.Groups
	case SimpleStock:
		out.StockMode = modeSimple
		n := s.Count
		out.BaseStock = &n
	default:
		out.StockMode = modeSimple
		n := 0
		out.BaseStock = &n
	}
	return json.Marshal(out)
}

func (p *Product) UnmarshalJSON(data []byte) error {
	var in productJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = Product{
		ID:          in.ID,
		Category:    in.Category,
		Name:        in.Name,
		Description: in.Description,
		ImageRef:    in.ImageRef,
		Version:     in.Version,
		CreatedAt:   in.CreatedAt,
		UpdatedAt:   in.UpdatedAt,
	}
	p.Stock = ModeFor(derefInt(in.BaseStock), in.OptionGroups)
	return nil
}

// ModeFor picks the stock mode implied by a base stock and a list of groups.
// Any group at all selects variant mode; the base stock is then ignored.
func ModeFor(baseStock int, groups []OptionGroup) StockMode {
	if len(groups) > 0 {
		return VariantStock{Groups: groups}
	}
	return SimpleStock{Count: baseStock}
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
