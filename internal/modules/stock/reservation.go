package stock

import (
	"errors"
	"fmt"

	"github.com/georgemunganga/supply-backend/internal/apperr"
)

// ErrConcurrencyConflict is matched by every *ConflictError.
var ErrConcurrencyConflict = errors.New("stock: concurrency conflict")

// Target is one counter claimed by a reservation. An empty Group means the
// product's base stock.
type Target struct {
	Group  string `json:"group,omitempty"`
	Value  string `json:"value,omitempty"`
	Amount int    `json:"amount"`
}

// IsBase reports whether the target is the base stock counter.
func (t Target) IsBase() bool { return t.Group == "" }

func (t Target) String() string {
	if t.IsBase() {
		return "base stock"
	}
	return t.Group + "/" + t.Value
}

// Reservation is a validated claim against one or more counters of a single
// product. It is produced by ValidateReservation and applied by Commit.
type Reservation struct {
	ProductID string `json:"product_id"`
	// ProductVersion is the version the reservation was validated against.
	ProductVersion int64             `json:"product_version"`
	Quantity       int               `json:"quantity"`
	Selections     map[string]string `json:"selections,omitempty"`
	Targets        []Target          `json:"targets"`
}

// InsufficientStockError names the counter that cannot cover a request.
type InsufficientStockError struct {
	ProductID string `json:"product_id"`
	Group     string `json:"group,omitempty"`
	Value     string `json:"value,omitempty"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func (e *InsufficientStockError) Error() string {
	if e.Group == "" {
		return fmt.Sprintf("insufficient base stock for product %s: requested %d, available %d",
			e.ProductID, e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient stock for %s %s of product %s: requested %d, available %d",
		e.Group, e.Value, e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Kind() apperr.Kind { return apperr.KindInsufficientStock }

// ConflictError reports that a product changed between validation and commit
// in a way that prevents the reservation from being applied. Callers
// re-validate against fresh state and retry.
type ConflictError struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
	Cause     error  `json:"-"`
}

func (e *ConflictError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("stock conflict on product %s: %s: %v", e.ProductID, e.Reason, e.Cause)
	}
	return fmt.Sprintf("stock conflict on product %s: %s", e.ProductID, e.Reason)
}

func (e *ConflictError) Kind() apperr.Kind { return apperr.KindConcurrencyConflict }

func (e *ConflictError) Is(target error) bool { return target == ErrConcurrencyConflict }
