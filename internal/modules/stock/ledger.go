// Package stock is the only writer of product stock counters.
//
// A reservation is validated against a product snapshot and later committed
// through the catalog store's conditional update. Commit re-reads the product
// and re-checks every counter right before writing, so two requests racing for
// the last unit cannot both succeed: the loser either sees the smaller counter
// or loses the version check.
package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/georgemunganga/supply-backend/internal/apperr"
	"github.com/georgemunganga/supply-backend/internal/modules/catalog"
)

const defaultReleaseAttempts = 5

// Ledger validates and applies reservations.
type Ledger struct {
	repo            catalog.Repository
	logger          *zap.Logger
	now             func() time.Time
	releaseAttempts int
}

// NewLedger creates a Ledger writing through repo.
func NewLedger(repo catalog.Repository, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		repo:            repo,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
		releaseAttempts: defaultReleaseAttempts,
	}
}

// ValidateLayout applies the option/stock consistency rules to a stock mode.
func (l *Ledger) ValidateLayout(mode catalog.StockMode) error {
	return catalog.ValidateStock(mode)
}

// ValidateReservation checks that quantity can be taken from p for the given
// selections. It never mutates p.
func (l *Ledger) ValidateReservation(p *catalog.Product, selections map[string]string, quantity int) (*Reservation, error) {
	if p == nil {
		return nil, errors.New("stock: product is required")
	}
	if quantity <= 0 {
		return nil, apperr.Invalid("quantity", "must be positive, got %d", quantity)
	}

	res := &Reservation{
		ProductID:      p.ID,
		ProductVersion: p.Version,
		Quantity:       quantity,
	}

	switch s := p.Stock.(type) {
	case catalog.SimpleStock:
		if len(selections) > 0 {
			return nil, apperr.Invalid("selections", "product %s has no option groups", p.ID)
		}
		if quantity > s.Count {
			return nil, &InsufficientStockError{ProductID: p.ID, Requested: quantity, Available: s.Count}
		}
		res.Targets = []Target{{Amount: quantity}}
		return res, nil

	case catalog.VariantStock:
		targets := make([]Target, 0, len(s.Groups))
		values := make([]catalog.OptionValue, 0, len(s.Groups))
		for i := range s.Groups {
			g := &s.Groups[i]
			label, ok := selections[g.Name]
			if !ok {
				return nil, apperr.Invalid("selections."+g.Name, "a value is required")
			}
			v, ok := g.Value(label)
			if !ok {
				return nil, apperr.Invalid("selections."+g.Name, "unknown value %q", label)
			}
			targets = append(targets, Target{Group: g.Name, Value: v.Label, Amount: quantity})
			values = append(values, *v)
		}
		if extra := unknownGroups(s, selections); len(extra) > 0 {
			return nil, apperr.Invalid("selections."+extra[0], "product %s has no option group %q", p.ID, extra[0])
		}
		for i, t := range targets {
			if quantity > values[i].Stock {
				return nil, &InsufficientStockError{
					ProductID: p.ID,
					Group:     t.Group,
					Value:     t.Value,
					Requested: quantity,
					Available: values[i].Stock,
				}
			}
		}
		res.Selections = copySelections(selections)
		res.Targets = targets
		return res, nil

	default:
		return nil, fmt.Errorf("stock: product %s has no stock mode", p.ID)
	}
}

// Commit applies res to the stored product: every targeted counter is
// decremented or none is. It fails with a *ConflictError when the product
// moved since validation and can no longer cover res, or when another writer
// wins the conditional update.
func (l *Ledger) Commit(ctx context.Context, res *Reservation) (*catalog.Product, error) {
	if res == nil || len(res.Targets) == 0 {
		return nil, errors.New("stock: reservation has no targets")
	}
	current, err := l.repo.GetByID(ctx, res.ProductID)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	if err := applyTargets(next, res.Targets, -1); err != nil {
		if current.Version == res.ProductVersion {
			return nil, err
		}
		return nil, &ConflictError{ProductID: res.ProductID, Reason: "product changed since validation", Cause: err}
	}
	next.UpdatedAt = l.now()

	if err := l.repo.Update(ctx, next); err != nil {
		if errors.Is(err, catalog.ErrVersionConflict) {
			return nil, &ConflictError{ProductID: res.ProductID, Reason: "concurrent stock update", Cause: err}
		}
		return nil, fmt.Errorf("commit reservation on %s: %w", res.ProductID, err)
	}

	l.logger.Debug("stock reservation committed",
		zap.String("product_id", res.ProductID),
		zap.Int("quantity", res.Quantity),
		zap.Int64("version", next.Version))
	return next, nil
}

// Release credits a committed reservation back to its counters. It retries
// lost conditional updates a bounded number of times.
func (l *Ledger) Release(ctx context.Context, res *Reservation) (*catalog.Product, error) {
	if res == nil || len(res.Targets) == 0 {
		return nil, errors.New("stock: reservation has no targets")
	}
	var lastErr error
	for attempt := 1; attempt <= l.releaseAttempts; attempt++ {
		current, err := l.repo.GetByID(ctx, res.ProductID)
		if err != nil {
			return nil, err
		}
		next := current.Clone()
		if err := applyTargets(next, res.Targets, +1); err != nil {
			return nil, err
		}
		next.UpdatedAt = l.now()
		err = l.repo.Update(ctx, next)
		if err == nil {
			l.logger.Info("stock reservation released",
				zap.String("product_id", res.ProductID),
				zap.Int("quantity", res.Quantity),
				zap.Int("attempt", attempt))
			return next, nil
		}
		if !errors.Is(err, catalog.ErrVersionConflict) {
			return nil, fmt.Errorf("release reservation on %s: %w", res.ProductID, err)
		}
		lastErr = err
	}
	return nil, &ConflictError{ProductID: res.ProductID, Reason: "release retries exhausted", Cause: lastErr}
}

// applyTargets moves every targeted counter of p by sign*amount. It refuses to
// take any counter below zero and leaves p unspecified on error, so callers
// work on a clone.
func applyTargets(p *catalog.Product, targets []Target, sign int) error {
	switch s := p.Stock.(type) {
	case catalog.SimpleStock:
		if len(targets) != 1 || !targets[0].IsBase() {
			return apperr.Invalid("selections", "product %s no longer uses option groups", p.ID)
		}
		count := s.Count + sign*targets[0].Amount
		if count < 0 {
			return &InsufficientStockError{ProductID: p.ID, Requested: targets[0].Amount, Available: s.Count}
		}
		p.Stock = catalog.SimpleStock{Count: count}
		return nil

	case catalog.VariantStock:
		if len(targets) != len(s.Groups) {
			return apperr.Invalid("selections", "option groups of product %s changed", p.ID)
		}
		for _, t := range targets {
			if t.IsBase() {
				return apperr.Invalid("selections", "product %s now uses option groups", p.ID)
			}
			g, ok := s.Group(t.Group)
			if !ok {
				return apperr.Invalid("selections."+t.Group, "option group no longer exists")
			}
			v, ok := g.Value(t.Value)
			if !ok {
				return apperr.Invalid("selections."+t.Group, "value %q no longer exists", t.Value)
			}
			stock := v.Stock + sign*t.Amount
			if stock < 0 {
				return &InsufficientStockError{
					ProductID: p.ID,
					Group:     t.Group,
					Value:     t.Value,
					Requested: t.Amount,
					Available: v.Stock,
				}
			}
			v.Stock = stock
		}
		return nil

	default:
		return fmt.Errorf("stock: product %s has no stock mode", p.ID)
	}
}

func unknownGroups(v catalog.VariantStock, selections map[string]string) []string {
	var extra []string
	for name := range selections {
		if _, ok := v.Group(name); !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return extra
}

func copySelections(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
