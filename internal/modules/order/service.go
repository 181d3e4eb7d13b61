package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/georgemunganga/supply-backend/internal/apperr"
	"github.com/georgemunganga/supply-backend/internal/modules/catalog"
	"github.com/georgemunganga/supply-backend/internal/modules/events"
	"github.com/georgemunganga/supply-backend/internal/modules/stock"
)

// DefaultMaxCommitAttempts bounds validate+commit rounds when a reservation
// keeps losing to concurrent writers.
const DefaultMaxCommitAttempts = 3

// Service is the order workflow.
type Service interface {
	// PlaceOrder reserves stock for the request and records a pending order.
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error)

	// GetOrder retrieves an order by id.
	GetOrder(ctx context.Context, id string) (*Order, error)

	// ListOrders returns orders matching f, newest first.
	ListOrders(ctx context.Context, f Filter) ([]*Order, error)

	// Advance sets the status of an order. Any known status may be targeted,
	// including skipping ahead or moving back; stock is never touched.
	Advance(ctx context.Context, id string, status Status) (*Order, error)

	// DeleteOrder removes an order. Reserved stock is not credited back.
	DeleteOrder(ctx context.Context, id string) error
}

// Config tunes the workflow.
type Config struct {
	MaxCommitAttempts int
}

type service struct {
	repo      Repository
	products  catalog.Repository
	ledger    *stock.Ledger
	publisher events.Publisher
	logger    *zap.Logger
	cfg       Config
	now       func() time.Time
}

// NewService creates the order workflow.
func NewService(repo Repository, products catalog.Repository, ledger *stock.Ledger,
	publisher events.Publisher, logger *zap.Logger, cfg Config) Service {
	if cfg.MaxCommitAttempts <= 0 {
		cfg.MaxCommitAttempts = DefaultMaxCommitAttempts
	}
	if publisher == nil {
		publisher = events.NewNopPublisher()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		repo:      repo,
		products:  products,
		ledger:    ledger,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if err := validatePlaceOrder(req); err != nil {
		return nil, err
	}

	product, res, err := s.reserve(ctx, req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	o := &Order{
		ID:              uuid.New().String(),
		OrderNumber:     generateOrderNumber(now),
		Requester:       req.Requester,
		ProductID:       product.ID,
		ProductName:     product.Name,
		ProductCategory: product.Category,
		Quantity:        req.Quantity,
		Selections:      copySelections(res.Selections),
		Recipient:       trimRecipient(req.Recipient),
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		// The stock is already taken; give it back so no decrement survives
		// without its order.
		if _, relErr := s.ledger.Release(context.WithoutCancel(ctx), res); relErr != nil {
			s.logger.Error("order persist failed and stock release failed",
				zap.String("product_id", res.ProductID),
				zap.Any("targets", res.Targets),
				zap.NamedError("persist_error", err),
				zap.NamedError("release_error", relErr))
			return nil, fmt.Errorf("failed to persist order: %w (stock release failed: %v)", err, relErr)
		}
		s.publish(ctx, events.New(events.TypeStockReleased, res.ProductID, map[string]any{
			"product_id": res.ProductID,
			"quantity":   res.Quantity,
			"reason":     "order persist failed",
		}))
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	s.logger.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("product_id", o.ProductID),
		zap.Int("quantity", o.Quantity),
		zap.String("requester_id", o.Requester.ID))
	s.publish(ctx, events.New(events.TypeOrderPlaced, o.ID, map[string]any{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"product_id":   o.ProductID,
		"quantity":     o.Quantity,
		"selections":   o.Selections,
		"requester_id": o.Requester.ID,
	}))
	return o, nil
}

// reserve runs validate+commit, re-reading the product after every lost race
// until the reservation lands, fails for a non-conflict reason, or the
// attempts run out.
func (s *service) reserve(ctx context.Context, req PlaceOrderRequest) (*catalog.Product, *stock.Reservation, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxCommitAttempts; attempt++ {
		product, err := s.products.GetByID(ctx, req.ProductID)
		if err != nil {
			return nil, nil, err
		}
		res, err := s.ledger.ValidateReservation(product, req.Selections, req.Quantity)
		if err != nil {
			return nil, nil, err
		}
		updated, err := s.ledger.Commit(ctx, res)
		if err == nil {
			return updated, res, nil
		}
		if !errors.Is(err, stock.ErrConcurrencyConflict) {
			return nil, nil, err
		}
		lastErr = err
		s.logger.Debug("stock commit conflict, retrying",
			zap.String("product_id", req.ProductID),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return nil, nil, lastErr
}

func (s *service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.repo.GetOrderByID(ctx, id)
}

func (s *service) ListOrders(ctx context.Context, f Filter) ([]*Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Invalid("status", "unknown status %q", f.Status)
	}
	return s.repo.ListOrders(ctx, f)
}

func (s *service) Advance(ctx context.Context, id string, status Status) (*Order, error) {
	status = Status(strings.ToLower(strings.TrimSpace(string(status))))
	if !status.Valid() {
		return nil, apperr.Invalid("status", "unknown status %q", status)
	}
	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := o.Status
	o.Status = status
	o.UpdatedAt = s.now()
	if err := s.repo.UpdateOrder(ctx, o); err != nil {
		return nil, err
	}
	s.logger.Info("order status changed",
		zap.String("order_id", o.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(status)))
	s.publish(ctx, events.New(events.TypeOrderStatusChanged, o.ID, map[string]any{
		"order_id":     o.ID,
		"from":         previous,
		"to":           status,
		"requester_id": o.Requester.ID,
	}))
	return o, nil
}

func (s *service) DeleteOrder(ctx context.Context, id string) error {
	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteOrder(ctx, id); err != nil {
		return err
	}
	s.logger.Info("order deleted", zap.String("order_id", id), zap.String("status", string(o.Status)))
	s.publish(ctx, events.New(events.TypeOrderDeleted, id, map[string]any{
		"order_id":   id,
		"product_id": o.ProductID,
		"quantity":   o.Quantity,
		"status":     o.Status,
	}))
	return nil
}

func (s *service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("event publish failed", zap.String("type", e.Type), zap.String("key", e.Key), zap.Error(err))
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func validatePlaceOrder(req PlaceOrderRequest) error {
	if strings.TrimSpace(req.Requester.ID) == "" {
		return apperr.Invalid("requester.id", "is required")
	}
	if strings.TrimSpace(req.ProductID) == "" {
		return apperr.Invalid("product_id", "is required")
	}
	if req.Quantity <= 0 {
		return apperr.Invalid("quantity", "must be positive, got %d", req.Quantity)
	}
	if strings.TrimSpace(req.Recipient.Name) == "" {
		return apperr.Invalid("recipient.name", "is required")
	}
	if strings.TrimSpace(req.Recipient.Contact) == "" {
		return apperr.Invalid("recipient.contact", "is required")
	}
	if strings.TrimSpace(req.Recipient.Address) == "" {
		return apperr.Invalid("recipient.address", "is required")
	}
	return nil
}

func trimRecipient(r Recipient) Recipient {
	return Recipient{
		Name:    strings.TrimSpace(r.Name),
		Contact: strings.TrimSpace(r.Contact),
		Address: strings.TrimSpace(r.Address),
	}
}

func copySelections(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// generateOrderNumber creates an order number: SUP-YYYYMMDD- followed by the
// 16 random characters of a ULID. Order numbers are unique in the store.
func generateOrderNumber(now time.Time) string {
	id := ulid.Make().String()
	return fmt.Sprintf("SUP-%s-%s", now.Format("20060102"), id[10:])
}
