package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/supply-backend/internal/apperr"
)

// Service defines catalog administration.
type Service interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, f Filter) ([]*Product, error)
	UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// CreateProductRequest holds the data entered on the product creation form.
// BaseStock is the authority only when OptionGroups is empty.
type CreateProductRequest struct {
	Category     string        `json:"category"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	ImageRef     string        `json:"image_ref"`
	BaseStock    int           `json:"base_stock"`
	OptionGroups []OptionGroup `json:"option_groups"`
}

// UpdateProductRequest is an admin edit. Version is required and must be the
// version the admin read, so stock taken by orders since then is never
// overwritten by the form.
type UpdateProductRequest struct {
	CreateProductRequest
	Version int64 `json:"version"`
}

// ServiceConfig tunes catalog validation.
type ServiceConfig struct {
	Categories Categories
	// EnforceOptionStockCap turns on the creation-time check that summed option
	// stock does not exceed the entered base stock.
	EnforceOptionStockCap bool
}

type service struct {
	repo   Repository
	cfg    ServiceConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, cfg ServiceConfig, logger *zap.Logger) Service {
	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultCategories
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	now := s.now()
	p := &Product{
		ID:          uuid.New().String(),
		Category:    strings.TrimSpace(req.Category),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		ImageRef:    req.ImageRef,
		Stock:       ModeFor(req.BaseStock, req.OptionGroups),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := ValidateProduct(p, s.cfg.Categories); err != nil {
		return nil, err
	}
	if s.cfg.EnforceOptionStockCap && len(req.OptionGroups) > 0 {
		if err := CheckOptionStockCap(req.BaseStock, req.OptionGroups); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("catalog product created",
		zap.String("product_id", p.ID),
		zap.String("category", p.Category),
		zap.Bool("variant", p.HasOptions()))
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListProducts(ctx context.Context, f Filter) ([]*Product, error) {
	if f.Category != "" && !s.cfg.Categories.Contains(f.Category) {
		return nil, apperr.Invalid("category", "%q is not a known category", f.Category)
	}
	return s.repo.List(ctx, f)
}

func (s *service) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*Product, error) {
	if req.Version <= 0 {
		return nil, apperr.Invalid("version", "is required")
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Version != p.Version {
		return nil, ErrVersionConflict
	}
	p.Category = strings.TrimSpace(req.Category)
	p.Name = strings.TrimSpace(req.Name)
	p.Description = req.Description
	p.ImageRef = req.ImageRef
	p.Stock = ModeFor(req.BaseStock, req.OptionGroups)
	p.UpdatedAt = s.now()
	if err := ValidateProduct(p, s.cfg.Categories); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("catalog product updated", zap.String("product_id", p.ID), zap.Int64("version", p.Version))
	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("catalog product deleted", zap.String("product_id", id))
	return nil
}
