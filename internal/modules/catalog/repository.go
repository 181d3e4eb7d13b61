package catalog

import "context"

// Repository is the catalog store. Update is a conditional write: it succeeds
// only while the stored version still equals p.Version, which is what the
// stock ledger relies on instead of process-local locks.
type Repository interface {
	// Create stores a new product with version 1. It fails with ErrAlreadyExists
	// when the id is taken.
	Create(ctx context.Context, p *Product) error

	// GetByID returns a copy of the stored product or an apperr.NotFoundError.
	GetByID(ctx context.Context, id string) (*Product, error)

	// List returns the products matching f, oldest first.
	List(ctx context.Context, f Filter) ([]*Product, error)

	// Update replaces the stored product when its version equals p.Version and
	// advances p.Version on success. A moved version yields ErrVersionConflict.
	Update(ctx context.Context, p *Product) error

	// Delete removes the product or returns an apperr.NotFoundError.
	Delete(ctx context.Context, id string) error
}
