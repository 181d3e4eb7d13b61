package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/georgemunganga/supply-backend/internal/apperr"
)

type memoryRepo struct {
	mu       sync.RWMutex
	products map[string]*Product
}

// NewMemoryRepository returns a process-local Repository. Each call is atomic,
// so Update behaves as a compare-and-set exactly like the durable stores.
func NewMemoryRepository() Repository {
	return &memoryRepo{products: make(map[string]*Product)}
}

func (r *memoryRepo) Create(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; ok {
		return ErrAlreadyExists
	}
	p.Version = 1
	r.products[p.ID] = p.Clone()
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, apperr.NotFound("product", id)
	}
	return p.Clone(), nil
}

func (r *memoryRepo) List(_ context.Context, f Filter) ([]*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Product
	for _, p := range r.products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryRepo) Update(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.products[p.ID]
	if !ok {
		return apperr.NotFound("product", p.ID)
	}
	if stored.Version != p.Version {
		return ErrVersionConflict
	}
	p.Version++
	r.products[p.ID] = p.Clone()
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return apperr.NotFound("product", id)
	}
	delete(r.products, id)
	return nil
}
