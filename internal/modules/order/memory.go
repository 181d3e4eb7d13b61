package order

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/georgemunganga/supply-backend/internal/apperr"
)

type memoryRepo struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

// NewMemoryRepository returns a process-local Repository.
func NewMemoryRepository() Repository {
	return &memoryRepo{orders: make(map[string]*Order)}
}

func (r *memoryRepo) CreateOrder(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; ok {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	r.orders[o.ID] = o.Clone()
	return nil
}

func (r *memoryRepo) GetOrderByID(_ context.Context, id string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, apperr.NotFound("order", id)
	}
	return o.Clone(), nil
}

func (r *memoryRepo) ListOrders(_ context.Context, f Filter) ([]*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Order
	for _, o := range r.orders {
		if f.Matches(o) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryRepo) UpdateOrder(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; !ok {
		return apperr.NotFound("order", o.ID)
	}
	r.orders[o.ID] = o.Clone()
	return nil
}

func (r *memoryRepo) DeleteOrder(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return apperr.NotFound("order", id)
	}
	delete(r.orders, id)
	return nil
}
