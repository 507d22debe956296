package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xenking/bookie/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

type storedOrder struct {
	order.Order
	seq uint64
}

// OrderRepository is an order.Repository held in memory.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*storedOrder
	seq    uint64
	now    func() time.Time
}

// NewOrderRepository returns an empty OrderRepository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*storedOrder),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create implements order.Repository.
func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o.ID = uuid.NewString()
	o.CreatedAt = r.now()
	o.UpdatedAt = o.CreatedAt

	r.seq++
	r.orders[o.ID] = &storedOrder{Order: clone(*o), seq: r.seq}
	return nil
}

// Get implements order.Repository.
func (r *OrderRepository) Get(_ context.Context, id string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o := clone(s.Order)
	return &o, nil
}

// UpdateStatus implements order.Repository.
func (r *OrderRepository) UpdateStatus(_ context.Context, id string, status order.Status) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	s.Status = status
	s.UpdatedAt = r.now()
	o := clone(s.Order)
	return &o, nil
}

// List implements order.Repository.
func (r *OrderRepository) List(_ context.Context, f order.Filter) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*storedOrder, 0, len(r.orders))
	for _, s := range r.orders {
		if f.Matches(&s.Order) {
			matched = append(matched, s)
		}
	}

	// Newest first; insertion order breaks timestamp ties.
	slices.SortFunc(matched, func(a, b *storedOrder) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}

	out := make([]order.Order, 0, len(matched))
	for _, s := range matched {
		out = append(out, clone(s.Order))
	}
	return out, nil
}

func clone(o order.Order) order.Order {
	o.Items = slices.Clone(o.Items)
	return o
}
