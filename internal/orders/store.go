package orders

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	d "github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/fjod/go_cart/luxecart/internal/kvstore"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultCancelReason is attached to cancelled demo orders without an explicit reason.
const DefaultCancelReason = "Customer requested cancellation"

// Store is an append-only log of orders for all users of a profile, newest first.
type Store struct {
	mu     sync.Mutex
	store  *kvstore.Store
	now    func() time.Time
	picker StatusPicker
	log    *zap.Logger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithStatusPicker(p StatusPicker) Option {
	return func(s *Store) {
		if p != nil {
			s.picker = p
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func NewStore(store *kvstore.Store, opts ...Option) *Store {
	s := &Store{
		store:  store,
		now:    time.Now,
		picker: RandomStatus{},
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("orders")
	return s
}

func (s *Store) read(ctx context.Context) []d.Order {
	return kvstore.ReadOr(ctx, s.store, kvstore.KeyOrders, []d.Order{})
}

func (s *Store) write(ctx context.Context, all []d.Order) {
	s.store.Write(ctx, kvstore.KeyOrders, all)
}

// AddOrder stores draft for userID, assigning an id and date when they are missing,
// and returns the stored record.
func (s *Store) AddOrder(ctx context.Context, userID d.ID, draft d.Order) d.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.read(ctx)
	order := draft
	order.UserID = userID
	if !order.ID.Valid() {
		order.ID = s.nextID(all)
	}
	if order.Date.IsZero() {
		order.Date = s.now().UTC()
	}
	if order.Status == "" {
		order.Status = d.OrderStatusPending
	}
	if order.Status != d.OrderStatusCancelled {
		order.Reason = ""
	}
	order.Items = d.CloneItems(order.Items)

	s.write(ctx, prepend(all, order))
	s.log.Debug("order added", zap.String("order_id", order.ID.String()), zap.String("user_id", userID.String()))
	return order
}

// GetOrders returns the orders of userID, most recently added first.
// An empty userID returns the whole log.
func (s *Store) GetOrders(ctx context.Context, userID d.ID) []d.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.read(ctx)
	if !userID.Valid() {
		return all
	}
	out := make([]d.Order, 0, len(all))
	for _, o := range all {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out
}

func (s *Store) GetOrderByID(ctx context.Context, id d.ID) (d.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.read(ctx) {
		if o.ID == id {
			return o, true
		}
	}
	return d.Order{}, false
}

type MockOptions struct {
	Status d.OrderStatus
	Reason string
}

// CreateMockOrder synthesizes a demo order. It is not a real placement path.
func (s *Store) CreateMockOrder(ctx context.Context, userID d.ID, items []d.CartLineItem, opts MockOptions) d.Order {
	total := decimal.Zero
	for _, it := range items {
		qty := it.Quantity
		if qty == 0 {
			qty = 1
		}
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(qty))))
	}

	status := opts.Status
	if status == "" {
		status = s.picker.Pick(MockStatuses)
	}
	reason := ""
	if status == d.OrderStatusCancelled {
		reason = opts.Reason
		if reason == "" {
			reason = DefaultCancelReason
		}
	}

	return s.AddOrder(ctx, userID, d.Order{
		Items:  items,
		Total:  total,
		Status: status,
		Reason: reason,
	})
}

// ClearOrders wipes the log of every user of the profile, not only the caller's.
func (s *Store) ClearOrders(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Warn("clearing the order log of all users")
	s.write(ctx, []d.Order{})
}

// UpdateStatus moves an order along its lifecycle. A reason is kept only for cancellations.
func (s *Store) UpdateStatus(ctx context.Context, id d.ID, to d.OrderStatus, reason string) (d.Order, error) {
	if !to.Valid() {
		return d.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.read(ctx)
	for i := range all {
		if all[i].ID != id {
			continue
		}
		if !CanTransitionTo(all[i].Status, to) {
			return d.Order{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, all[i].Status, to)
		}
		all[i].Status = to
		all[i].Reason = ""
		if to == d.OrderStatusCancelled {
			all[i].Reason = reason
			if all[i].Reason == "" {
				all[i].Reason = DefaultCancelReason
			}
		}
		s.write(ctx, all)
		return all[i], nil
	}
	return d.Order{}, ErrOrderNotFound
}

// nextID derives an id from the current time, kept above every numeric id in the log.
func (s *Store) nextID(all []d.Order) d.ID {
	next := s.now().UnixMilli()
	for _, o := range all {
		if n, err := strconv.ParseInt(o.ID.String(), 10, 64); err == nil && n >= next {
			next = n + 1
		}
	}
	return d.IDFromInt(next)
}

func prepend(all []d.Order, o d.Order) []d.Order {
	out := make([]d.Order, 0, len(all)+1)
	out = append(out, o)
	return append(out, all...)
}
