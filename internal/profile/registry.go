package profile

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/luxecart/internal/cart"
	d "github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/fjod/go_cart/luxecart/internal/kvstore"
	"github.com/fjod/go_cart/luxecart/internal/orders"
	"github.com/fjod/go_cart/luxecart/internal/realtime"
	"github.com/fjod/go_cart/luxecart/internal/session"
	"github.com/fjod/go_cart/luxecart/internal/wishlist"
	"go.uber.org/zap"
)

const DefaultMaxCarts = 1024

// Profile groups the stores of one browsing profile. Everything except the cart
// is rebuilt per request over the shared backend.
type Profile struct {
	ID       string
	Store    *kvstore.Store
	Session  *session.Service
	Orders   *orders.Store
	Wishlist *wishlist.Store
	Cart     *cart.Manager
}

// Channel is the broadcast a registry publishes cart changes on and follows.
type Channel interface {
	cart.Publisher
	cart.Listener
}

// Registry hands out profiles. It keeps one cart manager per profile in memory,
// following the broadcast channel so changes made by other processes show up,
// and drops the oldest one once more than the configured number are live.
type Registry struct {
	backend     kvstore.Backend
	channel     Channel
	remote      *realtime.Remote
	orderOpts   []orders.Option
	sessionOpts []session.Option
	maxCarts    int
	log         *zap.Logger

	mu    sync.Mutex
	carts map[string]*cartEntry
	order []string
}

type cartEntry struct {
	m    *cart.Manager
	stop func()
}

type Option func(*Registry)

func WithChannel(c Channel) Option {
	return func(r *Registry) { r.channel = c }
}

func WithRemote(remote *realtime.Remote) Option {
	return func(r *Registry) { r.remote = remote }
}

func WithOrderOptions(opts ...orders.Option) Option {
	return func(r *Registry) { r.orderOpts = append(r.orderOpts, opts...) }
}

func WithSessionOptions(opts ...session.Option) Option {
	return func(r *Registry) { r.sessionOpts = append(r.sessionOpts, opts...) }
}

func WithMaxCarts(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxCarts = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

func NewRegistry(backend kvstore.Backend, opts ...Option) *Registry {
	r := &Registry{
		backend:  backend,
		maxCarts: DefaultMaxCarts,
		log:      zap.NewNop(),
		carts:    make(map[string]*cartEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.Named("profile")
	return r
}

// Store returns the namespaced storage of a profile. It matches cart.StoreFactory.
func (r *Registry) Store(id string) *kvstore.Store {
	return kvstore.New(kvstore.Namespace(r.backend, kvstore.ProfilePrefix(id)), r.log)
}

func (r *Registry) Open(ctx context.Context, id string) *Profile {
	store := r.Store(id)
	sessionOpts := append([]session.Option{session.WithLogger(r.log)}, r.sessionOpts...)
	orderOpts := append([]orders.Option{orders.WithLogger(r.log)}, r.orderOpts...)
	sess := session.New(store, sessionOpts...)
	return &Profile{
		ID:       id,
		Store:    store,
		Session:  sess,
		Orders:   orders.NewStore(store, orderOpts...),
		Wishlist: wishlist.NewStore(store, r.log),
		Cart:     r.cart(ctx, id, store, sess),
	}
}

func (r *Registry) cart(ctx context.Context, id string, store *kvstore.Store, sess *session.Service) *cart.Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.carts[id]; ok {
		return e.m
	}

	opts := []cart.Option{
		cart.WithProfile(id),
		cart.WithNotifier(cart.LogNotifier{Log: r.log.With(zap.String("profile", id))}),
		cart.WithLogger(r.log),
	}
	if r.channel != nil {
		opts = append(opts, cart.WithPublisher(r.channel))
	}
	remoteOn := r.remote != nil && r.remote.Enabled()
	if remoteOn {
		opts = append(opts, cart.WithRemoteUser(r.remote, sess.UserID))
	}

	// the manager outlives the request that created it
	bg := context.WithoutCancel(ctx)
	m := cart.NewManager(bg, store, opts...)

	var stops []func()
	if r.channel != nil {
		stops = append(stops, m.Follow(bg, r.channel))
	}
	if remoteOn {
		if userID := sess.UserID(bg); userID != d.GuestUserID {
			stops = append(stops, m.FollowRemote(bg, r.remote, userID))
		}
	}

	r.carts[id] = &cartEntry{m: m, stop: func() {
		for _, stop := range stops {
			stop()
		}
	}}
	r.order = append(r.order, id)
	r.evict()
	return m
}

// evict drops the oldest carts above the limit. Callers hold r.mu.
func (r *Registry) evict() {
	for len(r.order) > r.maxCarts {
		oldest := r.order[0]
		r.order = r.order[1:]
		if e, ok := r.carts[oldest]; ok {
			e.stop()
			delete(r.carts, oldest)
		}
	}
}

// UnlessLive runs apply when no cart manager of id is held in memory. The
// registry lock is held meanwhile, so none is created until apply returns. It
// matches cart.Guard.
func (r *Registry) UnlessLive(id string, apply func() bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.carts[id]; ok {
		return false
	}
	return apply()
}

// Carts returns the number of cart managers held in memory.
func (r *Registry) Carts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}

// Close stops following the channel for every cached cart.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.carts {
		e.stop()
		delete(r.carts, id)
	}
	r.order = nil
}
