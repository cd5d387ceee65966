package cart

import (
	"context"
	"strconv"
	"sync"

	"github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/fjod/go_cart/luxecart/internal/kvstore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// keyClock holds the logical clock used to order cart writes across contexts.
const keyClock = "luxe-cart-clock"

// Publisher posts a payload to the other contexts sharing the profile.
type Publisher interface {
	Post(ctx context.Context, payload []byte)
}

// RemoteWriter mirrors the cart to the optional remote document store.
type RemoteWriter interface {
	SetRemoteCart(ctx context.Context, userID domain.ID, items []domain.CartLineItem) bool
}

// Snapshot is a consistent read of the cart with derived totals.
type Snapshot struct {
	Items      []domain.CartLineItem `json:"items"`
	TotalItems int                   `json:"totalItems"`
	TotalPrice decimal.Decimal       `json:"totalPrice"`
	IsOpen     bool                  `json:"isOpen"`
	Clock      uint64                `json:"clock"`
}

// Manager holds the authoritative cart of one profile and persists it on every mutation.
type Manager struct {
	mu      sync.Mutex
	store   *kvstore.Store
	items   []domain.CartLineItem
	open    bool
	clock   uint64
	dirty   bool
	origin  string
	profile string

	notifier   Notifier
	publisher  Publisher
	remote     RemoteWriter
	remoteUser func(context.Context) domain.ID
	log        *zap.Logger
}

type Option func(*Manager)

func WithNotifier(n Notifier) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(m *Manager) {
		m.publisher = p
	}
}

// WithRemote mirrors every mutation to the remote cart document of userID.
func WithRemote(r RemoteWriter, userID domain.ID) Option {
	return WithRemoteUser(r, func(context.Context) domain.ID { return userID })
}

// WithRemoteUser is WithRemote for a user that may change over the manager's life.
func WithRemoteUser(r RemoteWriter, resolve func(context.Context) domain.ID) Option {
	return func(m *Manager) {
		if r == nil || resolve == nil {
			return
		}
		m.remote = r
		m.remoteUser = resolve
	}
}

// WithOrigin sets the id this manager stamps on its broadcast messages.
func WithOrigin(origin string) Option {
	return func(m *Manager) {
		if origin != "" {
			m.origin = origin
		}
	}
}

// WithProfile stamps the profile id on broadcast messages so listeners can route them.
func WithProfile(profileID string) Option {
	return func(m *Manager) {
		m.profile = profileID
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewManager creates a manager and loads the persisted cart. Unreadable or
// malformed state yields an empty cart.
func NewManager(ctx context.Context, store *kvstore.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		origin:   uuid.NewString(),
		notifier: nopNotifier{},
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.Named("cart").With(zap.String("origin", m.origin))
	m.load(ctx)
	return m
}

func (m *Manager) load(ctx context.Context) {
	stored := kvstore.ReadOr(ctx, m.store, kvstore.KeyCart, []domain.CartLineItem{})
	m.items = sanitize(stored)

	if raw, ok := m.store.ReadString(ctx, keyClock); ok {
		if c, err := strconv.ParseUint(raw, 10, 64); err == nil {
			m.clock = c
		}
	}
}

// sanitize drops entries that violate the line item invariants and merges duplicates.
func sanitize(items []domain.CartLineItem) []domain.CartLineItem {
	out := make([]domain.CartLineItem, 0, len(items))
	index := make(map[domain.ID]int, len(items))
	for _, it := range items {
		if !it.ID.Valid() || it.Quantity < 1 {
			continue
		}
		if i, ok := index[it.ID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.ID] = len(out)
		out = append(out, it)
	}
	return out
}

func (m *Manager) Origin() string {
	return m.origin
}

// AddToCart increments the quantity of an existing line or appends a new one.
// Quantities below 1 count as 1.
func (m *Manager) AddToCart(ctx context.Context, product domain.Product, quantity int) {
	if !product.ID.Valid() {
		m.log.Warn("ignoring product without id", zap.String("title", product.Title))
		return
	}
	if quantity < 1 {
		quantity = 1
	}

	m.mu.Lock()
	item := domain.NewLineItem(product, quantity)
	if i := m.indexOf(product.ID); i >= 0 {
		m.items[i].Quantity += quantity
		item = m.items[i]
	} else {
		m.items = append(m.items, item)
	}
	msg := m.commit(ctx)
	m.mu.Unlock()

	m.announce(ctx, msg)
	m.notify(ctx, addedEvent(item, quantity))
}

// RemoveFromCart deletes a line item. Removing an absent id changes nothing.
func (m *Manager) RemoveFromCart(ctx context.Context, id domain.ID) {
	m.mu.Lock()
	if !m.remove(id) {
		m.mu.Unlock()
		return
	}
	msg := m.commit(ctx)
	m.mu.Unlock()

	m.announce(ctx, msg)
	m.notify(ctx, removedEvent(id))
}

// UpdateQuantity replaces a line's quantity; quantities below 1 remove the line.
func (m *Manager) UpdateQuantity(ctx context.Context, id domain.ID, quantity int) {
	if quantity < 1 {
		m.RemoveFromCart(ctx, id)
		return
	}

	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 || m.items[i].Quantity == quantity {
		m.mu.Unlock()
		return
	}
	m.items[i].Quantity = quantity
	msg := m.commit(ctx)
	m.mu.Unlock()

	m.announce(ctx, msg)
}

func (m *Manager) ClearCart(ctx context.Context) {
	m.mu.Lock()
	m.items = []domain.CartLineItem{}
	msg := m.commit(ctx)
	m.mu.Unlock()

	m.announce(ctx, msg)
	m.notify(ctx, clearedEvent())
}

// TakeItems empties the cart and returns what it held. An empty cart is left
// untouched and yields nil.
func (m *Manager) TakeItems(ctx context.Context) []domain.CartLineItem {
	m.mu.Lock()
	if len(m.items) == 0 {
		m.mu.Unlock()
		return nil
	}
	taken := m.items
	m.items = []domain.CartLineItem{}
	msg := m.commit(ctx)
	m.mu.Unlock()

	m.announce(ctx, msg)
	m.notify(ctx, clearedEvent())
	return taken
}

// ToggleVisibility flips the cart drawer flag. It is never persisted.
func (m *Manager) ToggleVisibility() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = !m.open
	return m.open
}

func (m *Manager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *Manager) Items() []domain.CartLineItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.CloneItems(m.items)
}

func (m *Manager) TotalItems() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.ComputeTotals(m.items).Items
}

func (m *Manager) TotalPrice() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.ComputeTotals(m.items).Price
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	totals := domain.ComputeTotals(m.items)
	return Snapshot{
		Items:      domain.CloneItems(m.items),
		TotalItems: totals.Items,
		TotalPrice: totals.Price,
		IsOpen:     m.open,
		Clock:      m.clock,
	}
}

func (m *Manager) indexOf(id domain.ID) int {
	for i := range m.items {
		if m.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) remove(id domain.ID) bool {
	i := m.indexOf(id)
	if i < 0 {
		return false
	}
	m.items = append(m.items[:i:i], m.items[i+1:]...)
	return true
}

// commit advances the clock and persists the cart. Callers hold m.mu.
func (m *Manager) commit(ctx context.Context) SyncMessage {
	m.clock++
	m.dirty = true
	m.persist(ctx)
	return SyncMessage{
		Type:    MessageTypeCart,
		Profile: m.profile,
		Origin:  m.origin,
		Clock:   m.clock,
		Items:   domain.CloneItems(m.items),
	}
}

// announce broadcasts a committed change and mirrors it remotely. Callers do not hold m.mu.
func (m *Manager) announce(ctx context.Context, msg SyncMessage) {
	if m.publisher != nil {
		if payload, err := msg.Encode(); err == nil {
			m.publisher.Post(ctx, payload)
		} else {
			m.log.Warn("failed to encode sync message", zap.Error(err))
		}
	}
	if m.remote != nil {
		if userID := m.remoteUser(ctx); userID.Valid() {
			m.remote.SetRemoteCart(ctx, userID, msg.Items)
		}
	}
}

func (m *Manager) notify(ctx context.Context, e Event) {
	m.notifier.Notify(e)
	if n := notifierFrom(ctx); n != nil {
		n.Notify(e)
	}
}

func (m *Manager) persist(ctx context.Context) {
	m.store.Write(ctx, kvstore.KeyCart, m.items)
	m.store.WriteString(ctx, keyClock, strconv.FormatUint(m.clock, 10))
}
