package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/fjod/go_cart/luxecart/internal/kvstore"
	"go.uber.org/zap"
)

const MessageTypeCart = "cart"

var ErrInvalidMessage = errors.New("invalid cart sync message")

// SyncMessage is the cart's payload on the broadcast channel. Messages are
// ordered by (Clock, Origin); the greater pair wins.
type SyncMessage struct {
	Type    string                `json:"type"`
	Profile string                `json:"profile,omitempty"`
	Origin  string                `json:"origin"`
	Clock   uint64                `json:"clock"`
	Items   []domain.CartLineItem `json:"items"`
}

func (m SyncMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func DecodeSyncMessage(payload []byte) (SyncMessage, error) {
	var msg SyncMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return SyncMessage{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Type != MessageTypeCart || msg.Origin == "" {
		return SyncMessage{}, ErrInvalidMessage
	}
	return msg, nil
}

func (m SyncMessage) newerThan(clock uint64, origin string) bool {
	if m.Clock != clock {
		return m.Clock > clock
	}
	return m.Origin > origin
}

// Apply merges a change made by another context using last-write-wins on the
// logical clock. It reports whether the local cart was replaced.
func (m *Manager) Apply(ctx context.Context, msg SyncMessage) bool {
	if msg.Origin == m.origin {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !msg.newerThan(m.clock, m.origin) {
		return false
	}
	incoming := sanitize(msg.Items)
	if msg.Clock == m.clock && sameItems(incoming, m.items) {
		return false
	}
	m.items = incoming
	m.clock = msg.Clock
	m.persist(ctx)
	m.log.Debug("applied remote cart change", zap.String("from", msg.Origin), zap.Uint64("clock", msg.Clock))
	return true
}

// ApplyRemote adopts a remote document snapshot as long as this manager has not
// been mutated since it was loaded. A nil snapshot (missing document) is ignored.
func (m *Manager) ApplyRemote(ctx context.Context, items []domain.CartLineItem) bool {
	if items == nil {
		return false
	}
	incoming := sanitize(items)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dirty || sameItems(incoming, m.items) {
		return false
	}
	m.items = incoming
	m.persist(ctx)
	return true
}

// Listener delivers payloads posted by other contexts.
type Listener interface {
	Listen(onMessage func(payload []byte)) (unsubscribe func())
}

// RemoteSubscriber pushes remote cart document snapshots.
type RemoteSubscriber interface {
	SubscribeRemoteCart(ctx context.Context, userID domain.ID, onChange func(items []domain.CartLineItem)) (unsubscribe func())
}

// Follow applies cart messages from other contexts of the same profile until the
// returned function is called.
func (m *Manager) Follow(ctx context.Context, l Listener) (stop func()) {
	return l.Listen(func(payload []byte) {
		msg, err := DecodeSyncMessage(payload)
		if err != nil {
			return
		}
		if msg.Profile != m.profile {
			return
		}
		m.Apply(ctx, msg)
	})
}

// FollowRemote applies remote document snapshots of userID until the returned function is called.
func (m *Manager) FollowRemote(ctx context.Context, r RemoteSubscriber, userID domain.ID) (stop func()) {
	return r.SubscribeRemoteCart(ctx, userID, func(items []domain.CartLineItem) {
		m.ApplyRemote(ctx, items)
	})
}

// StoreFactory returns the storage of a profile.
type StoreFactory func(profileID string) *kvstore.Store

// Guard runs apply for a profile only while no live manager owns that
// profile's storage, and keeps one from being created until apply returns.
// It reports false when apply was skipped.
type Guard func(profileID string, apply func() bool) bool

func unguarded(_ string, apply func() bool) bool {
	return apply()
}

// Replicator applies cart messages posted by other processes to the local
// storage of the profile they belong to.
type Replicator struct {
	listener Listener
	stores   StoreFactory
	guard    Guard
	log      *zap.Logger
}

type ReplicatorOption func(*Replicator)

// WithGuard leaves profiles with a live manager to that manager, which follows
// the same channel.
func WithGuard(g Guard) ReplicatorOption {
	return func(r *Replicator) {
		if g != nil {
			r.guard = g
		}
	}
}

func NewReplicator(l Listener, stores StoreFactory, log *zap.Logger, opts ...ReplicatorOption) *Replicator {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Replicator{listener: l, stores: stores, guard: unguarded, log: log.Named("replicator")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run subscribes to the channel and returns the unsubscribe function.
func (r *Replicator) Run(ctx context.Context) (stop func()) {
	return r.listener.Listen(func(payload []byte) {
		r.handle(ctx, payload)
	})
}

func (r *Replicator) handle(ctx context.Context, payload []byte) bool {
	msg, err := DecodeSyncMessage(payload)
	if err != nil {
		r.log.Debug("skipping foreign broadcast payload", zap.Error(err))
		return false
	}
	if msg.Profile == "" {
		return false
	}
	applied := r.guard(msg.Profile, func() bool {
		m := NewManager(ctx, r.stores(msg.Profile), WithProfile(msg.Profile), WithLogger(r.log))
		return m.Apply(ctx, msg)
	})
	if applied {
		r.log.Info("replicated cart change",
			zap.String("profile", msg.Profile),
			zap.String("origin", msg.Origin),
			zap.Uint64("clock", msg.Clock))
	}
	return applied
}

func sameItems(a, b []domain.CartLineItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Quantity != b[i].Quantity ||
			a[i].Title != b[i].Title || a[i].Image != b[i].Image ||
			!a[i].Price.Equal(b[i].Price) {
			return false
		}
	}
	return true
}
