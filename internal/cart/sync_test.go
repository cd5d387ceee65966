package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/fjod/go_cart/luxecart/internal/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopback delivers every posted payload to all listeners synchronously.
type loopback struct {
	m        sync.Mutex
	handlers map[int]func([]byte)
	next     int
}

func (l *loopback) Post(_ context.Context, payload []byte) {
	l.m.Lock()
	hs := make([]func([]byte), 0, len(l.handlers))
	for _, h := range l.handlers {
		hs = append(hs, h)
	}
	l.m.Unlock()
	for _, h := range hs {
		h(payload)
	}
}

func (l *loopback) Listen(onMessage func([]byte)) func() {
	l.m.Lock()
	defer l.m.Unlock()
	if l.handlers == nil {
		l.handlers = make(map[int]func([]byte))
	}
	id := l.next
	l.next++
	l.handlers[id] = onMessage
	return func() {
		l.m.Lock()
		defer l.m.Unlock()
		delete(l.handlers, id)
	}
}

type mockRemoteSubscriber struct {
	onChange func([]domain.CartLineItem)
	stopped  bool
}

func (r *mockRemoteSubscriber) SubscribeRemoteCart(_ context.Context, _ domain.ID, onChange func([]domain.CartLineItem)) func() {
	r.onChange = onChange
	return func() { r.stopped = true }
}

func TestDecodeSyncMessage_Rejects(t *testing.T) {
	_, err := DecodeSyncMessage([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = DecodeSyncMessage([]byte(`{"type":"wishlist","origin":"a"}`))
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = DecodeSyncMessage([]byte(`{"type":"cart"}`))
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestApply_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, WithOrigin("b"))
	m.AddToCart(ctx, product("1", "1", "A"), 1) // clock 1

	stale := SyncMessage{Type: MessageTypeCart, Origin: "a", Clock: 1, Items: []domain.CartLineItem{{ID: "9", Quantity: 9}}}
	assert.False(t, m.Apply(ctx, stale), "equal clock, smaller origin loses")

	newer := SyncMessage{Type: MessageTypeCart, Origin: "a", Clock: 3, Items: []domain.CartLineItem{{ID: "2", Quantity: 4}}}
	assert.True(t, m.Apply(ctx, newer))
	require.Len(t, m.Items(), 1)
	assert.Equal(t, domain.ID("2"), m.Items()[0].ID)
	assert.Equal(t, uint64(3), m.Snapshot().Clock)

	tie := SyncMessage{Type: MessageTypeCart, Origin: "c", Clock: 3, Items: []domain.CartLineItem{}}
	assert.True(t, m.Apply(ctx, tie), "equal clock, greater origin wins")
	assert.Empty(t, m.Items())
}

func TestApply_IgnoresOwnOrigin(t *testing.T) {
	m, _ := newTestManager(t, WithOrigin("self"))
	msg := SyncMessage{Type: MessageTypeCart, Origin: "self", Clock: 10, Items: []domain.CartLineItem{{ID: "1", Quantity: 1}}}
	assert.False(t, m.Apply(context.Background(), msg))
	assert.Empty(t, m.Items())
}

func TestApply_PersistsWinner(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)

	msg := SyncMessage{Type: MessageTypeCart, Origin: "other", Clock: 5, Items: []domain.CartLineItem{{ID: "1", Quantity: 2}}}
	require.True(t, m.Apply(ctx, msg))

	reloaded := NewManager(ctx, store)
	assert.Equal(t, uint64(5), reloaded.Snapshot().Clock)
	assert.Equal(t, 2, reloaded.TotalItems())
}

func TestFollow_TwoContextsConverge(t *testing.T) {
	ctx := context.Background()
	bus := &loopback{}

	a := NewManager(ctx, kvstore.New(kvstore.NewMemory(), nil), WithOrigin("a"), WithProfile("p"), WithPublisher(bus))
	b := NewManager(ctx, kvstore.New(kvstore.NewMemory(), nil), WithOrigin("b"), WithProfile("p"), WithPublisher(bus))
	stopA := a.Follow(ctx, bus)
	stopB := b.Follow(ctx, bus)
	defer stopA()
	defer stopB()

	a.AddToCart(ctx, product("1", "10", "A"), 2)
	assert.Equal(t, a.Items(), b.Items())

	b.UpdateQuantity(ctx, "1", 5)
	assert.Equal(t, 5, a.TotalItems())

	b.ClearCart(ctx)
	assert.Empty(t, a.Items())
	assert.Equal(t, a.Snapshot().Clock, b.Snapshot().Clock)
}

func TestFollow_IgnoresOtherProfilesAndGarbage(t *testing.T) {
	ctx := context.Background()
	bus := &loopback{}
	m, _ := newTestManager(t, WithProfile("mine"))
	stop := m.Follow(ctx, bus)

	other := SyncMessage{Type: MessageTypeCart, Profile: "theirs", Origin: "x", Clock: 9, Items: []domain.CartLineItem{{ID: "1", Quantity: 1}}}
	payload, err := other.Encode()
	require.NoError(t, err)
	bus.Post(ctx, payload)
	bus.Post(ctx, []byte(`{"hello":"world"}`))
	assert.Empty(t, m.Items())

	stop()
	mine := other
	mine.Profile = "mine"
	payload, err = mine.Encode()
	require.NoError(t, err)
	bus.Post(ctx, payload)
	assert.Empty(t, m.Items(), "unsubscribed")
}

func TestApplyRemote(t *testing.T) {
	ctx := context.Background()
	sub := &mockRemoteSubscriber{}
	m, _ := newTestManager(t)
	stop := m.FollowRemote(ctx, sub, "1")

	sub.onChange(nil)
	assert.Empty(t, m.Items())

	sub.onChange([]domain.CartLineItem{{ID: "3", Title: "Remote", Quantity: 2}})
	require.Len(t, m.Items(), 1)
	assert.Equal(t, domain.ID("3"), m.Items()[0].ID)

	m.AddToCart(ctx, product("4", "1", "Local"), 1)
	sub.onChange([]domain.CartLineItem{{ID: "5", Quantity: 1}})
	assert.Len(t, m.Items(), 2, "local edits win over remote snapshots")

	stop()
	assert.True(t, sub.stopped)
}

func TestReplicator_AppliesToProfileStore(t *testing.T) {
	ctx := context.Background()
	bus := &loopback{}
	mem := kvstore.NewMemory()
	stores := func(profile string) *kvstore.Store {
		return kvstore.New(kvstore.Namespace(mem, kvstore.ProfilePrefix(profile)), nil)
	}

	r := NewReplicator(bus, stores, nil)
	stop := r.Run(ctx)
	defer stop()

	remote := NewManager(ctx, kvstore.New(kvstore.NewMemory(), nil), WithProfile("p7"), WithPublisher(bus))
	remote.AddToCart(ctx, product("1", "4", "A"), 3)

	local := NewManager(ctx, stores("p7"), WithProfile("p7"))
	assert.Equal(t, 3, local.TotalItems())
	assert.Empty(t, NewManager(ctx, stores("p8")).Items())

	// replaying the same message changes nothing
	payload, err := SyncMessage{Type: MessageTypeCart, Profile: "p7", Origin: remote.Origin(), Clock: 1, Items: remote.Items()}.Encode()
	require.NoError(t, err)
	assert.False(t, r.handle(ctx, payload))
	assert.False(t, r.handle(ctx, []byte(`{"type":"cart","origin":"x"}`)), "messages without profile are skipped")
}

func TestReplicator_GuardSkipsLiveProfiles(t *testing.T) {
	ctx := context.Background()
	mem := kvstore.NewMemory()
	stores := func(profile string) *kvstore.Store {
		return kvstore.New(kvstore.Namespace(mem, kvstore.ProfilePrefix(profile)), nil)
	}
	live := map[string]bool{"busy": true}
	r := NewReplicator(&loopback{}, stores, nil, WithGuard(func(profile string, apply func() bool) bool {
		if live[profile] {
			return false
		}
		return apply()
	}))

	encode := func(profile string) []byte {
		payload, err := SyncMessage{
			Type: MessageTypeCart, Profile: profile, Origin: "elsewhere", Clock: 5,
			Items: []domain.CartLineItem{{ID: "1", Title: "A", Quantity: 1}},
		}.Encode()
		require.NoError(t, err)
		return payload
	}

	assert.False(t, r.handle(ctx, encode("busy")))
	assert.Empty(t, NewManager(ctx, stores("busy")).Items(), "a live manager owns the stored cart")

	assert.True(t, r.handle(ctx, encode("idle")))
	assert.Equal(t, uint64(5), NewManager(ctx, stores("idle")).Snapshot().Clock)
}
