package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/fjod/go_cart/luxecart/internal/kvstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	m        sync.Mutex
	payloads [][]byte
}

func (p *mockPublisher) Post(_ context.Context, payload []byte) {
	p.m.Lock()
	defer p.m.Unlock()
	p.payloads = append(p.payloads, payload)
}

func (p *mockPublisher) messages(t *testing.T) []SyncMessage {
	p.m.Lock()
	defer p.m.Unlock()
	out := make([]SyncMessage, 0, len(p.payloads))
	for _, raw := range p.payloads {
		msg, err := DecodeSyncMessage(raw)
		require.NoError(t, err)
		out = append(out, msg)
	}
	return out
}

type mockRemote struct {
	m     sync.Mutex
	calls map[domain.ID][]domain.CartLineItem
}

func (r *mockRemote) SetRemoteCart(_ context.Context, userID domain.ID, items []domain.CartLineItem) bool {
	r.m.Lock()
	defer r.m.Unlock()
	if r.calls == nil {
		r.calls = make(map[domain.ID][]domain.CartLineItem)
	}
	r.calls[userID] = items
	return true
}

func product(id string, price string, title string) domain.Product {
	return domain.Product{ID: domain.ID(id), Title: title, Price: decimal.RequireFromString(price)}
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *kvstore.Store) {
	t.Helper()
	store := kvstore.New(kvstore.NewMemory(), nil)
	return NewManager(context.Background(), store, opts...), store
}

func TestManager_EndToEndScenario(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	m.AddToCart(ctx, product("1", "10", "A"), 2)
	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, m.TotalPrice().Equal(decimal.NewFromInt(20)))

	m.UpdateQuantity(ctx, "1", 1)
	assert.True(t, m.TotalPrice().Equal(decimal.NewFromInt(10)))

	m.RemoveFromCart(ctx, "1")
	assert.Empty(t, m.Items())
	assert.True(t, m.TotalPrice().IsZero())
	assert.Equal(t, 0, m.TotalItems())
}

func TestManager_AdditiveAdd(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	m.AddToCart(ctx, product("7", "3.50", "Ring"), 2)
	m.AddToCart(ctx, product("7", "3.50", "Ring"), 5)

	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 7, items[0].Quantity)
	assert.Equal(t, 7, m.TotalItems())
}

func TestManager_AddDefaultsQuantityToOne(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	m.AddToCart(ctx, product("1", "1", "A"), 0)
	m.AddToCart(ctx, product("2", "1", "B"), -4)

	items := m.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)
}

func TestManager_AddIgnoresProductWithoutID(t *testing.T) {
	m, _ := newTestManager(t)
	m.AddToCart(context.Background(), domain.Product{Title: "ghost"}, 1)
	assert.Empty(t, m.Items())
}

func TestManager_InsertionOrderIsDisplayOrder(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	m.AddToCart(ctx, product("3", "1", "C"), 1)
	m.AddToCart(ctx, product("1", "1", "A"), 1)
	m.AddToCart(ctx, product("2", "1", "B"), 1)
	m.AddToCart(ctx, product("3", "1", "C"), 1)

	items := m.Items()
	require.Len(t, items, 3)
	assert.Equal(t, []domain.ID{"3", "1", "2"}, []domain.ID{items[0].ID, items[1].ID, items[2].ID})
}

func TestManager_IdempotentRemoval(t *testing.T) {
	ctx := context.Background()
	pub := &mockPublisher{}
	rec := &Recorder{}
	m, _ := newTestManager(t, WithPublisher(pub), WithNotifier(rec))

	m.AddToCart(ctx, product("1", "5", "A"), 1)
	before := m.Snapshot()

	m.RemoveFromCart(ctx, "404")

	after := m.Snapshot()
	assert.Equal(t, before.Items, after.Items)
	assert.Equal(t, before.Clock, after.Clock)
	assert.Len(t, pub.messages(t), 1, "no broadcast for a no-op removal")
	assert.Len(t, rec.Events(), 1)
}

func TestManager_QuantityFloor(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestManager(t)
	b, _ := newTestManager(t)
	for _, m := range []*Manager{a, b} {
		m.AddToCart(ctx, product("1", "5", "A"), 3)
		m.AddToCart(ctx, product("2", "7", "B"), 1)
	}

	a.UpdateQuantity(ctx, "1", 0)
	b.RemoveFromCart(ctx, "1")

	assert.Equal(t, b.Items(), a.Items())
	assert.Len(t, a.Items(), 1)
}

func TestManager_UpdateQuantityAbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	pub := &mockPublisher{}
	m, _ := newTestManager(t, WithPublisher(pub))

	m.UpdateQuantity(ctx, "9", 4)
	assert.Empty(t, m.Items())
	assert.Empty(t, pub.messages(t))
}

func TestManager_TotalConsistency(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	m.AddToCart(ctx, product("1", "45.99", "Skirt"), 2)
	m.AddToCart(ctx, product("2", "0.10", "Pin"), 3)
	m.UpdateQuantity(ctx, "1", 3)

	want := decimal.Zero
	count := 0
	for _, it := range m.Items() {
		want = want.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		count += it.Quantity
	}
	snap := m.Snapshot()
	assert.True(t, snap.TotalPrice.Equal(want))
	assert.True(t, snap.TotalPrice.Equal(decimal.RequireFromString("138.27")))
	assert.Equal(t, count, snap.TotalItems)
}

func TestManager_PersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	mem := kvstore.NewMemory()
	store := kvstore.New(mem, nil)
	m := NewManager(ctx, store)

	m.AddToCart(ctx, product("1", "10", "A"), 2)

	raw, err := mem.Get(ctx, kvstore.KeyCart)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"title":"A","price":"10","quantity":2}]`, string(raw))

	reloaded := NewManager(ctx, store)
	assert.Equal(t, m.Items(), reloaded.Items())
	assert.Equal(t, m.Snapshot().Clock, reloaded.Snapshot().Clock)

	m.ClearCart(ctx)
	raw, err = mem.Get(ctx, kvstore.KeyCart)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestManager_LoadsOriginalPayload(t *testing.T) {
	ctx := context.Background()
	mem := kvstore.NewMemory()
	raw := `[{"id":101,"title":"Skirt","price":45.99,"quantity":1,"category":"women's clothing"},` +
		`{"id":"101","title":"Skirt","price":45.99,"quantity":2},` +
		`{"id":5,"title":"Bad","price":1,"quantity":0}]`
	require.NoError(t, mem.Set(ctx, kvstore.KeyCart, []byte(raw)))

	m := NewManager(ctx, kvstore.New(mem, nil))
	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, domain.ID("101"), items[0].ID)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestManager_StorageResilience(t *testing.T) {
	ctx := context.Background()

	failing := NewManager(ctx, kvstore.New(kvstore.Failing{}, nil))
	assert.Empty(t, failing.Items())
	failing.AddToCart(ctx, product("1", "2", "A"), 1)
	assert.Len(t, failing.Items(), 1, "in-memory state survives failed writes")

	mem := kvstore.NewMemory()
	require.NoError(t, mem.Set(ctx, kvstore.KeyCart, []byte(`{"not":"an array"}`)))
	malformed := NewManager(ctx, kvstore.New(mem, nil))
	assert.NotNil(t, malformed.Items())
	assert.Empty(t, malformed.Items())
}

func TestManager_ClearCart(t *testing.T) {
	ctx := context.Background()
	rec := &Recorder{}
	m, _ := newTestManager(t, WithNotifier(rec))

	m.AddToCart(ctx, product("1", "2", "A"), 1)
	m.AddToCart(ctx, product("2", "2", "B"), 1)
	m.ClearCart(ctx)

	assert.Empty(t, m.Items())
	events := rec.Events()
	require.Len(t, events, 3)
	assert.Equal(t, EventCleared, events[2].Kind)
	assert.Equal(t, "Cart cleared", events[2].Message)
}

func TestManager_TakeItems(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	assert.Nil(t, m.TakeItems(ctx))
	assert.Zero(t, m.Snapshot().Clock, "taking from an empty cart does not commit")

	m.AddToCart(ctx, product("1", "2", "A"), 2)
	taken := m.TakeItems(ctx)
	require.Len(t, taken, 1)
	assert.Equal(t, 2, taken[0].Quantity)
	assert.Empty(t, m.Items())
	assert.Equal(t, uint64(2), m.Snapshot().Clock)
}

func TestManager_Events(t *testing.T) {
	ctx := context.Background()
	rec := &Recorder{}
	m, _ := newTestManager(t, WithNotifier(rec))

	m.AddToCart(ctx, product("1", "2", "Canvas Tote"), 2)
	m.UpdateQuantity(ctx, "1", 0)

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventAdded, events[0].Kind)
	assert.Equal(t, "2 × Canvas Tote added to cart", events[0].Message)
	assert.Equal(t, EventRemoved, events[1].Kind)
	assert.Equal(t, domain.ID("1"), events[1].ProductID)
}

func TestManager_ToggleVisibilityNotPersisted(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)

	assert.False(t, m.IsOpen())
	assert.True(t, m.ToggleVisibility())
	assert.True(t, m.IsOpen())
	assert.True(t, m.Snapshot().IsOpen)

	reloaded := NewManager(ctx, store)
	assert.False(t, reloaded.IsOpen())
	assert.False(t, m.ToggleVisibility())
}

func TestManager_BroadcastsAndMirrors(t *testing.T) {
	ctx := context.Background()
	pub := &mockPublisher{}
	remote := &mockRemote{}
	m, _ := newTestManager(t,
		WithPublisher(pub),
		WithRemote(remote, "42"),
		WithOrigin("tab-a"),
		WithProfile("p1"))

	m.AddToCart(ctx, product("1", "2", "A"), 1)
	m.AddToCart(ctx, product("1", "2", "A"), 1)

	msgs := pub.messages(t)
	require.Len(t, msgs, 2)
	assert.Equal(t, "tab-a", msgs[1].Origin)
	assert.Equal(t, "p1", msgs[1].Profile)
	assert.Equal(t, uint64(2), msgs[1].Clock)
	assert.Equal(t, 2, msgs[1].Items[0].Quantity)

	remote.m.Lock()
	defer remote.m.Unlock()
	require.Contains(t, remote.calls, domain.ID("42"))
	assert.Equal(t, 2, remote.calls["42"][0].Quantity)
}

func TestManager_ItemsAreCopies(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)
	m.AddToCart(ctx, product("1", "2", "A"), 1)

	items := m.Items()
	items[0].Quantity = 99
	assert.Equal(t, 1, m.Items()[0].Quantity)
}

func TestManager_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.AddToCart(ctx, product("1", "1", "A"), 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, m.TotalItems())
	assert.Equal(t, uint64(50), m.Snapshot().Clock)
}

func TestManager_ContextNotifierSeesOnlyItsOwnMutations(t *testing.T) {
	ctx := context.Background()
	own := &Recorder{}
	m, _ := newTestManager(t, WithNotifier(own))

	req := &Recorder{}
	m.AddToCart(ContextWithNotifier(ctx, req), product("1", "10", "A"), 2)
	m.RemoveFromCart(ctx, "1")

	require.Len(t, req.Events(), 1)
	assert.Equal(t, "2 × A added to cart", req.Events()[0].Message)
	assert.Len(t, own.Events(), 2)
}
