package profile

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_cart/luxecart/internal/cart"
	d "github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/fjod/go_cart/luxecart/internal/kvstore"
	"github.com/fjod/go_cart/luxecart/internal/realtime"
	"github.com/fjod/go_cart/luxecart/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id string) d.Product {
	return d.Product{ID: d.ID(id), Title: "P" + id, Price: decimal.NewFromInt(10)}
}

func TestRegistry_ProfilesAreIsolated(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(kvstore.NewMemory(), WithSessionOptions(session.WithDelays(0, 0)))
	defer reg.Close()

	a := reg.Open(ctx, "a")
	b := reg.Open(ctx, "b")

	a.Cart.AddToCart(ctx, product("1"), 1)
	a.Wishlist.AddItem(ctx, "guest", d.NewWishlistEntry(product("2")))
	_, err := a.Session.Login(ctx, "x@y.z", "pw")
	require.NoError(t, err)

	assert.Empty(t, b.Cart.Items())
	assert.Empty(t, b.Wishlist.GetWishlist(ctx, "guest"))
	_, ok := b.Session.Current(ctx)
	assert.False(t, ok)
}

func TestRegistry_CartManagerIsShared(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(kvstore.NewMemory())
	defer reg.Close()

	first := reg.Open(ctx, "p")
	first.Cart.ToggleVisibility()

	again := reg.Open(ctx, "p")
	assert.Same(t, first.Cart, again.Cart)
	assert.True(t, again.Cart.IsOpen())
	assert.Equal(t, 1, reg.Carts())
}

func TestRegistry_EvictsOldestCart(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(kvstore.NewMemory(), WithMaxCarts(2))
	defer reg.Close()

	p1 := reg.Open(ctx, "1")
	p1.Cart.AddToCart(ctx, product("9"), 3)
	reg.Open(ctx, "2")
	reg.Open(ctx, "3")
	assert.Equal(t, 2, reg.Carts())

	reopened := reg.Open(ctx, "1")
	assert.NotSame(t, p1.Cart, reopened.Cart)
	assert.Equal(t, 3, reopened.Cart.TotalItems())
}

func TestRegistry_CartFollowsOtherProcess(t *testing.T) {
	ctx := context.Background()
	hub := realtime.NewMemoryHub()

	// two processes sharing nothing but the broadcast channel
	newProcess := func() *Registry {
		bc := realtime.NewBroadcast(realtime.ChannelName, hub.Opener(), nil)
		t.Cleanup(func() { _ = bc.Close() })
		reg := NewRegistry(kvstore.NewMemory(), WithChannel(bc))
		t.Cleanup(reg.Close)
		return reg
	}
	one := newProcess()
	two := newProcess()

	local := one.Open(ctx, "shared").Cart
	remote := two.Open(ctx, "shared").Cart

	remote.AddToCart(ctx, product("5"), 2)
	assert.Eventually(t, func() bool { return local.TotalItems() == 2 }, time.Second, 10*time.Millisecond)

	other := one.Open(ctx, "someone-else").Cart
	assert.Empty(t, other.Items())
}

func TestRegistry_RequestNotices(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(kvstore.NewMemory())
	defer reg.Close()

	rec := &cart.Recorder{}
	p := reg.Open(ctx, "n")
	p.Cart.AddToCart(cart.ContextWithNotifier(ctx, rec), product("1"), 1)

	require.Len(t, rec.Events(), 1)
	assert.Equal(t, cart.EventAdded, rec.Events()[0].Kind)
}

func TestRegistry_UnlessLive(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(kvstore.NewMemory())
	defer reg.Close()

	ran := false
	assert.True(t, reg.UnlessLive("p", func() bool { ran = true; return true }))
	assert.True(t, ran)

	reg.Open(ctx, "p")
	ran = false
	assert.False(t, reg.UnlessLive("p", func() bool { ran = true; return true }))
	assert.False(t, ran)
}

func TestRegistry_ReplicationKeepsNewerLocalChanges(t *testing.T) {
	ctx := context.Background()
	hub := realtime.NewMemoryHub()

	bc := realtime.NewBroadcast(realtime.ChannelName, hub.Opener(), nil)
	t.Cleanup(func() { _ = bc.Close() })
	reg := NewRegistry(kvstore.NewMemory(), WithChannel(bc))
	t.Cleanup(reg.Close)
	stop := cart.NewReplicator(bc, reg.Store, nil, cart.WithGuard(reg.UnlessLive)).Run(ctx)
	t.Cleanup(stop)

	other := realtime.NewBroadcast(realtime.ChannelName, hub.Opener(), nil)
	t.Cleanup(func() { _ = other.Close() })
	remote := cart.NewManager(ctx, kvstore.New(kvstore.NewMemory(), nil),
		cart.WithProfile("shared"), cart.WithPublisher(other))

	local := reg.Open(ctx, "shared").Cart
	remote.AddToCart(ctx, product("1"), 1)
	require.Eventually(t, func() bool { return local.TotalItems() == 1 }, time.Second, 10*time.Millisecond)

	local.AddToCart(ctx, product("2"), 1)
	// let any late replication land
	time.Sleep(50 * time.Millisecond)

	persisted := cart.NewManager(ctx, reg.Store("shared"))
	assert.Equal(t, local.Snapshot().Clock, persisted.Snapshot().Clock)
	assert.Len(t, persisted.Items(), 2)
}
