package orders

import (
	"context"
	"testing"
	"time"

	d "github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/fjod/go_cart/luxecart/internal/kvstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func setupStore(t *testing.T, opts ...Option) (*Store, *kvstore.Store) {
	t.Helper()
	kv := kvstore.New(kvstore.NewMemory(), nil)
	return NewStore(kv, opts...), kv
}

func newTestItems() []d.CartLineItem {
	return []d.CartLineItem{
		{ID: "1", Title: "Laptop", Price: decimal.RequireFromString("99.99"), Quantity: 2},
		{ID: "2", Title: "Mouse", Price: decimal.RequireFromString("5"), Quantity: 1},
	}
}

func TestAddOrder_AssignsIDAndDate(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s, _ := setupStore(t, WithClock(fixedClock(ts)))
	ctx := context.Background()

	o := s.AddOrder(ctx, "u1", d.Order{Items: newTestItems(), Total: decimal.NewFromInt(205)})

	assert.Equal(t, d.IDFromInt(ts.UnixMilli()), o.ID)
	assert.Equal(t, ts, o.Date)
	assert.Equal(t, d.ID("u1"), o.UserID)
	assert.Equal(t, d.OrderStatusPending, o.Status)
}

func TestAddOrder_IDsStrictlyIncreaseWithinSameMillisecond(t *testing.T) {
	s, _ := setupStore(t, WithClock(fixedClock(time.UnixMilli(1000))))
	ctx := context.Background()

	a := s.AddOrder(ctx, "u1", d.Order{})
	b := s.AddOrder(ctx, "u1", d.Order{})
	c := s.AddOrder(ctx, "u2", d.Order{})

	assert.Equal(t, d.ID("1000"), a.ID)
	assert.Equal(t, d.ID("1001"), b.ID)
	assert.Equal(t, d.ID("1002"), c.ID)
}

func TestAddOrder_KeepsExplicitIDAndPrepends(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	s.AddOrder(ctx, "u1", d.Order{ID: "first"})
	s.AddOrder(ctx, "u1", d.Order{ID: "second"})

	got := s.GetOrders(ctx, "u1")
	require.Len(t, got, 2)
	assert.Equal(t, d.ID("second"), got[0].ID)
	assert.Equal(t, d.ID("first"), got[1].ID)
}

func TestGetOrders_ScopedByUser(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	s.AddOrder(ctx, "u1", d.Order{ID: "a"})
	s.AddOrder(ctx, "u2", d.Order{ID: "b"})
	s.AddOrder(ctx, "u1", d.Order{ID: "c"})

	mine := s.GetOrders(ctx, "u1")
	require.Len(t, mine, 2)
	for _, o := range mine {
		assert.Equal(t, d.ID("u1"), o.UserID)
	}
	assert.Equal(t, d.ID("c"), mine[0].ID)

	assert.Len(t, s.GetOrders(ctx, "u2"), 1)
	assert.Empty(t, s.GetOrders(ctx, "nobody"))
	assert.Len(t, s.GetOrders(ctx, ""), 3)
}

func TestGetOrderByID(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	s.AddOrder(ctx, "u1", d.Order{ID: "42", Status: d.OrderStatusConfirmed})

	o, ok := s.GetOrderByID(ctx, "42")
	require.True(t, ok)
	assert.Equal(t, d.OrderStatusConfirmed, o.Status)

	_, ok = s.GetOrderByID(ctx, "43")
	assert.False(t, ok)
}

func TestCreateMockOrder_TotalAndStatus(t *testing.T) {
	s, _ := setupStore(t, WithStatusPicker(FixedStatus(d.OrderStatusDelivered)))
	ctx := context.Background()

	items := newTestItems()
	items = append(items, d.CartLineItem{Title: "Sticker", Price: decimal.NewFromInt(3)})

	o := s.CreateMockOrder(ctx, "u1", items, MockOptions{})

	assert.True(t, o.Total.Equal(decimal.RequireFromString("208.98")), o.Total.String())
	assert.Equal(t, d.OrderStatusDelivered, o.Status)
	assert.Empty(t, o.Reason)
}

func TestCreateMockOrder_CancelledGetsReason(t *testing.T) {
	s, _ := setupStore(t, WithStatusPicker(FixedStatus(d.OrderStatusCancelled)))
	ctx := context.Background()

	o := s.CreateMockOrder(ctx, "u1", newTestItems(), MockOptions{})
	assert.Equal(t, DefaultCancelReason, o.Reason)

	o = s.CreateMockOrder(ctx, "u1", newTestItems(), MockOptions{Reason: "Changed my mind"})
	assert.Equal(t, "Changed my mind", o.Reason)

	o = s.CreateMockOrder(ctx, "u1", newTestItems(), MockOptions{Status: d.OrderStatusProcessing, Reason: "ignored"})
	assert.Equal(t, d.OrderStatusProcessing, o.Status)
	assert.Empty(t, o.Reason)
}

func TestRandomStatus_PicksFromOptions(t *testing.T) {
	for i := 0; i < 50; i++ {
		assert.Contains(t, MockStatuses, RandomStatus{}.Pick(MockStatuses))
	}
}

func TestClearOrders_WipesEveryUser(t *testing.T) {
	s, kv := setupStore(t)
	ctx := context.Background()

	s.AddOrder(ctx, "u1", d.Order{})
	s.AddOrder(ctx, "u2", d.Order{})
	s.ClearOrders(ctx)

	assert.Empty(t, s.GetOrders(ctx, ""))
	raw, ok := kv.ReadString(ctx, kvstore.KeyOrders)
	require.True(t, ok)
	assert.Equal(t, "[]", raw)
}

func TestOrders_SurviveReload(t *testing.T) {
	s, kv := setupStore(t)
	ctx := context.Background()

	placed := s.AddOrder(ctx, "u1", d.Order{Items: newTestItems(), Total: decimal.RequireFromString("204.98")})

	reloaded := NewStore(kv)
	got, ok := reloaded.GetOrderByID(ctx, placed.ID)
	require.True(t, ok)
	assert.True(t, got.Total.Equal(placed.Total))
	assert.Len(t, got.Items, 2)
}

func TestOrders_ResilientToBrokenStorage(t *testing.T) {
	s := NewStore(kvstore.New(kvstore.Failing{}, nil))
	ctx := context.Background()

	assert.NotPanics(t, func() {
		s.AddOrder(ctx, "u1", d.Order{})
		s.ClearOrders(ctx)
	})
	assert.Empty(t, s.GetOrders(ctx, "u1"))
}

func TestOrders_MalformedLogReadsEmpty(t *testing.T) {
	s, kv := setupStore(t)
	ctx := context.Background()

	kv.WriteString(ctx, kvstore.KeyOrders, "{not json")
	assert.Empty(t, s.GetOrders(ctx, ""))
}
