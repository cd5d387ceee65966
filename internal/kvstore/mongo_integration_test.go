//go:build integration

package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupTestMongo(t *testing.T) *Mongo {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	backend := NewMongo(db)
	require.NoError(t, backend.CreateIndexes(ctx, 90*24*time.Hour))
	return backend
}

func TestMongo_RoundTrip(t *testing.T) {
	backend := setupTestMongo(t)
	ctx := context.Background()

	_, err := backend.Get(ctx, KeyCart)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, backend.Set(ctx, KeyCart, []byte(`[{"id":1,"quantity":2}]`)))
	require.NoError(t, backend.Set(ctx, KeyCart, []byte(`[{"id":1,"quantity":3}]`)))

	got, err := backend.Get(ctx, KeyCart)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"quantity":3}]`, string(got))

	require.NoError(t, backend.Delete(ctx, KeyCart))
	_, err = backend.Get(ctx, KeyCart)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMongo_StoreAdapter(t *testing.T) {
	backend := setupTestMongo(t)
	ctx := context.Background()
	s := New(Namespace(backend, ProfilePrefix("p1")), nil)

	require.True(t, s.Write(ctx, KeyWishlist, map[string][]string{"1": {"a"}}))
	got := ReadOr(ctx, s, KeyWishlist, map[string][]string{})
	assert.Equal(t, []string{"a"}, got["1"])
}
