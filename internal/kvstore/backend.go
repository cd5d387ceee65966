package kvstore

import (
	"context"
	"errors"
)

// Storage keys shared with the storefront. Domain stores own disjoint keys.
const (
	KeyCart     = "luxe-cart"
	KeyOrders   = "luxe-orders"
	KeyWishlist = "luxe-wishlist"
	KeyUser     = "luxe-user"
	KeyUserID   = "luxe-user-id"
)

var (
	ErrNotFound    = errors.New("key not found")
	ErrUnavailable = errors.New("storage unavailable")
)

// Backend is the raw durable key-value namespace the Store adapter writes through.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Failing is a Backend whose every call fails, like storage in private browsing
// or with an exhausted quota.
type Failing struct{}

func (Failing) Get(context.Context, string) ([]byte, error) { return nil, ErrUnavailable }
func (Failing) Set(context.Context, string, []byte) error   { return ErrUnavailable }
func (Failing) Delete(context.Context, string) error        { return ErrUnavailable }
