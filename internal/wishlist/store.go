package wishlist

import (
	"context"
	"sync"

	d "github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/fjod/go_cart/luxecart/internal/kvstore"
	"go.uber.org/zap"
)

// Store keeps a per-user set of saved products under a single key,
// as a JSON object of user id to entries.
type Store struct {
	mu    sync.Mutex
	store *kvstore.Store
	log   *zap.Logger
}

func NewStore(store *kvstore.Store, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{store: store, log: log.Named("wishlist")}
}

func (s *Store) readAll(ctx context.Context) map[string][]d.WishlistEntry {
	all := kvstore.ReadOr(ctx, s.store, kvstore.KeyWishlist, map[string][]d.WishlistEntry{})
	if all == nil {
		all = map[string][]d.WishlistEntry{}
	}
	return all
}

func (s *Store) GetWishlist(ctx context.Context, userID d.ID) []d.WishlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(ctx, userID)
}

func (s *Store) get(ctx context.Context, userID d.ID) []d.WishlistEntry {
	items := s.readAll(ctx)[userID.String()]
	if items == nil {
		return []d.WishlistEntry{}
	}
	return items
}

// SaveWishlist replaces the list of userID. Other users are untouched.
func (s *Store) SaveWishlist(ctx context.Context, userID d.ID, items []d.WishlistEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.save(ctx, userID, items)
}

func (s *Store) save(ctx context.Context, userID d.ID, items []d.WishlistEntry) {
	all := s.readAll(ctx)
	if items == nil {
		items = []d.WishlistEntry{}
	}
	all[userID.String()] = items
	s.store.Write(ctx, kvstore.KeyWishlist, all)
}

// AddItem prepends item unless an entry with the same id is already saved.
func (s *Store) AddItem(ctx context.Context, userID d.ID, item d.WishlistEntry) []d.WishlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.get(ctx, userID)
	if indexOf(items, item.ID) >= 0 {
		return items
	}
	items = append([]d.WishlistEntry{item}, items...)
	s.save(ctx, userID, items)
	return items
}

func (s *Store) RemoveItem(ctx context.Context, userID d.ID, productID d.ID) []d.WishlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.get(ctx, userID)
	kept := make([]d.WishlistEntry, 0, len(items))
	for _, it := range items {
		if it.ID != productID {
			kept = append(kept, it)
		}
	}
	s.save(ctx, userID, kept)
	return kept
}

// Clear empties the list of userID only.
func (s *Store) Clear(ctx context.Context, userID d.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.save(ctx, userID, []d.WishlistEntry{})
	s.log.Debug("wishlist cleared", zap.String("user_id", userID.String()))
}

func (s *Store) Contains(ctx context.Context, userID d.ID, productID d.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOf(s.get(ctx, userID), productID) >= 0
}

// Toggle removes item when it is saved and adds it otherwise.
// It reports whether the item is saved afterwards.
func (s *Store) Toggle(ctx context.Context, userID d.ID, item d.WishlistEntry) ([]d.WishlistEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.get(ctx, userID)
	if i := indexOf(items, item.ID); i >= 0 {
		kept := make([]d.WishlistEntry, 0, len(items)-1)
		kept = append(kept, items[:i]...)
		kept = append(kept, items[i+1:]...)
		s.save(ctx, userID, kept)
		return kept, false
	}
	items = append([]d.WishlistEntry{item}, items...)
	s.save(ctx, userID, items)
	return items, true
}

func indexOf(items []d.WishlistEntry, id d.ID) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
