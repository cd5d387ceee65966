package domain

// WishlistEntry is a saved product snapshot, unique per (user, product id).
type WishlistEntry struct {
	Product
}

func NewWishlistEntry(p Product) WishlistEntry {
	return WishlistEntry{Product: p}
}
