package domain

// User is the single current-session record of a profile.
type User struct {
	ID     ID     `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// GuestUserID is used for wishlist and demo orders when nobody is logged in.
const GuestUserID ID = "guest"
