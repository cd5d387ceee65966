package domain

import "github.com/shopspring/decimal"

type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Product is the catalog record shape shared by the upstream API and the local catalog.
type Product struct {
	ID          ID              `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Image       string          `json:"image,omitempty"`
	Rating      *Rating         `json:"rating,omitempty"`
}
