package domain

import "github.com/shopspring/decimal"

// CartLineItem is a product snapshot plus quantity. Unique by ID within a cart.
type CartLineItem struct {
	ID       ID              `json:"id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Quantity int             `json:"quantity"`
}

func NewLineItem(p Product, quantity int) CartLineItem {
	return CartLineItem{
		ID:       p.ID,
		Title:    p.Title,
		Price:    p.Price,
		Image:    p.Image,
		Quantity: quantity,
	}
}

// Subtotal returns price * quantity.
func (i CartLineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Totals are derived from line items on every read and never stored.
type Totals struct {
	Items int             `json:"totalItems"`
	Price decimal.Decimal `json:"totalPrice"`
}

func ComputeTotals(items []CartLineItem) Totals {
	t := Totals{Price: decimal.Zero}
	for _, it := range items {
		t.Items += it.Quantity
		t.Price = t.Price.Add(it.Subtotal())
	}
	return t
}

// CloneItems copies a line item slice so callers cannot mutate manager state.
func CloneItems(items []CartLineItem) []CartLineItem {
	if items == nil {
		return []CartLineItem{}
	}
	out := make([]CartLineItem, len(items))
	copy(out, items)
	return out
}
