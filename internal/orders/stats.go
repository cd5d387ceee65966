package orders

import d "github.com/fjod/go_cart/luxecart/internal/domain"

// FilterAll and FilterInProgress are the group filters of the order history view.
const (
	FilterAll        = "All"
	FilterInProgress = "Processing"
)

type Stats struct {
	Total      int `json:"total"`
	Delivered  int `json:"delivered"`
	Cancelled  int `json:"cancelled"`
	Processing int `json:"processing"`
	Pending    int `json:"pending"`
}

func inProgress(s d.OrderStatus) bool {
	return s == d.OrderStatusProcessing || s == d.OrderStatusConfirmed || s == d.OrderStatusShipped
}

func ComputeStats(orders []d.Order) Stats {
	st := Stats{Total: len(orders)}
	for _, o := range orders {
		switch {
		case o.Status == d.OrderStatusDelivered:
			st.Delivered++
		case o.Status == d.OrderStatusCancelled:
			st.Cancelled++
		case inProgress(o.Status):
			st.Processing++
		case o.Status == d.OrderStatusPending:
			st.Pending++
		}
	}
	return st
}

// Filter narrows orders by status. "Processing" matches every in-progress status,
// "All" or an empty filter matches everything.
func Filter(orders []d.Order, filter string) []d.Order {
	if filter == "" || filter == FilterAll {
		return orders
	}
	out := make([]d.Order, 0, len(orders))
	for _, o := range orders {
		if filter == FilterInProgress && inProgress(o.Status) || string(o.Status) == filter {
			out = append(out, o)
		}
	}
	return out
}
