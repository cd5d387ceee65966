package orders

import d "github.com/fjod/go_cart/luxecart/internal/domain"

var transitions = map[d.OrderStatus][]d.OrderStatus{
	d.OrderStatusPending:    {d.OrderStatusConfirmed, d.OrderStatusCancelled},
	d.OrderStatusConfirmed:  {d.OrderStatusProcessing, d.OrderStatusCancelled},
	d.OrderStatusProcessing: {d.OrderStatusShipped, d.OrderStatusCancelled},
	d.OrderStatusShipped:    {d.OrderStatusDelivered},
}

// CanTransitionTo reports whether an order may move from one status to another.
// Delivered and Cancelled are terminal.
func CanTransitionTo(from, to d.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
