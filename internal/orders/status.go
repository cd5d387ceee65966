package orders

import (
	"math/rand"

	d "github.com/fjod/go_cart/luxecart/internal/domain"
)

// MockStatuses are the outcomes demo orders are drawn from.
var MockStatuses = []d.OrderStatus{d.OrderStatusDelivered, d.OrderStatusCancelled, d.OrderStatusProcessing}

// StatusPicker chooses the status of a synthesized order.
type StatusPicker interface {
	Pick(options []d.OrderStatus) d.OrderStatus
}

// RandomStatus picks uniformly at random.
type RandomStatus struct{}

func (RandomStatus) Pick(options []d.OrderStatus) d.OrderStatus {
	return options[rand.Intn(len(options))]
}

// FixedStatus always picks the same status.
type FixedStatus d.OrderStatus

func (f FixedStatus) Pick([]d.OrderStatus) d.OrderStatus {
	return d.OrderStatus(f)
}
