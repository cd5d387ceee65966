package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/luxecart/internal/domain"
	"go.uber.org/zap"
)

type EventKind string

const (
	EventAdded   EventKind = "added"
	EventRemoved EventKind = "removed"
	EventCleared EventKind = "cleared"
)

// Event is a user-visible confirmation of a cart mutation.
type Event struct {
	Kind      EventKind `json:"kind"`
	Message   string    `json:"message"`
	ProductID domain.ID `json:"productId,omitempty"`
	Quantity  int       `json:"quantity,omitempty"`
}

type Notifier interface {
	Notify(Event)
}

func addedEvent(item domain.CartLineItem, quantity int) Event {
	return Event{
		Kind:      EventAdded,
		Message:   fmt.Sprintf("%d × %s added to cart", quantity, item.Title),
		ProductID: item.ID,
		Quantity:  quantity,
	}
}

func removedEvent(id domain.ID) Event {
	return Event{Kind: EventRemoved, Message: "Item removed from cart", ProductID: id}
}

func clearedEvent() Event {
	return Event{Kind: EventCleared, Message: "Cart cleared"}
}

// LogNotifier writes events to a logger.
type LogNotifier struct {
	Log *zap.Logger
}

func (n LogNotifier) Notify(e Event) {
	if n.Log == nil {
		return
	}
	n.Log.Info(e.Message, zap.String("kind", string(e.Kind)), zap.String("product_id", e.ProductID.String()))
}

// Recorder collects events, e.g. to return them with an HTTP response.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

type notifierKey struct{}

// ContextWithNotifier makes mutations performed with the returned context also
// report their events to n, on top of the manager's own notifier.
func ContextWithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, notifierKey{}, n)
}

func notifierFrom(ctx context.Context) Notifier {
	n, _ := ctx.Value(notifierKey{}).(Notifier)
	return n
}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}
