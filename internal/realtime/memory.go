package realtime

import (
	"context"
	"sync"
)

const subscriberBuffer = 64

// MemoryHub fans payloads out between Broadcasts of one process. Each subscriber
// receives payloads in publish order on its own goroutine.
type MemoryHub struct {
	mu     sync.RWMutex
	subs   map[string]map[int]*subscriber
	nextID int
}

type subscriber struct {
	ch   chan []byte
	done chan struct{}
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{subs: make(map[string]map[int]*subscriber)}
}

// Opener returns an Opener handing out transports bound to the hub.
func (h *MemoryHub) Opener() Opener {
	return func(context.Context) (Transport, error) {
		return &memoryTransport{hub: h}, nil
	}
}

func (h *MemoryHub) publish(ctx context.Context, channel string, payload []byte) error {
	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subs[channel]))
	for _, s := range h.subs[channel] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		msg := append([]byte(nil), payload...)
		select {
		case s.ch <- msg:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (h *MemoryHub) subscribe(channel string, handler func([]byte)) func() {
	s := &subscriber{ch: make(chan []byte, subscriberBuffer), done: make(chan struct{})}

	h.mu.Lock()
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[int]*subscriber)
	}
	id := h.nextID
	h.nextID++
	h.subs[channel][id] = s
	h.mu.Unlock()

	go func() {
		for {
			select {
			case msg := <-s.ch:
				handler(msg)
			case <-s.done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[channel], id)
			h.mu.Unlock()
			close(s.done)
		})
	}
}

// Subscribers returns the number of live subscriptions on channel.
func (h *MemoryHub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}

type memoryTransport struct {
	hub *MemoryHub

	mu      sync.Mutex
	closed  bool
	cancels []func()
}

func (t *memoryTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return ErrTransportClosed
	}
	return t.hub.publish(ctx, channel, payload)
}

func (t *memoryTransport) Subscribe(channel string, handler func([]byte)) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTransportClosed
	}
	cancel := t.hub.subscribe(channel, handler)
	t.cancels = append(t.cancels, cancel)
	return cancel, nil
}

func (t *memoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for _, cancel := range t.cancels {
		cancel()
	}
	return nil
}
