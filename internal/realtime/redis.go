package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisTransport carries broadcasts over Redis PUBLISH/SUBSCRIBE so contexts in
// different processes share a channel. The client is owned by the caller.
type RedisTransport struct {
	client redis.UniversalClient

	mu     sync.Mutex
	subs   []*redis.PubSub
	closed bool
}

func NewRedisTransport(client redis.UniversalClient) *RedisTransport {
	return &RedisTransport{client: client}
}

// RedisOpener pings the server before handing out the transport.
func RedisOpener(client redis.UniversalClient) Opener {
	return func(ctx context.Context) (Transport, error) {
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return NewRedisTransport(client), nil
	}
}

func (t *RedisTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := t.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish to %s: %w", channel, err)
	}
	return nil
}

func (t *RedisTransport) Subscribe(channel string, handler func([]byte)) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTransportClosed
	}

	ctx := context.Background()
	ps := t.client.Subscribe(ctx, channel)
	// wait for the confirmation so no post made after Subscribe returns is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe to %s: %w", channel, err)
	}
	t.subs = append(t.subs, ps)

	ch := ps.Channel()
	go func() {
		for msg := range ch {
			handler([]byte(msg.Payload))
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { _ = ps.Close() })
	}, nil
}

func (t *RedisTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	var firstErr error
	for _, ps := range t.subs {
		if err := ps.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
