package realtime

import (
	"context"
	"errors"
	"sync"
)

// ChannelName is the channel all cart contexts share.
const ChannelName = "luxe-cart-channel"

var ErrTransportClosed = errors.New("transport is closed")

// Transport moves raw payloads between contexts subscribed to the same channel.
// Implementations deliver a payload to every subscriber, including the publisher's own.
type Transport interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(channel string, handler func([]byte)) (cancel func(), err error)
	Close() error
}

// Opener creates a Transport on first use of a Broadcast.
type Opener func(ctx context.Context) (Transport, error)

// Unavailable is an Opener for environments without any broadcast support.
func Unavailable(context.Context) (Transport, error) {
	return nil, errors.New("broadcast is not supported")
}

// Shared opens one transport on first use and hands it to every Opener call.
// Transports handed out ignore Close; Shared.Close releases the real one.
type Shared struct {
	open Opener

	once      sync.Once
	transport Transport
	err       error
}

func Share(open Opener) *Shared {
	if open == nil {
		open = Unavailable
	}
	return &Shared{open: open}
}

func (s *Shared) Opener() Opener {
	return func(ctx context.Context) (Transport, error) {
		s.once.Do(func() {
			s.transport, s.err = s.open(ctx)
		})
		if s.err != nil {
			return nil, s.err
		}
		return borrowed{s.transport}, nil
	}
}

func (s *Shared) Close() error {
	s.once.Do(func() { s.err = ErrTransportClosed })
	if s.transport == nil {
		return nil
	}
	return s.transport.Close()
}

type borrowed struct {
	Transport
}

func (borrowed) Close() error { return nil }
