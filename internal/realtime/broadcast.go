package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type envelope struct {
	Sender string `json:"sender"`
	Data   []byte `json:"data"`
}

// Broadcast is a named best-effort channel between contexts. The transport is
// opened once, on first use; when that fails Post and Listen do nothing.
// A Broadcast never hands its own posts to its listeners.
type Broadcast struct {
	name   string
	open   Opener
	sender string
	log    *zap.Logger

	once      sync.Once
	transport Transport
}

func NewBroadcast(name string, open Opener, log *zap.Logger) *Broadcast {
	if log == nil {
		log = zap.NewNop()
	}
	if open == nil {
		open = Unavailable
	}
	sender := uuid.NewString()
	return &Broadcast{
		name:   name,
		open:   open,
		sender: sender,
		log:    log.Named("broadcast").With(zap.String("channel", name), zap.String("sender", sender)),
	}
}

// Sender identifies this Broadcast on the wire.
func (b *Broadcast) Sender() string {
	return b.sender
}

func (b *Broadcast) channel(ctx context.Context) Transport {
	b.once.Do(func() {
		t, err := b.open(ctx)
		if err != nil {
			b.log.Warn("broadcast unavailable, sync disabled", zap.Error(err))
			return
		}
		b.transport = t
	})
	return b.transport
}

// Available reports whether the transport could be opened.
func (b *Broadcast) Available(ctx context.Context) bool {
	return b.channel(ctx) != nil
}

func (b *Broadcast) Post(ctx context.Context, payload []byte) {
	if len(payload) == 0 {
		return
	}
	t := b.channel(ctx)
	if t == nil {
		return
	}
	data, err := json.Marshal(envelope{Sender: b.sender, Data: payload})
	if err != nil {
		b.log.Warn("failed to encode broadcast", zap.Error(err))
		return
	}
	if err := t.Publish(ctx, b.name, data); err != nil {
		b.log.Warn("broadcast post failed", zap.Error(err))
	}
}

// Listen subscribes onMessage to payloads posted by other contexts and returns
// the function that unsubscribes it.
func (b *Broadcast) Listen(onMessage func([]byte)) func() {
	t := b.channel(context.Background())
	if t == nil {
		return func() {}
	}
	cancel, err := t.Subscribe(b.name, func(raw []byte) {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			b.log.Debug("dropping foreign broadcast payload", zap.Error(err))
			return
		}
		if env.Sender == b.sender || len(env.Data) == 0 {
			return
		}
		onMessage(env.Data)
	})
	if err != nil {
		b.log.Warn("broadcast subscribe failed", zap.Error(err))
		return func() {}
	}
	var once sync.Once
	return func() { once.Do(cancel) }
}

// Close releases the transport if one was opened.
func (b *Broadcast) Close() error {
	b.once.Do(func() {})
	if b.transport == nil {
		return nil
	}
	return b.transport.Close()
}
