package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaTransport publishes broadcasts to a topic named after the channel.
// Each transport reads a channel with one consumer group of its own and fans
// messages out to its subscribers, so each context sees every message posted
// after it subscribed.
type KafkaTransport struct {
	brokers []string
	group   string
	writer  *kafka.Writer
	log     *zap.Logger

	mu     sync.Mutex
	feeds  map[string]*kafkaFeed
	nextID int
	closed bool
}

type kafkaFeed struct {
	reader   *kafka.Reader
	cancel   context.CancelFunc
	handlers map[int]func([]byte)
}

func NewKafkaTransport(log *zap.Logger, brokers ...string) *KafkaTransport {
	if log == nil {
		log = zap.NewNop()
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaTransport{
		brokers: brokers,
		group:   uuid.NewString(),
		writer:  w,
		log:     log.Named("kafka"),
		feeds:   make(map[string]*kafkaFeed),
	}
}

// KafkaOpener checks that a broker is reachable before handing out the transport.
func KafkaOpener(log *zap.Logger, brokers ...string) Opener {
	return func(ctx context.Context) (Transport, error) {
		if len(brokers) == 0 {
			return nil, errors.New("kafka: no brokers configured")
		}
		conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
		if err != nil {
			return nil, fmt.Errorf("kafka dial %s: %w", brokers[0], err)
		}
		_ = conn.Close()
		return NewKafkaTransport(log, brokers...), nil
	}
}

func (t *KafkaTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	msg := kafka.Message{
		Topic: channel,
		Value: payload,
	}
	if err := t.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write to %s: %w", channel, err)
	}
	return nil
}

func (t *KafkaTransport) Subscribe(channel string, handler func([]byte)) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTransportClosed
	}

	feed, ok := t.feeds[channel]
	if !ok {
		feed = t.startFeed(channel)
		t.feeds[channel] = feed
	}
	id := t.nextID
	t.nextID++
	feed.handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(feed.handlers, id)
		})
	}, nil
}

// startFeed starts reading channel. The reader stays up until Close so the
// group keeps its offset between subscribers. Callers hold t.mu.
func (t *KafkaTransport) startFeed(channel string) *kafkaFeed {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     t.brokers,
		Topic:       channel,
		GroupID:     channel + "-" + t.group,
		StartOffset: kafka.LastOffset,
		MaxBytes:    10e6, // 10MB
	})
	ctx, cancel := context.WithCancel(context.Background())
	feed := &kafkaFeed{reader: reader, cancel: cancel, handlers: make(map[int]func([]byte))}

	go func() {
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, context.Canceled) {
					t.log.Warn("kafka read stopped", zap.String("topic", channel), zap.Error(err))
				}
				return
			}
			t.mu.Lock()
			handlers := make([]func([]byte), 0, len(feed.handlers))
			for _, h := range feed.handlers {
				handlers = append(handlers, h)
			}
			t.mu.Unlock()
			for _, h := range handlers {
				h(m.Value)
			}
		}
	}()
	return feed
}

func (t *KafkaTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for channel, feed := range t.feeds {
		feed.cancel()
		if err := feed.reader.Close(); err != nil {
			t.log.Debug("error closing kafka reader", zap.String("topic", channel), zap.Error(err))
		}
		delete(t.feeds, channel)
	}
	return t.writer.Close()
}
