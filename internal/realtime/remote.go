package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	d "github.com/fjod/go_cart/luxecart/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const (
	defaultCollection  = "carts"
	defaultDialTimeout = 10 * time.Second
	envEmulatorHost    = "FIRESTORE_EMULATOR_HOST"
)

var ErrRemoteUnavailable = errors.New("remote sync unavailable")

type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
	Collection   string
}

// Remote mirrors carts into a document database, one document per user.
// It is disabled without a project id, and every failure is logged and swallowed.
type Remote struct {
	cfg        FirestoreConfig
	clientOpts []option.ClientOption
	log        *zap.Logger

	once   sync.Once
	client *firestore.Client
}

func NewRemote(cfg FirestoreConfig, log *zap.Logger, opts ...option.ClientOption) *Remote {
	if log == nil {
		log = zap.NewNop()
	}
	if strings.TrimSpace(cfg.Collection) == "" {
		cfg.Collection = defaultCollection
	}
	return &Remote{cfg: cfg, clientOpts: opts, log: log.Named("remote")}
}

func (r *Remote) Enabled() bool {
	return strings.TrimSpace(r.cfg.ProjectID) != ""
}

func (r *Remote) connect(ctx context.Context) *firestore.Client {
	if !r.Enabled() {
		return nil
	}
	r.once.Do(func() {
		client, err := r.createClient(ctx)
		if err != nil {
			r.log.Warn("remote sync unavailable", zap.Error(err))
			return
		}
		r.client = client
	})
	return r.client
}

func (r *Remote) createClient(ctx context.Context) (*firestore.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()

	opts := []option.ClientOption{
		option.WithGRPCDialOption(grpc.WithStatsHandler(otelgrpc.NewClientHandler())),
	}
	opts = append(opts, r.clientOpts...)
	if host := strings.TrimSpace(r.cfg.EmulatorHost); host != "" {
		if os.Getenv(envEmulatorHost) == "" {
			_ = os.Setenv(envEmulatorHost, host)
		}
		opts = append(opts,
			option.WithoutAuthentication(),
			option.WithEndpoint(host),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	return firestore.NewClient(ctx, strings.TrimSpace(r.cfg.ProjectID), opts...)
}

func (r *Remote) doc(client *firestore.Client, userID d.ID) *firestore.DocumentRef {
	return client.Collection(r.cfg.Collection).Doc(userID.String())
}

// SubscribeRemoteCart pushes the stored cart of userID to onChange on every change
// of its document, and nil when the document does not exist.
func (r *Remote) SubscribeRemoteCart(ctx context.Context, userID d.ID, onChange func([]d.CartLineItem)) func() {
	client := r.connect(ctx)
	if client == nil || !userID.Valid() {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	it := r.doc(client, userID).Snapshots(ctx)
	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					r.logFailure("snapshot listener stopped", userID, err)
				}
				return
			}
			if !snap.Exists() {
				onChange(nil)
				continue
			}
			items, err := decodeCart(snap.Data()["cart"])
			if err != nil {
				r.log.Warn("malformed remote cart", zap.String("user_id", userID.String()), zap.Error(err))
				continue
			}
			onChange(items)
		}
	}()
	return cancel
}

// SetRemoteCart merge-writes {cart, updatedAt} into the document of userID.
func (r *Remote) SetRemoteCart(ctx context.Context, userID d.ID, items []d.CartLineItem) bool {
	client := r.connect(ctx)
	if client == nil || !userID.Valid() {
		return false
	}
	cart, err := encodeCart(items)
	if err != nil {
		r.log.Warn("failed to encode remote cart", zap.Error(err))
		return false
	}
	_, err = r.doc(client, userID).Set(ctx, map[string]any{
		"cart":      cart,
		"updatedAt": time.Now().UTC().Format(time.RFC3339),
	}, firestore.MergeAll)
	if err != nil {
		r.logFailure("remote cart write failed", userID, err)
		return false
	}
	return true
}

func (r *Remote) Close() error {
	r.once.Do(func() {})
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *Remote) logFailure(msg string, userID d.ID, err error) {
	r.log.Warn(msg,
		zap.String("user_id", userID.String()),
		zap.String("class", classify(err)),
		zap.Error(errors.Join(ErrRemoteUnavailable, err)),
	)
}

func classify(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	switch status.Code(err) {
	case codes.NotFound:
		return "not_found"
	case codes.PermissionDenied, codes.Unauthenticated:
		return "denied"
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal, codes.DeadlineExceeded:
		return "unavailable"
	case codes.Canceled:
		return "canceled"
	}
	return "unknown"
}

// encodeCart turns line items into plain maps the document store can hold.
func encodeCart(items []d.CartLineItem) ([]any, error) {
	raw, err := json.Marshal(d.CloneItems(items))
	if err != nil {
		return nil, err
	}
	var out []any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeCart(v any) ([]d.CartLineItem, error) {
	if v == nil {
		return []d.CartLineItem{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var items []d.CartLineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return d.CloneItems(items), nil
}
