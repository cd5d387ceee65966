package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	d "github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/fjod/go_cart/luxecart/internal/kvstore"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL = "https://fakestoreapi.com"
	DefaultLimit   = 20

	maxBodySize = 10 << 20
)

var (
	ErrProductNotFound = errors.New("product not found")
	// ErrUpstream marks failures of the product API, including an open breaker. They are retryable.
	ErrUpstream = errors.New("product api unavailable")
)

// Client reads products from the fake store API and the built-in local catalog.
type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
	sfg     singleflight.Group
	cache   kvstore.Backend
	log     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithCache keeps upstream list responses in backend, e.g. a kvstore.Redis with a TTL.
func WithCache(backend kvstore.Backend) Option {
	return func(c *Client) {
		c.cache = backend
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// BreakerSettings controls when upstream calls are short-circuited.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

func WithBreaker(bs BreakerSettings) Option {
	return func(c *Client) {
		c.cb = newBreaker(bs, c.log)
	}
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Named("catalog")
	if c.cb == nil {
		c.cb = newBreaker(BreakerSettings{}, c.log)
	}
	return c
}

func newBreaker(bs BreakerSettings, log *zap.Logger) *gobreaker.CircuitBreaker[[]byte] {
	if bs.ConsecutiveFailures == 0 {
		bs.ConsecutiveFailures = 5
	}
	if bs.OpenTimeout <= 0 {
		bs.OpenTimeout = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "product-api",
		Timeout: bs.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrProductNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
}

// FetchProducts returns up to limit upstream products followed by the local catalog.
// When the upstream call fails only the local catalog is returned.
func (c *Client) FetchProducts(ctx context.Context, limit int) []d.Product {
	if limit <= 0 {
		limit = DefaultLimit
	}
	path := "/products?limit=" + strconv.Itoa(limit)

	v, err, _ := c.sfg.Do(path, func() (interface{}, error) {
		var products []d.Product
		if err := c.getCachedJSON(ctx, path, &products); err != nil {
			return nil, err
		}
		return products, nil
	})
	if err != nil {
		c.log.Warn("product api failed, using local products only", zap.Error(err))
		return LocalProducts()
	}
	return merge(v.([]d.Product))
}

// FetchProductByID serves local products without a network call.
func (c *Client) FetchProductByID(ctx context.Context, id d.ID) (d.Product, error) {
	if p, ok := localByID(id); ok {
		return p, nil
	}
	var p d.Product
	if err := c.getJSON(ctx, "/products/"+url.PathEscape(id.String()), &p); err != nil {
		return d.Product{}, err
	}
	if !p.ID.Valid() {
		return d.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return p, nil
}

func (c *Client) FetchCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.getCachedJSON(ctx, "/products/categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) FetchByCategory(ctx context.Context, category string) ([]d.Product, error) {
	var products []d.Product
	if err := c.getJSON(ctx, "/products/category/"+url.PathEscape(category), &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []d.Product{}
	}
	return products, nil
}

func (c *Client) getCachedJSON(ctx context.Context, path string, dst any) error {
	key := cacheKey(path)
	if c.cache != nil {
		data, err := c.cache.Get(ctx, key)
		if err == nil && json.Unmarshal(data, dst) == nil {
			return nil
		}
		if err != nil && !errors.Is(err, kvstore.ErrNotFound) {
			c.log.Debug("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := decode(body, dst); err != nil {
		return err
	}
	if c.cache != nil {
		if err := c.cache.Set(ctx, key, body); err != nil {
			c.log.Debug("catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	return decode(body, dst)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.do(ctx, path)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return body, err
}

func (c *Client) do(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s returned %d", ErrUpstream, path, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUpstream, err)
	}
	return body, nil
}

// decode treats an empty or null body as a missing record, which is how the
// upstream API answers for unknown ids.
func decode(body []byte, dst any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ErrProductNotFound
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrUpstream, err)
	}
	return nil
}

func cacheKey(path string) string {
	return fmt.Sprintf("catalog:%s", path)
}
