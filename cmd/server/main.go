package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/luxecart/internal/cart"
	"github.com/fjod/go_cart/luxecart/internal/catalog"
	"github.com/fjod/go_cart/luxecart/internal/config"
	"github.com/fjod/go_cart/luxecart/internal/domain"
	h "github.com/fjod/go_cart/luxecart/internal/http"
	"github.com/fjod/go_cart/luxecart/internal/kvstore"
	"github.com/fjod/go_cart/luxecart/internal/logger"
	"github.com/fjod/go_cart/luxecart/internal/orders"
	"github.com/fjod/go_cart/luxecart/internal/profile"
	"github.com/fjod/go_cart/luxecart/internal/realtime"
	"github.com/fjod/go_cart/luxecart/internal/session"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogEnv, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	ctx := context.Background()

	var redisClient redis.UniversalClient
	if cfg.StorageBackend == config.StorageRedis || cfg.BroadcastTransport == config.TransportRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("redis connection failed", zap.Error(err))
		}
		log.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))
	}

	backend, closeBackend, err := kvstore.Open(ctx, cfg, redisClient, log)
	if err != nil {
		log.Fatal("failed to open storage", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	defer func() { _ = closeBackend.Close() }()

	// one transport per process, shared by the sync channel and event streams
	transport := realtime.Share(transportOpener(cfg, redisClient, log))
	defer transport.Close()
	channel := realtime.NewBroadcast(realtime.ChannelName, transport.Opener(), log)
	defer channel.Close()

	remote := realtime.NewRemote(realtime.FirestoreConfig{
		ProjectID:    cfg.FirestoreProjectID,
		EmulatorHost: cfg.FirestoreEmulatorHost,
		Collection:   cfg.FirestoreCollection,
	}, log)
	defer remote.Close()
	if remote.Enabled() {
		log.Info("remote cart sync enabled", zap.String("project_id", cfg.FirestoreProjectID))
	}

	orderOpts := []orders.Option{}
	if status := domain.OrderStatus(cfg.DemoOrderStatus); status.Valid() {
		orderOpts = append(orderOpts, orders.WithStatusPicker(orders.FixedStatus(status)))
	}
	profiles := profile.NewRegistry(backend,
		profile.WithChannel(channel),
		profile.WithRemote(remote),
		profile.WithOrderOptions(orderOpts...),
		profile.WithSessionOptions(session.WithDelays(cfg.LoginDelay, cfg.RegisterDelay)),
		profile.WithLogger(log),
	)
	defer profiles.Close()

	// profiles with no live cart in this process still pick up changes made elsewhere
	replicator := cart.NewReplicator(channel, profiles.Store, log, cart.WithGuard(profiles.UnlessLive))
	stopReplication := replicator.Run(ctx)
	defer stopReplication()

	catalogOpts := []catalog.Option{catalog.WithLogger(log)}
	if redisClient != nil {
		catalogOpts = append(catalogOpts, catalog.WithCache(kvstore.NewRedis(redisClient, kvstore.WithTTL(cfg.CatalogCacheTTL))))
	}
	products := catalog.New(cfg.ProductAPIURL, catalogOpts...)

	router := h.NewRouter(h.Deps{
		Profiles:       profiles,
		Products:       products,
		Events:         transport.Opener(),
		RequestTimeout: cfg.RequestTimeout,
		CheckoutDelay:  cfg.CheckoutDelay,
		MaxBodySize:    cfg.MaxRequestBodySize,
		Log:            log,
	})

	srv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     otelhttp.NewHandler(router, "luxecart"),
		ReadTimeout: 10 * time.Second,
		// no write timeout: cart events are streamed
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("LuxeCart starting",
			zap.String("port", cfg.HTTPPort),
			zap.String("storage", cfg.StorageBackend),
			zap.String("transport", cfg.BroadcastTransport))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

func transportOpener(cfg *config.Config, redisClient redis.UniversalClient, log *zap.Logger) realtime.Opener {
	switch cfg.BroadcastTransport {
	case config.TransportRedis:
		return realtime.RedisOpener(redisClient)
	case config.TransportKafka:
		return realtime.KafkaOpener(log, cfg.KafkaBrokers...)
	case config.TransportMemory:
		return realtime.NewMemoryHub().Opener()
	}
	log.Warn("unknown broadcast transport, cart sync disabled", zap.String("transport", cfg.BroadcastTransport))
	return realtime.Unavailable
}
