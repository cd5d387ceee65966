package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fjod/go_cart/luxecart/internal/catalog"
	"github.com/fjod/go_cart/luxecart/internal/config"
	"github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/fjod/go_cart/luxecart/internal/kvstore"
	"github.com/fjod/go_cart/luxecart/internal/logger"
	"github.com/fjod/go_cart/luxecart/internal/orders"
	"github.com/fjod/go_cart/luxecart/internal/wishlist"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	profileID string
	userID    string
	count     int
	status    string
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed LuxeCart storage with demo data",
	Long: `Writes demo orders and wishlist entries for one profile into the
configured storage backend (STORAGE_BACKEND), using the local catalog.`,
	SilenceUsage: true,
}

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Create demo orders from the local catalog",
	RunE:  runOrders,
}

var wishlistCmd = &cobra.Command{
	Use:   "wishlist",
	Short: "Save local catalog products to the wishlist",
	RunE:  runWishlist,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all orders and the user's wishlist",
	RunE:  runClear,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&profileID, "profile", "p", "", "profile id (X-Profile-ID)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", domain.GuestUserID.String(), "user id the data belongs to")
	_ = rootCmd.MarkPersistentFlagRequired("profile")

	ordersCmd.Flags().IntVarP(&count, "count", "n", 3, "number of orders")
	ordersCmd.Flags().StringVar(&status, "status", "", "fixed order status; random when empty")
	wishlistCmd.Flags().IntVarP(&count, "count", "n", 3, "number of products")

	rootCmd.AddCommand(ordersCmd, wishlistCmd, clearCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

type env struct {
	store *kvstore.Store
	log   *zap.Logger
	close func()
}

func open(ctx context.Context) (*env, error) {
	cfg := config.Load()
	log, err := logger.New(cfg.LogEnv, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	var redisClient redis.UniversalClient
	if cfg.StorageBackend == config.StorageRedis {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: os.Getenv("REDIS_PASSWORD")})
	}
	backend, closer, err := kvstore.Open(ctx, cfg, redisClient, log)
	if err != nil {
		return nil, err
	}
	if cfg.StorageBackend == config.StorageMemory {
		log.Warn("memory storage selected, seeded data is lost on exit")
	}

	store := kvstore.New(kvstore.Namespace(backend, kvstore.ProfilePrefix(profileID)), log)
	return &env{
		store: store,
		log:   log,
		close: func() {
			_ = closer.Close()
			if redisClient != nil {
				_ = redisClient.Close()
			}
			_ = log.Sync()
		},
	}, nil
}

func pick(n int) []domain.Product {
	products := catalog.LocalProducts()
	if n <= 0 || n > len(products) {
		n = len(products)
	}
	return products[:n]
}

func runOrders(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := open(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	fixed := domain.OrderStatus(status)
	if status != "" && !fixed.Valid() {
		return fmt.Errorf("unknown order status %q", status)
	}
	store := orders.NewStore(e.store, orders.WithLogger(e.log))

	products := pick(0)
	for i := 0; i < count; i++ {
		p := products[i%len(products)]
		order := store.CreateMockOrder(ctx, domain.ID(userID),
			[]domain.CartLineItem{domain.NewLineItem(p, i%3+1)},
			orders.MockOptions{Status: fixed})
		cmd.Printf("order %s  %-10s  %s\n", order.ID, order.Status, order.Total.StringFixed(2))
	}
	return nil
}

func runWishlist(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := open(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	store := wishlist.NewStore(e.store, e.log)
	var items []domain.WishlistEntry
	for _, p := range pick(count) {
		items = store.AddItem(ctx, domain.ID(userID), domain.NewWishlistEntry(p))
	}
	cmd.Printf("wishlist of %s holds %d products\n", userID, len(items))
	return nil
}

func runClear(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := open(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	orders.NewStore(e.store, orders.WithLogger(e.log)).ClearOrders(ctx)
	wishlist.NewStore(e.store, e.log).Clear(ctx, domain.ID(userID))
	cmd.Printf("cleared orders and wishlist of %s\n", userID)
	return nil
}
