package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"

	TransportMemory = "memory"
	TransportRedis  = "redis"
	TransportKafka  = "kafka"
)

type Config struct {
	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	LogEnv   string
	LogLevel string

	StorageBackend string
	RedisAddr      string
	MongoURI       string
	MongoDatabase  string
	MongoTTL       time.Duration
	Postgres       PostgresConfig
	SQLitePath     string

	BroadcastTransport string
	KafkaBrokers       []string

	FirestoreProjectID    string
	FirestoreEmulatorHost string
	FirestoreCollection   string

	ProductAPIURL   string
	CatalogCacheTTL time.Duration

	LoginDelay      time.Duration
	RegisterDelay   time.Duration
	CheckoutDelay   time.Duration
	DemoOrderStatus string
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// Load reads the configuration from the environment. A .env file in the working
// directory is applied first without overriding variables that are already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB

		LogEnv:   getEnv("LOG_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageMemory)),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:  getEnv("MONGO_DATABASE", "luxecart"),
		MongoTTL:       getDuration("MONGO_TTL", 0),
		Postgres: PostgresConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "luxecart"),
		},
		SQLitePath: getEnv("SQLITE_PATH", "luxecart.db"),

		BroadcastTransport: strings.ToLower(getEnv("BROADCAST_TRANSPORT", TransportMemory)),
		KafkaBrokers:       getList("KAFKA_BROKERS", []string{"localhost:9092"}),

		FirestoreProjectID:    getEnv("FIRESTORE_PROJECT_ID", ""),
		FirestoreEmulatorHost: getEnv("FIRESTORE_EMULATOR_HOST", ""),
		FirestoreCollection:   getEnv("FIRESTORE_COLLECTION", "carts"),

		ProductAPIURL:   getEnv("PRODUCT_API_URL", "https://fakestoreapi.com"),
		CatalogCacheTTL: getDuration("CATALOG_CACHE_TTL", 15*time.Minute),

		LoginDelay:      getDuration("LOGIN_DELAY", time.Second),
		RegisterDelay:   getDuration("REGISTER_DELAY", 1500*time.Millisecond),
		CheckoutDelay:   getDuration("CHECKOUT_DELAY", 1400*time.Millisecond),
		DemoOrderStatus: getEnv("DEMO_ORDER_STATUS", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

func getList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
