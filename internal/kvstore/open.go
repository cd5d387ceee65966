package kvstore

import (
	"context"
	"fmt"
	"io"

	"github.com/fjod/go_cart/luxecart/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var nopCloser = closerFunc(func() error { return nil })

// Open connects the backend selected by cfg.StorageBackend. redisClient is only
// used by the redis backend. The returned closer releases the connection.
func Open(ctx context.Context, cfg *config.Config, redisClient redis.UniversalClient, log *zap.Logger) (Backend, io.Closer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.StorageBackend {
	case config.StorageMemory:
		return NewMemory(), nopCloser, nil
	case config.StorageRedis:
		if redisClient == nil {
			return nil, nil, fmt.Errorf("redis backend requires a redis client")
		}
		return NewRedis(redisClient), nopCloser, nil
	case config.StorageMongo:
		db, err := ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		m := NewMongo(db)
		if err := m.CreateIndexes(ctx, cfg.MongoTTL); err != nil {
			log.Warn("failed to create mongo indexes", zap.Error(err))
		}
		log.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))
		return m, closerFunc(func() error { return db.Client().Disconnect(context.Background()) }), nil
	case config.StorageSQLite:
		db, err := NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("opened SQLite store", zap.String("path", cfg.SQLitePath))
		return db, db, nil
	case config.StoragePostgres:
		pg, err := NewPostgres(Credentials{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DBName,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := pg.RunMigrations(); err != nil {
			_ = pg.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("connected to Postgres", zap.String("host", cfg.Postgres.Host))
		return pg, pg, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}
