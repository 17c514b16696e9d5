// Package database opens the configured storage backend and hands out the
// repositories and sequence generator built on it.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"krishi-backend/internal/cache"
	"krishi-backend/internal/config"
	"krishi-backend/internal/models"
	"krishi-backend/internal/sequence"
	"krishi-backend/internal/store"
	"krishi-backend/internal/store/memory"
	"krishi-backend/internal/store/mongodb"
	"krishi-backend/internal/store/postgres"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	fieldUsername      = store.Field{Column: "username", Path: "username"}
	fieldEmail         = store.Field{Column: "email", Path: "email"}
	fieldListingNumber = store.Field{Column: "listing_number", Path: "listingNumber"}
	fieldQuoteNumber   = store.Field{Column: "quotation_number", Path: "quotationNumber"}
)

type Stores struct {
	Users      store.Repository[models.User]
	Listings   store.Repository[models.CropListing]
	Quotations store.Repository[models.Quotation]
	AuditLogs  store.Repository[models.AuditLog]
	Sequence   sequence.Generator

	// Redis is nil unless REDIS_ADDR is set.
	Redis *redis.Client

	closers []func() error
	ping    func(context.Context) error
}

// Ping checks the primary backend and, when configured, Redis.
func (s *Stores) Ping(ctx context.Context) error {
	if s.ping != nil {
		if err := s.ping(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// Open connects to the backend named by cfg.DBDriver and, when configured,
// to Redis.
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	s := &Stores{}

	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(cfg.DatabaseDSN, cfg.IsDevelopment())
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() error { return postgres.Close(db) })
		s.ping = func(ctx context.Context) error { return postgres.Ping(ctx, db) }
		s.Users = postgres.NewRepository[models.User](db)
		s.Listings = postgres.NewRepository[models.CropListing](db)
		s.Quotations = postgres.NewRepository[models.Quotation](db)
		s.AuditLogs = postgres.NewRepository[models.AuditLog](db)
		s.Sequence = postgres.NewCounter(db)

	case config.DriverMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() error { return client.Disconnect(context.Background()) })
		s.ping = func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
		db := client.Database(cfg.MongoDatabase)
		s.Users = mongodb.NewRepository[models.User](db.Collection(mongodb.UsersCollection))
		s.Listings = mongodb.NewRepository[models.CropListing](db.Collection(mongodb.ListingsCollection))
		s.Quotations = mongodb.NewRepository[models.Quotation](db.Collection(mongodb.QuotationsCollection))
		s.AuditLogs = mongodb.NewRepository[models.AuditLog](db.Collection(mongodb.AuditCollection))
		s.Sequence = mongodb.NewCounter(db.Collection(mongodb.CountersCollection))

	case config.DriverMemory:
		s.Users = memory.New[models.User](fieldUsername, fieldEmail)
		s.Listings = memory.New[models.CropListing](fieldListingNumber)
		s.Quotations = memory.New[models.Quotation](fieldQuoteNumber)
		s.AuditLogs = memory.New[models.AuditLog]()
		s.Sequence = sequence.NewMemory()

	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.RedisAddr != "" {
		rdb, err := cache.ConnectRedis(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		switch {
		case err == nil:
			s.Redis = rdb
			s.closers = append(s.closers, rdb.Close)
		case cfg.SequenceSource == config.SequenceRedis:
			_ = s.Close()
			return nil, err
		default:
			slog.Warn("redis unavailable, stats cache disabled", slog.Any("error", err))
		}
	}
	if cfg.SequenceSource == config.SequenceRedis {
		s.Sequence = cache.NewSequence(s.Redis)
	}

	slog.Info("storage ready",
		slog.String("driver", cfg.DBDriver),
		slog.String("sequence", cfg.SequenceSource),
		slog.Bool("redis", s.Redis != nil),
	)
	return s, nil
}

// Migrate creates tables or indexes for the configured backend. It is a
// no-op for the memory driver.
func Migrate(ctx context.Context, cfg *config.Config) error {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(cfg.DatabaseDSN, cfg.IsDevelopment())
		if err != nil {
			return err
		}
		defer postgres.Close(db)
		return postgres.Migrate(ctx, db)

	case config.DriverMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		return mongodb.EnsureIndexes(ctx, client.Database(cfg.MongoDatabase))

	default:
		slog.Info("nothing to migrate", slog.String("driver", cfg.DBDriver))
		return nil
	}
}
