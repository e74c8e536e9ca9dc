package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/cart"
	"github.com/wichananm65/storefront-backend/internal/config"
	"github.com/wichananm65/storefront-backend/internal/database"
	"github.com/wichananm65/storefront-backend/internal/order"
	"github.com/wichananm65/storefront-backend/internal/product"
)

// stores holds the repositories picked by STORE_DRIVER and CART_STORE.
type stores struct {
	products product.Repository
	carts    cart.Repository
	orders   order.Repository

	// sweepCarts is false when the backend expires carts itself (Redis key
	// TTL, Mongo TTL index).
	sweepCarts bool
	closers    []func(context.Context) error
}

func (s *stores) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i](ctx))
	}
	return errors.Join(errs...)
}

func openStores(ctx context.Context, cfg config.Config, log *zap.Logger) (*stores, error) {
	s := &stores{}

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func(context.Context) error { return db.Close() })
		if err := database.Migrate(ctx, db); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		s.products = product.NewPostgresRepository(db)
		s.carts = cart.NewPostgresRepository(db)
		s.orders = order.NewPostgresRepository(db)
		s.sweepCarts = true
		log.Info("using postgres store")

	case config.DriverMongo:
		client, db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, client.Disconnect)
		if err := database.EnsureIndexes(ctx, db, cfg.CartTTL); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		s.products = product.NewMongoRepository(db)
		s.carts = cart.NewMongoRepository(db)
		s.orders = order.NewMongoRepository(db)
		log.Info("using mongo store", zap.String("database", cfg.MongoDatabase))

	case config.DriverMemory:
		s.products = product.NewInMemoryRepository(product.SampleCatalog(time.Now().UTC()))
		s.carts = cart.NewInMemoryRepository()
		s.orders = order.NewInMemoryRepository()
		s.sweepCarts = true
		log.Warn("using in-memory store; data is lost on restart")

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if cfg.CartStore == config.DriverRedis {
		client, err := database.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		s.closers = append(s.closers, func(context.Context) error { return client.Close() })
		s.carts = cart.NewRedisRepository(client, cfg.CartTTL)
		s.sweepCarts = false
		log.Info("carts stored in redis", zap.String("addr", cfg.RedisAddr))
	}
	return s, nil
}
