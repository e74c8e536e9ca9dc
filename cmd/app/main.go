package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wichananm65/storefront-backend/internal/admin"
	"github.com/wichananm65/storefront-backend/internal/apperror"
	"github.com/wichananm65/storefront-backend/internal/cart"
	"github.com/wichananm65/storefront-backend/internal/checkout"
	"github.com/wichananm65/storefront-backend/internal/config"
	"github.com/wichananm65/storefront-backend/internal/inventory"
	"github.com/wichananm65/storefront-backend/internal/logger"
	"github.com/wichananm65/storefront-backend/internal/messaging"
	"github.com/wichananm65/storefront-backend/internal/messaging/kafka"
	"github.com/wichananm65/storefront-backend/internal/order"
	"github.com/wichananm65/storefront-backend/internal/pricing"
	"github.com/wichananm65/storefront-backend/internal/product"
	"github.com/wichananm65/storefront-backend/internal/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(cfg.IsDevelopment())
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			log.Warn("close stores", zap.Error(err))
		}
	}()

	var publisher messaging.Publisher = messaging.NewLogPublisher(log)
	if len(cfg.KafkaBrokers) > 0 {
		publisher = kafka.NewPublisher(cfg.KafkaBrokers)
		log.Info("publishing events to kafka", zap.Strings("brokers", cfg.KafkaBrokers))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("close publisher", zap.Error(err))
		}
	}()

	engine := pricing.New(cfg.ShippingFlat, cfg.TaxRate)

	productService := product.NewService(st.products, log)
	cartService := cart.NewService(st.carts, productService, engine, cfg.CartTTL, log)
	orderService := order.NewService(st.orders, publisher, log)
	checkoutService := checkout.NewService(cartService, inventory.NewReconciler(productService, log),
		orderService, engine, publisher, log)

	app := newApp(cfg, log)

	productHandler := product.NewHandler(productService, cfg.AllowResetProducts)
	productHandler.RegisterPublicRoutes(app)

	resolver := session.NewResolver(!cfg.IsDevelopment()).Handler()
	app.Use("/api/v1/cart", resolver)
	app.Use("/api/v1/checkout", resolver)
	cart.NewHandler(cartService).RegisterSessionRoutes(app)
	checkout.NewHandler(checkoutService).RegisterSessionRoutes(app)

	auth := admin.NewAuthenticator(cfg.AdminEmail, cfg.AdminPasswordHash, cfg.JWTSecret)
	admin.NewHandler(auth, productService, orderService).Register(app, productHandler, order.NewHandler(orderService))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", zap.String("addr", cfg.Addr), zap.String("store", cfg.StoreDriver), zap.String("cart_store", cfg.CartStore))
		return app.Listen(cfg.Addr)
	})
	if st.sweepCarts {
		sweeper := cart.NewSweeper(st.carts, cfg.CartTTL, cfg.CartSweepInterval, log)
		g.Go(func() error { return sweeper.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newApp(cfg config.Config, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: !cfg.IsDevelopment(),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
			}
			return apperror.Respond(c, err)
		},
	})

	app.Use(recover.New())
	app.Use(logger.Middleware(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + admin.EmailHeader,
		AllowCredentials: cfg.CORSOrigins != "*",
	}))
	app.Use(requestTimeout(cfg.RequestTimeout))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	return app
}

// requestTimeout bounds the context handed to services through UserContext.
func requestTimeout(d time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if d <= 0 {
			return c.Next()
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), d)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}
