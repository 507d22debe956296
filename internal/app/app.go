package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/bookie/internal/catalog/googlebooks"
	"github.com/xenking/bookie/internal/domain/cart"
	"github.com/xenking/bookie/internal/domain/checkout"
	"github.com/xenking/bookie/internal/domain/order"
	"github.com/xenking/bookie/internal/domain/payment"
	"github.com/xenking/bookie/internal/handler"
	"github.com/xenking/bookie/internal/payment/sandbox"
	"github.com/xenking/bookie/internal/payment/stripe"
	"github.com/xenking/bookie/internal/storage/memory"
	"github.com/xenking/bookie/internal/storage/postgres"
	"github.com/xenking/bookie/internal/storage/redis"
	"github.com/xenking/bookie/pkg/health"
	"github.com/xenking/bookie/pkg/httpmiddleware"
)

const healthInterval = 10 * time.Second

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("orders", cfg.Storage.Orders),
		zap.String("carts", cfg.Storage.Carts),
	)

	hs := health.New()
	hs.Add(health.Liveness, "goroutines", time.Second, health.GoroutineCheck(10000))

	orderRepo, closeOrders, err := openOrders(ctx, cfg, hs)
	if err != nil {
		return err
	}
	defer closeOrders()

	carts, closeCarts, err := openCarts(ctx, cfg, hs)
	if err != nil {
		return err
	}
	defer closeCarts()

	shipping, err := cfg.Shipping.Policy()
	if err != nil {
		return err
	}
	orders, err := order.NewService(orderRepo, shipping,
		order.WithDefaultCurrency(cfg.Shipping.Currency),
		order.WithMeterProvider(m.MeterProvider()),
		order.WithTracerProvider(m.TracerProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	tokens := handler.NewTokenAuthority(cfg.Auth.Secret, cfg.Auth.Issuer)
	h := handler.NewHandler(handler.Deps{
		Catalog: googlebooks.New(googlebooks.Config{
			BaseURL: cfg.Catalog.BaseURL,
			APIKey:  cfg.Catalog.APIKey,
			Timeout: cfg.Catalog.Timeout,
		}),
		Carts:    carts,
		Notifier: cart.LogNotifier{},
		Checkout: checkout.NewService(orders, newTokenizer(lg, cfg.Payment)),
		Orders:   orders,
		Sessions: tokens,
	})

	limiter := httpmiddleware.NewRateLimiter(httpmiddleware.RateLimitConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	})

	r := chi.NewRouter()
	r.Use(httpmiddleware.LogRequests())
	r.Get("/livez", hs.LiveHandler)
	r.Get("/readyz", hs.ReadyHandler)
	h.Routes(r)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(
			httpmiddleware.Wrap(r,
				httpmiddleware.Recovery(),
				httpmiddleware.RequestID(lg),
				httpmiddleware.CORS(httpmiddleware.CORSConfig{
					AllowOrigins:     cfg.CORS.Origins,
					AllowHeaders:     []string{"Content-Type", "Authorization"},
					ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
					AllowCredentials: cfg.CORS.AllowCredentials,
					MaxAge:           86400,
				}),
				limiter.Middleware(),
			),
			"bookie-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

	// Background workers outlive ctx until the server has drained.
	bgCtx, stopBackground := context.WithCancel(context.WithoutCancel(ctx))
	defer stopBackground()
	g, gctx := errgroup.WithContext(bgCtx)

	g.Go(func() error { return hs.Run(gctx, healthInterval) })
	g.Go(func() error { return limiter.RunEviction(gctx) })
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		defer stopBackground()
		select {
		case <-ctx.Done():
		case <-gctx.Done():
			return nil
		}

		hs.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		select {
		case <-time.After(cfg.Graceful.ReadinessDelay):
		case <-gctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})

	hs.SetReady(true)
	return g.Wait()
}

func openOrders(ctx context.Context, cfg *Config, hs *health.Health) (order.Repository, func(), error) {
	if cfg.Storage.Orders == BackendMemory {
		return memory.NewOrderRepository(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, errors.Wrap(err, "run migrations")
	}
	hs.Add(health.Readiness, "postgres", 5*time.Second, health.PingCheck("postgres", pool))
	return postgres.NewOrderRepository(pool), pool.Close, nil
}

func openCarts(ctx context.Context, cfg *Config, hs *health.Health) (cart.Storage, func(), error) {
	if cfg.Storage.Carts == BackendMemory {
		return memory.NewCartStorage(), func() {}, nil
	}

	opts := &goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if cfg.Redis.URL != "" {
		parsed, err := goredis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "parse redis url")
		}
		opts = parsed
	}
	client := goredis.NewClient(opts)
	storage := redis.NewCartStorage(client, cfg.Redis.CartTTL)
	if err := storage.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, errors.Wrap(err, "connect redis")
	}
	hs.Add(health.Readiness, "redis", 2*time.Second, health.PingCheck("redis", storage))
	return storage, func() { _ = client.Close() }, nil
}

func newTokenizer(lg *zap.Logger, cfg PaymentConfig) payment.Tokenizer {
	if cfg.SecretKey == "" {
		lg.Warn("Payment secret key not set, using sandbox tokenizer")
		return sandbox.Tokenizer{}
	}
	return stripe.New(stripe.Config{
		BaseURL:   cfg.BaseURL,
		SecretKey: cfg.SecretKey,
		Timeout:   cfg.Timeout,
	})
}
