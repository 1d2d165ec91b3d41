// Package app wires the order API from configuration.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/order-factory/internal/auth"
	"github.com/xenking/order-factory/internal/domain/order"
	"github.com/xenking/order-factory/internal/handler"
	"github.com/xenking/order-factory/internal/kafka"
	"github.com/xenking/order-factory/internal/outbox"
	"github.com/xenking/order-factory/internal/storage/postgres"
	"github.com/xenking/order-factory/pkg/health"
	"github.com/xenking/order-factory/pkg/httpmiddleware"
)

// Run creates all dependencies, serves the API and relays outbox events until
// ctx is cancelled, then shuts down gracefully. It is the single wiring point
// for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	producer, err := kafka.NewPublisher(kafka.Config{
		Brokers: cfg.Kafka.Brokers,
		Topics: map[string]string{
			string(order.EventOrderCreated):           cfg.Kafka.OrdersTopic,
			string(order.EventSearchReindexRequested): cfg.Kafka.ReindexTopic,
		},
		DefaultTopic: cfg.Kafka.OrdersTopic,
	})
	if err != nil {
		return errors.Wrap(err, "create kafka publisher")
	}
	defer producer.Close()

	factoryCfg, err := cfg.Factory.OrderConfig()
	if err != nil {
		return errors.Wrap(err, "factory config")
	}
	factory, err := order.NewFactory(factoryCfg, order.Deps{
		Store:          postgres.NewStore(pool),
		Numbers:        postgres.NewNumberGenerator(pool, cfg.Factory.NumberPrefix),
		Identity:       auth.ContextProvider{},
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create order factory")
	}

	relay := outbox.NewRelay(postgres.NewOutboxSource(pool), producer, lg.Named("outbox"), outbox.Config{
		Interval:  cfg.Outbox.Interval,
		BatchSize: cfg.Outbox.BatchSize,
	})

	probes := health.New(
		health.Check{Name: "postgres", Kind: health.Readiness, Timeout: 5 * time.Second, Func: health.PingCheck("postgres", pool)},
		health.Check{Name: "kafka", Kind: health.Readiness, Timeout: 5 * time.Second, Func: health.PingCheck("kafka", producer)},
		health.Check{Name: "goroutines", Kind: health.Liveness, Func: health.GoroutineCountCheck(10000)},
	)

	limiter := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
		Max:     cfg.RateLimit.Max,
		Window:  cfg.RateLimit.Window,
		KeyFunc: auth.RateLimitKey,
	})

	r := chi.NewRouter()
	r.Use(
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.RequestID(),
		httpmiddleware.Recovery(),
		httpmiddleware.LogRequests(),
	)
	r.Method(http.MethodGet, "/livez", probes.Handler(health.Liveness))
	r.Method(http.MethodGet, "/readyz", probes.Handler(health.Readiness))
	r.Route("/api", func(r chi.Router) {
		r.Use(
			auth.Middleware(auth.NewVerifier([]byte(cfg.Auth.JWTSecret))),
			limiter.Middleware(),
		)
		handler.NewHandler(factory).Routes(r)
	})

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           httpmiddleware.Wrap(r, httpmiddleware.Instrument("order-api", m)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return probes.Run(gctx, 10*time.Second) })
	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return limiter.Run(gctx) })
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		probes.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	probes.SetReady(true)

	return g.Wait()
}
