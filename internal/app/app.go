// Package app assembles the service from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/embld/contentcore/auth"
	"github.com/embld/contentcore/cache"
	"github.com/embld/contentcore/config"
	"github.com/embld/contentcore/health"
	"github.com/embld/contentcore/internal/server"
	"github.com/embld/contentcore/invalidation"
	"github.com/embld/contentcore/mutation"
	"github.com/embld/contentcore/observe"
	"github.com/embld/contentcore/resilience"
	"github.com/embld/contentcore/resources"
	"github.com/embld/contentcore/store"
)

// App holds the assembled service.
type App struct {
	Config   *config.Config
	Observer observe.Observer
	Logger   observe.Logger
	Store    store.Store
	Cache    *cache.MemoryCache
	Bus      *invalidation.Bus
	Resolver *auth.Resolver
	Catalog  *resources.Catalog
	Health   *health.Aggregator
	Server   *server.Server

	pool *pgxpool.Pool
}

// New builds every component described by cfg. The caller must Close the
// returned App.
func New(ctx context.Context, cfg *config.Config, version string) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	a.Observer, err = observe.NewObserver(ctx, observe.Config{
		ServiceName: cfg.Observe.ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   cfg.Observe.TracingExporter != "none" && cfg.Observe.TracingExporter != "",
			Exporter:  cfg.Observe.TracingExporter,
			SamplePct: cfg.Observe.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  true,
			Exporter: cfg.Observe.MetricsExporter,
		},
		Logging: observe.LoggingConfig{Enabled: true, Level: cfg.Observe.LogLevel},
	})
	if err != nil {
		return nil, err
	}
	a.Logger = a.Observer.Logger()

	base, pinger, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	exec := a.executor()
	a.Store = store.WithResilience(base, exec)

	cacheMetrics, err := observe.NewCacheMetrics(a.Observer.Meter())
	if err != nil {
		return nil, err
	}
	a.Cache = cache.NewMemoryCache(cfg.Cache.Policy(),
		cache.WithRecorder(cacheMetrics),
		cache.WithLogger(a.Logger),
		cache.WithFetchTimeout(cfg.Cache.FetchTimeout),
	)

	a.Bus = invalidation.NewBus(invalidation.WithLogger(a.Logger))
	if _, err = a.Bus.Subscribe(invalidation.Evict(a.Cache)); err != nil {
		return nil, err
	}

	a.Resolver = auth.NewResolver(auth.ResolverConfig{
		Authenticator: a.authenticator(),
		AdminLookup: auth.StoreAdminLookup{
			Store:  a.Store,
			Table:  cfg.Auth.AdminTable,
			Column: cfg.Auth.AdminColumn,
		},
		Logger: a.Logger,
	})

	mutationMetrics, err := observe.NewMetrics(a.Observer.Meter(), "mutation")
	if err != nil {
		return nil, err
	}
	coord, err := mutation.NewCoordinator(mutation.Config{
		Store:     a.Store,
		Publisher: a.Bus,
		Logger:    a.Logger,
		Tracer:    observe.NewTracer(a.Observer.Tracer()),
		Metrics:   mutationMetrics,
	})
	if err != nil {
		return nil, err
	}

	readMW, err := observe.MiddlewareFromObserver(a.Observer, "resources")
	if err != nil {
		return nil, err
	}
	a.Catalog, err = resources.NewCatalog(resources.Config{
		Cache:       a.Cache,
		Store:       a.Store,
		Coordinator: coord,
		Middleware:  readMW,
	})
	if err != nil {
		return nil, err
	}

	a.Health = health.NewAggregator()
	a.Health.Register(health.NewStoreChecker(pinger, health.StoreCheckerConfig{Breaker: exec.Breaker()}))
	a.Health.Register(health.NewCacheChecker(a.Cache, health.CacheCheckerConfig{}))

	var metrics http.Handler
	if cfg.Observe.MetricsExporter == "prometheus" {
		metrics = promhttp.Handler()
	}
	a.Server, err = server.New(server.Config{
		Catalog:  a.Catalog,
		Resolver: a.Resolver,
		Health:   a.Health,
		Metrics:  metrics,
		Logger:   a.Logger,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context) (store.Store, store.Pinger, error) {
	switch a.Config.Store.Driver {
	case config.DriverPostgres:
		pool, err := store.Connect(ctx, a.Config.Store.URL)
		if err != nil {
			return nil, nil, err
		}
		a.pool = pool
		if a.Config.Store.Migrate {
			if err := store.Migrate(ctx, pool); err != nil {
				return nil, nil, err
			}
			a.Logger.Info(ctx, "migrations applied")
		}
		pg, err := store.NewPostgresStore(pool)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg, nil
	case config.DriverMemory:
		mem := store.NewMemoryStore(resources.Tables()...)
		a.Logger.Warn(ctx, "using in-memory store; data is lost on exit")
		return mem, mem, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, a.Config.Store.Driver)
	}
}

func (a *App) executor() *resilience.Executor {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Threshold: a.Config.Store.BreakerThreshold,
		Cooldown:  a.Config.Store.BreakerCooldown,
		IsFailure: store.IsUnavailable,
		OnStateChange: func(from, to resilience.State) {
			a.Logger.Warn(context.Background(), "store circuit state changed",
				observe.F("from", from.String()),
				observe.F("to", to.String()),
			)
		},
	})
	return resilience.NewExecutor(
		resilience.WithBreaker(breaker),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts: a.Config.Store.RetryAttempts,
			Jitter:      true,
			RetryIf:     store.IsTransient,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				a.Logger.Warn(context.Background(), "retrying store read",
					observe.F("attempt", attempt),
					observe.F("delay_ms", delay.Milliseconds()),
					observe.Err(err),
				)
			},
		})),
		resilience.WithTimeout(a.Config.Store.Timeout),
	)
}

func (a *App) authenticator() auth.Authenticator {
	jwtCfg := auth.JWTConfig{
		Issuer:   a.Config.Auth.Issuer,
		Audience: a.Config.Auth.Audience,
		Leeway:   a.Config.Auth.Leeway,
	}
	if a.Config.Auth.JWKSURL != "" {
		keys := auth.NewJWKSKeyProvider(auth.JWKSConfig{URL: a.Config.Auth.JWKSURL})
		jwtCfg.Methods = []string{"RS256", "RS384", "RS512"}
		return auth.NewJWTAuthenticator(jwtCfg, keys)
	}
	jwtCfg.Methods = []string{"HS256", "HS384", "HS512"}
	return auth.NewJWTAuthenticator(jwtCfg, auth.NewStaticKeyProvider([]byte(a.Config.Auth.JWTSecret)))
}

// HTTPServer returns an http.Server for the configured listener.
func (a *App) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              a.Config.HTTP.Addr,
		Handler:           a.Server,
		ReadTimeout:       a.Config.HTTP.ReadTimeout,
		ReadHeaderTimeout: a.Config.HTTP.ReadTimeout,
		WriteTimeout:      a.Config.HTTP.WriteTimeout,
	}
}

// Run warms the caches and serves until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.Catalog.Warm(ctx); err != nil {
		a.Logger.Warn(ctx, "cache warm-up failed", observe.Err(err))
	}
	a.Logger.Info(ctx, "listening", observe.F("addr", a.Config.HTTP.Addr))
	return server.ListenAndServe(ctx, a.HTTPServer(), a.Config.HTTP.ShutdownTimeout)
}

// Close releases the store pool and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.pool != nil {
		a.pool.Close()
	}
	if a.Observer != nil {
		if err := a.Observer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
