package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"

	"github.com/MikhailRaia/urlshort/internal/auth"
	"github.com/MikhailRaia/urlshort/internal/cache"
	"github.com/MikhailRaia/urlshort/internal/config"
	"github.com/MikhailRaia/urlshort/internal/events"
	"github.com/MikhailRaia/urlshort/internal/handler"
	"github.com/MikhailRaia/urlshort/internal/metrics"
	"github.com/MikhailRaia/urlshort/internal/middleware"
	"github.com/MikhailRaia/urlshort/internal/proto"
	"github.com/MikhailRaia/urlshort/internal/scheduler"
	"github.com/MikhailRaia/urlshort/internal/service"
	"github.com/MikhailRaia/urlshort/internal/storage"
	"github.com/MikhailRaia/urlshort/internal/storage/file"
	"github.com/MikhailRaia/urlshort/internal/storage/memory"
	"github.com/MikhailRaia/urlshort/internal/storage/postgres"
	"github.com/MikhailRaia/urlshort/internal/storage/sqlite"
	"github.com/MikhailRaia/urlshort/internal/worker"
)

const (
	shutdownTimeout = 10 * time.Second
	limiterMaxIdle  = 10 * time.Minute
)

type closableCache interface {
	service.Cache
	Close() error
}

type App struct {
	config     *config.Config
	storage    storage.URLStorage
	cache      closableCache
	publisher  events.Publisher
	clicks     *worker.ClickWorkerPool
	metrics    *metrics.Metrics
	scheduler  *scheduler.Scheduler
	handler    http.Handler
	grpcServer *grpc.Server

	mu        sync.Mutex
	addr      string
	closeOnce sync.Once
}

// NewApp wires storage, cache, events, metrics and transports from cfg.
// Connection failures of any configured backend abort construction.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		config:    cfg,
		storage:   store,
		cache:     cache.Noop{},
		publisher: events.Noop{},
	}

	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.CacheTTL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.cache = redisCache
		log.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.CacheTTL).Msg("Redis cache enabled")
	}

	if cfg.AMQPURL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.publisher = publisher
		log.Info().Str("queue", events.Queue).Msg("AMQP event publishing enabled")
	}

	a.metrics = metrics.New()

	a.clicks = worker.NewClickWorkerPool(store, worker.DefaultConfig())
	a.clicks.Start()
	a.metrics.WatchClickQueue(a.clicks)

	urlService := service.NewURLService(store, cfg.BaseURL,
		service.WithCache(a.cache),
		service.WithPublisher(a.publisher),
		service.WithClickRecorder(a.clicks),
		service.WithObserver(a.metrics),
		service.WithCodeLength(cfg.CodeLength),
	)

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)

	opts := []handler.Option{
		handler.WithMetrics(a.metrics),
		handler.WithRateLimiter(limiter),
		handler.WithTrustedProxy(cfg.TrustProxy),
	}
	if cfg.AdminSecret != "" {
		opts = append(opts, handler.WithAdminAuth(middleware.NewAdminAuth(auth.NewJWTService(cfg.AdminSecret))))
		log.Info().Msg("Management API enabled")
	}
	a.handler = handler.NewHandler(urlService, opts...).RegisterRoutes()

	if cfg.GRPCAddress != "" {
		a.grpcServer = grpc.NewServer(grpc.ChainUnaryInterceptor(middleware.UnaryRecoverer, middleware.UnaryLogger))
		proto.RegisterShortenerServer(a.grpcServer, handler.NewShortenerGRPCServer(urlService))
	}

	a.scheduler = scheduler.New(cfg.StatsInterval)
	if err := a.scheduler.AddStatsJob(urlService, a.metrics); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.scheduler.AddPruneJob(limiter, limiterMaxIdle); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func newStorage(ctx context.Context, cfg *config.Config) (storage.URLStorage, error) {
	switch {
	case cfg.DatabaseDSN != "":
		store, err := postgres.NewStorage(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info().Msg("Using PostgreSQL storage")
		return store, nil
	case cfg.SQLitePath != "":
		store, err := sqlite.NewStorage(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("Using SQLite storage")
		return store, nil
	case cfg.FileStoragePath != "":
		store, err := file.NewStorage(cfg.FileStoragePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open file storage: %w", err)
		}
		log.Info().Str("path", cfg.FileStoragePath).Msg("Using file storage")
		return store, nil
	default:
		log.Info().Msg("Using in-memory storage")
		return memory.NewStorage(), nil
	}
}

// Handler returns the HTTP router.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Addr returns the bound HTTP address once Run is listening.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// Run serves HTTP (and gRPC when configured) until ctx is cancelled, then
// shuts everything down.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	ln, err := net.Listen("tcp", a.config.ServerAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.config.ServerAddress, err)
	}

	_, port, _ := net.SplitHostPort(ln.Addr().String())
	a.mu.Lock()
	a.addr = ln.Addr().String()
	a.mu.Unlock()

	server := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	log.Info().Msgf("server is running on %s", port)

	if a.grpcServer != nil {
		grpcLn, err := net.Listen("tcp", a.config.GRPCAddress)
		if err != nil {
			_ = server.Close()
			return fmt.Errorf("failed to listen on %s: %w", a.config.GRPCAddress, err)
		}

		go func() {
			if err := a.grpcServer.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
		log.Info().Str("addr", grpcLn.Addr().String()).Msg("gRPC server is running")
	}

	a.scheduler.Start()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	case runErr = <-errCh:
		log.Error().Err(runErr).Msg("Server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	return runErr
}

// Close releases all resources. Pending clicks are flushed before the
// storage is closed.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.grpcServer != nil {
			a.grpcServer.GracefulStop()
		}
		if a.scheduler != nil {
			a.scheduler.Stop()
		}
		if a.clicks != nil {
			if err := a.clicks.Shutdown(shutdownTimeout); err != nil {
				log.Error().Err(err).Msg("Click worker shutdown failed")
			}
		}
		if err := a.publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close event publisher")
		}
		if err := a.cache.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close cache")
		}
		if err := a.storage.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close storage")
		}
	})
}
