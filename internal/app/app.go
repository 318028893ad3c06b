package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kirinyoku/cinebook/internal/auth"
	"github.com/kirinyoku/cinebook/internal/config"
	"github.com/kirinyoku/cinebook/internal/metrics"
	"github.com/kirinyoku/cinebook/internal/notify"
	"github.com/kirinyoku/cinebook/internal/payment"
	"github.com/kirinyoku/cinebook/internal/postgres"
	"github.com/kirinyoku/cinebook/internal/realtime"
	"github.com/kirinyoku/cinebook/internal/redis"
	"github.com/kirinyoku/cinebook/internal/repository"
	"github.com/kirinyoku/cinebook/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/cinebook/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
	"github.com/kirinyoku/cinebook/internal/service"
	"github.com/kirinyoku/cinebook/internal/service/admin"
	"github.com/kirinyoku/cinebook/internal/service/booking"
	"github.com/kirinyoku/cinebook/internal/service/hold"
	httpgin "github.com/kirinyoku/cinebook/internal/transport/http/gin"
	"github.com/kirinyoku/cinebook/internal/worker"
	"golang.org/x/sync/errgroup"
)

type closer interface {
	Close() error
}

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	services   *service.Services
	hub        *realtime.Hub
	relay      *realtime.Relay
	sweeper    *worker.Sweeper
	notifier   *notify.Notifier
	closers    []func()
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx := context.Background()
	a := &App{cfg: cfg, logger: logger}

	metrics.Register()

	// Storage
	var store repository.TxRunner
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("using in-memory storage, state is lost on restart")
		store = memory.NewStore()
	default:
		pool, err := postgres.New(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN(),
			MaxConns:        cfg.Postgres.MaxConns,
			ConnectAttempts: cfg.Server.ConnectAttempts,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			a.close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
		store = postgresrepo.NewStore(pool)
	}

	// Redis is optional: without it there is no cache, rate limit,
	// idempotency or cross-instance fan-out.
	var (
		rdb     *goredis.Client
		cache   *redisrepo.Cache
		limiter *redisrepo.SlidingWindowLimiter
		idem    *redisrepo.IdempotencyStore
	)
	if cfg.Redis.Enabled {
		var err error
		rdb, err = redis.New(ctx, redis.Config{
			Addr:            cfg.Redis.Addr,
			Password:        cfg.Redis.Password,
			DB:              cfg.Redis.DB,
			PoolSize:        cfg.Redis.PoolSize,
			ConnectAttempts: cfg.Server.ConnectAttempts,
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })

		cache = redisrepo.NewCache(rdb)
		limiter = redisrepo.NewSlidingWindowLimiter(rdb, redisrepo.PrefixRateLimit("bookings"), cfg.Booking.RatePerMinute, time.Minute)
		idem = redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)
	}

	// Notifications
	dispatcher, err := newDispatcher(cfg.Notify, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize notifications: %w", err)
	}
	if c, ok := dispatcher.(closer); ok {
		a.closers = append(a.closers, func() { _ = c.Close() })
	}
	a.notifier = notify.NewNotifier(dispatcher, logger.With(slog.String("component", "notify")), 5*time.Second)

	// Realtime
	a.hub = realtime.NewHub(logger.With(slog.String("component", "hub")), realtime.HubConfig{
		MessagesPerSecond: cfg.Realtime.MessagesPerSecond,
		Burst:             cfg.Realtime.Burst,
		CanSubscribe: func(ctx context.Context, showtimeID int64) error {
			return a.services.Query.CanSubscribe(ctx, showtimeID)
		},
	})
	var bcast realtime.Broadcaster = a.hub
	if rdb != nil {
		a.relay = realtime.NewRelay(a.hub, redisrepo.NewPubSub(rdb), logger.With(slog.String("component", "relay")))
		bcast = a.relay
	}

	// Services
	a.services = service.NewServices(service.Deps{
		Store:       store,
		Cache:       cache,
		Limiter:     limiter,
		Payments:    payment.NewSimulated(payment.SimulatedConfig{}),
		Broadcaster: bcast,
		Notifier:    a.notifier,
		Logger:      logger,
	}, service.Config{
		Hold: hold.Config{Warnings: cfg.Booking.Warnings},
		Booking: booking.Config{
			HoldTTL:      cfg.Booking.HoldTTL,
			CancelCutoff: cfg.Booking.CancelCutoff,
			MaxSeats:     cfg.Booking.MaxSeats,
			Currency:     cfg.Booking.Currency,
		},
		Admin: admin.Config{ShowtimeBuffer: cfg.Booking.ShowtimeBuffer},
	})

	a.sweeper = worker.NewSweeper(
		store.Seats(),
		a.services.Booking,
		logger.With(slog.String("component", "sweeper")),
		worker.SweeperConfig{Interval: cfg.Sweeper.Interval, BatchSize: cfg.Sweeper.BatchSize},
	)

	// Initialize Gin router
	router := httpgin.NewRouter(httpgin.Deps{
		Services: a.services,
		Tokens:   auth.NewManager(cfg.Auth.Secret, cfg.Auth.TokenTTL),
		Idem:     idem,
		Hub:      a.hub,
		Logger:   logger,

		CORSOrigins: cfg.Server.CORSOrigins,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

func newDispatcher(cfg config.NotifyConfig, logger *slog.Logger) (notify.Dispatcher, error) {
	switch cfg.Driver {
	case config.NotifyAMQP:
		return notify.NewAMQPDispatcher(cfg.AMQPURL, cfg.AMQPExchange)
	case config.NotifyNATS:
		return notify.NewNATSDispatcher(cfg.NATSURL, logger)
	default:
		return notify.NewLogDispatcher(logger.With(slog.String("component", "notify"))), nil
	}
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.hub.Run(gCtx)
	})

	if a.relay != nil {
		g.Go(func() error {
			return a.relay.Run(gCtx, nil)
		})
	}

	g.Go(func() error {
		return a.sweeper.Run(gCtx)
	})

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := a.httpServer.Shutdown(ctx)

		a.hub.Shutdown()
		a.services.Holds.Stop()
		a.notifier.Close()
		return err
	})

	return g.Wait()
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
