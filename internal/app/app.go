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

	"github.com/kirinyoku/tix-booking/internal/config"
	"github.com/kirinyoku/tix-booking/internal/events"
	"github.com/kirinyoku/tix-booking/internal/postgres"
	"github.com/kirinyoku/tix-booking/internal/redis"
	"github.com/kirinyoku/tix-booking/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/tix-booking/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/tix-booking/internal/repository/redis"
	"github.com/kirinyoku/tix-booking/internal/service"
	"github.com/kirinyoku/tix-booking/internal/service/booking"
	"github.com/kirinyoku/tix-booking/internal/service/query"
	httpgin "github.com/kirinyoku/tix-booking/internal/transport/http/gin"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	services   *service.Services
	httpServer *http.Server
	closers    []func()
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx := context.Background()
	a := &App{cfg: cfg, logger: logger}

	// Storage
	var backend service.Backend
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		backend = service.MemoryBackend(memory.New())
	default:
		dsn := cfg.Postgres.DSN()
		if err := postgres.Migrate(dsn); err != nil {
			return nil, fmt.Errorf("failed to migrate postgres: %w", err)
		}

		pgxPool, err := postgres.New(ctx, postgres.Config{DSN: dsn, MaxConns: cfg.Postgres.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		a.closers = append(a.closers, pgxPool.Close)

		backend = service.PostgresBackend(postgresrepo.NewStore(pgxPool))
	}

	// Redis is optional
	var (
		rdb     *goredis.Client
		cache   *redisrepo.Cache
		opts    httpgin.Options
		redisOK bool
	)
	if cfg.Redis.Addr != "" {
		client, err := redis.New(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			if cfg.Events.Broker == config.BrokerRedis {
				a.Close()
				return nil, fmt.Errorf("failed to initialize redis: %w", err)
			}
			logger.Warn("redis unavailable, running without cache", slog.Any("err", err))
		} else {
			rdb, redisOK = client, true
			a.closers = append(a.closers, func() { _ = rdb.Close() })
		}
	}
	if redisOK {
		cache = redisrepo.New(rdb)
		opts.Idempotency = redisrepo.NewIdempotencyStore(rdb, cfg.Booking.IdempotencyTTL)
		if cfg.Booking.RateLimit > 0 {
			opts.Limiter = redisrepo.NewSlidingWindowLimiter(rdb, cfg.Booking.RateLimit, cfg.Booking.RateLimitWindow)
		}
	}
	opts.JWTSecret = cfg.Auth.JWTSecret

	pub, err := newPublisher(cfg.Events, rdb, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize event publisher: %w", err)
	}
	if pub != nil {
		a.closers = append(a.closers, func() { _ = pub.Close() })
	}

	// Services
	a.services = service.NewServices(backend, cache, pub, logger, service.Config{
		Booking: booking.Config{
			HoldTTL:         cfg.Booking.HoldTTL,
			MaxCodeAttempts: cfg.Booking.MaxCodeAttempts,
		},
		Query: query.Config{
			StatsTTL: cfg.Booking.StatsTTL,
		},
	})

	router := httpgin.NewRouter(a.services, opts, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

func newPublisher(cfg config.EventsConfig, rdb *goredis.Client, logger *slog.Logger) (events.Publisher, error) {
	switch cfg.Broker {
	case config.BrokerNone:
		return nil, nil
	case config.BrokerKafka:
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case config.BrokerRabbitMQ:
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.BrokerRedis:
		if rdb == nil {
			return nil, errors.New("redis broker without redis client")
		}
		return events.NewRedisPublisher(rdb, cfg.RedisChannel), nil
	}
	return events.NewLogPublisher(logger), nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Reclaim expired holds
	g.Go(func() error {
		a.reap(gCtx, a.cfg.Booking.SweepInterval)
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) reap(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.services.Booking.ExpireReservations(ctx)
			if err != nil {
				if ctx.Err() == nil {
					a.logger.Warn("expire reservations", slog.Any("err", err))
				}
				continue
			}
			if n > 0 {
				a.logger.Info("expired reservations", slog.Int64("released", n))
			}
		}
	}
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
