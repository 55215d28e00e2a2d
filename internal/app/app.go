package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yuriwinchest/arena-courts/internal/calendar"
	"github.com/yuriwinchest/arena-courts/internal/config"
	"github.com/yuriwinchest/arena-courts/internal/domain"
	"github.com/yuriwinchest/arena-courts/internal/mq"
	"github.com/yuriwinchest/arena-courts/internal/postgres"
	redisx "github.com/yuriwinchest/arena-courts/internal/redis"
	postgresrepo "github.com/yuriwinchest/arena-courts/internal/repository/postgres"
	redisrepo "github.com/yuriwinchest/arena-courts/internal/repository/redis"
	"github.com/yuriwinchest/arena-courts/internal/service"
	"github.com/yuriwinchest/arena-courts/internal/service/booking"
	httpgin "github.com/yuriwinchest/arena-courts/internal/transport/http/gin"
)

const sweepInterval = time.Minute

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	services   *service.Services
	payments   *mq.PaymentConsumer
	mqCloser   func() error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	loc, err := time.LoadLocation(cfg.Venue.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load venue timezone: %w", err)
	}

	openMin, err := domain.ParseClock(cfg.Venue.OpenTime)
	if err != nil {
		return nil, fmt.Errorf("parse open time: %w", err)
	}
	closeMin, err := domain.ParseClock(cfg.Venue.CloseTime)
	if err != nil {
		return nil, fmt.Errorf("parse close time: %w", err)
	}

	cal, err := calendar.New(calendar.Config{
		OpenMinute:  openMin,
		CloseMinute: closeMin,
		SlotMinutes: cfg.Venue.SlotMinutes,
		Location:    loc,
	})
	if err != nil {
		return nil, fmt.Errorf("build slot calendar: %w", err)
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.Name,
		cfg.Postgres.SSLMode,
	)

	pgxPool, err := postgres.New(ctx, postgres.Config{DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("initialize postgres: %w", err)
	}

	migrator, err := NewMigrator(pgxPool)
	if err != nil {
		return nil, fmt.Errorf("initialize migrator: %w", err)
	}
	defer migrator.Close()
	if err := migrator.Run(ctx); err != nil {
		return nil, err
	}

	rdb, err := redisx.New(ctx, redisx.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize redis: %w", err)
	}

	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb)
	pubsub := redisx.NewAvailabilityPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "arena:v1:rl", 10, time.Minute)
	idem := redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)

	services := service.NewServices(store, cal, cache, pubsub, limiter, domain.SystemClock{}, service.Config{
		Booking: booking.Config{PendingTTL: cfg.Venue.PendingTTL},
	})

	router := httpgin.NewRouter(services, idem, logger)

	a := &App{
		cfg:      cfg,
		logger:   logger,
		services: services,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
	}

	if cfg.AMQP.URL != "" {
		consumer, err := mq.NewConsumer(
			cfg.AMQP.URL,
			cfg.AMQP.Exchange,
			cfg.AMQP.Queue,
			[]string{mq.KeyPaymentSucceeded, mq.KeyPaymentFailed},
		)
		if err != nil {
			return nil, fmt.Errorf("initialize payment consumer: %w", err)
		}
		a.payments = mq.NewPaymentConsumer(services.Booking, consumer, logger)
		a.mqCloser = consumer.Close
	}

	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("start HTTP server: %w", err)
		}
		return nil
	})

	// Sweep completes elapsed reservations and expires unpaid ones.
	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				completed, cancelled, err := a.services.Booking.Sweep(gCtx)
				if err != nil {
					a.logger.Error("sweep failed", "error", err)
					continue
				}
				if completed > 0 || cancelled > 0 {
					a.logger.Info("sweep", "completed", completed, "cancelled", cancelled)
				}
			}
		}
	})

	if a.payments != nil {
		g.Go(func() error {
			a.logger.Info("payment consumer running", "queue", a.cfg.AMQP.Queue)
			if err := a.payments.Run(gCtx); err != nil && gCtx.Err() == nil {
				return fmt.Errorf("payment consumer: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down")
		if a.mqCloser != nil {
			_ = a.mqCloser()
		}
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutCancel()
		return a.httpServer.Shutdown(shutCtx)
	})

	return g.Wait()
}
