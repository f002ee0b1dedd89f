// Package reconciler собирает сервис сверки подписок: сканер истечения,
// обработчик очереди удаления и сервисный HTTP-сервер.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"

	"github.com/streamtap/subscription-keeper/internal/config"
	"github.com/streamtap/subscription-keeper/internal/lib/rabbitmq"
	removerservice "github.com/streamtap/subscription-keeper/internal/services/remover"
	scannerservice "github.com/streamtap/subscription-keeper/internal/services/scanner"
	"github.com/streamtap/subscription-keeper/internal/storage"
)

// App представляет приложение сверки подписок.
type App struct {
	scanner *scannerservice.Service
	remover *removerservice.Service
	conn    *amqp.Connection
	ch      *amqp.Channel
	server  *http.Server
	db      *storage.Storage
	logger  *slog.Logger
}

// New создает новый экземпляр приложения сверки.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetLifecycleQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := storage.New(ctx, cfg.RedisConnection)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	scanner := scannerservice.New(db, logger, loc,
		cfg.SoonThreshold, cfg.PollInterval, cfg.CallTimeout)
	remover := removerservice.New(db, logger, loc,
		cfg.GracePeriod, cfg.PollInterval, cfg.CallTimeout)

	router := chi.NewRouter()
	RegisterRoutes(router, logger)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		scanner: scanner,
		remover: remover,
		conn:    conn,
		ch:      ch,
		server:  srv,
		db:      db,
		logger:  logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

// Run запускает оба цикла сверки и HTTP-сервер и блокируется до отмены
// контекста или первой фатальной ошибки.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.scanner.Run(ctx, a.ch)
	})
	g.Go(func() error {
		return a.remover.Run(ctx, a.ch)
	})
	g.Go(func() error {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		return a.server.Shutdown(timeoutCtx)
	})

	err := g.Wait()

	a.logger.Info("shutting down reconciler")
	closeResources(a.ch, a.conn, a.logger)
	if closeErr := a.db.Db.Close(); closeErr != nil {
		a.logger.Error("failed to close storage", "error", closeErr)
	}
	return err
}
