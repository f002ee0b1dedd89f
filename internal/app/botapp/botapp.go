// Package botapp собирает Telegram-сервис: бота с командами, потребителей
// очередей уведомлений и отзыва доступа и сервисный HTTP-сервер.
package botapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"

	"github.com/streamtap/subscription-keeper/internal/bot"
	"github.com/streamtap/subscription-keeper/internal/config"
	"github.com/streamtap/subscription-keeper/internal/lib/rabbitmq"
	"github.com/streamtap/subscription-keeper/internal/services/enforcer"
	"github.com/streamtap/subscription-keeper/internal/services/notifier"
	subservice "github.com/streamtap/subscription-keeper/internal/services/subscription"
	"github.com/streamtap/subscription-keeper/internal/storage"
	"github.com/streamtap/subscription-keeper/internal/telegram"
)

// App представляет Telegram-приложение сервиса.
type App struct {
	bot      *bot.Bot
	notifier *notifier.Service
	enforcer *enforcer.Service
	conn     *amqp.Connection
	ch       *amqp.Channel
	server   *http.Server
	db       *storage.Storage
	logger   *slog.Logger
	poll     int
}

// New создает новый экземпляр Telegram-приложения.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init bot api: %w", err)
	}
	gw := telegram.New(api)

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

	subscriptionService := subservice.New(db, logger, loc, cfg.GrantDays, cfg.Fee)
	notifierService := notifier.New(gw, logger, cfg.CallTimeout)
	enforcerService := enforcer.New(gw, logger, cfg.PrivateGroupID, cfg.CallTimeout)

	tgBot := bot.New(api, logger, subscriptionService, gw, loc,
		cfg.PrivateGroupID, cfg.InviteTTL, cfg.ExtendDays, cfg.CallTimeout)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, subscriptionService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		bot:      tgBot,
		notifier: notifierService,
		enforcer: enforcerService,
		conn:     conn,
		ch:       ch,
		server:   srv,
		db:       db,
		logger:   logger,
		poll:     cfg.PollTimeout,
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

// Run подписывает потребителей очередей, запускает бота и HTTP-сервер
// и блокируется до отмены контекста или первой фатальной ошибки.
func (a *App) Run(ctx context.Context) error {
	if err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, rabbitmq.NoticeQueue.QueueName, a.notifier.HandleNotice); err != nil {
		a.logger.Error("failed to start notices consumer", slog.Any("err", err))
		return err
	}
	if err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, rabbitmq.RevocationQueue.QueueName, a.enforcer.HandleRevocation); err != nil {
		a.logger.Error("failed to start revocations consumer", slog.Any("err", err))
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.bot.Run(ctx, a.poll)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
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

	a.logger.Info("shutting down bot service")
	closeResources(a.ch, a.conn, a.logger)
	if closeErr := a.db.Db.Close(); closeErr != nil {
		a.logger.Error("failed to close storage", "error", closeErr)
	}
	return err
}
