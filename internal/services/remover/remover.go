// Package remover реализует обработчик очереди удаления: периодический
// цикл, который после льготного периода удаляет запись пользователя и
// инициирует исключение из закрытой группы.
package remover

import (
	"context"
	"log/slog"
	"time"

	"github.com/streamtap/subscription-keeper/internal/lib/rabbitmq"
	"github.com/streamtap/subscription-keeper/internal/lib/sl"
	"github.com/streamtap/subscription-keeper/internal/metrics"
	"github.com/streamtap/subscription-keeper/internal/models"
)

// Repository определяет методы хранилища, нужные обработчику очереди.
type Repository interface {
	// ListRemovalQueue возвращает всю очередь удаления.
	ListRemovalQueue(ctx context.Context) (map[string]models.RawRemovalEntry, error)
	// DeleteUser удаляет запись; false означает, что записи уже не было.
	DeleteUser(ctx context.Context, id string) (bool, error)
	// DequeueRemoval убирает элемент очереди.
	DequeueRemoval(ctx context.Context, id string) error
}

// Service обработчик очереди удаления.
type Service struct {
	repo        Repository
	log         *slog.Logger
	loc         *time.Location
	grace       time.Duration
	interval    time.Duration
	callTimeout time.Duration
}

// New создает новый экземпляр Service.
func New(repo Repository, log *slog.Logger, loc *time.Location,
	grace, interval, callTimeout time.Duration) *Service {
	return &Service{
		repo:        repo,
		log:         log,
		loc:         loc,
		grace:       grace,
		interval:    interval,
		callTimeout: callTimeout,
	}
}

// Run крутит цикл обработки очереди до отмены контекста.
func (s *Service) Run(ctx context.Context, ch rabbitmq.Channel) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.runPurgeCycle(ctx, ch)
		select {
		case <-ctx.Done():
			s.log.Info("removal queue processor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Service) runPurgeCycle(ctx context.Context, ch rabbitmq.Channel) {
	listCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	entries, err := s.repo.ListRemovalQueue(listCtx)
	cancel()
	if err != nil {
		s.log.Error("failed to list removal queue, skipping cycle", sl.Err(err))
		return
	}

	now := time.Now().In(s.loc)
	for id, raw := range entries {
		entry, err := raw.ToEntry(id, s.loc)
		if err != nil {
			// Элемент остаётся в очереди для ручного разбора: молча
			// выбросить его значило бы потерять запланированное удаление.
			s.log.Error("malformed removal entry left in queue", slog.String("user_id", id), sl.Err(err))
			continue
		}

		if now.Sub(entry.QueuedAt) < s.grace {
			continue
		}
		s.purge(ctx, ch, entry)
	}
}

// purge удаляет запись, публикует задание на исключение из группы и
// убирает элемент очереди — строго в этом порядке. Если исключение или
// очистка очереди не удались, повтор на следующем цикле увидит уже
// удалённую запись и продолжит с того же места.
func (s *Service) purge(ctx context.Context, ch rabbitmq.Channel, entry models.RemovalEntry) {
	delCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	removed, err := s.repo.DeleteUser(delCtx, entry.UserID)
	cancel()
	if err != nil {
		s.log.Error("failed to delete user record", slog.String("user_id", entry.UserID), sl.Err(err))
		return
	}
	if removed {
		metrics.RemovalsPurged.Inc()
		s.log.Info("removed user after grace period", slog.String("user_id", entry.UserID))
	} else {
		s.log.Info("user record already gone, proceeding", slog.String("user_id", entry.UserID))
	}

	revocation := models.Revocation{UserID: entry.UserID}
	if err := rabbitmq.PublishMessage(ch, rabbitmq.Exchange, rabbitmq.RevocationQueue.RoutingKey, revocation); err != nil {
		// Элемент не убирается: следующий цикл повторит публикацию.
		s.log.Error("failed to publish revocation", slog.String("user_id", entry.UserID), sl.Err(err))
		return
	}

	deqCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	err = s.repo.DequeueRemoval(deqCtx, entry.UserID)
	cancel()
	if err != nil {
		s.log.Error("failed to dequeue removal", slog.String("user_id", entry.UserID), sl.Err(err))
	}
}
