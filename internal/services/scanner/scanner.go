// Package scanner реализует сканер истечения подписок: периодический
// цикл сверки, который классифицирует каждую запись по текущему времени
// и фиксирует переходы soon/expired ровно один раз на переход.
package scanner

import (
	"context"
	"log/slog"
	"time"

	"github.com/streamtap/subscription-keeper/internal/lib/datefmt"
	"github.com/streamtap/subscription-keeper/internal/lib/rabbitmq"
	"github.com/streamtap/subscription-keeper/internal/lib/sl"
	"github.com/streamtap/subscription-keeper/internal/metrics"
	"github.com/streamtap/subscription-keeper/internal/models"
)

// Repository определяет методы хранилища, нужные сканеру.
type Repository interface {
	// ListUsers возвращает все записи о подписчиках.
	ListUsers(ctx context.Context) (map[string]models.RawUser, error)
	// SaveUser записывает запись целиком.
	SaveUser(ctx context.Context, id string, raw models.RawUser) error
	// EnqueueRemoval ставит пользователя в очередь удаления (повтор — no-op).
	EnqueueRemoval(ctx context.Context, id string, raw models.RawRemovalEntry) error
}

// Service сканер истечения подписок.
type Service struct {
	repo          Repository
	log           *slog.Logger
	loc           *time.Location
	soonThreshold int
	interval      time.Duration
	callTimeout   time.Duration
}

// New создает новый экземпляр Service.
func New(repo Repository, log *slog.Logger, loc *time.Location,
	soonThreshold int, interval, callTimeout time.Duration) *Service {
	return &Service{
		repo:          repo,
		log:           log,
		loc:           loc,
		soonThreshold: soonThreshold,
		interval:      interval,
		callTimeout:   callTimeout,
	}
}

// Run крутит цикл сверки до отмены контекста. Сигнал отмены проверяется
// на границе циклов: начатый цикл дорабатывает до конца.
func (s *Service) Run(ctx context.Context, ch rabbitmq.Channel) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.runScanCycle(ctx, ch)
		select {
		case <-ctx.Done():
			s.log.Info("expiry scanner stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Service) runScanCycle(ctx context.Context, ch rabbitmq.Channel) {
	listCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	users, err := s.repo.ListUsers(listCtx)
	cancel()
	if err != nil {
		// Без полного списка делать нечего: цикл пропускается целиком.
		s.log.Error("failed to list users, skipping cycle", sl.Err(err))
		return
	}

	now := time.Now().In(s.loc)
	for id, raw := range users {
		user, err := raw.ToUser(id, s.loc)
		if err != nil {
			s.log.Warn("skipping malformed record", slog.String("user_id", id), sl.Err(err))
			metrics.MalformedRecords.Inc()
			continue
		}

		daysLeft := datefmt.DaysLeft(user.EndDate, now)
		switch {
		case daysLeft == s.soonThreshold && user.Notified == models.NotifiedNone:
			s.markSoon(ctx, ch, user)
		case daysLeft <= 0 && user.Notified != models.NotifiedExpired:
			s.markExpired(ctx, ch, user, now)
		}
	}
	metrics.ScanCycles.Inc()
}

// markSoon переводит запись в soon и отправляет предупреждение.
// Отметка пишется до отправки: недоставленное уведомление не
// повторяется, лишь бы не спамить недоступного пользователя.
func (s *Service) markSoon(ctx context.Context, ch rabbitmq.Channel, user models.User) {
	user.Notified = models.NotifiedSoon
	raw := user.ToRaw(s.loc)

	saveCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	err := s.repo.SaveUser(saveCtx, user.ID, raw)
	cancel()
	if err != nil {
		s.log.Error("failed to mark user as soon", slog.String("user_id", user.ID), sl.Err(err))
		return
	}
	metrics.Transitions.WithLabelValues(string(models.NotifiedSoon)).Inc()

	notice := models.Notice{UserID: user.ID, EndDate: raw.EndDate, DaysLeft: s.soonThreshold}
	if err := rabbitmq.PublishMessage(ch, rabbitmq.Exchange, rabbitmq.NoticeQueue.RoutingKey, notice); err != nil {
		s.log.Error("failed to publish soon notice", slog.String("user_id", user.ID), sl.Err(err))
		return
	}
	s.log.Info("user expiring soon", slog.String("user_id", user.ID), slog.String("end_date", raw.EndDate))
}

// markExpired ставит пользователя в очередь удаления, переводит запись
// в expired и отправляет уведомление. Очередь пополняется до записи
// отметки: если бы отметка записалась первой, а постановка в очередь
// не удалась, пользователь остался бы expired навсегда без удаления.
func (s *Service) markExpired(ctx context.Context, ch rabbitmq.Channel, user models.User, now time.Time) {
	entry := models.RemovalEntry{UserID: user.ID, QueuedAt: now}

	enqCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	err := s.repo.EnqueueRemoval(enqCtx, user.ID, entry.ToRaw(s.loc))
	cancel()
	if err != nil {
		s.log.Error("failed to enqueue removal", slog.String("user_id", user.ID), sl.Err(err))
		return
	}

	user.Notified = models.NotifiedExpired
	raw := user.ToRaw(s.loc)

	saveCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	err = s.repo.SaveUser(saveCtx, user.ID, raw)
	cancel()
	if err != nil {
		s.log.Error("failed to mark user as expired", slog.String("user_id", user.ID), sl.Err(err))
		return
	}
	metrics.Transitions.WithLabelValues(string(models.NotifiedExpired)).Inc()

	notice := models.Notice{UserID: user.ID, EndDate: raw.EndDate, DaysLeft: 0}
	if err := rabbitmq.PublishMessage(ch, rabbitmq.Exchange, rabbitmq.NoticeQueue.RoutingKey, notice); err != nil {
		s.log.Error("failed to publish expired notice", slog.String("user_id", user.ID), sl.Err(err))
		return
	}
	s.log.Info("user expired, queued for removal", slog.String("user_id", user.ID), slog.String("end_date", raw.EndDate))
}
