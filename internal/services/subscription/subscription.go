// Package subscription содержит бизнес-логику выдачи, продления и учёта
// оплаченного доступа.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/streamtap/subscription-keeper/internal/lib/sl"
	"github.com/streamtap/subscription-keeper/internal/models"
)

// ErrUserNotFound возвращается при попытке продлить несуществующую запись.
var ErrUserNotFound = errors.New("user not found")

// Repository определяет методы хранилища, нужные для управления доступом.
type Repository interface {
	// GetUser возвращает запись о подписчике или nil, если её нет.
	GetUser(ctx context.Context, id string) (*models.RawUser, error)
	// SaveUser записывает запись целиком.
	SaveUser(ctx context.Context, id string, raw models.RawUser) error
	// CountUsers возвращает количество записей.
	CountUsers(ctx context.Context) (int, error)
}

// Service реализует выдачу, продление и агрегатную статистику подписок.
type Service struct {
	repo      Repository
	log       *slog.Logger
	loc       *time.Location
	grantDays int
	fee       int
}

// New создает новый экземпляр Service.
func New(repo Repository, log *slog.Logger, loc *time.Location, grantDays, fee int) *Service {
	return &Service{
		repo:      repo,
		log:       log,
		loc:       loc,
		grantDays: grantDays,
		fee:       fee,
	}
}

// Grant выдаёт пользователю оплаченный доступ с окном в grantDays дней.
// Повторная выдача по уже существующей записи — no-op с предупреждением:
// дублирующееся событие вступления не должно затирать start_date.
func (s *Service) Grant(ctx context.Context, id string) error {
	const op = "subscription.Grant"

	existing, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if existing != nil {
		s.log.Warn("user already exists, skipping grant to avoid overwrite", slog.String("user_id", id))
		return nil
	}

	now := time.Now().In(s.loc)
	user := models.User{
		ID:        id,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, s.grantDays),
		ExtraDays: 0,
		Notified:  models.NotifiedNone,
	}
	if err := s.repo.SaveUser(ctx, id, user.ToRaw(s.loc)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("granted access",
		slog.String("user_id", id),
		slog.String("end_date", user.ToRaw(s.loc).EndDate))
	return nil
}

// Extend продлевает доступ на days дней и увеличивает счётчик бонусных
// дней. Отсутствующая или повреждённая запись — явная ошибка без записи
// в хранилище. Отметка notified не сбрасывается: пользователь, уже
// помеченный expired, после продления не будет уведомлён повторно.
func (s *Service) Extend(ctx context.Context, id string, days int) (models.User, error) {
	const op = "subscription.Extend"

	raw, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if raw == nil {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	user, err := raw.ToUser(id, s.loc)
	if err != nil {
		s.log.Warn("cannot extend malformed record", slog.String("user_id", id), sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user.EndDate = user.EndDate.AddDate(0, 0, days)
	user.ExtraDays += days
	if err := s.repo.SaveUser(ctx, id, user.ToRaw(s.loc)); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("extended access",
		slog.String("user_id", id),
		slog.Int("days", days),
		slog.String("new_end_date", user.ToRaw(s.loc).EndDate))
	return user, nil
}

// Stats возвращает количество активных подписчиков и собранную сумму
// по фиксированной ставке за пользователя.
func (s *Service) Stats(ctx context.Context) (int, int, error) {
	const op = "subscription.Stats"

	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, count * s.fee, nil
}
