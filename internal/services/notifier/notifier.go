// Package notifier доставляет пользователям сообщения о скором и
// наступившем окончании подписки, потребляя задания из очереди уведомлений.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/streamtap/subscription-keeper/internal/lib/sl"
	"github.com/streamtap/subscription-keeper/internal/metrics"
	"github.com/streamtap/subscription-keeper/internal/models"
)

// Sender отправляет пользователю текстовое сообщение.
type Sender interface {
	SendMessage(ctx context.Context, userID string, text string) error
}

const (
	soonTemplate = "⏳ <b>Your plan will expire on <i>%s</i> (in %d days).</b>\n\n" +
		"<b>Please renew soon to continue enjoying our service.</b>"
	expiredTemplate = "❌ <b>Your plan expired on <i>%s</i>.</b>\n\n" +
		"<b>Access has been removed. Please renew to continue.</b>"
)

// Service обрабатывает уведомления из очереди.
type Service struct {
	sender      Sender
	log         *slog.Logger
	callTimeout time.Duration
}

// New создает сервис уведомлений.
func New(sender Sender, log *slog.Logger, callTimeout time.Duration) *Service {
	return &Service{sender: sender, log: log, callTimeout: callTimeout}
}

// HandleNotice обрабатывает одно задание на уведомление. Нечитаемый
// payload возвращается ошибкой: потребитель подтвердит и выбросит такое
// сообщение. Неудача доставки логируется здесь и не повторяется —
// недоступный пользователь не должен получать уведомление дважды.
func (s *Service) HandleNotice(body []byte) error {
	const op = "notifier.HandleNotice"

	var notice models.Notice
	if err := json.Unmarshal(body, &notice); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	text := fmt.Sprintf(expiredTemplate, notice.EndDate)
	if notice.DaysLeft > 0 {
		text = fmt.Sprintf(soonTemplate, notice.EndDate, notice.DaysLeft)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
	defer cancel()

	if err := s.sender.SendMessage(ctx, notice.UserID, text); err != nil {
		metrics.NoticesFailed.Inc()
		s.log.Error("failed to deliver notice",
			slog.String("user_id", notice.UserID),
			slog.Int("days_left", notice.DaysLeft),
			sl.Err(fmt.Errorf("%s: %w", op, err)))
		return nil
	}

	metrics.NoticesSent.Inc()
	s.log.Info("notice delivered",
		slog.String("user_id", notice.UserID),
		slog.Int("days_left", notice.DaysLeft))
	return nil
}
