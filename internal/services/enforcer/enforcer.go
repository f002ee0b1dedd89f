// Package enforcer отзывает доступ к закрытой группе у пользователей,
// чьи записи были окончательно удалены из хранилища.
package enforcer

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

// Banner управляет членством пользователя в группе.
type Banner interface {
	BanMember(ctx context.Context, groupID int64, userID string) error
	UnbanMember(ctx context.Context, groupID int64, userID string) error
}

// Service обрабатывает задания на отзыв доступа.
type Service struct {
	banner      Banner
	log         *slog.Logger
	groupID     int64
	callTimeout time.Duration
}

// New создает сервис отзыва доступа.
func New(banner Banner, log *slog.Logger, groupID int64, callTimeout time.Duration) *Service {
	return &Service{banner: banner, log: log, groupID: groupID, callTimeout: callTimeout}
}

// HandleRevocation исключает пользователя из группы и сразу снимает бан,
// чтобы после продления он мог вернуться по новой пригласительной ссылке.
// Нечитаемый payload возвращается ошибкой: потребитель подтвердит и
// выбросит такое сообщение. Неудача самого исключения логируется и не
// повторяется: запись пользователя к этому моменту уже удалена,
// перекладывать сообщение обратно в очередь бессмысленно.
func (s *Service) HandleRevocation(body []byte) error {
	const op = "enforcer.HandleRevocation"

	var rev models.Revocation
	if err := json.Unmarshal(body, &rev); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
	defer cancel()

	if err := s.banner.BanMember(ctx, s.groupID, rev.UserID); err != nil {
		s.log.Error("failed to ban user", slog.String("user_id", rev.UserID),
			sl.Err(fmt.Errorf("%s: %w", op, err)))
		return nil
	}
	if err := s.banner.UnbanMember(ctx, s.groupID, rev.UserID); err != nil {
		s.log.Error("failed to unban user after revocation", slog.String("user_id", rev.UserID),
			sl.Err(fmt.Errorf("%s: %w", op, err)))
		return nil
	}

	metrics.Revocations.Inc()
	s.log.Info("group access revoked", slog.String("user_id", rev.UserID))
	return nil
}
