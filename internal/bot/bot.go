// Package bot реализует Telegram-интерфейс сервиса: выдачу подписки при
// вступлении в группу и административные команды управления сроками.
package bot

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/streamtap/subscription-keeper/internal/models"
)

// Subscriptions операции жизненного цикла подписки.
type Subscriptions interface {
	Grant(ctx context.Context, userID string) error
	Extend(ctx context.Context, userID string, days int) (models.User, error)
	Stats(ctx context.Context) (int, int, error)
}

// Gateway вызовы Bot API, нужные обработчикам команд.
type Gateway interface {
	SendMessage(ctx context.Context, userID string, text string) error
	MemberStatus(ctx context.Context, groupID, userID int64) (string, error)
	CreateInviteLink(ctx context.Context, groupID int64, ttl time.Duration) (string, error)
}

type Bot struct {
	api         *tgbotapi.BotAPI
	log         *slog.Logger
	subs        Subscriptions
	gw          Gateway
	loc         *time.Location
	groupID     int64
	inviteTTL   time.Duration
	extendDays  int
	callTimeout time.Duration
}

func New(api *tgbotapi.BotAPI, log *slog.Logger, subs Subscriptions, gw Gateway,
	loc *time.Location, groupID int64, inviteTTL time.Duration,
	extendDays int, callTimeout time.Duration) *Bot {

	return &Bot{
		api: api, log: log, subs: subs, gw: gw, loc: loc,
		groupID: groupID, inviteTTL: inviteTTL,
		extendDays: extendDays, callTimeout: callTimeout,
	}
}

func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd := <-updates:
			if upd.Message == nil {
				continue
			}
			if len(upd.Message.NewChatMembers) > 0 {
				b.onNewMembers(ctx, upd.Message)
			} else if upd.Message.IsCommand() {
				b.onCommand(ctx, upd.Message)
			}
		}
	}
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send failed", "err", err)
	}
}
