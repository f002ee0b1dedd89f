// Package telegram реализует шлюз сообщений поверх Bot API: отправку
// текста, управление членством в закрытой группе и одноразовые
// пригласительные ссылки. Все исходящие вызовы проходят через общий
// ограничитель частоты, чтобы не упираться во flood-лимиты Telegram.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Gateway обёртка над Bot API с ограничением частоты исходящих вызовов.
type Gateway struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
}

// New создает шлюз поверх готового клиента Bot API.
func New(api *tgbotapi.BotAPI) *Gateway {
	// Примерно 20 сообщений в секунду суммарно, с небольшим запасом к
	// лимитам Telegram на рассылку.
	return &Gateway{
		api:     api,
		limiter: rate.NewLimiter(rate.Every(50*time.Millisecond), 1),
	}
}

// SendMessage отправляет пользователю HTML-сообщение.
func (g *Gateway) SendMessage(ctx context.Context, userID string, text string) error {
	const op = "telegram.SendMessage"
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: bad user id %q: %w", op, userID, err)
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := g.api.Send(msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// BanMember исключает пользователя из группы.
func (g *Gateway) BanMember(ctx context.Context, groupID int64, userID string) error {
	const op = "telegram.BanMember"
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: bad user id %q: %w", op, userID, err)
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	cfg := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: groupID, UserID: uid},
	}
	if _, err := g.api.Request(cfg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UnbanMember снимает бан, возвращая пользователю возможность вступить
// по новой пригласительной ссылке.
func (g *Gateway) UnbanMember(ctx context.Context, groupID int64, userID string) error {
	const op = "telegram.UnbanMember"
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: bad user id %q: %w", op, userID, err)
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	cfg := tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: groupID, UserID: uid},
	}
	if _, err := g.api.Request(cfg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MemberStatus возвращает статус пользователя в группе
// (creator, administrator, member, left, kicked).
func (g *Gateway) MemberStatus(ctx context.Context, groupID, userID int64) (string, error) {
	const op = "telegram.MemberStatus"
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	member, err := g.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: groupID, UserID: userID},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return member.Status, nil
}

// CreateInviteLink создаёт одноразовую пригласительную ссылку в группу.
func (g *Gateway) CreateInviteLink(ctx context.Context, groupID int64, ttl time.Duration) (string, error) {
	const op = "telegram.CreateInviteLink"
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: groupID},
		ExpireDate:  int(time.Now().Add(ttl).Unix()),
		MemberLimit: 1,
	}
	resp, err := g.api.Request(cfg)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return link.InviteLink, nil
}
