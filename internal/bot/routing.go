package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/streamtap/subscription-keeper/internal/lib/datefmt"
	"github.com/streamtap/subscription-keeper/internal/services/subscription"
)

// onNewMembers выдает подписку каждому вступившему в группу. Повторное
// вступление уже известного пользователя срок не сбрасывает. Администраторы
// и создатель группы подписчиками не считаются: запись для них не заводится,
// иначе по окончании окна они попали бы в очередь удаления и под бан.
func (b *Bot) onNewMembers(ctx context.Context, msg *tgbotapi.Message) {
	for _, member := range msg.NewChatMembers {
		if member.IsBot {
			continue
		}
		if b.isAdmin(ctx, member.ID) {
			b.log.Info("group admin joined, no subscription granted", "user_id", member.ID)
			continue
		}
		userID := strconv.FormatInt(member.ID, 10)

		cctx, cancel := context.WithTimeout(ctx, b.callTimeout)
		err := b.subs.Grant(cctx, userID)
		cancel()
		if err != nil {
			b.log.Error("failed to grant subscription", "user_id", userID, "err", err)
			continue
		}
		b.log.Info("member joined, subscription granted", "user_id", userID)
	}
}

func (b *Bot) onCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		b.send(tgbotapi.NewMessage(chatID,
			"Привет! Я слежу за подписками закрытой группы: продлеваю доступ, напоминаю об оплате и убираю просроченные аккаунты."))
	case "seven_days":
		b.handleExtend(ctx, msg)
	case "stats":
		b.handleStats(ctx, msg)
	case "get_link":
		b.handleGetLink(ctx, msg)
	}
}

// isAdmin проверяет, что отправитель является администратором или
// создателем закрытой группы.
func (b *Bot) isAdmin(ctx context.Context, userID int64) bool {
	cctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	status, err := b.gw.MemberStatus(cctx, b.groupID, userID)
	if err != nil {
		b.log.Error("failed to resolve member status", "user_id", userID, "err", err)
		return false
	}
	return status == "administrator" || status == "creator"
}

func (b *Bot) handleExtend(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !b.isAdmin(ctx, msg.From.ID) {
		b.send(tgbotapi.NewMessage(chatID, "Команда доступна только администраторам группы."))
		return
	}

	target := strings.TrimSpace(msg.CommandArguments())
	if target == "" {
		b.send(tgbotapi.NewMessage(chatID, "Использование: /seven_days <user_id>"))
		return
	}
	if _, err := strconv.ParseInt(target, 10, 64); err != nil {
		b.send(tgbotapi.NewMessage(chatID, "Некорректный идентификатор пользователя."))
		return
	}

	cctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	user, err := b.subs.Extend(cctx, target, b.extendDays)
	cancel()
	if err != nil {
		if errors.Is(err, subscription.ErrUserNotFound) {
			b.send(tgbotapi.NewMessage(chatID, "Пользователь с такой подпиской не найден."))
			return
		}
		b.log.Error("failed to extend subscription", "user_id", target, "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось продлить подписку, попробуйте позже."))
		return
	}

	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"Подписка пользователя %s продлена на %d дн., действует до %s.",
		target, b.extendDays, datefmt.Format(user.EndDate, b.loc))))

	cctx, cancel = context.WithTimeout(ctx, b.callTimeout)
	err = b.gw.SendMessage(cctx, target, fmt.Sprintf(
		"✅ <b>Your plan has been extended by %d days.</b>\n\n<b>New expiry date: <i>%s</i>.</b>",
		b.extendDays, datefmt.Format(user.EndDate, b.loc)))
	cancel()
	if err != nil {
		b.log.Error("failed to notify user about extension", "user_id", target, "err", err)
	}
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !b.isAdmin(ctx, msg.From.ID) {
		b.send(tgbotapi.NewMessage(chatID, "Команда доступна только администраторам группы."))
		return
	}

	cctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	count, revenue, err := b.subs.Stats(cctx)
	cancel()
	if err != nil {
		b.log.Error("failed to collect stats", "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось собрать статистику, попробуйте позже."))
		return
	}

	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"Активных подписок: %d\nОжидаемый доход: %d", count, revenue)))
}

func (b *Bot) handleGetLink(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !b.isAdmin(ctx, msg.From.ID) {
		b.send(tgbotapi.NewMessage(chatID, "Команда доступна только администраторам группы."))
		return
	}

	cctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	link, err := b.gw.CreateInviteLink(cctx, b.groupID, b.inviteTTL)
	cancel()
	if err != nil {
		b.log.Error("failed to create invite link", "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось создать пригласительную ссылку."))
		return
	}

	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"Одноразовая ссылка (действует %s):\n%s", b.inviteTTL, link)))
}
