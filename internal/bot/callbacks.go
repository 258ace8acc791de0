package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/albapepper/bosswatch/internal/boss"
)

// Callback data prefixes of the kill button flow.
const (
	cbKillConfirm = "kill_confirm_"
	cbKillDo      = "kill_do_"
	cbKillCancel  = "kill_cancel_"
)

func killButton(bossID int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Boss killed", cbKillConfirm+strconv.Itoa(bossID)),
	))
}

func confirmButtons(bossID int) tgbotapi.InlineKeyboardMarkup {
	id := strconv.Itoa(bossID)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Boss killed", cbKillDo+id),
		tgbotapi.NewInlineKeyboardButtonData("Cancel", cbKillCancel+id),
	))
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	b.request(tgbotapi.NewCallback(q.ID, ""))
	if q.Message == nil || q.Message.Chat == nil {
		return
	}
	chatID, msgID := q.Message.Chat.ID, q.Message.MessageID
	b.subscribe(chatID)

	switch {
	case strings.HasPrefix(q.Data, cbKillConfirm):
		id, ok := callbackID(q.Data, cbKillConfirm)
		if !ok {
			return
		}
		b.request(tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, confirmButtons(id)))

	case strings.HasPrefix(q.Data, cbKillDo):
		id, ok := callbackID(q.Data, cbKillDo)
		if !ok {
			return
		}
		bs, next, err := b.svc.Kill(ctx, id, b.svc.Now(), "button kill")
		if err != nil {
			if boss.IsNotFound(err) {
				b.send(tgbotapi.NewEditMessageText(chatID, msgID, "Boss not found."))
				return
			}
			b.logger.Error("Button kill failed", "boss_id", id, "error", err)
			b.send(tgbotapi.NewEditMessageText(chatID, msgID, "❌ Failed to record the kill."))
			return
		}
		b.send(tgbotapi.NewEditMessageText(chatID, msgID,
			fmt.Sprintf("✅ Kill of [%d] %s recorded.\nNext spawn: %s", bs.ID, bs.Name, b.svc.Zone().FormatShort(next))))

	case strings.HasPrefix(q.Data, cbKillCancel):
		b.send(tgbotapi.NewEditMessageText(chatID, msgID, "Cancelled."))
	}
}

func callbackID(data, prefix string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimPrefix(data, prefix))
	return id, err == nil
}
