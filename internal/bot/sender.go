package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/albapepper/bosswatch/internal/notifications"
)

// Send delivers an alert with a kill button to the chat behind subscriber.
// The Telegram client has no context support, so ctx only bounds the wait;
// the client's own HTTP timeout (see Connect) ends the request itself.
func (b *Bot) Send(ctx context.Context, subscriber string, alert notifications.Alert) error {
	chatID, err := ParseSubscriberID(subscriber)
	if err != nil {
		return fmt.Errorf("%v: %w", err, notifications.ErrPermanent)
	}
	msg := tgbotapi.NewMessage(chatID, alert.Text())
	msg.ReplyMarkup = killButton(alert.Boss.ID)

	done := make(chan error, 1)
	go func() {
		_, err := b.api.Send(msg)
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return classify(err)
	}
}

// classify marks errors that retrying cannot fix: the bot was blocked or
// kicked, or the chat no longer exists.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var te *tgbotapi.Error
	if !errors.As(err, &te) {
		return err
	}
	code, msg := te.Code, te.Message
	lower := strings.ToLower(msg)
	if code == http.StatusForbidden ||
		(code == http.StatusBadRequest && (strings.Contains(lower, "chat not found") || strings.Contains(lower, "user is deactivated"))) {
		return fmt.Errorf("telegram %d %s: %w", code, msg, notifications.ErrPermanent)
	}
	return err
}
