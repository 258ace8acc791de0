package bot

import (
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// PollTimeout is the getUpdates long-poll window in seconds.
const PollTimeout = 60

// Connect authorizes two API clients against endpoint (tgbotapi.APIEndpoint
// in production). send carries every outgoing request and gives up after
// sendTimeout; poll is reserved for getUpdates and outlives one long-poll
// window.
func Connect(endpoint, token string, sendTimeout time.Duration) (send, poll *tgbotapi.BotAPI, err error) {
	send, err = tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: sendTimeout})
	if err != nil {
		return nil, nil, fmt.Errorf("authorize bot: %w", err)
	}
	poll, err = tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: (PollTimeout + 10) * time.Second})
	if err != nil {
		return nil, nil, fmt.Errorf("authorize poller: %w", err)
	}
	return send, poll, nil
}
