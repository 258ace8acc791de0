// Package bot is the Telegram transport: admin commands, the kill button flow
// and alert delivery to subscribed chats.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/albapepper/bosswatch/internal/admins"
	"github.com/albapepper/bosswatch/internal/boss"
	"github.com/albapepper/bosswatch/internal/notifications"
)

// Prefix is the subscriber id transport prefix for Telegram chats.
const Prefix = "tg"

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Announcer broadcasts restart announcements.
type Announcer interface {
	AnnounceRestart(ctx context.Context, restartAt time.Time, within time.Duration) ([]notifications.Alert, error)
}

// Registry is the subscriber set chats join on any interaction.
type Registry interface {
	Add(id string) bool
}

// Config tunes the bot.
type Config struct {
	// RestartAnnounceWithin bounds which first spawns /restart announces.
	RestartAnnounceWithin time.Duration
	// BackupDir receives the safety copy written before a restore.
	BackupDir string
}

// Bot handles updates and delivers alerts.
type Bot struct {
	api         API
	svc         *boss.Service
	announcer   Announcer
	subscribers Registry
	admins      *admins.File
	cfg         Config
	http        *http.Client
	logger      *slog.Logger
	commands    map[string]command
}

type command struct {
	admin bool
	run   func(ctx context.Context, m *tgbotapi.Message, args []string)
}

// New wires a bot around the given API client.
func New(api API, svc *boss.Service, announcer Announcer, subscribers Registry, adm *admins.File, cfg Config, logger *slog.Logger) *Bot {
	b := &Bot{
		api:         api,
		svc:         svc,
		announcer:   announcer,
		subscribers: subscribers,
		admins:      adm,
		cfg:         cfg,
		http:        &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
	b.commands = map[string]command{
		"start":         {run: b.cmdHelp},
		"help":          {run: b.cmdHelp},
		"list":          {run: b.cmdList},
		"test":          {run: b.cmdTest},
		"restart":       {admin: true, run: b.cmdRestart},
		"kill":          {admin: true, run: b.cmdKill},
		"settings":      {admin: true, run: b.cmdSettings},
		"boss_add":      {admin: true, run: b.cmdBossAdd},
		"boss_del":      {admin: true, run: b.cmdBossDel},
		"boss_edit":     {admin: true, run: b.cmdBossEdit},
		"notifications": {admin: true, run: b.cmdNotifications},
		"admin_add":     {admin: true, run: b.cmdAdminAdd},
		"admin_del":     {admin: true, run: b.cmdAdminDel},
		"admin_list":    {admin: true, run: b.cmdAdminList},
		"backup":        {admin: true, run: b.cmdBackup},
	}
	return b
}

// Run consumes updates until ctx is done or the channel closes.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	b.logger.Info("Telegram bot started", "commands", len(b.commands))
	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate processes one update. Panics are logged and swallowed.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Update handler panicked", "update_id", upd.UpdateID, "panic", r)
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.Chat == nil {
		return
	}
	b.subscribe(m.Chat.ID)

	if m.Document != nil {
		if !b.requireAdmin(m) {
			return
		}
		b.handleRestore(ctx, m)
		return
	}
	if !m.IsCommand() {
		return
	}

	cmd, ok := b.commands[m.Command()]
	if !ok {
		return
	}
	if cmd.admin && !b.requireAdmin(m) {
		return
	}
	cmd.run(ctx, m, strings.Fields(m.CommandArguments()))
}

func (b *Bot) subscribe(chatID int64) {
	if b.subscribers.Add(SubscriberID(chatID)) {
		b.logger.Info("Chat subscribed", "chat_id", chatID)
	}
}

func (b *Bot) isAdmin(u *tgbotapi.User) bool {
	return u != nil && b.admins.IsAdmin(u.ID, u.UserName)
}

func (b *Bot) requireAdmin(m *tgbotapi.Message) bool {
	if b.isAdmin(m.From) {
		return true
	}
	b.reply(m.Chat.ID, "⛔ Not allowed")
	return false
}

// --------------------------------------------------------------------------
// Outgoing messages
// --------------------------------------------------------------------------

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) replyMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	b.send(msg)
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Warn("Telegram send failed", "error", err)
	}
}

func (b *Bot) request(c tgbotapi.Chattable) {
	if _, err := b.api.Request(c); err != nil {
		b.logger.Warn("Telegram request failed", "error", err)
	}
}

// SubscriberID is the subscriber id for a chat.
func SubscriberID(chatID int64) string {
	return Prefix + ":" + strconv.FormatInt(chatID, 10)
}

// ParseSubscriberID extracts the chat id from a subscriber id.
func ParseSubscriberID(id string) (int64, error) {
	s, ok := strings.CutPrefix(id, Prefix+":")
	if !ok {
		return 0, fmt.Errorf("not a telegram subscriber: %q", id)
	}
	return strconv.ParseInt(s, 10, 64)
}
