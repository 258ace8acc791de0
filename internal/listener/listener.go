// Package listener provides a Postgres LISTEN/NOTIFY consumer for boss state
// changes. It holds a dedicated pgx connection (not from the pool) listening
// on the `boss_state_changed` channel.
//
// Triggers on bosses and server_state fire pg_notify on every committed
// mutation, so kills and restarts recorded by another process (bossctl, a
// second bot instance) purge the cache and kick the scheduler here too.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/bosswatch/internal/boss"
)

const (
	Channel          = "boss_state_changed"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// StateEvent is the JSON payload from pg_notify('boss_state_changed', ...).
type StateEvent struct {
	Table     string `json:"table"`
	Op        string `json:"op"`
	Timestamp int64  `json:"ts"`
}

// Change maps the event onto the in-process change kind.
func (e StateEvent) Change() boss.Change {
	kind := "catalog"
	if e.Table == "server_state" {
		kind = "restart"
	}
	return boss.Change{Kind: kind, At: time.Unix(e.Timestamp, 0)}
}

// Start opens a dedicated connection and listens on the boss_state_changed
// channel. It reconnects automatically on connection loss. Blocks until ctx
// is cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, onChange func(boss.Change), logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, onChange, logger)
		if ctx.Err() != nil {
			logger.Info("State listener stopped (context cancelled)")
			return
		}

		logger.Error("State listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, onChange func(boss.Change), logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+Channel)
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", Channel, err)
	}
	logger.Info("State listener connected", "channel", Channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		// Own mutations arrive too; the hook is idempotent.
		handle(notification.Payload, onChange, logger)
	}
}

func handle(payload string, onChange func(boss.Change), logger *slog.Logger) {
	var event StateEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		logger.Warn("Failed to parse state event", "payload", payload, "error", err)
		return
	}
	logger.Debug("State event received", "table", event.Table, "op", event.Op)
	onChange(event.Change())
}
