package bot

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/albapepper/bosswatch/internal/backup"
	"github.com/albapepper/bosswatch/internal/boss"
)

func (b *Bot) cmdBackup(ctx context.Context, m *tgbotapi.Message, _ []string) {
	data, snap, err := backup.Export(ctx, b.svc.Store())
	if err != nil {
		b.logger.Error("Backup export failed", "error", err)
		b.reply(m.Chat.ID, "❌ Error: "+err.Error())
		return
	}
	doc := tgbotapi.NewDocument(m.Chat.ID, tgbotapi.FileBytes{
		Name:  backup.FileName(b.svc.Now()),
		Bytes: data,
	})
	doc.Caption = fmt.Sprintf("📦 Snapshot: %d bosses, %d kills", len(snap.Bosses), len(snap.Kills))
	b.send(doc)
}

// handleRestore replaces the store with an uploaded .json snapshot.
func (b *Bot) handleRestore(ctx context.Context, m *tgbotapi.Message) {
	name := m.Document.FileName
	if !strings.EqualFold(filepath.Ext(name), ".json") {
		b.reply(m.Chat.ID, "⚠️ Send a .json snapshot to restore the database.")
		return
	}
	if m.Document.FileSize > backup.MaxSize {
		b.reply(m.Chat.ID, "⚠️ The file is too large.")
		return
	}

	snap, err := b.download(ctx, m.Document.FileID)
	if err != nil {
		b.logger.Error("Snapshot download failed", "file", name, "error", err)
		b.reply(m.Chat.ID, "❌ Error: "+err.Error())
		return
	}
	safety, err := backup.Restore(ctx, b.svc, snap, b.cfg.BackupDir, b.logger)
	if err != nil {
		b.logger.Error("Restore failed", "file", name, "error", err)
		b.reply(m.Chat.ID, "❌ Error: "+err.Error())
		return
	}
	b.reply(m.Chat.ID, fmt.Sprintf("✅ Database restored from %s\n📦 Previous state saved as %s",
		name, filepath.Base(safety)))
}

func (b *Bot) download(ctx context.Context, fileID string) (boss.Snapshot, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return boss.Snapshot{}, fmt.Errorf("resolve file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return boss.Snapshot{}, err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return boss.Snapshot{}, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return boss.Snapshot{}, fmt.Errorf("download file: HTTP %d", resp.StatusCode)
	}
	return backup.Decode(resp.Body)
}
