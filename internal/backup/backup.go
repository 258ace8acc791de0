// Package backup exports the store as a JSON snapshot and restores it, keeping
// a safety copy of the state being replaced.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/albapepper/bosswatch/internal/boss"
)

// MaxSize bounds uploaded snapshots.
const MaxSize = 10 << 20

var ErrNotSnapshot = errors.New("not a bosswatch snapshot")

// FileName is the download name for a snapshot taken at t.
func FileName(t time.Time) string {
	return "bosswatch_backup_" + t.Format("20060102_150405") + ".json"
}

// Encode writes snap as indented JSON.
func Encode(w io.Writer, snap boss.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// Export encodes the current store content.
func Export(ctx context.Context, store boss.Store) ([]byte, boss.Snapshot, error) {
	snap, err := store.Export(ctx)
	if err != nil {
		return nil, boss.Snapshot{}, fmt.Errorf("export store: %w", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		return nil, boss.Snapshot{}, err
	}
	return buf.Bytes(), snap, nil
}

// Decode reads and sanity-checks a snapshot.
func Decode(r io.Reader) (boss.Snapshot, error) {
	var snap boss.Snapshot
	dec := json.NewDecoder(io.LimitReader(r, MaxSize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return boss.Snapshot{}, fmt.Errorf("%w: %v", ErrNotSnapshot, err)
	}
	if snap.Version < 1 {
		return boss.Snapshot{}, fmt.Errorf("%w: missing version", ErrNotSnapshot)
	}
	if snap.Version > boss.SnapshotVersion {
		return boss.Snapshot{}, fmt.Errorf("snapshot version %d is newer than supported %d", snap.Version, boss.SnapshotVersion)
	}
	names := make(map[string]bool, len(snap.Bosses))
	ids := make(map[int]bool, len(snap.Bosses))
	for _, b := range snap.Bosses {
		key := strings.TrimSpace(b.Name)
		if key == "" || b.RespawnMinutes <= 0 {
			return boss.Snapshot{}, fmt.Errorf("%w: boss %d is invalid", ErrNotSnapshot, b.ID)
		}
		if names[key] || ids[b.ID] {
			return boss.Snapshot{}, fmt.Errorf("%w: duplicate boss %d %q", ErrNotSnapshot, b.ID, b.Name)
		}
		names[key], ids[b.ID] = true, true
	}
	for _, k := range snap.Kills {
		if !ids[k.BossID] {
			return boss.Snapshot{}, fmt.Errorf("%w: kill %d references unknown boss %d", ErrNotSnapshot, k.ID, k.BossID)
		}
	}
	return snap, nil
}

// Restore saves the current state to safetyDir, then replaces it with snap.
// Returns the safety copy path.
func Restore(ctx context.Context, svc *boss.Service, snap boss.Snapshot, safetyDir string, logger *slog.Logger) (string, error) {
	data, _, err := Export(ctx, svc.Store())
	if err != nil {
		return "", fmt.Errorf("safety export: %w", err)
	}
	if err := os.MkdirAll(safetyDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	safety := filepath.Join(safetyDir, FileName(svc.Now()))
	if err := os.WriteFile(safety, data, 0o644); err != nil {
		return "", fmt.Errorf("write safety copy: %w", err)
	}

	if err := svc.Restore(ctx, snap); err != nil {
		return safety, err
	}
	logger.Info("Snapshot restored",
		"bosses", len(snap.Bosses), "kills", len(snap.Kills), "safety_copy", safety)
	return safety, nil
}

// MigrateKills copies last kills from an older snapshot onto current bosses
// matched by trimmed name. Each copied kill is appended to the history with
// note "migrated". Returns the names updated.
func MigrateKills(ctx context.Context, svc *boss.Service, old boss.Snapshot, logger *slog.Logger) ([]string, error) {
	kills := make(map[string]time.Time)
	for _, b := range old.Bosses {
		if b.LastKill != nil {
			kills[strings.TrimSpace(b.Name)] = *b.LastKill
		}
	}
	if len(kills) == 0 {
		return nil, nil
	}

	current, err := svc.Store().ListBosses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bosses: %w", err)
	}
	var updated []string
	for _, b := range current {
		at, ok := kills[strings.TrimSpace(b.Name)]
		if !ok {
			continue
		}
		if _, _, err := svc.Kill(ctx, b.ID, at, "migrated"); err != nil {
			return updated, fmt.Errorf("migrate %s: %w", b.Name, err)
		}
		logger.Info("Kill migrated", "boss_id", b.ID, "name", b.Name, "at", at)
		updated = append(updated, b.Name)
	}
	return updated, nil
}
