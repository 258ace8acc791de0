// Package boss holds the tracked boss catalog, the global restart anchor and
// the admin operations that move bosses between "awaiting first spawn" and
// "scheduled from kill".
//
// Flow: admin action → Service → Store; the tick scheduler and the list views
// read a fresh snapshot from the Store on every call.
package boss

import (
	"context"
	"errors"
	"time"

	"github.com/albapepper/bosswatch/internal/respawn"
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	ErrNotFound        = errors.New("boss not found")
	ErrDuplicateName   = errors.New("boss name already exists")
	ErrInvalidInterval = errors.New("respawn interval must be positive")
	ErrInvalidFirst    = errors.New("first spawn offset must not be negative")
	ErrInvalidChance   = errors.New("spawn chance must be between 0 and 100")
	ErrInvalidName     = errors.New("boss name must not be empty")
	ErrInvalidLeads    = errors.New("notification lead times must be positive integers")
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Boss is one tracked entity.
type Boss struct {
	ID                int        `json:"id"`
	Name              string     `json:"name"`
	ChancePercent     int        `json:"chance_percent"`
	FirstSpawnMinutes *int       `json:"first_spawn_minutes,omitempty"`
	RespawnMinutes    int        `json:"respawn_minutes"`
	Active            bool       `json:"active"`
	LastKill          *time.Time `json:"last_kill,omitempty"`
}

// State is the per-boss scheduling state.
type State int

const (
	AwaitingFirstSpawn State = iota
	ScheduledFromKill
)

func (s State) String() string {
	if s == ScheduledFromKill {
		return "scheduled_from_kill"
	}
	return "awaiting_first_spawn"
}

// State reports which anchor the next occurrence derives from.
func (b Boss) State() State {
	if b.LastKill != nil {
		return ScheduledFromKill
	}
	return AwaitingFirstSpawn
}

// Params builds calculator input for the boss under the given restart anchor.
func (b Boss) Params(restartAt *time.Time) respawn.Params {
	return respawn.Params{
		LastKill:          b.LastKill,
		RestartAt:         restartAt,
		FirstSpawnMinutes: b.FirstSpawnMinutes,
		RespawnMinutes:    b.RespawnMinutes,
	}
}

// ServerState is the singleton global schedule anchor.
type ServerState struct {
	RestartAt         *time.Time `json:"restart_at,omitempty"`
	NotificationLeads []int      `json:"notification_leads"`
}

// KillRecord is one entry of the append-only kill history.
type KillRecord struct {
	ID       int64     `json:"id"`
	BossID   int       `json:"boss_id"`
	KilledAt time.Time `json:"killed_at"`
	Note     string    `json:"note,omitempty"`
}

// Snapshot is a full export of the store used for backup and restore.
type Snapshot struct {
	Version     int          `json:"version"`
	ExportedAt  time.Time    `json:"exported_at"`
	ServerState ServerState  `json:"server_state"`
	Bosses      []Boss       `json:"bosses"`
	Kills       []KillRecord `json:"kills"`
}

// SnapshotVersion is the current backup format version.
const SnapshotVersion = 1

// DefaultLeads are the lead times used until an admin configures others.
var DefaultLeads = []int{15, 5, 1}

// ScheduleState is everything a tick reads, taken from one consistent read.
type ScheduleState struct {
	RestartAt *time.Time
	Leads     []int
	Bosses    []Boss // active only
}

// --------------------------------------------------------------------------
// Store
// --------------------------------------------------------------------------

// Store is the single source of truth for boss state. Implementations return
// instants in the configured zone.
type Store interface {
	GetBoss(ctx context.Context, id int) (Boss, error)
	ListBosses(ctx context.Context) ([]Boss, error)
	ListActiveBosses(ctx context.Context) ([]Boss, error)
	CreateBoss(ctx context.Context, b Boss) (Boss, error)
	UpdateBoss(ctx context.Context, b Boss) error
	DeleteBoss(ctx context.Context, id int) error

	// SetLastKill records the kill on the boss and appends it to the history.
	SetLastKill(ctx context.Context, id int, at time.Time, note string) error
	ClearAllLastKills(ctx context.Context) error

	RestartAnchor(ctx context.Context) (*time.Time, error)
	SetRestartAnchor(ctx context.Context, at time.Time) error
	// Restart moves the anchor and clears every last kill atomically.
	Restart(ctx context.Context, at time.Time) error
	NotificationLeads(ctx context.Context) ([]int, error)
	SetNotificationLeads(ctx context.Context, leads []int) error

	ListKills(ctx context.Context, bossID int, limit int) ([]KillRecord, error)
	ScheduleState(ctx context.Context) (ScheduleState, error)

	Export(ctx context.Context) (Snapshot, error)
	// Import replaces the whole store content with the snapshot.
	Import(ctx context.Context, snap Snapshot) error

	Ping(ctx context.Context) error
	Close() error
}
