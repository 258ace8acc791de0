package boss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/albapepper/bosswatch/internal/clock"
	"github.com/albapepper/bosswatch/internal/respawn"
)

// Change describes a committed mutation. Observers use it to invalidate
// caches and to wake the scheduler.
type Change struct {
	Kind   string // "kill" | "restart" | "catalog" | "notifications" | "restore"
	BossID int
	At     time.Time
}

// Input is the admin-supplied part of a boss definition.
type Input struct {
	Name              string
	ChancePercent     int
	RespawnMinutes    int
	FirstSpawnMinutes *int
}

// Service applies admin actions to the store.
type Service struct {
	store  Store
	zone   *clock.Zone
	clock  clock.Clock
	calc   respawn.Calculator
	logger *slog.Logger

	mu        sync.RWMutex
	observers []func(Change)
}

// NewService wires a Service. clk defaults to the zone's wall clock.
func NewService(store Store, zone *clock.Zone, clk clock.Clock, calc respawn.Calculator, logger *slog.Logger) *Service {
	if clk == nil {
		clk = zone
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, zone: zone, clock: clk, calc: calc, logger: logger}
}

// Store returns the backing store.
func (s *Service) Store() Store { return s.store }

// Zone returns the configured zone.
func (s *Service) Zone() *clock.Zone { return s.zone }

// Now returns the service clock's current instant in the zone.
func (s *Service) Now() time.Time { return s.zone.In(s.clock.Now()) }

// Calculator returns the respawn calculator in use.
func (s *Service) Calculator() respawn.Calculator { return s.calc }

// Observe registers fn to be called after every committed change.
func (s *Service) Observe(fn func(Change)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *Service) emit(c Change) {
	s.mu.RLock()
	obs := slices.Clone(s.observers)
	s.mu.RUnlock()
	for _, fn := range obs {
		fn(c)
	}
}

// --------------------------------------------------------------------------
// Transitions
// --------------------------------------------------------------------------

// Kill records a kill at the given instant and returns the updated boss and
// its next occurrence. Each call appends one kill-history record.
func (s *Service) Kill(ctx context.Context, id int, at time.Time, note string) (Boss, *time.Time, error) {
	b, err := s.store.GetBoss(ctx, id)
	if err != nil {
		return Boss{}, nil, err
	}
	at = s.zone.In(at)
	if err := s.store.SetLastKill(ctx, id, at, note); err != nil {
		return Boss{}, nil, fmt.Errorf("record kill: %w", err)
	}
	b.LastKill = &at
	s.logger.Info("kill recorded", "boss_id", id, "name", b.Name, "at", at, "note", note)
	s.emit(Change{Kind: "kill", BossID: id, At: at})

	restart, err := s.store.RestartAnchor(ctx)
	if err != nil {
		return b, nil, fmt.Errorf("read restart anchor: %w", err)
	}
	return b, s.next(b, restart), nil
}

// Restart moves the global anchor and drops every recorded kill, so all bosses
// wait for their first spawn after at.
func (s *Service) Restart(ctx context.Context, at time.Time) error {
	at = s.zone.In(at)
	if err := s.store.Restart(ctx, at); err != nil {
		return fmt.Errorf("record restart: %w", err)
	}
	s.logger.Info("server restart recorded", "at", at)
	s.emit(Change{Kind: "restart", At: at})
	return nil
}

// SetNotificationLeads validates and stores the alert lead times.
func (s *Service) SetNotificationLeads(ctx context.Context, leads []int) ([]int, error) {
	norm, err := NormalizeLeads(leads)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetNotificationLeads(ctx, norm); err != nil {
		return nil, fmt.Errorf("store notification leads: %w", err)
	}
	s.emit(Change{Kind: "notifications", At: s.Now()})
	return norm, nil
}

// --------------------------------------------------------------------------
// Catalog
// --------------------------------------------------------------------------

// Validate checks an input and applies the first-spawn policy: a literal 0
// becomes 1 minute so the boss still gets an alert window after restart.
func (in Input) Validate() (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return in, ErrInvalidName
	case in.RespawnMinutes <= 0:
		return in, ErrInvalidInterval
	case in.ChancePercent < 0 || in.ChancePercent > 100:
		return in, ErrInvalidChance
	}
	if in.FirstSpawnMinutes != nil {
		switch f := *in.FirstSpawnMinutes; {
		case f < 0:
			return in, ErrInvalidFirst
		case f == 0:
			one := 1
			in.FirstSpawnMinutes = &one
		}
	}
	return in, nil
}

// AddBoss creates an active boss.
func (s *Service) AddBoss(ctx context.Context, in Input) (Boss, error) {
	in, err := in.Validate()
	if err != nil {
		return Boss{}, err
	}
	b, err := s.store.CreateBoss(ctx, Boss{
		Name:              in.Name,
		ChancePercent:     in.ChancePercent,
		FirstSpawnMinutes: in.FirstSpawnMinutes,
		RespawnMinutes:    in.RespawnMinutes,
		Active:            true,
	})
	if err != nil {
		return Boss{}, err
	}
	s.emit(Change{Kind: "catalog", BossID: b.ID, At: s.Now()})
	return b, nil
}

// EditBoss replaces the catalog fields of an existing boss. Kill state and the
// active flag are kept.
func (s *Service) EditBoss(ctx context.Context, id int, in Input) (Boss, error) {
	in, err := in.Validate()
	if err != nil {
		return Boss{}, err
	}
	b, err := s.store.GetBoss(ctx, id)
	if err != nil {
		return Boss{}, err
	}
	b.Name = in.Name
	b.ChancePercent = in.ChancePercent
	b.RespawnMinutes = in.RespawnMinutes
	b.FirstSpawnMinutes = in.FirstSpawnMinutes
	if err := s.store.UpdateBoss(ctx, b); err != nil {
		return Boss{}, err
	}
	s.emit(Change{Kind: "catalog", BossID: id, At: s.Now()})
	return b, nil
}

// SetActive toggles whether the boss is scheduled at all.
func (s *Service) SetActive(ctx context.Context, id int, active bool) (Boss, error) {
	b, err := s.store.GetBoss(ctx, id)
	if err != nil {
		return Boss{}, err
	}
	b.Active = active
	if err := s.store.UpdateBoss(ctx, b); err != nil {
		return Boss{}, err
	}
	s.emit(Change{Kind: "catalog", BossID: id, At: s.Now()})
	return b, nil
}

// DeleteBoss removes a boss and returns what was removed.
func (s *Service) DeleteBoss(ctx context.Context, id int) (Boss, error) {
	b, err := s.store.GetBoss(ctx, id)
	if err != nil {
		return Boss{}, err
	}
	if err := s.store.DeleteBoss(ctx, id); err != nil {
		return Boss{}, err
	}
	s.emit(Change{Kind: "catalog", BossID: id, At: s.Now()})
	return b, nil
}

// Restore replaces the store content with a snapshot.
func (s *Service) Restore(ctx context.Context, snap Snapshot) error {
	if snap.Version > SnapshotVersion {
		return fmt.Errorf("snapshot version %d is newer than supported %d", snap.Version, SnapshotVersion)
	}
	if err := s.store.Import(ctx, snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	s.emit(Change{Kind: "restore", At: s.Now()})
	return nil
}

// IsNotFound is shorthand for errors.Is(err, ErrNotFound).
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func (s *Service) next(b Boss, restart *time.Time) *time.Time {
	t, ok := s.calc.Next(b.Params(restart), s.Now())
	if !ok {
		return nil
	}
	t = s.zone.In(t)
	return &t
}
