package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/albapepper/bosswatch/internal/boss"
	"github.com/albapepper/bosswatch/internal/clock"
)

// PostgresStore implements boss.Store on a prepared-statement pool.
type PostgresStore struct {
	pool *Pool
	zone *clock.Zone
}

// NewPostgresStore wraps a pool created by New.
func NewPostgresStore(pool *Pool, zone *clock.Zone) *PostgresStore {
	return &PostgresStore{pool: pool, zone: zone}
}

var _ boss.Store = (*PostgresStore)(nil)

// --------------------------------------------------------------------------
// Bosses
// --------------------------------------------------------------------------

func (s *PostgresStore) GetBoss(ctx context.Context, id int) (boss.Boss, error) {
	b, err := s.scanBoss(s.pool.QueryRow(ctx, "boss_by_id", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return boss.Boss{}, fmt.Errorf("%w: %d", boss.ErrNotFound, id)
	}
	if err != nil {
		return boss.Boss{}, fmt.Errorf("get boss %d: %w", id, err)
	}
	return b, nil
}

func (s *PostgresStore) ListBosses(ctx context.Context) ([]boss.Boss, error) {
	return s.queryBosses(ctx, s.pool, "bosses_all")
}

func (s *PostgresStore) ListActiveBosses(ctx context.Context) ([]boss.Boss, error) {
	return s.queryBosses(ctx, s.pool, "bosses_active")
}

func (s *PostgresStore) CreateBoss(ctx context.Context, b boss.Boss) (boss.Boss, error) {
	err := s.pool.QueryRow(ctx, "boss_insert",
		b.Name, b.ChancePercent, b.FirstSpawnMinutes, b.RespawnMinutes, b.Active, b.LastKill,
	).Scan(&b.ID)
	if err != nil {
		return boss.Boss{}, mapPgError("create boss", err)
	}
	return b, nil
}

func (s *PostgresStore) UpdateBoss(ctx context.Context, b boss.Boss) error {
	tag, err := s.pool.Exec(ctx, "boss_update",
		b.ID, b.Name, b.ChancePercent, b.FirstSpawnMinutes, b.RespawnMinutes, b.Active, b.LastKill)
	if err != nil {
		return mapPgError("update boss", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", boss.ErrNotFound, b.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteBoss(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, "boss_delete", id)
	if err != nil {
		return fmt.Errorf("delete boss %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", boss.ErrNotFound, id)
	}
	return nil
}

// --------------------------------------------------------------------------
// Kills
// --------------------------------------------------------------------------

func (s *PostgresStore) SetLastKill(ctx context.Context, id int, at time.Time, note string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "boss_set_kill", id, at)
		if err != nil {
			return fmt.Errorf("set last kill: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %d", boss.ErrNotFound, id)
		}
		if _, err := tx.Exec(ctx, "kill_log_add", id, at, note); err != nil {
			return fmt.Errorf("append kill log: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) ClearAllLastKills(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "bosses_unkill"); err != nil {
		return fmt.Errorf("clear last kills: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListKills(ctx context.Context, bossID int, limit int) ([]boss.KillRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryKills(ctx, "kill_log_boss", bossID, limit)
}

// --------------------------------------------------------------------------
// Server state
// --------------------------------------------------------------------------

func (s *PostgresStore) RestartAnchor(ctx context.Context) (*time.Time, error) {
	st, err := s.serverState(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	return st.RestartAt, nil
}

func (s *PostgresStore) SetRestartAnchor(ctx context.Context, at time.Time) error {
	if _, err := s.pool.Exec(ctx, "state_restart", at); err != nil {
		return fmt.Errorf("set restart anchor: %w", err)
	}
	return nil
}

// Restart anchors at and clears every last kill in one transaction.
func (s *PostgresStore) Restart(ctx context.Context, at time.Time) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "state_restart", at); err != nil {
			return fmt.Errorf("set restart anchor: %w", err)
		}
		if _, err := tx.Exec(ctx, "bosses_unkill"); err != nil {
			return fmt.Errorf("clear last kills: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) NotificationLeads(ctx context.Context) ([]int, error) {
	st, err := s.serverState(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	return st.NotificationLeads, nil
}

func (s *PostgresStore) SetNotificationLeads(ctx context.Context, leads []int) error {
	if _, err := s.pool.Exec(ctx, "state_leads", boss.FormatLeads(leads)); err != nil {
		return fmt.Errorf("set notification leads: %w", err)
	}
	return nil
}

// ScheduleState reads the anchor, leads and active bosses inside one
// repeatable-read transaction.
func (s *PostgresStore) ScheduleState(ctx context.Context) (boss.ScheduleState, error) {
	var out boss.ScheduleState
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	err := pgx.BeginTxFunc(ctx, s.pool, opts, func(tx pgx.Tx) error {
		st, err := s.serverState(ctx, tx)
		if err != nil {
			return err
		}
		bosses, err := s.queryBosses(ctx, tx, "bosses_active")
		if err != nil {
			return err
		}
		out = boss.ScheduleState{RestartAt: st.RestartAt, Leads: st.NotificationLeads, Bosses: bosses}
		return nil
	})
	if err != nil {
		return boss.ScheduleState{}, fmt.Errorf("read schedule state: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) serverState(ctx context.Context, q querier) (boss.ServerState, error) {
	var (
		restart *time.Time
		leads   string
	)
	err := q.QueryRow(ctx, "state_get").Scan(&restart, &leads)
	if errors.Is(err, pgx.ErrNoRows) {
		return boss.ServerState{NotificationLeads: boss.ParseLeads("")}, nil
	}
	if err != nil {
		return boss.ServerState{}, fmt.Errorf("read server state: %w", err)
	}
	return boss.ServerState{RestartAt: s.inZone(restart), NotificationLeads: boss.ParseLeads(leads)}, nil
}

// --------------------------------------------------------------------------
// Backup
// --------------------------------------------------------------------------

func (s *PostgresStore) Export(ctx context.Context) (boss.Snapshot, error) {
	st, err := s.serverState(ctx, s.pool)
	if err != nil {
		return boss.Snapshot{}, err
	}
	bosses, err := s.ListBosses(ctx)
	if err != nil {
		return boss.Snapshot{}, err
	}
	kills, err := s.queryKills(ctx, "kill_log_all")
	if err != nil {
		return boss.Snapshot{}, err
	}
	return boss.Snapshot{
		Version:     boss.SnapshotVersion,
		ExportedAt:  s.zone.Now(),
		ServerState: st,
		Bosses:      bosses,
		Kills:       kills,
	}, nil
}

func (s *PostgresStore) Import(ctx context.Context, snap boss.Snapshot) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "TRUNCATE kill_log, bosses RESTART IDENTITY"); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}
		for _, b := range snap.Bosses {
			if _, err := tx.Exec(ctx, "boss_restore",
				b.ID, b.Name, b.ChancePercent, b.FirstSpawnMinutes, b.RespawnMinutes, b.Active, b.LastKill); err != nil {
				return mapPgError(fmt.Sprintf("restore boss %d", b.ID), err)
			}
		}
		for _, k := range snap.Kills {
			if _, err := tx.Exec(ctx, "kill_restore", k.ID, k.BossID, k.KilledAt, k.Note); err != nil {
				return fmt.Errorf("restore kill %d: %w", k.ID, err)
			}
		}
		leads := snap.ServerState.NotificationLeads
		if len(leads) == 0 {
			leads = boss.DefaultLeads
		}
		if _, err := tx.Exec(ctx, "state_replace", snap.ServerState.RestartAt, boss.FormatLeads(leads)); err != nil {
			return fmt.Errorf("restore server state: %w", err)
		}
		for _, q := range []string{"bosses_reseq", "kill_log_reseq"} {
			if _, err := tx.Exec(ctx, q); err != nil {
				return fmt.Errorf("%s: %w", q, err)
			}
		}
		return nil
	})
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.HealthCheck(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --------------------------------------------------------------------------
// Scanning
// --------------------------------------------------------------------------

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) queryBosses(ctx context.Context, q querier, stmt string) ([]boss.Boss, error) {
	rows, err := q.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", stmt, err)
	}
	defer rows.Close()

	var out []boss.Boss
	for rows.Next() {
		b, err := s.scanBoss(rows)
		if err != nil {
			return nil, fmt.Errorf("scan boss: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) scanBoss(row pgx.Row) (boss.Boss, error) {
	var (
		b     boss.Boss
		first *int32
		kill  *time.Time
	)
	var chance, respawn int32
	if err := row.Scan(&b.ID, &b.Name, &chance, &first, &respawn, &b.Active, &kill); err != nil {
		return boss.Boss{}, err
	}
	b.ChancePercent = int(chance)
	b.RespawnMinutes = int(respawn)
	if first != nil {
		f := int(*first)
		b.FirstSpawnMinutes = &f
	}
	b.LastKill = s.inZone(kill)
	return b, nil
}

func (s *PostgresStore) queryKills(ctx context.Context, stmt string, args ...any) ([]boss.KillRecord, error) {
	rows, err := s.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", stmt, err)
	}
	defer rows.Close()

	var out []boss.KillRecord
	for rows.Next() {
		var (
			k      boss.KillRecord
			bossID int32
		)
		if err := rows.Scan(&k.ID, &bossID, &k.KilledAt, &k.Note); err != nil {
			return nil, fmt.Errorf("scan kill: %w", err)
		}
		k.BossID = int(bossID)
		k.KilledAt = s.zone.In(k.KilledAt)
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *PostgresStore) inZone(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := s.zone.In(*t)
	return &v
}

func mapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, boss.ErrDuplicateName)
	}
	return fmt.Errorf("%s: %w", op, err)
}
