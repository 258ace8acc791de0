package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/albapepper/bosswatch/internal/boss"
	"github.com/albapepper/bosswatch/internal/clock"
)

// naiveLayout is how instants are stored in SQLite: wall clock in the
// configured zone, no offset.
const naiveLayout = "2006-01-02 15:04:05"

const (
	activeBossesQuery = "SELECT " + bossColumns + " FROM bosses WHERE active = 1 ORDER BY id"
	clearKillsQuery   = "UPDATE bosses SET last_kill = NULL WHERE last_kill IS NOT NULL"
	setRestartQuery   = `INSERT INTO server_state (id, restart_at) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET restart_at = excluded.restart_at`
)

// SQLiteStore implements boss.Store on a single-file SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	zone *clock.Zone
}

var _ boss.Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(ctx context.Context, path string, zone *clock.Zone) (*SQLiteStore, error) {
	dsn := "file:" + path + "?" + url.Values{
		"_pragma": {"foreign_keys(1)", "busy_timeout(5000)", "journal_mode(WAL)"},
	}.Encode()

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer at a time; SQLite serializes anyway.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return &SQLiteStore{db: sqlDB, zone: zone}, nil
}

// Migrate applies the embedded sqlite migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return migrate(ctx, s.db, "sqlite3", "sqlite")
}

// --------------------------------------------------------------------------
// Bosses
// --------------------------------------------------------------------------

func (s *SQLiteStore) GetBoss(ctx context.Context, id int) (boss.Boss, error) {
	b, err := s.scanBoss(s.db.QueryRowContext(ctx, "SELECT "+bossColumns+" FROM bosses WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return boss.Boss{}, fmt.Errorf("%w: %d", boss.ErrNotFound, id)
	}
	if err != nil {
		return boss.Boss{}, fmt.Errorf("get boss %d: %w", id, err)
	}
	return b, nil
}

func (s *SQLiteStore) ListBosses(ctx context.Context) ([]boss.Boss, error) {
	return s.queryBosses(ctx, s.db, "SELECT "+bossColumns+" FROM bosses ORDER BY id")
}

func (s *SQLiteStore) ListActiveBosses(ctx context.Context) ([]boss.Boss, error) {
	return s.queryBosses(ctx, s.db, activeBossesQuery)
}

func (s *SQLiteStore) CreateBoss(ctx context.Context, b boss.Boss) (boss.Boss, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO bosses (name, chance_percent, first_spawn_minutes, respawn_minutes, active, last_kill)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.Name, b.ChancePercent, nullInt(b.FirstSpawnMinutes), b.RespawnMinutes, b.Active, s.naive(b.LastKill))
	if err != nil {
		return boss.Boss{}, mapSQLiteError("create boss", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return boss.Boss{}, fmt.Errorf("create boss: %w", err)
	}
	b.ID = int(id)
	return b, nil
}

func (s *SQLiteStore) UpdateBoss(ctx context.Context, b boss.Boss) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bosses SET name = ?, chance_percent = ?, first_spawn_minutes = ?, respawn_minutes = ?, active = ?, last_kill = ?
		 WHERE id = ?`,
		b.Name, b.ChancePercent, nullInt(b.FirstSpawnMinutes), b.RespawnMinutes, b.Active, s.naive(b.LastKill), b.ID)
	if err != nil {
		return mapSQLiteError("update boss", err)
	}
	return requireRow(res, b.ID)
}

func (s *SQLiteStore) DeleteBoss(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM bosses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete boss %d: %w", id, err)
	}
	return requireRow(res, id)
}

// --------------------------------------------------------------------------
// Kills
// --------------------------------------------------------------------------

func (s *SQLiteStore) SetLastKill(ctx context.Context, id int, at time.Time, note string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE bosses SET last_kill = ? WHERE id = ?", s.naive(&at), id)
		if err != nil {
			return fmt.Errorf("set last kill: %w", err)
		}
		if err := requireRow(res, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO kill_log (boss_id, killed_at, note) VALUES (?, ?, ?)", id, s.naive(&at), note); err != nil {
			return fmt.Errorf("append kill log: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) ClearAllLastKills(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, clearKillsQuery); err != nil {
		return fmt.Errorf("clear last kills: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListKills(ctx context.Context, bossID int, limit int) ([]boss.KillRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryKills(ctx,
		"SELECT id, boss_id, killed_at, note FROM kill_log WHERE boss_id = ? ORDER BY killed_at DESC, id DESC LIMIT ?",
		bossID, limit)
}

// --------------------------------------------------------------------------
// Server state
// --------------------------------------------------------------------------

func (s *SQLiteStore) RestartAnchor(ctx context.Context) (*time.Time, error) {
	st, err := s.serverState(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return st.RestartAt, nil
}

func (s *SQLiteStore) SetRestartAnchor(ctx context.Context, at time.Time) error {
	_, err := s.db.ExecContext(ctx, setRestartQuery, s.naive(&at))
	if err != nil {
		return fmt.Errorf("set restart anchor: %w", err)
	}
	return nil
}

// Restart anchors at and clears every last kill in one transaction.
func (s *SQLiteStore) Restart(ctx context.Context, at time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, setRestartQuery, s.naive(&at)); err != nil {
			return fmt.Errorf("set restart anchor: %w", err)
		}
		if _, err := tx.ExecContext(ctx, clearKillsQuery); err != nil {
			return fmt.Errorf("clear last kills: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) NotificationLeads(ctx context.Context) ([]int, error) {
	st, err := s.serverState(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return st.NotificationLeads, nil
}

func (s *SQLiteStore) SetNotificationLeads(ctx context.Context, leads []int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO server_state (id, notification_leads) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET notification_leads = excluded.notification_leads`, boss.FormatLeads(leads))
	if err != nil {
		return fmt.Errorf("set notification leads: %w", err)
	}
	return nil
}

// ScheduleState reads the anchor, leads and active bosses in one transaction.
func (s *SQLiteStore) ScheduleState(ctx context.Context) (boss.ScheduleState, error) {
	var out boss.ScheduleState
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		st, err := s.serverState(ctx, tx)
		if err != nil {
			return err
		}
		bosses, err := s.queryBosses(ctx, tx, activeBossesQuery)
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

func (s *SQLiteStore) serverState(ctx context.Context, q sqlQuerier) (boss.ServerState, error) {
	var (
		restart sql.NullString
		leads   string
	)
	err := q.QueryRowContext(ctx, "SELECT restart_at, notification_leads FROM server_state WHERE id = 1").Scan(&restart, &leads)
	if errors.Is(err, sql.ErrNoRows) {
		return boss.ServerState{NotificationLeads: boss.ParseLeads("")}, nil
	}
	if err != nil {
		return boss.ServerState{}, fmt.Errorf("read server state: %w", err)
	}
	at, err := s.parseNaive(restart)
	if err != nil {
		return boss.ServerState{}, fmt.Errorf("read restart anchor: %w", err)
	}
	return boss.ServerState{RestartAt: at, NotificationLeads: boss.ParseLeads(leads)}, nil
}

// --------------------------------------------------------------------------
// Backup
// --------------------------------------------------------------------------

func (s *SQLiteStore) Export(ctx context.Context) (boss.Snapshot, error) {
	st, err := s.serverState(ctx, s.db)
	if err != nil {
		return boss.Snapshot{}, err
	}
	bosses, err := s.ListBosses(ctx)
	if err != nil {
		return boss.Snapshot{}, err
	}
	kills, err := s.queryKills(ctx, "SELECT id, boss_id, killed_at, note FROM kill_log ORDER BY id")
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

func (s *SQLiteStore) Import(ctx context.Context, snap boss.Snapshot) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{"DELETE FROM kill_log", "DELETE FROM bosses", "DELETE FROM sqlite_sequence WHERE name IN ('bosses', 'kill_log')"} {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return fmt.Errorf("clear tables: %w", err)
			}
		}
		for _, b := range snap.Bosses {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO bosses (id, name, chance_percent, first_spawn_minutes, respawn_minutes, active, last_kill)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				b.ID, b.Name, b.ChancePercent, nullInt(b.FirstSpawnMinutes), b.RespawnMinutes, b.Active, s.naive(b.LastKill)); err != nil {
				return mapSQLiteError(fmt.Sprintf("restore boss %d", b.ID), err)
			}
		}
		for _, k := range snap.Kills {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO kill_log (id, boss_id, killed_at, note) VALUES (?, ?, ?, ?)",
				k.ID, k.BossID, s.naive(&k.KilledAt), k.Note); err != nil {
				return fmt.Errorf("restore kill %d: %w", k.ID, err)
			}
		}
		leads := snap.ServerState.NotificationLeads
		if len(leads) == 0 {
			leads = boss.DefaultLeads
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO server_state (id, restart_at, notification_leads) VALUES (1, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET restart_at = excluded.restart_at, notification_leads = excluded.notification_leads`,
			s.naive(snap.ServerState.RestartAt), boss.FormatLeads(leads)); err != nil {
			return fmt.Errorf("restore server state: %w", err)
		}
		return nil
	})
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx.
type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) queryBosses(ctx context.Context, q sqlQuerier, query string) ([]boss.Boss, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query bosses: %w", err)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanBoss(row rowScanner) (boss.Boss, error) {
	var (
		b     boss.Boss
		first sql.NullInt64
		kill  sql.NullString
	)
	if err := row.Scan(&b.ID, &b.Name, &b.ChancePercent, &first, &b.RespawnMinutes, &b.Active, &kill); err != nil {
		return boss.Boss{}, err
	}
	if first.Valid {
		f := int(first.Int64)
		b.FirstSpawnMinutes = &f
	}
	at, err := s.parseNaive(kill)
	if err != nil {
		return boss.Boss{}, fmt.Errorf("boss %d last_kill: %w", b.ID, err)
	}
	b.LastKill = at
	return b, nil
}

func (s *SQLiteStore) queryKills(ctx context.Context, query string, args ...any) ([]boss.KillRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query kills: %w", err)
	}
	defer rows.Close()

	var out []boss.KillRecord
	for rows.Next() {
		var (
			k   boss.KillRecord
			raw string
		)
		if err := rows.Scan(&k.ID, &k.BossID, &raw, &k.Note); err != nil {
			return nil, fmt.Errorf("scan kill: %w", err)
		}
		at, err := s.parseNaive(sql.NullString{String: raw, Valid: true})
		if err != nil {
			return nil, fmt.Errorf("kill %d: %w", k.ID, err)
		}
		k.KilledAt = *at
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) naive(t *time.Time) any {
	if t == nil {
		return nil
	}
	return s.zone.In(*t).Format(naiveLayout)
}

func (s *SQLiteStore) parseNaive(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	// Older rows may carry fractional seconds or an ISO "T" separator.
	raw := strings.Replace(v.String, "T", " ", 1)
	if i := strings.IndexByte(raw, '.'); i > 0 {
		raw = raw[:i]
	}
	t, err := time.ParseInLocation(naiveLayout, raw, s.zone.Location())
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func requireRow(res sql.Result, id int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", boss.ErrNotFound, id)
	}
	return nil
}

func mapSQLiteError(op string, err error) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", op, boss.ErrDuplicateName)
	}
	return fmt.Errorf("%s: %w", op, err)
}
