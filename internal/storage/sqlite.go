package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "iptvctl/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) LoadSchedules(ctx context.Context) ([]ScheduleRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, hour, minute, action, weekdays, enabled, created_at, updated_at FROM schedules`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ScheduleRecord{}
	for rows.Next() {
		var (
			r        ScheduleRecord
			weekdays string
			enabled  int
			created  string
			updated  string
		)
		if err := rows.Scan(&r.ID, &r.Hour, &r.Minute, &r.Action, &weekdays, &enabled, &created, &updated); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(weekdays), &r.Weekdays); err != nil {
			return nil, fmt.Errorf("schedule %s: decode weekdays: %w", r.ID, err)
		}
		r.Enabled = enabled != 0
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveSchedules rewrites the whole collection in one transaction, matching the
// file driver's atomic-replace semantics.
func (s *sqliteStore) SaveSchedules(ctx context.Context, all []ScheduleRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedules`); err != nil {
		return err
	}
	for _, r := range all {
		wd, err := json.Marshal(r.Weekdays)
		if err != nil {
			return err
		}
		enabled := 0
		if r.Enabled {
			enabled = 1
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO schedules(id, hour, minute, action, weekdays, enabled, created_at, updated_at)
			 VALUES(?,?,?,?,?,?,?,?)`,
			r.ID, r.Hour, r.Minute, r.Action, string(wd), enabled,
			r.CreatedAt.Format(time.RFC3339Nano), r.UpdatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) AppendHistory(ctx context.Context, r HistoryRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history(at, minutes, note) VALUES(?,?,?)`,
		r.At.Format(time.RFC3339Nano), r.Minutes, nullStr(r.Note),
	)
	return err
}

func (s *sqliteStore) ListHistory(ctx context.Context) ([]HistoryRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx, `SELECT at, minutes, note FROM history ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []HistoryRecord{}
	for rows.Next() {
		var (
			r    HistoryRecord
			at   string
			note sql.NullString
		)
		if err := rows.Scan(&at, &r.Minutes, &note); err != nil {
			return nil, err
		}
		r.At, _ = time.Parse(time.RFC3339Nano, at)
		r.Note = note.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit(at, source, action, outcome, err) VALUES(?,?,?,?,?)`,
		e.At.Format(time.RFC3339Nano), e.Source, e.Action, e.Outcome, nullStr(e.Error),
	)
	return err
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
