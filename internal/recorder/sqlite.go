package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// MaxRecent caps a single Recent query.
const MaxRecent = 500

// SQLiteRecorder persists resolution history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the API read history while resolutions are written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS resolutions (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT NOT NULL UNIQUE,
			timestamp   INTEGER NOT NULL,
			source      TEXT NOT NULL,
			entity      TEXT NOT NULL,
			indicator   TEXT NOT NULL,
			frequency   TEXT NOT NULL,
			entity_used TEXT,
			points      INTEGER,
			skipped     INTEGER,
			outcome     TEXT NOT NULL,
			duration_ms INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_resolutions_ts ON resolutions(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_resolutions_series ON resolutions(source, entity, indicator)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordResolution(res *Resolution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := res.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO resolutions
		(id, timestamp, source, entity, indicator, frequency, entity_used,
		 points, skipped, outcome, duration_ms, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		res.ID, ts.UnixMilli(), res.Source, res.Entity, res.Indicator, res.Frequency,
		res.EntityUsed, res.Points, res.Skipped, res.Outcome,
		res.Duration.Milliseconds(), res.Error,
	)
	return err
}

func (r *SQLiteRecorder) Recent(ctx context.Context, limit int) ([]Resolution, error) {
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}
	rows, err := r.db.QueryContext(ctx, `SELECT
		id, timestamp, source, entity, indicator, frequency, entity_used,
		points, skipped, outcome, duration_ms, error
		FROM resolutions ORDER BY timestamp DESC, seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query resolutions: %w", err)
	}
	defer rows.Close()

	var out []Resolution
	for rows.Next() {
		var (
			res        Resolution
			ts, millis int64
			used, msg  sql.NullString
		)
		if err := rows.Scan(&res.ID, &ts, &res.Source, &res.Entity, &res.Indicator, &res.Frequency,
			&used, &res.Points, &res.Skipped, &res.Outcome, &millis, &msg); err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		res.Timestamp = time.UnixMilli(ts)
		res.Duration = time.Duration(millis) * time.Millisecond
		res.EntityUsed = used.String
		res.Error = msg.String
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
