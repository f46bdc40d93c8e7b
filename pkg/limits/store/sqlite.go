package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	_ "modernc.org/sqlite"          // registers "sqlite"

	"mercator-hq/trafficwatch/pkg/traffic"
)

// SQLiteSource reads limits from a limits_per_hour table in SQLite.
type SQLiteSource struct {
	db        *sql.DB
	path      string
	closeOnce sync.Once

	fetchStmt  *sql.Stmt
	insertStmt *sql.Stmt
	listStmt   *sql.Stmt
}

// SQLiteConfig configures a SQLiteSource.
type SQLiteConfig struct {
	// Path is the database file.
	Path string

	// Driver is "sqlite" (modernc.org/sqlite, pure Go) or "sqlite3"
	// (mattn/go-sqlite3, cgo). Default: sqlite
	Driver string

	// BusyTimeout is how long to wait for locks. Default: 5 seconds
	BusyTimeout time.Duration

	// CreateSchema creates the table when missing.
	CreateSchema bool
}

// NewSQLiteSource opens the database at cfg.Path.
func NewSQLiteSource(ctx context.Context, cfg SQLiteConfig) (*SQLiteSource, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn, err := sqliteDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Path, err)
	}

	s := &SQLiteSource{db: db, path: cfg.Path}

	if cfg.CreateSchema {
		if err := s.initSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	if err := s.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

func sqliteDSN(cfg SQLiteConfig) (string, error) {
	ms := cfg.BusyTimeout.Milliseconds()
	switch cfg.Driver {
	case DriverSQLite:
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cfg.Path, ms), nil
	case DriverSQLite3:
		return fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL", cfg.Path, ms), nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", cfg.Driver)
	}
}

func (s *SQLiteSource) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS limits_per_hour (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		limit_name TEXT NOT NULL CHECK (limit_name IN ('min', 'max')),
		limit_value INTEGER NOT NULL,
		effective_date INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_limits_effective_date ON limits_per_hour(effective_date);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteSource) prepareStatements(ctx context.Context) error {
	var err error

	s.fetchStmt, err = s.db.PrepareContext(ctx, `
		SELECT id, limit_name, limit_value, effective_date
		FROM limits_per_hour
		WHERE effective_date = (SELECT MAX(effective_date) FROM limits_per_hour)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare fetch statement: %w", err)
	}

	s.insertStmt, err = s.db.PrepareContext(ctx, `
		INSERT INTO limits_per_hour (limit_name, limit_value, effective_date)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	s.listStmt, err = s.db.PrepareContext(ctx, `
		SELECT id, limit_name, limit_value, effective_date
		FROM limits_per_hour
		ORDER BY effective_date DESC, id ASC
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	return nil
}

// Fetch implements traffic.LimitSource.
func (s *SQLiteSource) Fetch(ctx context.Context) (traffic.Limits, error) {
	records, err := s.query(ctx, s.fetchStmt)
	if err != nil {
		return traffic.Limits{}, err
	}
	return Select(records)
}

// Insert adds a record.
func (s *SQLiteSource) Insert(ctx context.Context, r Record) (Record, error) {
	if err := validateRecord(r); err != nil {
		return Record{}, err
	}

	res, err := s.insertStmt.ExecContext(ctx, r.Name, r.Value, r.EffectiveDate.Unix())
	if err != nil {
		return Record{}, fmt.Errorf("failed to insert limit record: %w", err)
	}
	r.ID, err = res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("failed to read inserted id: %w", err)
	}
	r.EffectiveDate = time.Unix(r.EffectiveDate.Unix(), 0).UTC()
	return r, nil
}

// Records returns all records, newest first.
func (s *SQLiteSource) Records(ctx context.Context) ([]Record, error) {
	return s.query(ctx, s.listStmt)
}

func (s *SQLiteSource) query(ctx context.Context, stmt *sql.Stmt) ([]Record, error) {
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query limits: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r         Record
			effective int64
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Value, &effective); err != nil {
			return nil, fmt.Errorf("failed to scan limit record: %w", err)
		}
		r.EffectiveDate = time.Unix(effective, 0).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate limit records: %w", err)
	}
	return records, nil
}

// Close releases the statements and the database.
func (s *SQLiteSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.fetchStmt, s.insertStmt, s.listStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = s.db.Close()
	})
	return err
}
