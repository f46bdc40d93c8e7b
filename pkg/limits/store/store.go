package store

import (
	"context"
	"fmt"
	"time"

	"mercator-hq/trafficwatch/pkg/traffic"
)

// Store is a limit source that can also be seeded and listed.
type Store interface {
	traffic.LimitSource

	// Insert adds a record and returns it with its assigned ID.
	Insert(ctx context.Context, r Record) (Record, error)

	// Records returns all records, newest effective date first where the
	// backend orders them.
	Records(ctx context.Context) ([]Record, error)

	Close() error
}

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverSQLite3  = "sqlite3"
	DriverPostgres = "postgres"
	DriverFile     = "file"
	DriverStatic   = "static"
)

// Config selects and configures a store.
type Config struct {
	Driver string

	// DSN is the database file for SQLite drivers, the connection string
	// for postgres, and the YAML path for the file driver.
	DSN string

	BusyTimeout time.Duration

	// AutoMigrate creates the limits table when missing.
	AutoMigrate bool

	MaxOpenConns int
	MaxIdleConns int

	// StaticMin and StaticMax are used by the static driver.
	StaticMin int64
	StaticMax int64
}

// Open constructs the store named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverSQLite, DriverSQLite3:
		return NewSQLiteSource(ctx, SQLiteConfig{
			Path:         cfg.DSN,
			Driver:       cfg.Driver,
			BusyTimeout:  cfg.BusyTimeout,
			CreateSchema: cfg.AutoMigrate,
		})
	case DriverPostgres:
		return NewPostgresSource(ctx, PostgresConfig{
			DSN:          cfg.DSN,
			AutoMigrate:  cfg.AutoMigrate,
			MaxOpenConns: cfg.MaxOpenConns,
			MaxIdleConns: cfg.MaxIdleConns,
		})
	case DriverFile:
		return NewFileSource(cfg.DSN)
	case DriverStatic:
		if _, err := traffic.NewLimits(cfg.StaticMin, cfg.StaticMax); err != nil {
			return nil, err
		}
		return NewStaticSource(cfg.StaticMin, cfg.StaticMax), nil
	default:
		return nil, fmt.Errorf("unknown limits driver %q", cfg.Driver)
	}
}
