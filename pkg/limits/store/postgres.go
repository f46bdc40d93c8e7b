package store

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mercator-hq/trafficwatch/pkg/traffic"
)

// PostgresSource reads limits from a limits_per_hour table in PostgreSQL.
type PostgresSource struct {
	db *gorm.DB
}

// PostgresConfig configures a PostgresSource.
type PostgresConfig struct {
	// DSN is a libpq connection string or URL.
	DSN string

	// AutoMigrate creates or updates the table on open.
	AutoMigrate bool

	MaxOpenConns int
	MaxIdleConns int
}

// NewPostgresSource connects with gorm and verifies the connection.
func NewPostgresSource(ctx context.Context, cfg PostgresConfig) (*PostgresSource, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn cannot be empty")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	return newPostgresSource(ctx, db, cfg)
}

func newPostgresSource(ctx context.Context, db *gorm.DB, cfg PostgresConfig) (*PostgresSource, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if cfg.AutoMigrate {
		if err := db.WithContext(ctx).AutoMigrate(&Record{}); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to migrate %s: %w", TableName, err)
		}
	}

	return &PostgresSource{db: db}, nil
}

// Fetch implements traffic.LimitSource.
func (s *PostgresSource) Fetch(ctx context.Context) (traffic.Limits, error) {
	var records []Record
	if err := s.latest(ctx).Find(&records).Error; err != nil {
		return traffic.Limits{}, fmt.Errorf("failed to query limits: %w", err)
	}

	return Select(records)
}

// latest scopes a query to the records of the latest effective date.
func (s *PostgresSource) latest(ctx context.Context) *gorm.DB {
	maxDate := s.db.Model(&Record{}).Select("MAX(effective_date)")
	return s.db.WithContext(ctx).Where("effective_date = (?)", maxDate)
}

// Insert adds a record.
func (s *PostgresSource) Insert(ctx context.Context, r Record) (Record, error) {
	if err := validateRecord(r); err != nil {
		return Record{}, err
	}
	r.ID = 0
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return Record{}, fmt.Errorf("failed to insert limit record: %w", err)
	}
	return r, nil
}

// Records returns all records, newest first.
func (s *PostgresSource) Records(ctx context.Context) ([]Record, error) {
	var records []Record
	err := s.db.WithContext(ctx).
		Order("effective_date DESC").
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list limits: %w", err)
	}
	return records, nil
}

// Close closes the connection pool.
func (s *PostgresSource) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
