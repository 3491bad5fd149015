// Package store persists the drug catalog and the interaction table in a
// relational database through GORM. SQLite is the default backend, Postgres
// is supported for production deployments. Every mutation runs in its own
// transaction; the store keeps no state besides the database handle.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/giygas/druginteractions-api/entities"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options configures the database connection
type Options struct {
	Driver string
	DSN    string
	// LogLevel controls GORM's own query logger
	LogLevel gormLogger.LogLevel
}

// Store implements interfaces.CatalogStore and interfaces.InteractionStore
type Store struct {
	db *gorm.DB
}

// New wraps an existing GORM handle
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Open connects to the configured database
func Open(opts Options) (*Store, error) {
	if opts.LogLevel == 0 {
		opts.LogLevel = gormLogger.Warn
	}

	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(opts.LogLevel),
	}

	var dialector gorm.Dialector
	switch strings.ToLower(opts.Driver) {
	case "", DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(opts.DSN))
	case DriverPostgres:
		dialector = postgres.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if dialector.Name() == DriverSQLite {
		// SQLite serialises writers anyway, one connection avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return New(db), nil
}

// sqliteDSN makes sure foreign keys are enforced so deletes cascade
func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "druginteractions.db"
	}
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=1"
}

// Migrate creates or upgrades the schema
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&entities.Drug{}, &entities.DrugInteraction{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB exposes the GORM handle, mainly for tests and maintenance commands
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn against a store bound to a single database transaction.
// Returning an error from fn rolls everything back. Nested calls use savepoints.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}
