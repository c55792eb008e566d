package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const defaultMigrationsPath = "db/migrations"

var (
	maxRetries    = 30
	retryInterval = 2 * time.Second
)

// MigrationRunner applies the SQL migrations under db/migrations.
type MigrationRunner struct {
	db             *sql.DB
	migrationsPath string
	logger         *slog.Logger
}

func NewMigrationRunner(db *sql.DB, logger *slog.Logger) *MigrationRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &MigrationRunner{
		db:             db,
		migrationsPath: defaultMigrationsPath,
		logger:         logger,
	}
}

// OpenMigrationConnection opens the dedicated lib/pq connection migrations run on.
func OpenMigrationConnection(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// WaitForDatabase pings until the database answers or the retry budget runs out.
func (mr *MigrationRunner) WaitForDatabase(ctx context.Context) error {
	for i := 0; i < maxRetries; i++ {
		err := mr.db.PingContext(ctx)
		if err == nil {
			mr.logger.Info("database is ready", slog.Int("attempt", i+1))
			return nil
		}

		mr.logger.Warn("database not ready",
			slog.Int("attempt", i+1),
			slog.Int("max_attempts", maxRetries),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	return fmt.Errorf("database not ready after %d attempts", maxRetries)
}

func (mr *MigrationRunner) newMigrate() (*migrate.Migrate, error) {
	absPath, err := filepath.Abs(mr.migrationsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(mr.db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", absPath), "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}

// RunMigrations applies all pending migrations. A dirty database is forced
// back to its recorded version first.
func (mr *MigrationRunner) RunMigrations() error {
	if _, err := os.Stat(mr.migrationsPath); os.IsNotExist(err) {
		mr.logger.Warn("migrations directory not found, skipping", slog.String("path", mr.migrationsPath))
		return nil
	}

	m, err := mr.newMigrate()
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		mr.logger.Warn("database is dirty, forcing version", slog.Uint64("version", uint64(version)))
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		mr.logger.Info("no new migrations to apply", slog.Uint64("version", uint64(version)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	newVersion, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to get new migration version: %w", err)
	}
	mr.logger.Info("applied migrations", slog.Uint64("version", uint64(newVersion)))
	return nil
}

// GetMigrationStatus returns the current migration version and dirty flag
func (mr *MigrationRunner) GetMigrationStatus() (uint, bool, error) {
	if _, err := os.Stat(mr.migrationsPath); os.IsNotExist(err) {
		return 0, false, fmt.Errorf("migrations directory not found")
	}

	m, err := mr.newMigrate()
	if err != nil {
		return 0, false, err
	}
	return m.Version()
}
