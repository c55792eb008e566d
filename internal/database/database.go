package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finance-tracker/internal/config"
	"finance-tracker/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DB struct {
	*gorm.DB
	config *config.DatabaseConfig
}

func New(cfg *config.DatabaseConfig) (*DB, error) {
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		DB:     db,
		config: cfg,
	}, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.Transaction{},
		&models.Budget{},
		&models.RecurringJob{},
		&models.AuditLog{},
	)
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (db *DB) HealthCheck(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CreateIndexes adds the partial indexes AutoMigrate cannot express.
func (db *DB) CreateIndexes(log *slog.Logger) {
	queries := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_one_default ON accounts(user_id) WHERE is_default",
		"CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date DESC, id DESC)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_account_type_date ON transactions(account_id, type, date)",
		"DROP INDEX IF EXISTS idx_recurring_jobs_open",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_recurring_jobs_one_open ON recurring_jobs(transaction_id) WHERE status IN ('pending', 'processing')",
	}

	for _, query := range queries {
		if err := db.DB.Exec(query).Error; err != nil {
			log.Warn("failed to create index", slog.String("query", query), slog.String("error", err.Error()))
		}
	}
}

// Initialize connects and brings the schema up to date: golang-migrate over
// a lib/pq connection when enabled, gorm AutoMigrate otherwise or on failure.
func Initialize(ctx context.Context, cfg *config.Config, log *slog.Logger) (*DB, error) {
	db, err := New(&cfg.Database)
	if err != nil {
		return nil, err
	}

	migrated := false
	if cfg.Database.AutoMigrate {
		if err := runMigrations(ctx, cfg.Database.DSN(), log); err != nil {
			log.Warn("migration runner failed, falling back to AutoMigrate", slog.String("error", err.Error()))
		} else {
			migrated = true
		}
	}

	if !migrated {
		if err := db.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		db.CreateIndexes(log)
	}

	log.Info("database initialized", slog.String("host", cfg.Database.Host), slog.String("name", cfg.Database.Name))
	return db, nil
}

func runMigrations(ctx context.Context, dsn string, log *slog.Logger) error {
	sqlDB, err := OpenMigrationConnection(dsn)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	runner := NewMigrationRunner(sqlDB, log)
	if err := runner.WaitForDatabase(ctx); err != nil {
		return fmt.Errorf("database readiness check failed: %w", err)
	}

	return runner.RunMigrations()
}
