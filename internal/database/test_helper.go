package database

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"finance-tracker/internal/config"
	"finance-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var cleanupTables = []string{
	"audit_logs",
	"recurring_jobs",
	"transactions",
	"budgets",
	"accounts",
	"users",
}

// SetupTestDB opens a migrated in-memory sqlite database. The pool is pinned
// to one connection because every sqlite :memory: connection is its own database.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), gormConfig)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	testDB := &DB{
		DB: db,
		config: &config.DatabaseConfig{
			MaxConnections: 1,
			MaxIdleConns:   1,
		},
	}

	if err := testDB.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	testDB.CreateIndexes(slog.New(slog.NewTextHandler(io.Discard, nil)))

	return testDB
}

// SetupFileTestDB opens a migrated sqlite database backed by a file so that
// several pooled connections share it. Writers take the lock at BEGIN and
// wait on each other through the busy timeout.
func SetupFileTestDB(t *testing.T, maxConns int) *DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL&_txlock=immediate",
		filepath.Join(t.TempDir(), "finance.db"))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open file test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(maxConns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	testDB := &DB{
		DB: db,
		config: &config.DatabaseConfig{
			MaxConnections: maxConns,
			MaxIdleConns:   maxConns,
		},
	}

	if err := testDB.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate file test database: %v", err)
	}
	testDB.CreateIndexes(slog.New(slog.NewTextHandler(io.Discard, nil)))

	return testDB
}

func CreateTestUser(t *testing.T, db *DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		ExternalID: "user_" + uuid.NewString(),
		Email:      email,
		Name:       "Test User",
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

func CreateTestAccount(t *testing.T, db *DB, userID uuid.UUID, balance string, isDefault bool) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:      userID,
		Name:        "Test Account",
		AccountType: models.AccountTypeCurrent,
		Balance:     decimal.RequireFromString(balance),
		IsDefault:   isDefault,
	}

	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}

	return account
}

func CleanupTestDB(t *testing.T, db *DB) {
	t.Helper()

	for _, table := range cleanupTables {
		if err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			t.Logf("failed to cleanup table %s: %v", table, err)
		}
	}
}
