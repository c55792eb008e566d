package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func withFastRetries(t *testing.T, retries int) {
	t.Helper()

	originalRetries := maxRetries
	originalInterval := retryInterval
	maxRetries = retries
	retryInterval = 10 * time.Millisecond
	t.Cleanup(func() {
		maxRetries = originalRetries
		retryInterval = originalInterval
	})
}

func TestNewMigrationRunner(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	runner := NewMigrationRunner(db, nil)

	assert.Equal(t, db, runner.db)
	assert.Equal(t, defaultMigrationsPath, runner.migrationsPath)
	assert.NotNil(t, runner.logger)
}

func TestWaitForDatabase_Success(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()

	err = NewMigrationRunner(db, quietLogger()).WaitForDatabase(context.Background())

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitForDatabase_FailureThenSuccess(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	withFastRetries(t, 3)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing()

	err = NewMigrationRunner(db, quietLogger()).WaitForDatabase(context.Background())

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitForDatabase_AlwaysFails(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	withFastRetries(t, 2)

	for i := 0; i < maxRetries; i++ {
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	}

	err = NewMigrationRunner(db, quietLogger()).WaitForDatabase(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not ready after 2 attempts")
}

func TestWaitForDatabase_ContextCancelled(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	originalInterval := retryInterval
	retryInterval = time.Hour
	defer func() { retryInterval = originalInterval }()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = NewMigrationRunner(db, quietLogger()).WaitForDatabase(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunMigrations_DirectoryNotFound(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	runner := NewMigrationRunner(db, quietLogger())
	runner.migrationsPath = "/nonexistent/path/to/migrations"

	assert.NoError(t, runner.RunMigrations())
}

func TestGetMigrationStatus_DirectoryNotFound(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	runner := NewMigrationRunner(db, quietLogger())
	runner.migrationsPath = "/nonexistent/migrations"

	_, _, err = runner.GetMigrationStatus()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations directory not found")
}
