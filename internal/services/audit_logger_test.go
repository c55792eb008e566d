package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"finance-tracker/internal/models"
	"finance-tracker/internal/repositories/repository_mocks"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedAuditLogger(t *testing.T) (*AuditLogger, *repository_mocks.MockAuditLogRepositoryInterface, *bytes.Buffer) {
	ctrl := gomock.NewController(t)
	repo := repository_mocks.NewMockAuditLogRepositoryInterface(ctrl)
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))
	return NewAuditLogger(logger, repo).(*AuditLogger), repo, buf
}

func TestAuditLogger_PersistsWithCorrelationID(t *testing.T) {
	auditLogger, repo, buf := newBufferedAuditLogger(t)
	userID, accountID := uuid.New(), uuid.New()

	var saved *models.AuditLog
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *models.AuditLog) error {
			saved = entry
			return nil
		})

	ctx := WithCorrelationID(context.Background(), "trace-123")
	auditLogger.LogAccountCreated(ctx, userID, accountID, models.AccountTypeSavings, true)

	require.NotNil(t, saved)
	assert.Equal(t, userID, *saved.UserID)
	assert.Equal(t, models.AuditActionAccountCreated, saved.Action)
	assert.Equal(t, accountID.String(), saved.ResourceID)
	assert.Equal(t, "trace-123", saved.Metadata["correlation_id"])
	assert.Equal(t, models.AccountTypeSavings, saved.Metadata["account_type"])

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, models.AuditActionAccountCreated, line["event_type"])
	assert.Equal(t, "trace-123", line["correlation_id"])
}

func TestAuditLogger_PersistenceFailureIsOnlyLogged(t *testing.T) {
	auditLogger, repo, buf := newBufferedAuditLogger(t)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	assert.NotPanics(t, func() {
		auditLogger.LogBudgetUpdated(context.Background(), uuid.New(), uuid.New(), "500.00")
	})
	assert.Contains(t, buf.String(), "failed to persist audit log")
}

func TestAuditLogger_OperationalEventsAreNotPersisted(t *testing.T) {
	auditLogger, _, buf := newBufferedAuditLogger(t)

	auditLogger.LogRetryAttempt(context.Background(), uuid.New(), uuid.New(), 1, 3, 2000)
	auditLogger.LogCircuitBreakerStateChange(context.Background(), "email", "closed", "open")

	assert.Contains(t, buf.String(), "\"backoff_ms\":2000")
	assert.Contains(t, buf.String(), "\"new_state\":\"open\"")
}
