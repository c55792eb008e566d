package services

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"finance-tracker/internal/repositories/repository_mocks"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
)

// recordingEmailSender captures every email instead of delivering it.
type recordingEmailSender struct {
	mu   sync.Mutex
	err  error
	sent []sentEmail
}

type sentEmail struct {
	to      string
	subject string
	html    string
}

func (r *recordingEmailSender) Send(_ context.Context, to, subject, html string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentEmail{to: to, subject: subject, html: html})
	return nil
}

func (r *recordingEmailSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func newTestMetrics() *PrometheusMetrics {
	return newPrometheusMetrics(prometheus.NewRegistry())
}

// newTestAuditLogger returns a real audit logger whose persistence is a
// permissive mock.
func newTestAuditLogger(ctrl *gomock.Controller) (AuditLoggerInterface, *repository_mocks.MockAuditLogRepositoryInterface) {
	repo := repository_mocks.NewMockAuditLogRepositoryInterface(ctrl)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	return NewAuditLogger(discardLogger(), repo), repo
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
