package handlers

import (
	"net/http"
	"time"

	"finance-tracker/internal/errors"
	"finance-tracker/internal/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// HealthCheckHandler handles the health check endpoints
type HealthCheckHandler struct {
	db               *gorm.DB
	recurringService services.RecurringServiceInterface
}

// NewHealthCheckHandler creates a new health check handler
func NewHealthCheckHandler(db *gorm.DB, recurringService services.RecurringServiceInterface) *HealthCheckHandler {
	return &HealthCheckHandler{
		db:               db,
		recurringService: recurringService,
	}
}

// HealthCheck adds the health check endpoint
// @Summary Health check
// @Description Check API and database connectivity status
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,time=string} "Service is healthy"
// @Failure 500 {object} errors.ErrorResponse "SYSTEM_002 - Database connection failed"
// @Router /health [get]
func (h *HealthCheckHandler) HealthCheck(c echo.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return SendError(c, errors.SystemDatabaseError, errors.WithDetails("Database connection failed"))
	}

	if err := sqlDB.PingContext(c.Request().Context()); err != nil {
		return SendError(c, errors.SystemDatabaseError, errors.WithDetails("Database connection failed"))
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// QueueHealth reports recurring job counts by status
// @Summary Recurring queue status
// @Tags Health
// @Produce json
// @Success 200 {object} dto.QueueMetrics "Job counts"
// @Failure 500 {object} errors.ErrorResponse "SYSTEM_001 - Internal server error"
// @Router /health/queue [get]
func (h *HealthCheckHandler) QueueHealth(c echo.Context) error {
	metrics, err := h.recurringService.GetQueueMetrics(c.Request().Context())
	if err != nil {
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusOK, metrics)
}
