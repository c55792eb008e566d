package handlers

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var errMissingUser = fmt.Errorf("user not resolved")

// getUserIDFromContext returns the local user id the auth middleware stored
func getUserIDFromContext(c echo.Context) (uuid.UUID, error) {
	userID, ok := c.Get(UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, errMissingUser
	}
	return userID, nil
}

// parseDateParam accepts either RFC 3339 or a plain YYYY-MM-DD date.
func parseDateParam(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
