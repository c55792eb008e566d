package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AuditActionAccountCreated        = "account_created"
	AuditActionDefaultAccountChanged = "default_account_changed"
	AuditActionTransactionCreated    = "transaction_created"
	AuditActionTransactionUpdated    = "transaction_updated"
	AuditActionTransactionsDeleted   = "transactions_deleted"
	AuditActionRecurringMaterialized = "recurring_materialized"
	AuditActionBudgetUpdated         = "budget_updated"
	AuditActionBudgetAlertSent       = "budget_alert_sent"
	AuditActionSampleDataSeeded      = "sample_data_seeded"

	AuditResourceAccount     = "account"
	AuditResourceTransaction = "transaction"
	AuditResourceBudget      = "budget"
)

// AuditLog is the persisted trail of user-visible state changes.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action     string     `gorm:"type:varchar(100);not null;index" json:"action"`
	Resource   string     `gorm:"type:varchar(100);not null" json:"resource"`
	ResourceID string     `gorm:"type:varchar(255)" json:"resource_id,omitempty"`
	Metadata   JSONBMap   `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;index" json:"created_at"`
}

func (al *AuditLog) SetMetadata(key string, value interface{}) {
	if al.Metadata == nil {
		al.Metadata = make(JSONBMap)
	}
	al.Metadata[key] = value
}

func (al *AuditLog) TableName() string {
	return "audit_logs"
}

func (al *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if al.ID == uuid.Nil {
		al.ID = uuid.New()
	}

	if al.CreatedAt.IsZero() {
		al.CreatedAt = time.Now().UTC()
	}
	return nil
}

// JSONBMap is a JSON object column, stored as text so sqlite can hold it too.
type JSONBMap map[string]interface{}

func (m JSONBMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

func (m *JSONBMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONBMap", value)
	}

	if len(bytes) == 0 {
		*m = nil
		return nil
	}

	return json.Unmarshal(bytes, m)
}
