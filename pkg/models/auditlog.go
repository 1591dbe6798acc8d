package models

import (
	"encoding/json"
	"time"
)

// AuditLog records a data-level change independent of custody. OldValues and
// NewValues are JSON snapshots serialized into text columns.
type AuditLog struct {
	ID        int    `json:"id" db:"id"`
	UserID    int    `json:"user_id" db:"user_id"`
	Action    string `json:"action" db:"action"`
	TableName string `json:"table_name" db:"table_name"`
	RecordID  *int   `json:"record_id,omitempty" db:"record_id"`

	// Nullable so login/logout and post-delete events survive without a row
	// to point at.
	EquipmentID *int `json:"equipment_id,omitempty" db:"equipment_id"`

	OldValuesRaw *string                `json:"-" db:"old_values"`
	NewValuesRaw *string                `json:"-" db:"new_values"`
	OldValues    map[string]interface{} `json:"old_values,omitempty" db:"-"`
	NewValues    map[string]interface{} `json:"new_values,omitempty" db:"-"`

	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	IPAddress *string   `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent *string   `json:"user_agent,omitempty" db:"user_agent"`
}

// LoadFromDB decodes the raw JSON columns after scanning.
func (a *AuditLog) LoadFromDB() {
	if a.OldValuesRaw != nil && *a.OldValuesRaw != "" {
		_ = json.Unmarshal([]byte(*a.OldValuesRaw), &a.OldValues)
	}
	if a.NewValuesRaw != nil && *a.NewValuesRaw != "" {
		_ = json.Unmarshal([]byte(*a.NewValuesRaw), &a.NewValues)
	}
}

// Audit actions not tied to a lifecycle transition.
const (
	AuditLogin      = "login"
	AuditLogout     = "logout"
	AuditBulkImport = "bulk_import"
)
