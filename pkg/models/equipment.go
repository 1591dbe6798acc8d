package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Equipment is a tracked inventory item. The asset tag is the human-facing
// unique key and never changes once assigned.
type Equipment struct {
	ID       int    `json:"id" db:"id"`
	AssetTag string `json:"asset_tag" db:"asset_tag"`
	Name     string `json:"name" db:"name"`
	Category string `json:"category" db:"category"`

	Description  *string `json:"description,omitempty" db:"description"`
	ModelNumber  *string `json:"model_number,omitempty" db:"model_number"`
	Manufacturer *string `json:"manufacturer,omitempty" db:"manufacturer"`
	SerialNumber *string `json:"serial_number,omitempty" db:"serial_number"`

	ProcurementDate *time.Time `json:"procurement_date,omitempty" db:"procurement_date"`
	WarrantyExpiry  *time.Time `json:"warranty_expiry,omitempty" db:"warranty_expiry"`

	Status    string `json:"status" db:"status"`
	Condition string `json:"condition" db:"condition"`

	PinCount *int `json:"pin_count,omitempty" db:"pin_count"`

	Location     string `json:"location" db:"location"`
	AssignedToID *int   `json:"assigned_to_id,omitempty" db:"assigned_to_id"`

	PurchaseCost *decimal.Decimal `json:"purchase_cost,omitempty" db:"purchase_cost"`
	CurrentValue *decimal.Decimal `json:"current_value,omitempty" db:"current_value"`

	Tags  *string `json:"tags,omitempty" db:"tags"`
	Notes *string `json:"notes,omitempty" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TagsList splits the comma-separated tags column.
func (e *Equipment) TagsList() []string {
	if e.Tags == nil {
		return nil
	}
	var out []string
	for _, t := range strings.Split(*e.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (e *Equipment) SetTagsList(tags []string) {
	if len(tags) == 0 {
		e.Tags = nil
		return
	}
	joined := strings.Join(tags, ", ")
	e.Tags = &joined
}

// Snapshot captures the audit-relevant fields for old/new value payloads.
func (e *Equipment) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"asset_tag":      e.AssetTag,
		"name":           e.Name,
		"category":       e.Category,
		"status":         e.Status,
		"assigned_to_id": e.AssignedToID,
		"location":       e.Location,
	}
}

func (e *Equipment) CreateLogView() AuditLog {
	return AuditLog{
		TableName: "equipment",
		RecordID:  &e.ID,
	}
}
