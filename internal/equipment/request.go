package equipment

import (
	"time"

	custom_error "labstock/pkg/errors"
	"labstock/pkg/models"

	"github.com/shopspring/decimal"
)

// EquipmentRequest is the write payload for create and update. Dates arrive
// as 2006-01-02 strings; money as JSON numbers or strings.
type EquipmentRequest struct {
	AssetTag        string           `json:"asset_tag"`
	Name            string           `json:"name" binding:"required"`
	Category        string           `json:"category" binding:"required"`
	Description     *string          `json:"description,omitempty"`
	ModelNumber     *string          `json:"model_number,omitempty"`
	Manufacturer    *string          `json:"manufacturer,omitempty"`
	SerialNumber    *string          `json:"serial_number,omitempty"`
	ProcurementDate *string          `json:"procurement_date,omitempty"`
	WarrantyExpiry  *string          `json:"warranty_expiry,omitempty"`
	Status          string           `json:"status,omitempty"`
	Condition       string           `json:"condition,omitempty"`
	PinCount        *int             `json:"pin_count,omitempty"`
	Location        string           `json:"location,omitempty"`
	AssignedToID    *int             `json:"assigned_to_id,omitempty"`
	PurchaseCost    *decimal.Decimal `json:"purchase_cost,omitempty"`
	CurrentValue    *decimal.Decimal `json:"current_value,omitempty"`
	Tags            *string          `json:"tags,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
}

func (r *EquipmentRequest) toDraft() (*models.Equipment, error) {
	draft := &models.Equipment{
		AssetTag:     r.AssetTag,
		Name:         r.Name,
		Category:     r.Category,
		Description:  r.Description,
		ModelNumber:  r.ModelNumber,
		Manufacturer: r.Manufacturer,
		SerialNumber: r.SerialNumber,
		Status:       r.Status,
		Condition:    r.Condition,
		PinCount:     r.PinCount,
		Location:     r.Location,
		AssignedToID: r.AssignedToID,
		PurchaseCost: r.PurchaseCost,
		CurrentValue: r.CurrentValue,
		Tags:         r.Tags,
		Notes:        r.Notes,
	}

	var err error
	if draft.ProcurementDate, err = parseDateField("procurement_date", r.ProcurementDate); err != nil {
		return nil, err
	}
	if draft.WarrantyExpiry, err = parseDateField("warranty_expiry", r.WarrantyExpiry); err != nil {
		return nil, err
	}

	return draft, nil
}

func parseDateField(field string, value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *value)
	if err != nil {
		return nil, &custom_error.ValidationError{Field: field, Reason: "expected date in YYYY-MM-DD format"}
	}
	return &t, nil
}
