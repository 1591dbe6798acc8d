package bulkimport

import (
	"time"

	"labstock/pkg/models"

	"github.com/shopspring/decimal"
)

// Field setters keep the schema table declarative; adding a column means one
// schema entry and one case here.

func setTextField(draft *models.Equipment, name, value string) {
	switch name {
	case "asset_tag":
		draft.AssetTag = value
	case "name":
		draft.Name = value
	case "category":
		draft.Category = value
	case "description":
		draft.Description = &value
	case "model_number":
		draft.ModelNumber = &value
	case "manufacturer":
		draft.Manufacturer = &value
	case "serial_number":
		draft.SerialNumber = &value
	case "condition":
		draft.Condition = value
	case "location":
		draft.Location = value
	case "tags":
		draft.Tags = &value
	case "notes":
		draft.Notes = &value
	}
}

func setIntField(draft *models.Equipment, name string, value int) {
	if name == "pin_count" {
		draft.PinCount = &value
	}
}

func setMoneyField(draft *models.Equipment, name string, value decimal.Decimal) {
	switch name {
	case "purchase_cost":
		draft.PurchaseCost = &value
	case "current_value":
		draft.CurrentValue = &value
	}
}

func setDateField(draft *models.Equipment, name string, value time.Time) {
	switch name {
	case "procurement_date":
		draft.ProcurementDate = &value
	case "warranty_expiry":
		draft.WarrantyExpiry = &value
	}
}
