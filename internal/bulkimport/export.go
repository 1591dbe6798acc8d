package bulkimport

import (
	"strconv"

	"labstock/pkg/models"
)

// Lister enumerates the store for export.
type Lister interface {
	ListAll() ([]models.Equipment, error)
}

// Exporter is the inverse of import: it projects the schema's field set into
// rows, dates as 2006-01-02, absent optionals as empty cells. It performs
// reads only and never touches the ledger.
type Exporter struct {
	store Lister
}

func NewExporter(store Lister) *Exporter {
	return &Exporter{store: store}
}

func (e *Exporter) Rows() ([]Row, error) {
	list, err := e.store.ListAll()
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(list))
	for i := range list {
		rows = append(rows, projectRow(&list[i]))
	}
	return rows, nil
}

func projectRow(e *models.Equipment) Row {
	row := make(Row, len(Schema))
	for _, field := range Schema {
		row[field.Name] = cellValue(e, field.Name)
	}
	return row
}

func cellValue(e *models.Equipment, name string) string {
	switch name {
	case "asset_tag":
		return e.AssetTag
	case "name":
		return e.Name
	case "category":
		return e.Category
	case "description":
		return strOrEmpty(e.Description)
	case "model_number":
		return strOrEmpty(e.ModelNumber)
	case "manufacturer":
		return strOrEmpty(e.Manufacturer)
	case "serial_number":
		return strOrEmpty(e.SerialNumber)
	case "procurement_date":
		if e.ProcurementDate == nil {
			return ""
		}
		return e.ProcurementDate.Format(DateFormat)
	case "warranty_expiry":
		if e.WarrantyExpiry == nil {
			return ""
		}
		return e.WarrantyExpiry.Format(DateFormat)
	case "status":
		return e.Status
	case "condition":
		return e.Condition
	case "pin_count":
		if e.PinCount == nil {
			return ""
		}
		return strconv.Itoa(*e.PinCount)
	case "location":
		return e.Location
	case "purchase_cost":
		if e.PurchaseCost == nil {
			return ""
		}
		return e.PurchaseCost.String()
	case "current_value":
		if e.CurrentValue == nil {
			return ""
		}
		return e.CurrentValue.String()
	case "tags":
		return strOrEmpty(e.Tags)
	case "notes":
		return strOrEmpty(e.Notes)
	default:
		return ""
	}
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
