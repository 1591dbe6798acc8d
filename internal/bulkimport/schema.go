package bulkimport

import (
	"strconv"
	"strings"
	"time"

	custom_error "labstock/pkg/errors"

	"github.com/shopspring/decimal"
)

// Row is one untyped tabular record, column name to raw cell value. Cells may
// be absent, blank, or NA-like; the schema decides what that means per field.
type Row map[string]string

type FieldKind int

const (
	KindText FieldKind = iota
	KindInt
	KindMoney
	KindDate
	KindStatus
)

type Field struct {
	Name     string
	Required bool
	Kind     FieldKind
}

// Schema is the single coercion table shared by the bulk path and the form
// path, in export column order: required fields first, then optional fields
// in a fixed order.
var Schema = []Field{
	{Name: "asset_tag", Required: true},
	{Name: "name", Required: true},
	{Name: "category", Required: true},
	{Name: "description"},
	{Name: "model_number"},
	{Name: "manufacturer"},
	{Name: "serial_number"},
	{Name: "procurement_date", Kind: KindDate},
	{Name: "warranty_expiry", Kind: KindDate},
	{Name: "status", Kind: KindStatus},
	{Name: "condition"},
	{Name: "pin_count", Kind: KindInt},
	{Name: "location"},
	{Name: "purchase_cost", Kind: KindMoney},
	{Name: "current_value", Kind: KindMoney},
	{Name: "tags"},
	{Name: "notes"},
}

// Headers returns the schema column names in export order.
func Headers() []string {
	names := make([]string, len(Schema))
	for i, f := range Schema {
		names[i] = f.Name
	}
	return names
}

// dateLayouts are tried in this exact order; the first match wins, which
// makes 01/02/2006 authoritative for inputs both layouts could parse.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006-01-02 15:04:05",
}

const DateFormat = "2006-01-02"

var naSentinels = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"null": true,
	"none": true,
	"nan":  true,
}

// normalizeCell trims a raw cell and reports whether it holds a value at all.
// NA-like sentinels count as absent, which is not an error for optional
// fields.
func normalizeCell(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if naSentinels[strings.ToLower(value)] {
		return "", false
	}
	return value, true
}

func parseIntStrict(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &custom_error.ValidationError{
			Field: "", Reason: "must be a whole number, got '" + value + "'",
		}
	}
	return n, nil
}

func parseMoney(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, &custom_error.ValidationError{
			Field: "", Reason: "must be a decimal amount, got '" + value + "'",
		}
	}
	return d, nil
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &custom_error.ValidationError{
		Field: "", Reason: "invalid date format: '" + value + "'",
	}
}
