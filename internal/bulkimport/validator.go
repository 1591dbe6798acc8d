package bulkimport

import (
	"fmt"
	"strings"

	"labstock/pkg/metadata"
	"labstock/pkg/models"
)

// TagChecker is the uniqueness probe against the entity store.
type TagChecker interface {
	ExistsTag(assetTag string) (bool, error)
}

// Validator turns one untyped row into a typed equipment draft or a list of
// field errors. It reads nothing but the uniqueness check and mutates
// nothing.
type Validator struct {
	store   TagChecker
	profile metadata.Profile
}

func NewValidator(store TagChecker, profile metadata.Profile) *Validator {
	return &Validator{store: store, profile: profile}
}

// RowOutcome is the discriminated validation result. Row is 1-indexed over
// data rows plus whatever header offset the caller passed.
type RowOutcome struct {
	Row    int
	Draft  *models.Equipment
	Errors []string
}

func (o RowOutcome) Accepted() bool {
	return len(o.Errors) == 0
}

// ValidateRow validates one row. batchSeen holds the tags already accepted in
// this batch; a collision with it or with the store rejects the row without
// touching the rest of the batch.
func (v *Validator) ValidateRow(row Row, rowNo int, batchSeen map[string]bool) RowOutcome {
	outcome := RowOutcome{Row: rowNo}

	// missing required fields abort the row, one error each, before any
	// coercion runs
	for _, field := range Schema {
		if !field.Required {
			continue
		}
		if _, present := normalizeCell(row[field.Name]); !present {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s is required", field.Name))
		}
	}
	if len(outcome.Errors) > 0 {
		return outcome
	}

	draft := &models.Equipment{}
	for _, field := range Schema {
		value, present := normalizeCell(row[field.Name])
		if !present {
			continue
		}
		if err := v.applyField(draft, field, value); err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %s", field.Name, reason(err)))
		}
	}
	// imported rows carry no assignee, so a status that requires one can
	// never be satisfied
	if v.profile.AssignmentImpliesUse() &&
		draft.Status == v.profile.InUse.String() && draft.AssignedToID == nil {
		outcome.Errors = append(outcome.Errors,
			fmt.Sprintf("status: '%s' requires an assignee", v.profile.InUse))
	}
	if len(outcome.Errors) > 0 {
		return outcome
	}

	tag := draft.AssetTag
	if batchSeen[tag] {
		outcome.Errors = append(outcome.Errors,
			fmt.Sprintf("asset tag '%s' appears more than once in this file", tag))
		return outcome
	}
	exists, err := v.store.ExistsTag(tag)
	if err != nil {
		outcome.Errors = append(outcome.Errors, fmt.Sprintf("failed to check asset tag: %v", err))
		return outcome
	}
	if exists {
		outcome.Errors = append(outcome.Errors,
			fmt.Sprintf("asset tag '%s' already exists", tag))
		return outcome
	}

	outcome.Draft = draft
	return outcome
}

func (v *Validator) applyField(draft *models.Equipment, field Field, value string) error {
	switch field.Kind {
	case KindInt:
		n, err := parseIntStrict(value)
		if err != nil {
			return err
		}
		setIntField(draft, field.Name, n)
	case KindMoney:
		d, err := parseMoney(value)
		if err != nil {
			return err
		}
		setMoneyField(draft, field.Name, d)
	case KindDate:
		t, err := parseDate(value)
		if err != nil {
			return err
		}
		setDateField(draft, field.Name, t)
	case KindStatus:
		s, err := v.profile.NewStatus(strings.ToLower(value))
		if err != nil {
			return err
		}
		draft.Status = s.String()
	default:
		setTextField(draft, field.Name, value)
	}
	return nil
}

func reason(err error) string {
	return strings.TrimPrefix(err.Error(), ": ")
}
