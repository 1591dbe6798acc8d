package repository

import (
	"encoding/json"
	"fmt"

	"labstock/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

// LedgerRepository owns the append-only movement and audit tables. There are
// deliberately no update or delete methods here.
type LedgerRepository struct {
	repository *Repository
}

func NewLedgerRepository(r *Repository) *LedgerRepository {
	return &LedgerRepository{repository: r}
}

func (r *LedgerRepository) AppendMovementTx(tx *goqu.TxDatabase, m *models.MovementLog) error {
	query := tx.Insert("movement_logs").
		Rows(goqu.Record{
			"equipment_id":  m.EquipmentID,
			"user_id":       m.UserID,
			"action":        m.Action,
			"from_location": m.FromLocation,
			"to_location":   m.ToLocation,
			"from_user_id":  m.FromUserID,
			"to_user_id":    m.ToUserID,
			"notes":         m.Notes,
		}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&m.ID); err != nil {
		return fmt.Errorf("failed to insert movement log: %w", err)
	}
	return nil
}

func (r *LedgerRepository) AppendAuditTx(tx *goqu.TxDatabase, a *models.AuditLog) error {
	oldValues, newValues, err := marshalAuditValues(a)
	if err != nil {
		return err
	}

	query := tx.Insert("audit_logs").
		Rows(goqu.Record{
			"user_id":      a.UserID,
			"equipment_id": a.EquipmentID,
			"action":       a.Action,
			"table_name":   a.TableName,
			"record_id":    a.RecordID,
			"old_values":   oldValues,
			"new_values":   newValues,
			"ip_address":   a.IPAddress,
			"user_agent":   a.UserAgent,
		}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&a.ID); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// AppendAudit records an audit event outside any entity transaction, for
// actions like login and logout that mutate nothing else.
func (r *LedgerRepository) AppendAudit(a *models.AuditLog) error {
	return WithTransaction(r.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		return r.AppendAuditTx(tx, a)
	})
}

func (r *LedgerRepository) ListMovementsFor(equipmentID int) ([]models.MovementLog, error) {
	var movements []models.MovementLog
	err := r.repository.GoquDBWrapper.
		Select("id", "equipment_id", "user_id", "action", "from_location",
			"to_location", "from_user_id", "to_user_id", "timestamp", "notes").
		From("movement_logs").
		Where(goqu.Ex{"equipment_id": equipmentID}).
		Order(goqu.I("timestamp").Desc(), goqu.I("id").Desc()).
		Executor().ScanStructs(&movements)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	return movements, nil
}

func (r *LedgerRepository) ListAuditFor(equipmentID int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := r.repository.GoquDBWrapper.
		Select("id", "user_id", "equipment_id", "action", "table_name",
			"record_id", "old_values", "new_values", "timestamp",
			"ip_address", "user_agent").
		From("audit_logs").
		Where(goqu.Ex{"equipment_id": equipmentID}).
		Order(goqu.I("timestamp").Desc(), goqu.I("id").Desc()).
		Executor().ScanStructs(&logs)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	for i := range logs {
		logs[i].LoadFromDB()
	}
	return logs, nil
}

func marshalAuditValues(a *models.AuditLog) (interface{}, interface{}, error) {
	var oldValues, newValues interface{}
	if a.OldValues != nil {
		raw, err := json.Marshal(a.OldValues)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal audit old values: %w", err)
		}
		oldValues = string(raw)
	}
	if a.NewValues != nil {
		raw, err := json.Marshal(a.NewValues)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal audit new values: %w", err)
		}
		newValues = string(raw)
	}
	return oldValues, newValues, nil
}
