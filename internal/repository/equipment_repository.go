package repository

import (
	"fmt"

	custom_error "labstock/pkg/errors"
	"labstock/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"
)

var equipmentColumns = []interface{}{
	"id", "asset_tag", "name", "category", "description", "model_number",
	"manufacturer", "serial_number", "procurement_date", "warranty_expiry",
	"status", "condition", "pin_count", "location", "assigned_to_id", "purchase_cost",
	"current_value", "tags", "notes", "created_at", "updated_at",
}

// EquipmentRepository is the durable store of tracked items. Mutations take a
// tx so the lifecycle engine can commit the (entity, movement, audit) triple
// as one unit.
type EquipmentRepository struct {
	repository *Repository
}

func NewEquipmentRepository(r *Repository) *EquipmentRepository {
	return &EquipmentRepository{repository: r}
}

func (r *EquipmentRepository) GetByID(id int) (*models.Equipment, error) {
	return r.scanOne(r.repository.GoquDBWrapper.
		Select(equipmentColumns...).
		From("equipment").
		Where(goqu.Ex{"id": id}))
}

func (r *EquipmentRepository) GetByTag(assetTag string) (*models.Equipment, error) {
	return r.scanOne(r.repository.GoquDBWrapper.
		Select(equipmentColumns...).
		From("equipment").
		Where(goqu.Ex{"asset_tag": assetTag}))
}

// GetByIDForUpdate re-reads a row inside tx with a row lock, so two racing
// transitions against the same item serialize and the loser observes the
// committed status.
func (r *EquipmentRepository) GetByIDForUpdate(tx *goqu.TxDatabase, id int) (*models.Equipment, error) {
	return r.scanOne(tx.
		Select(equipmentColumns...).
		From("equipment").
		Where(goqu.Ex{"id": id}).
		ForUpdate(exp.Wait))
}

func (r *EquipmentRepository) scanOne(query *goqu.SelectDataset) (*models.Equipment, error) {
	var equipment models.Equipment
	found, err := query.Executor().ScanStruct(&equipment)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return nil, custom_error.ErrNotFound
	}
	return &equipment, nil
}

func (r *EquipmentRepository) ExistsTag(assetTag string) (bool, error) {
	var count int
	_, err := r.repository.GoquDBWrapper.
		Select(goqu.COUNT("id")).
		From("equipment").
		Where(goqu.Ex{"asset_tag": assetTag}).
		Executor().ScanVal(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check asset tag: %w", err)
	}
	return count > 0, nil
}

func (r *EquipmentRepository) ListAll() ([]models.Equipment, error) {
	var list []models.Equipment
	err := r.repository.GoquDBWrapper.
		Select(equipmentColumns...).
		From("equipment").
		Order(goqu.I("asset_tag").Asc()).
		Executor().ScanStructs(&list)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	return list, nil
}

// ListFilter narrows the equipment listing. Zero values mean "no filter".
type ListFilter struct {
	Status   string
	Category string
	Assigned *bool
	Search   string
}

func (r *EquipmentRepository) List(filter ListFilter) ([]models.Equipment, error) {
	query := r.repository.GoquDBWrapper.
		Select(equipmentColumns...).
		From("equipment")

	if filter.Status != "" {
		query = query.Where(goqu.Ex{"status": filter.Status})
	}
	if filter.Category != "" {
		query = query.Where(goqu.Ex{"category": filter.Category})
	}
	if filter.Assigned != nil {
		if *filter.Assigned {
			query = query.Where(goqu.C("assigned_to_id").IsNotNull())
		} else {
			query = query.Where(goqu.C("assigned_to_id").IsNull())
		}
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(goqu.Or(
			goqu.C("asset_tag").ILike(pattern),
			goqu.C("name").ILike(pattern),
			goqu.C("model_number").ILike(pattern),
			goqu.C("manufacturer").ILike(pattern),
			goqu.C("serial_number").ILike(pattern),
			goqu.C("location").ILike(pattern),
		))
	}

	var list []models.Equipment
	if err := query.Order(goqu.I("asset_tag").Asc()).Executor().ScanStructs(&list); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	return list, nil
}

func (r *EquipmentRepository) InsertTx(tx *goqu.TxDatabase, e *models.Equipment) (int, error) {
	query := tx.Insert("equipment").
		Rows(equipmentRecord(e)).
		Returning("id")

	var id int
	if _, err := query.Executor().ScanVal(&id); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return 0, &custom_error.DuplicateKeyError{Field: "asset_tag", Value: e.AssetTag}
		}
		return 0, fmt.Errorf("failed to insert equipment record: %w", err)
	}
	return id, nil
}

func (r *EquipmentRepository) UpdateTx(tx *goqu.TxDatabase, e *models.Equipment) error {
	record := equipmentRecord(e)
	record["updated_at"] = goqu.L("now()")

	_, err := tx.Update("equipment").
		Set(record).
		Where(goqu.Ex{"id": e.ID}).
		Executor().Exec()
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return &custom_error.DuplicateKeyError{Field: "asset_tag", Value: e.AssetTag}
		}
		return fmt.Errorf("failed to update equipment record: %w", err)
	}
	return nil
}

func (r *EquipmentRepository) DeleteTx(tx *goqu.TxDatabase, id int) error {
	// movement_logs and audit_logs cascade via their foreign keys
	_, err := tx.Delete("equipment").
		Where(goqu.Ex{"id": id}).
		Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to delete equipment record: %w", err)
	}
	return nil
}

// Categories returns the distinct categories in use, for listing filters.
func (r *EquipmentRepository) Categories() ([]string, error) {
	var categories []string
	err := r.repository.GoquDBWrapper.
		Select(goqu.DISTINCT("category")).
		From("equipment").
		Order(goqu.I("category").Asc()).
		Executor().ScanVals(&categories)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	return categories, nil
}

func equipmentRecord(e *models.Equipment) goqu.Record {
	return goqu.Record{
		"asset_tag":        e.AssetTag,
		"name":             e.Name,
		"category":         e.Category,
		"description":      e.Description,
		"model_number":     e.ModelNumber,
		"manufacturer":     e.Manufacturer,
		"serial_number":    e.SerialNumber,
		"procurement_date": e.ProcurementDate,
		"warranty_expiry":  e.WarrantyExpiry,
		"status":           e.Status,
		"condition":        e.Condition,
		"pin_count":        e.PinCount,
		"location":         e.Location,
		"assigned_to_id":   e.AssignedToID,
		"purchase_cost":    e.PurchaseCost,
		"current_value":    e.CurrentValue,
		"tags":             e.Tags,
		"notes":            e.Notes,
	}
}
