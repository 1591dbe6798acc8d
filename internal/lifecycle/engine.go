package lifecycle

import (
	"errors"
	"fmt"

	custom_error "labstock/pkg/errors"
	"labstock/pkg/metadata"
	"labstock/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

// EquipmentStore is the slice of the equipment repository the engine mutates.
type EquipmentStore interface {
	GetByIDForUpdate(tx *goqu.TxDatabase, id int) (*models.Equipment, error)
	InsertTx(tx *goqu.TxDatabase, e *models.Equipment) (int, error)
	UpdateTx(tx *goqu.TxDatabase, e *models.Equipment) error
	DeleteTx(tx *goqu.TxDatabase, id int) error
}

// HistoryLedger appends movement and audit rows inside the same transaction
// as the entity change.
type HistoryLedger interface {
	AppendMovementTx(tx *goqu.TxDatabase, m *models.MovementLog) error
	AppendAuditTx(tx *goqu.TxDatabase, a *models.AuditLog) error
}

// ActorResolver answers whether an assignee reference is a known user.
type ActorResolver interface {
	Exists(userID int) (bool, error)
}

// Transactor runs a unit of work atomically against the store.
type Transactor interface {
	WithTx(fn func(tx *goqu.TxDatabase) error) error
}

// Engine is the single authority for equipment state changes. Every Apply
// call commits the new entity state, at most one movement event, and exactly
// one audit event together, or none of them.
type Engine struct {
	store   EquipmentStore
	ledger  HistoryLedger
	actors  ActorResolver
	txr     Transactor
	profile metadata.Profile
}

func NewEngine(store EquipmentStore, ledger HistoryLedger, actors ActorResolver, txr Transactor, profile metadata.Profile) *Engine {
	return &Engine{
		store:   store,
		ledger:  ledger,
		actors:  actors,
		txr:     txr,
		profile: profile,
	}
}

// Apply executes one transition and returns the committed snapshot.
// Precondition failures are reported synchronously and are not retried here.
func (e *Engine) Apply(req TransitionRequest) (*models.Equipment, error) {
	var result *models.Equipment

	err := e.txr.WithTx(func(tx *goqu.TxDatabase) error {
		var err error
		switch req.Op {
		case OpCreate:
			result, err = e.create(tx, req)
		case OpAssign:
			result, err = e.assign(tx, req)
		case OpUnassign:
			result, err = e.unassign(tx, req)
		case OpCheckout:
			result, err = e.checkout(tx, req)
		case OpCheckin:
			result, err = e.checkin(tx, req)
		case OpUpdate:
			result, err = e.update(tx, req)
		case OpMove:
			result, err = e.move(tx, req)
		case OpDispose:
			result, err = e.dispose(tx, req)
		case OpDelete:
			result, err = e.delete(tx, req)
		default:
			return fmt.Errorf("unknown operation: %s", req.Op)
		}
		return err
	})
	if err != nil {
		return nil, classify(err)
	}
	return result, nil
}

// classify leaves taxonomy errors alone and wraps everything else, which at
// this point can only be a failed store operation, as a PersistenceError. The
// transaction has already rolled back when the caller sees it.
func classify(err error) error {
	var validationErr *custom_error.ValidationError
	var duplicateErr *custom_error.DuplicateKeyError
	var persistenceErr *custom_error.PersistenceError
	switch {
	case errors.Is(err, custom_error.ErrPreconditionFailed),
		errors.Is(err, custom_error.ErrPermissionDenied),
		errors.Is(err, custom_error.ErrNotFound),
		errors.As(err, &validationErr),
		errors.As(err, &duplicateErr),
		errors.As(err, &persistenceErr):
		return err
	default:
		return &custom_error.PersistenceError{Err: err}
	}
}

// CreateTx creates an item inside an externally owned transaction. The bulk
// importer uses this to commit a whole batch as one unit.
func (e *Engine) CreateTx(tx *goqu.TxDatabase, req TransitionRequest) (*models.Equipment, error) {
	return e.create(tx, req)
}

func (e *Engine) create(tx *goqu.TxDatabase, req TransitionRequest) (*models.Equipment, error) {
	draft := req.Draft
	if draft == nil {
		return nil, fmt.Errorf("create requires a draft")
	}

	if draft.Status == "" {
		draft.Status = e.profile.Idle.String()
	}
	if _, err := e.profile.NewStatus(draft.Status); err != nil {
		return nil, &custom_error.ValidationError{Field: "status", Reason: err.Error()}
	}
	if draft.Condition == "" {
		draft.Condition = "good"
	}

	if draft.AssignedToID != nil {
		if err := e.requireActor(*draft.AssignedToID); err != nil {
			return nil, err
		}
		if e.profile.AssignmentImpliesUse() {
			draft.Status = e.profile.InUse.String()
		}
	} else if e.profile.AssignmentImpliesUse() && draft.Status == e.profile.InUse.String() {
		return nil, &custom_error.ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("'%s' requires an assignee", e.profile.InUse),
		}
	}

	// current_value defaults to purchase_cost at creation and is never
	// recomputed afterwards
	if draft.PurchaseCost != nil && draft.CurrentValue == nil {
		cost := *draft.PurchaseCost
		draft.CurrentValue = &cost
	}

	id, err := e.store.InsertTx(tx, draft)
	if err != nil {
		return nil, err
	}
	draft.ID = id

	movement := &models.MovementLog{
		EquipmentID: id,
		UserID:      req.ActorID,
		Action:      models.MovementCreate,
		ToLocation:  strPtrOrNil(draft.Location),
		Notes:       req.Notes,
	}
	if draft.AssignedToID != nil {
		// assignment at creation rides on the create event; custody chains
		// start at to_user
		movement.ToUserID = draft.AssignedToID
	}
	if err := e.ledger.AppendMovementTx(tx, movement); err != nil {
		return nil, err
	}

	if err := e.audit(tx, req, "create_equipment", id, nil, draft.Snapshot()); err != nil {
		return nil, err
	}
	return draft, nil
}

func (e *Engine) assign(tx *goqu.TxDatabase, req TransitionRequest) (*models.Equipment, error) {
	if req.TargetUserID == nil {
		return nil, &custom_error.ValidationError{Field: "target_user_id", Reason: "required for assign"}
	}
	if err := e.requireActor(*req.TargetUserID); err != nil {
		return nil, err
	}

	equipment, err := e.store.GetByIDForUpdate(tx, req.EquipmentID)
	if err != nil {
		return nil, err
	}

	status := metadata.Status(equipment.Status)
	if status != e.profile.Idle && status != e.profile.InUse {
		return nil, fmt.Errorf("%w: cannot assign equipment in status %s",
			custom_error.ErrPreconditionFailed, equipment.Status)
	}

	old := equipment.Snapshot()
	fromUser := equipment.AssignedToID

	equipment.AssignedToID = req.TargetUserID
	if e.profile.AssignmentImpliesUse() {
		equipment.Status = e.profile.InUse.String()
	}

	if err := e.store.UpdateTx(tx, equipment); err != nil {
		return nil, err
	}

	// a reassignment is a transfer: one event carrying both ends, not two
	movement := &models.MovementLog{
		EquipmentID: equipment.ID,
		UserID:      req.ActorID,
		Action:      models.MovementAssign,
		FromUserID:  fromUser,
		ToUserID:    req.TargetUserID,
		ToLocation:  strPtrOrNil(equipment.Location),
		Notes:       req.Notes,
	}
	if err := e.ledger.AppendMovementTx(tx, movement); err != nil {
		return nil, err
	}

	if err := e.audit(tx, req, "assign_equipment", equipment.ID, old, equipment.Snapshot()); err != nil {
		return nil, err
	}
	return equipment, nil
}

func (e *Engine) unassign(tx *goqu.TxDatabase, req TransitionRequest) (*models.Equipment, error) {
	equipment, err := e.store.GetByIDForUpdate(tx, req.EquipmentID)
	if err != nil {
		return nil, err
	}

	if equipment.AssignedToID == nil {
		return nil, fmt.Errorf("%w: equipment is not assigned", custom_error.ErrPreconditionFailed)
	}

	old := equipment.Snapshot()
	fromUser := equipment.AssignedToID

	equipment.AssignedToID = nil
	equipment.Status = e.profile.Idle.String()

	if err := e.store.UpdateTx(tx, equipment); err != nil {
		return nil, err
	}

	movement := &models.MovementLog{
		EquipmentID: equipment.ID,
		UserID:      req.ActorID,
		Action:      models.MovementUnassign,
		FromUserID:  fromUser,
		ToLocation:  strPtrOrNil(equipment.Location),
		Notes:       req.Notes,
	}
	if err := e.ledger.AppendMovementTx(tx, movement); err != nil {
		return nil, err
	}

	if err := e.audit(tx, req, "unassign_equipment", equipment.ID, old, equipment.Snapshot()); err != nil {
		return nil, err
	}
	return equipment, nil
}

func (e *Engine) checkout(tx *goqu.TxDatabase, req TransitionRequest) (*models.Equipment, error) {
	equipment, err := e.store.GetByIDForUpdate(tx, req.EquipmentID)
	if err != nil {
		return nil, err
	}

	if metadata.Status(equipment.Status) != e.profile.Idle {
		return nil, fmt.Errorf("%w: equipment is not available for checkout",
			custom_error.ErrPreconditionFailed)
	}

	old := equipment.Snapshot()
	actorID := req.ActorID

	equipment.Status = e.profile.InUse.String()
	equipment.AssignedToID = &actorID

	if err := e.store.UpdateTx(tx, equipment); err != nil {
		return nil, err
	}

	movement := &models.MovementLog{
		EquipmentID: equipment.ID,
		UserID:      req.ActorID,
		Action:      models.MovementCheckout,
		ToUserID:    &actorID,
		ToLocation:  strPtrOrNil(equipment.Location),
		Notes:       req.Notes,
	}
	if err := e.ledger.AppendMovementTx(tx, movement); err != nil {
		return nil, err
	}

	if err := e.audit(tx, req, "checkout_equipment", equipment.ID, old, equipment.Snapshot()); err != nil {
		return nil, err
	}
	return equipment, nil
}

func (e *Engine) checkin(tx *goqu.TxDatabase, req TransitionRequest) (*models.Equipment, error) {
	equipment, err := e.store.GetByIDForUpdate(tx, req.EquipmentID)
	if err != nil {
		return nil, err
	}

	if equipment.AssignedToID == nil {
		return nil, fmt.Errorf("%w: equipment is not checked out", custom_error.ErrPreconditionFailed)
	}
	if *equipment.AssignedToID != req.ActorID && !req.Elevated {
		return nil, fmt.Errorf("%w: equipment is assigned to another user",
			custom_error.ErrPermissionDenied)
	}

	old := equipment.Snapshot()
	fromUser := equipment.AssignedToID
	fromLocation := equipment.Location

	equipment.Status = e.profile.Idle.String()
	equipment.AssignedToID = nil
	// an optional return location rides on the checkin
	if req.Location != nil {
		equipment.Location = *req.Location
	}

	if err := e.store.UpdateTx(tx, equipment); err != nil {
		return nil, err
	}

	movement := &models.MovementLog{
		EquipmentID: equipment.ID,
		UserID:      req.ActorID,
		Action:      models.MovementCheckin,
		FromUserID:  fromUser,
		ToLocation:  strPtrOrNil(equipment.Location),
		Notes:       req.Notes,
	}
	if equipment.Location != fromLocation {
		movement.FromLocation = strPtrOrNil(fromLocation)
	}
	if err := e.ledger.AppendMovementTx(tx, movement); err != nil {
		return nil, err
	}

	if err := e.audit(tx, req, "checkin_equipment", equipment.ID, old, equipment.Snapshot()); err != nil {
		return nil, err
	}
	return equipment, nil
}

// update applies a manual field edit. An assignee change inside the edit is
// detected by comparing old and new values and synthesizes the proper assign
// or unassign movement, so custody chains survive edits made through forms.
func (e *Engine) update(tx *goqu.TxDatabase, req TransitionRequest) (*models.Equipment, error) {
	draft := req.Draft
	if draft == nil {
		return nil, fmt.Errorf("update requires a draft")
	}

	equipment, err := e.store.GetByIDForUpdate(tx, req.EquipmentID)
	if err != nil {
		return nil, err
	}

	old := equipment.Snapshot()
	oldAssigned := equipment.AssignedToID

	if draft.Status != "" {
		if _, err := e.profile.NewStatus(draft.Status); err != nil {
			return nil, &custom_error.ValidationError{Field: "status", Reason: err.Error()}
		}
		equipment.Status = draft.Status
	}

	equipment.Name = draft.Name
	equipment.Category = draft.Category
	equipment.Description = draft.Description
	equipment.ModelNumber = draft.ModelNumber
	equipment.Manufacturer = draft.Manufacturer
	equipment.SerialNumber = draft.SerialNumber
	equipment.ProcurementDate = draft.ProcurementDate
	equipment.WarrantyExpiry = draft.WarrantyExpiry
	if draft.Condition != "" {
		equipment.Condition = draft.Condition
	}
	equipment.Location = draft.Location
	equipment.PurchaseCost = draft.PurchaseCost
	equipment.CurrentValue = draft.CurrentValue
	if equipment.CurrentValue == nil && equipment.PurchaseCost != nil {
		cost := *equipment.PurchaseCost
		equipment.CurrentValue = &cost
	}
	equipment.Tags = draft.Tags
	equipment.Notes = draft.Notes

	var movement *models.MovementLog
	if !intPtrEqual(oldAssigned, draft.AssignedToID) {
		equipment.AssignedToID = draft.AssignedToID
		if draft.AssignedToID != nil {
			if err := e.requireActor(*draft.AssignedToID); err != nil {
				return nil, err
			}
			if e.profile.AssignmentImpliesUse() {
				equipment.Status = e.profile.InUse.String()
			}
			movement = &models.MovementLog{
				EquipmentID: equipment.ID,
				UserID:      req.ActorID,
				Action:      models.MovementAssign,
				FromUserID:  oldAssigned,
				ToUserID:    draft.AssignedToID,
				ToLocation:  strPtrOrNil(equipment.Location),
				Notes:       strPtr("assignment changed via edit"),
			}
		} else {
			equipment.Status = e.profile.Idle.String()
			movement = &models.MovementLog{
				EquipmentID: equipment.ID,
				UserID:      req.ActorID,
				Action:      models.MovementUnassign,
				FromUserID:  oldAssigned,
				ToLocation:  strPtrOrNil(equipment.Location),
				Notes:       strPtr("unassigned via edit"),
			}
		}
	}

	// an edit may not leave status and assignment contradicting each other;
	// an assignment change above already forced the matching status
	if e.profile.AssignmentImpliesUse() {
		if equipment.AssignedToID != nil && equipment.Status != e.profile.InUse.String() {
			return nil, fmt.Errorf("%w: cannot set status %s while equipment is assigned",
				custom_error.ErrPreconditionFailed, equipment.Status)
		}
		if equipment.AssignedToID == nil && equipment.Status == e.profile.InUse.String() {
			return nil, &custom_error.ValidationError{
				Field:  "status",
				Reason: fmt.Sprintf("'%s' requires an assignee", e.profile.InUse),
			}
		}
	}

	if err := e.store.UpdateTx(tx, equipment); err != nil {
		return nil, err
	}
	if movement != nil {
		if err := e.ledger.AppendMovementTx(tx, movement); err != nil {
			return nil, err
		}
	}

	if err := e.audit(tx, req, "update_equipment", equipment.ID, old, equipment.Snapshot()); err != nil {
		return nil, err
	}
	return equipment, nil
}

func (e *Engine) move(tx *goqu.TxDatabase, req TransitionRequest) (*models.Equipment, error) {
	if req.Location == nil {
		return nil, &custom_error.ValidationError{Field: "location", Reason: "required for move"}
	}

	equipment, err := e.store.GetByIDForUpdate(tx, req.EquipmentID)
	if err != nil {
		return nil, err
	}

	old := equipment.Snapshot()
	fromLocation := equipment.Location
	equipment.Location = *req.Location

	if err := e.store.UpdateTx(tx, equipment); err != nil {
		return nil, err
	}

	movement := &models.MovementLog{
		EquipmentID:  equipment.ID,
		UserID:       req.ActorID,
		Action:       models.MovementMove,
		FromLocation: strPtrOrNil(fromLocation),
		ToLocation:   strPtrOrNil(equipment.Location),
		Notes:        req.Notes,
	}
	if err := e.ledger.AppendMovementTx(tx, movement); err != nil {
		return nil, err
	}

	if err := e.audit(tx, req, "move_equipment", equipment.ID, old, equipment.Snapshot()); err != nil {
		return nil, err
	}
	return equipment, nil
}

func (e *Engine) dispose(tx *goqu.TxDatabase, req TransitionRequest) (*models.Equipment, error) {
	if req.TargetStatus == "" {
		return nil, &custom_error.ValidationError{Field: "target_status", Reason: "required for dispose"}
	}
	target, err := e.profile.NewStatus(req.TargetStatus)
	if err != nil {
		return nil, &custom_error.ValidationError{Field: "target_status", Reason: err.Error()}
	}
	if !e.profile.IsTerminal(target) {
		return nil, &custom_error.ValidationError{Field: "target_status", Reason: "not a terminal status"}
	}

	equipment, err := e.store.GetByIDForUpdate(tx, req.EquipmentID)
	if err != nil {
		return nil, err
	}

	if equipment.AssignedToID != nil {
		return nil, fmt.Errorf("%w: equipment must be checked in before disposal",
			custom_error.ErrPreconditionFailed)
	}

	old := equipment.Snapshot()
	equipment.Status = target.String()

	if err := e.store.UpdateTx(tx, equipment); err != nil {
		return nil, err
	}

	movement := &models.MovementLog{
		EquipmentID:  equipment.ID,
		UserID:       req.ActorID,
		Action:       models.MovementDispose,
		FromLocation: strPtrOrNil(equipment.Location),
		Notes:        req.Notes,
	}
	if err := e.ledger.AppendMovementTx(tx, movement); err != nil {
		return nil, err
	}

	if err := e.audit(tx, req, "dispose_equipment", equipment.ID, old, equipment.Snapshot()); err != nil {
		return nil, err
	}
	return equipment, nil
}

func (e *Engine) delete(tx *goqu.TxDatabase, req TransitionRequest) (*models.Equipment, error) {
	equipment, err := e.store.GetByIDForUpdate(tx, req.EquipmentID)
	if err != nil {
		return nil, err
	}

	old := equipment.Snapshot()

	// cascades movement and audit rows for this item; the delete audit row
	// itself survives with a null equipment reference
	if err := e.store.DeleteTx(tx, equipment.ID); err != nil {
		return nil, err
	}

	recordID := equipment.ID
	audit := &models.AuditLog{
		UserID:    req.ActorID,
		Action:    "delete_equipment",
		TableName: "equipment",
		RecordID:  &recordID,
		OldValues: old,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
	}
	if err := e.ledger.AppendAuditTx(tx, audit); err != nil {
		return nil, err
	}
	return equipment, nil
}

func (e *Engine) audit(tx *goqu.TxDatabase, req TransitionRequest, action string, equipmentID int, old, new map[string]interface{}) error {
	recordID := equipmentID
	return e.ledger.AppendAuditTx(tx, &models.AuditLog{
		UserID:      req.ActorID,
		EquipmentID: &equipmentID,
		Action:      action,
		TableName:   "equipment",
		RecordID:    &recordID,
		OldValues:   old,
		NewValues:   new,
		IPAddress:   req.IPAddress,
		UserAgent:   req.UserAgent,
	})
}

func (e *Engine) requireActor(userID int) error {
	exists, err := e.actors.Exists(userID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: user %d", custom_error.ErrNotFound, userID)
	}
	return nil
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtr(s string) *string {
	return &s
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
