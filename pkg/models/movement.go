package models

import "time"

// MovementLog is an immutable custody record. FromUserID and ToUserID are two
// distinct optional references into users, not one shared foreign key: a
// transfer carries both on a single row.
type MovementLog struct {
	ID          int    `json:"id" db:"id"`
	EquipmentID int    `json:"equipment_id" db:"equipment_id"`
	UserID      int    `json:"user_id" db:"user_id"`
	Action      string `json:"action" db:"action"`

	FromLocation *string `json:"from_location,omitempty" db:"from_location"`
	ToLocation   *string `json:"to_location,omitempty" db:"to_location"`
	FromUserID   *int    `json:"from_user_id,omitempty" db:"from_user_id"`
	ToUserID     *int    `json:"to_user_id,omitempty" db:"to_user_id"`

	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Notes     *string   `json:"notes,omitempty" db:"notes"`
}

// Movement actions written by the lifecycle engine.
const (
	MovementCreate   = "create"
	MovementAssign   = "assign"
	MovementUnassign = "unassign"
	MovementCheckout = "checkout"
	MovementCheckin  = "checkin"
	MovementMove     = "move"
	MovementDispose  = "dispose"
)
