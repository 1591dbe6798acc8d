package lifecycle

import "labstock/pkg/models"

type Operation string

const (
	OpCreate   Operation = "create"
	OpAssign   Operation = "assign"
	OpUnassign Operation = "unassign"
	OpCheckout Operation = "checkout"
	OpCheckin  Operation = "checkin"
	OpUpdate   Operation = "update"
	OpMove     Operation = "move"
	OpDispose  Operation = "dispose"
	OpDelete   Operation = "delete"
)

// TransitionRequest carries one requested change. Permission decisions are
// made by the caller: Elevated reflects an external authorization check and
// is only consulted for checkin by a non-owner.
type TransitionRequest struct {
	Op          Operation
	EquipmentID int
	ActorID     int

	// Draft holds desired field values for create and update.
	Draft *models.Equipment

	// TargetUserID is the assignee for assign.
	TargetUserID *int

	// TargetStatus is the terminal status for dispose.
	TargetStatus string

	// Location is the destination for move.
	Location *string

	Elevated bool
	Notes    *string

	// Request provenance, recorded on the audit row.
	IPAddress *string
	UserAgent *string
}
