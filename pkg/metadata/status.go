package metadata

import "fmt"

type Status string

const (
	StatusAvailable        Status = "available"
	StatusInUse            Status = "in_use"
	StatusUnderMaintenance Status = "under_maintenance"
	StatusRetired          Status = "retired"
	StatusMissing          Status = "missing"

	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDisposed Status = "disposed"
)

// Profile is a closed status set for one tracked domain. The lifecycle engine
// is parameterized over a Profile so the equipment and asset variants share
// one transition implementation: Idle is the unassigned state, InUse the
// assigned one, Terminal the statuses an item cannot leave by assignment.
type Profile struct {
	Name     string
	Idle     Status
	InUse    Status
	Terminal []Status
	All      []Status
}

// EquipmentProfile covers lab equipment.
var EquipmentProfile = Profile{
	Name:     "equipment",
	Idle:     StatusAvailable,
	InUse:    StatusInUse,
	Terminal: []Status{StatusRetired, StatusMissing},
	All: []Status{
		StatusAvailable,
		StatusInUse,
		StatusUnderMaintenance,
		StatusRetired,
		StatusMissing,
	},
}

// AssetProfile covers capital assets, where assignment keeps the item active.
var AssetProfile = Profile{
	Name:     "asset",
	Idle:     StatusActive,
	InUse:    StatusActive,
	Terminal: []Status{StatusDisposed},
	All:      []Status{StatusActive, StatusInactive, StatusDisposed},
}

func (p Profile) Contains(s Status) bool {
	for _, v := range p.All {
		if v == s {
			return true
		}
	}
	return false
}

func (p Profile) IsTerminal(s Status) bool {
	for _, v := range p.Terminal {
		if v == s {
			return true
		}
	}
	return false
}

// AssignmentImpliesUse reports whether a non-null assignee forces the InUse
// status. The asset profile keeps one status for both, so the invariant is
// vacuous there.
func (p Profile) AssignmentImpliesUse() bool {
	return p.Idle != p.InUse
}

// NewStatus validates a raw status value against the profile.
func (p Profile) NewStatus(value string) (Status, error) {
	s := Status(value)
	if !p.Contains(s) {
		return "", fmt.Errorf("invalid %s status: %s", p.Name, value)
	}
	return s, nil
}

func (s Status) String() string {
	return string(s)
}
