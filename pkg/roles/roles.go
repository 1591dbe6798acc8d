package roles

type Role string

const (
	Admin    Role = "admin"
	LabStaff Role = "lab_staff"
	Research Role = "researcher"
	ReadOnly Role = "read_only"
)

// Capability names checked by route middleware. The lifecycle core never
// branches on roles; it receives the resolved booleans.
const (
	CapCreate         = "create"
	CapRead           = "read"
	CapUpdate         = "update"
	CapDelete         = "delete"
	CapBulkImport     = "bulk_import"
	CapUserManagement = "user_management"
	CapCheckout       = "checkout"
	CapCheckin        = "checkin"
)

var capabilities = map[Role]map[string]bool{
	Admin: toSet(CapCreate, CapRead, CapUpdate, CapDelete, CapBulkImport,
		CapUserManagement, CapCheckout, CapCheckin),
	LabStaff: toSet(CapCreate, CapRead, CapUpdate, CapDelete, CapBulkImport,
		CapCheckout, CapCheckin),
	Research: toSet(CapRead, CapUpdate, CapCheckout, CapCheckin),
	ReadOnly: toSet(CapRead),
}

func toSet(caps ...string) map[string]bool {
	set := make(map[string]bool, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	return set
}

// May resolves one capability for one role into a boolean.
func (r Role) May(capability string) bool {
	return capabilities[r][capability]
}

func (r Role) IsValid() bool {
	switch r {
	case Admin, LabStaff, Research, ReadOnly:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}
