package entity

// Status is the lifecycle state shared by channels, users and login sessions.
// The numeric values are part of the wire and storage contract.
type Status int

const (
	StatusDeleted  Status = -1 // Soft-deleted; terminal.
	StatusDisabled Status = 0  // Known but not usable (e.g. an expired session).
	StatusEnabled  Status = 1  // Active.
)

// IsValid reports whether s is one of the defined statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusDeleted, StatusDisabled, StatusEnabled:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s {
	case StatusDeleted:
		return "deleted"
	case StatusDisabled:
		return "disabled"
	case StatusEnabled:
		return "enabled"
	default:
		return "unknown"
	}
}
