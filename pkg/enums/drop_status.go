package enums

import "fmt"

// DropStatus is the derived lifecycle of a waste drop. It is never stored;
// it is computed from is_undone and undo_expires_at at read time.
type DropStatus string

const (
	DropStatusActive  DropStatus = "active"
	DropStatusUndone  DropStatus = "undone"
	DropStatusExpired DropStatus = "expired"
)

var validDropStatuses = []DropStatus{
	DropStatusActive,
	DropStatusUndone,
	DropStatusExpired,
}

func (s DropStatus) String() string {
	return string(s)
}

func (s DropStatus) IsValid() bool {
	for _, candidate := range validDropStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseDropStatus converts raw input into a DropStatus.
func ParseDropStatus(value string) (DropStatus, error) {
	for _, candidate := range validDropStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid drop status %q", value)
}
