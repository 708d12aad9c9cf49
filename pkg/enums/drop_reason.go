package enums

import "fmt"

// DropReason maps to the drop_reason_enum enum in Postgres.
type DropReason string

const (
	DropReasonExpired        DropReason = "expired"
	DropReasonEndOfDay       DropReason = "end_of_day"
	DropReasonQualityIssue   DropReason = "quality_issue"
	DropReasonDamaged        DropReason = "damaged"
	DropReasonContaminated   DropReason = "contaminated"
	DropReasonOverproduction DropReason = "overproduction"
	DropReasonOther          DropReason = "other"
)

var validDropReasons = []DropReason{
	DropReasonExpired,
	DropReasonEndOfDay,
	DropReasonQualityIssue,
	DropReasonDamaged,
	DropReasonContaminated,
	DropReasonOverproduction,
	DropReasonOther,
}

// String implements fmt.Stringer.
func (r DropReason) String() string {
	return string(r)
}

// IsValid reports whether the value is a known DropReason.
func (r DropReason) IsValid() bool {
	for _, candidate := range validDropReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseDropReason converts raw input into a DropReason.
func ParseDropReason(value string) (DropReason, error) {
	for _, candidate := range validDropReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid drop reason %q", value)
}
