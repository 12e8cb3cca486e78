package enums

import "fmt"

// AssignmentStatus is the lifecycle state of a device assignment.
type AssignmentStatus string

const (
	AssignmentStatusPendingApproval AssignmentStatus = "pending_approval"
	AssignmentStatusActive          AssignmentStatus = "active"
	AssignmentStatusPendingReturn   AssignmentStatus = "pending_return"
	AssignmentStatusReturned        AssignmentStatus = "returned"
	AssignmentStatusLost            AssignmentStatus = "lost"
	AssignmentStatusDamaged         AssignmentStatus = "damaged"
)

var validAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusPendingApproval,
	AssignmentStatusActive,
	AssignmentStatusPendingReturn,
	AssignmentStatusReturned,
	AssignmentStatusLost,
	AssignmentStatusDamaged,
}

// AssignmentStatuses returns every status in lifecycle order.
func AssignmentStatuses() []AssignmentStatus {
	return append([]AssignmentStatus(nil), validAssignmentStatuses...)
}

// String implements fmt.Stringer.
func (s AssignmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AssignmentStatus.
func (s AssignmentStatus) IsValid() bool {
	for _, candidate := range validAssignmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is defined.
func (s AssignmentStatus) IsTerminal() bool {
	switch s {
	case AssignmentStatusReturned, AssignmentStatusLost, AssignmentStatusDamaged:
		return true
	default:
		return false
	}
}

// ParseAssignmentStatus converts raw input into an AssignmentStatus.
func ParseAssignmentStatus(value string) (AssignmentStatus, error) {
	for _, candidate := range validAssignmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment status %q", value)
}
