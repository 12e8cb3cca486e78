package enums

import "fmt"

// TicketType categorizes a support request.
type TicketType string

const (
	TicketTypeRepair      TicketType = "repair"
	TicketTypeReplacement TicketType = "replacement"
	TicketTypeNewDevice   TicketType = "new_device"
	TicketTypeIssue       TicketType = "issue"
	TicketTypeReturn      TicketType = "return"
	TicketTypeOther       TicketType = "other"
)

var validTicketTypes = []TicketType{
	TicketTypeRepair,
	TicketTypeReplacement,
	TicketTypeNewDevice,
	TicketTypeIssue,
	TicketTypeReturn,
	TicketTypeOther,
}

// String implements fmt.Stringer.
func (t TicketType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TicketType.
func (t TicketType) IsValid() bool {
	for _, candidate := range validTicketTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTicketType converts raw input into a TicketType.
func ParseTicketType(value string) (TicketType, error) {
	for _, candidate := range validTicketTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ticket type %q", value)
}

// TicketPriority orders the support queue.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

var validTicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityUrgent,
}

// String implements fmt.Stringer.
func (p TicketPriority) String() string {
	return string(p)
}

// IsValid reports whether the value is a known TicketPriority.
func (p TicketPriority) IsValid() bool {
	for _, candidate := range validTicketPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseTicketPriority converts raw input into a TicketPriority.
func ParseTicketPriority(value string) (TicketPriority, error) {
	for _, candidate := range validTicketPriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ticket priority %q", value)
}

// TicketStatus tracks a ticket through triage and resolution.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusRejected   TicketStatus = "rejected"
	TicketStatusClosed     TicketStatus = "closed"
)

var validTicketStatuses = []TicketStatus{
	TicketStatusPending,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusRejected,
	TicketStatusClosed,
}

// TicketStatuses returns every status in workflow order.
func TicketStatuses() []TicketStatus {
	return append([]TicketStatus(nil), validTicketStatuses...)
}

// String implements fmt.Stringer.
func (s TicketStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TicketStatus.
func (s TicketStatus) IsValid() bool {
	for _, candidate := range validTicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsOpen reports whether the ticket can still be assigned or resolved.
func (s TicketStatus) IsOpen() bool {
	return s == TicketStatusPending || s == TicketStatusInProgress
}

// ParseTicketStatus converts raw input into a TicketStatus.
func ParseTicketStatus(value string) (TicketStatus, error) {
	for _, candidate := range validTicketStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ticket status %q", value)
}
