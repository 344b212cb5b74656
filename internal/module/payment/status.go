package payment

import (
	"fmt"
	"strings"
)

// Status represents the status of a payment. Values are the wire enum
// stored in the database and exchanged with clients.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusSuccess  Status = "SUCCESS"
	StatusFailed   Status = "FAILED"
	StatusRefunded Status = "REFUNDED"
)

// StatusFilterAll matches any status in list queries.
const StatusFilterAll = "ALL"

// Valid returns true if s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed, StatusRefunded:
		return true
	default:
		return false
	}
}

// CanTransitionTo returns true if the status can transition to the
// target status. Transitions are monotonic; nothing returns to an
// earlier state.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusSuccess || target == StatusFailed
	case StatusSuccess:
		return target == StatusRefunded
	default:
		return false
	}
}

// ParseStatusFilter parses a status query parameter. "ALL" and the
// empty string mean no filter; any other value must be one of the four
// statuses. Input is case-insensitive.
func ParseStatusFilter(raw string) (*Status, error) {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if upper == "" || upper == StatusFilterAll {
		return nil, nil
	}

	status := Status(upper)
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", raw)
	}
	return &status, nil
}
