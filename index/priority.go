package index

import "sync/atomic"

// Priority is the indexing priority of an Index (source spec §3).
type Priority int32

const (
	PriorityNormal Priority = iota
	PriorityIdle
	PriorityDisabled
	PriorityAbandoned
	PriorityForced
	PriorityError
)

// ParsePriority parses the String() form back into a Priority; used by the
// operator-facing httpapi/cmd surfaces.
func ParsePriority(s string) (Priority, bool) {
	switch s {
	case "Normal":
		return PriorityNormal, true
	case "Idle":
		return PriorityIdle, true
	case "Disabled":
		return PriorityDisabled, true
	case "Abandoned":
		return PriorityAbandoned, true
	case "Forced":
		return PriorityForced, true
	case "Error":
		return PriorityError, true
	default:
		return 0, false
	}
}

func (p Priority) String() string {
	switch p {
	case PriorityNormal:
		return "Normal"
	case PriorityIdle:
		return "Idle"
	case PriorityDisabled:
		return "Disabled"
	case PriorityAbandoned:
		return "Abandoned"
	case PriorityForced:
		return "Forced"
	case PriorityError:
		return "Error"
	default:
		return "Unknown"
	}
}

// priorityState is an atomic, one-way-latching holder for Priority: once it
// reaches PriorityError it can never be set back to anything else (source
// spec §5 "Error quarantine": the transition is one-way).
type priorityState struct {
	value atomic.Int32
}

func newPriorityState(initial Priority) *priorityState {
	s := &priorityState{}
	s.value.Store(int32(initial))
	return s
}

func (s *priorityState) Get() Priority {
	return Priority(s.value.Load())
}

// Set changes the priority unless it is already latched at Error, in which
// case the request is silently ignored and reports false.
func (s *priorityState) Set(p Priority) bool {
	for {
		current := Priority(s.value.Load())
		if current == PriorityError {
			return false
		}
		if s.value.CompareAndSwap(int32(current), int32(p)) {
			return true
		}
	}
}

// ForceError latches the priority at Error unconditionally. Returns true if
// this call performed the transition (i.e. it was not already Error).
func (s *priorityState) ForceError() bool {
	for {
		current := Priority(s.value.Load())
		if current == PriorityError {
			return false
		}
		if s.value.CompareAndSwap(int32(current), int32(PriorityError)) {
			return true
		}
	}
}
