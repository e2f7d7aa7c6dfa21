package lifecycle

// FailureMode governs how the Manager reacts when a component's hook
// returns an error during post_construct or startup, per spec.md §4.2.
type FailureMode int

const (
	// Strict aborts the remaining startup sequence immediately and marks
	// the failing component Failed; components not yet reached keep their
	// current state.
	Strict FailureMode = iota
	// Warn logs the failure, marks the failing component Failed, but
	// continues starting the remaining components.
	Warn
	// Ignore silently marks the failing component Failed and continues,
	// without emitting a log line beyond debug level.
	Ignore
)

func (m FailureMode) String() string {
	switch m {
	case Strict:
		return "strict"
	case Warn:
		return "warn"
	case Ignore:
		return "ignore"
	default:
		return "unknown"
	}
}

// ParseFailureMode parses the three recognized failure-mode names, used
// when pkg/config loads a mode from YAML/env.
func ParseFailureMode(s string) (FailureMode, bool) {
	switch s {
	case "strict":
		return Strict, true
	case "warn":
		return Warn, true
	case "ignore":
		return Ignore, true
	default:
		return Strict, false
	}
}
