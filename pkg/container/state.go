package container

// containerState is the container's own lifecycle, distinct from the
// per-component ComponentState tracked by pkg/lifecycle.
type containerState int

const (
	stateOpen containerState = iota
	stateFrozen
	stateDraining
	stateClosed
)

func (s containerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateFrozen:
		return "frozen"
	case stateDraining:
		return "draining"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
