package session

// guard tracks a one-shot action. It is only read and written while the
// session mutex is held, so check-and-set is atomic per event.
type guard int

const (
	notFired guard = iota
	inFlight
	fired
	failed
)

func (g guard) String() string {
	switch g {
	case inFlight:
		return "in_flight"
	case fired:
		return "fired"
	case failed:
		return "failed"
	default:
		return "not_fired"
	}
}

// try moves the guard to inFlight if it has not fired yet.
func (g *guard) try() bool {
	if *g != notFired {
		return false
	}
	*g = inFlight
	return true
}
