package cooker

// EventKind identifies a control notification raised by a state transition.
type EventKind int

const (
	EventStarted EventKind = iota + 1
	EventStopped
	EventTempReached
	EventComplete
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "STARTED"
	case EventStopped:
		return "STOPPED"
	case EventTempReached:
		return "TEMP_REACHED"
	case EventComplete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// NoChamber marks events that concern the whole controller rather than a
// single chamber.
const NoChamber = -1

// Event pairs a notification kind with the chamber it concerns.
type Event struct {
	Kind    EventKind
	Chamber int // 0-based index, NoChamber for controller-wide events
}
