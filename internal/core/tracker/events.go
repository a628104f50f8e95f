package tracker

// EventKind names a browser transition the tracker reduces.
type EventKind string

const (
	EventTabUpdated         EventKind = "tab-updated"
	EventTabActivated       EventKind = "tab-activated"
	EventWindowFocusChanged EventKind = "window-focus-changed"
	EventIdleStateChanged   EventKind = "idle-state-changed"
)

// IdleState mirrors the browser's idle detection states.
type IdleState string

const (
	IdleActive IdleState = "active"
	IdleIdle   IdleState = "idle"
	IdleLocked IdleState = "locked"
)

// ParseIdleState validates an idle state name.
func ParseIdleState(value string) (IdleState, bool) {
	switch state := IdleState(value); state {
	case IdleActive, IdleIdle, IdleLocked:
		return state, true
	default:
		return "", false
	}
}

// Event is one browser transition. URL is the active tab's address when the
// browser reported one.
type Event struct {
	Kind    EventKind
	URL     string
	Focused bool
	Idle    IdleState
}
