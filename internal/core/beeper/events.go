package beeper

import (
	"time"

	"sitebeep/internal/core/model"
)

// EventType defines the type of Beeper event.
type EventType string

const (
	EventStateChange EventType = "state_change"
	EventCue         EventType = "cue"
	EventCueError    EventType = "cue_error"
)

// Status is a snapshot of the Beeper state.
type Status struct {
	Active      bool
	Muted       bool
	LoopRunning bool
	Volume      int
	Suppression model.Suppression
}

// Event represents a Beeper update for observers.
type Event struct {
	Type    EventType
	Status  Status
	Tone    model.Tone
	Message string
	At      time.Time
}
