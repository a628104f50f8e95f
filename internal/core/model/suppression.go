package model

import (
	"fmt"
	"strconv"
	"time"
)

// SuppressionKind enumerates the mutually exclusive suppression modes.
type SuppressionKind int

const (
	SuppressionNone SuppressionKind = iota
	SuppressionUntilNextVisit
	SuppressionUntilTimestamp
)

// NextVisitMarker is the persisted form of SuppressionUntilNextVisit.
const NextVisitMarker = "next-visit"

func (kind SuppressionKind) String() string {
	switch kind {
	case SuppressionUntilNextVisit:
		return "until_next_visit"
	case SuppressionUntilTimestamp:
		return "until_timestamp"
	default:
		return "none"
	}
}

// Suppression is the single source of truth for why cues are held back,
// apart from the master activation flag.
type Suppression struct {
	Kind  SuppressionKind
	Until time.Time
}

// NoSuppression returns the cleared mode.
func NoSuppression() Suppression {
	return Suppression{Kind: SuppressionNone}
}

// UntilNextVisit returns the one-shot mode lifted by the next qualifying visit.
func UntilNextVisit() Suppression {
	return Suppression{Kind: SuppressionUntilNextVisit}
}

// UntilTimestamp returns the scheduled re-enable mode. Sub-millisecond
// precision is dropped so the value survives a round trip through the store.
func UntilTimestamp(deadline time.Time) Suppression {
	return Suppression{Kind: SuppressionUntilTimestamp, Until: time.UnixMilli(deadline.UnixMilli())}
}

// IsNone reports whether no suppression mode is set.
func (s Suppression) IsNone() bool {
	return s.Kind == SuppressionNone
}

// ActiveAt reports whether the suppression still holds cues back at now.
func (s Suppression) ActiveAt(now time.Time) bool {
	switch s.Kind {
	case SuppressionUntilNextVisit:
		return true
	case SuppressionUntilTimestamp:
		return now.Before(s.Until)
	default:
		return false
	}
}

// MarshalText encodes the mode as "", "next-visit" or epoch milliseconds.
func (s Suppression) MarshalText() ([]byte, error) {
	switch s.Kind {
	case SuppressionUntilNextVisit:
		return []byte(NextVisitMarker), nil
	case SuppressionUntilTimestamp:
		return []byte(strconv.FormatInt(s.Until.UnixMilli(), 10)), nil
	default:
		return []byte{}, nil
	}
}

// UnmarshalText is the inverse of MarshalText. "null" is accepted as none.
func (s *Suppression) UnmarshalText(text []byte) error {
	value := string(text)
	switch value {
	case "", "null":
		*s = NoSuppression()
		return nil
	case NextVisitMarker:
		*s = UntilNextVisit()
		return nil
	}
	millis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse suppression %q: %w", value, err)
	}
	*s = UntilTimestamp(time.UnixMilli(millis))
	return nil
}

// Describe renders the suppression for a status line.
func (s Suppression) Describe(now time.Time) string {
	switch {
	case s.Kind == SuppressionUntilNextVisit:
		return "until next visit"
	case s.Kind == SuppressionUntilTimestamp && now.Before(s.Until):
		return "until " + s.Until.Local().Format("Mon Jan 2 15:04")
	default:
		return ""
	}
}
