// Package control implements the operations behind the extension popup and
// the tray menu, and binds them to message types.
package control

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"sitebeep/internal/core/beeper"
	"sitebeep/internal/core/model"
	"sitebeep/internal/core/tracker"
)

// MorningHour is when "until tomorrow morning" ends.
const MorningHour = 8

// ErrEmptyURL is returned when an allow-list edit names no site.
var ErrEmptyURL = errors.New("url is empty")

// Beeper is the part of the beeper driven by control operations.
type Beeper interface {
	Enable() error
	Disable() error
	DisableTemporarily() error
	DisableUntil(deadline time.Time) error
	SetVolume(volume int) error
	TemporarilyDisabled() bool
	Status() beeper.Status
}

// Tracker is the part of the focus tracker control operations consult.
type Tracker interface {
	CurrentSite() string
	Reevaluate(ctx context.Context) error
	HandleEvent(ctx context.Context, event tracker.Event) error
	SetBrowserVersion(version string)
}

// PreferenceStore holds the allow-list.
type PreferenceStore interface {
	CurrentState() (model.Preferences, error)
	Update(mutate func(*model.Preferences)) error
}

// Controller applies user commands.
type Controller struct {
	beeper  Beeper
	tracker Tracker
	store   PreferenceStore
	clock   clockwork.Clock
	log     zerolog.Logger
}

// New returns a Controller. A nil clock uses the real one.
func New(b Beeper, t Tracker, store PreferenceStore, clock clockwork.Clock, logger zerolog.Logger) *Controller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Controller{
		beeper:  b,
		tracker: t,
		store:   store,
		clock:   clock,
		log:     logger.With().Str("component", "control").Logger(),
	}
}

// ToggleActivation flips the user-visible active state and returns the new one.
// Enabling re-evaluates focus so a loop stopped by a next-visit suppression
// restarts on the site the user is still on.
func (controller *Controller) ToggleActivation(ctx context.Context) (bool, error) {
	prefs, err := controller.store.CurrentState()
	if err != nil {
		return false, fmt.Errorf("toggle activation: %w", err)
	}
	current := prefs.Active && prefs.Suppression.IsNone() && !controller.beeper.TemporarilyDisabled()

	next := !current
	if next {
		err = controller.beeper.Enable()
	} else {
		err = controller.beeper.Disable()
	}
	if err != nil {
		return false, err
	}
	controller.log.Info().Bool("active", next).Msg("activation toggled")
	if next {
		if err := controller.tracker.Reevaluate(ctx); err != nil {
			return next, err
		}
	}
	return next, nil
}

// DisableUntilNextVisit suppresses cues until the next qualifying visit.
func (controller *Controller) DisableUntilNextVisit() error {
	return controller.beeper.DisableTemporarily()
}

// DisableUntil suppresses cues until deadline.
func (controller *Controller) DisableUntil(deadline time.Time) error {
	return controller.beeper.DisableUntil(deadline)
}

// DisableUntilMorning suppresses cues until MorningHour tomorrow.
func (controller *Controller) DisableUntilMorning() error {
	return controller.beeper.DisableUntil(model.TomorrowAt(controller.clock.Now(), MorningHour))
}

// DisableFor suppresses cues for the given span. Non-positive spans are ignored.
func (controller *Controller) DisableFor(hours, minutes int) error {
	deadline, ok := model.DeadlineAfter(controller.clock.Now(), hours, minutes)
	if !ok {
		controller.log.Debug().Int("hours", hours).Int("minutes", minutes).Msg("ignoring empty disable span")
		return nil
	}
	return controller.beeper.DisableUntil(deadline)
}

// SetVolume changes the cue gain.
func (controller *Controller) SetVolume(volume int) error {
	return controller.beeper.SetVolume(volume)
}

// TemporarilyDisabled reports whether the next-visit suppression is set.
func (controller *Controller) TemporarilyDisabled() bool {
	return controller.beeper.TemporarilyDisabled()
}

// AddURL allow-lists site. Adding the focused site enables the beeper and
// starts the loop right away.
func (controller *Controller) AddURL(ctx context.Context, raw string) error {
	site := normalizeSite(raw)
	if site == "" {
		return ErrEmptyURL
	}

	added := false
	err := controller.store.Update(func(prefs *model.Preferences) {
		if slices.Contains(prefs.URLList, site) {
			return
		}
		prefs.URLList = append(prefs.URLList, site)
		added = true
	})
	if err != nil {
		return fmt.Errorf("add %s: %w", site, err)
	}
	if !added {
		return nil
	}
	controller.log.Info().Str("site", site).Msg("site allow-listed")

	if site != controller.tracker.CurrentSite() {
		return nil
	}
	if err := controller.beeper.Enable(); err != nil {
		return err
	}
	return controller.tracker.Reevaluate(ctx)
}

// RemoveURL drops site from the allow-list. Removing the focused site
// silences the beeper through the normal focus policy.
func (controller *Controller) RemoveURL(ctx context.Context, raw string) error {
	site := normalizeSite(raw)
	if site == "" {
		return ErrEmptyURL
	}

	removed := false
	err := controller.store.Update(func(prefs *model.Preferences) {
		kept := prefs.URLList[:0:0]
		for _, existing := range prefs.URLList {
			if existing == site {
				removed = true
				continue
			}
			kept = append(kept, existing)
		}
		prefs.URLList = kept
	})
	if err != nil {
		return fmt.Errorf("remove %s: %w", site, err)
	}
	if !removed {
		return nil
	}
	controller.log.Info().Str("site", site).Msg("site removed")

	if site != controller.tracker.CurrentSite() {
		return nil
	}
	return controller.tracker.Reevaluate(ctx)
}

// State is the snapshot returned to the popup and printed by the CLI.
type State struct {
	IsActive      bool     `json:"isActive"`
	IsMuted       bool     `json:"isMuted"`
	LoopRunning   bool     `json:"loopRunning"`
	Volume        int      `json:"volume"`
	Suppression   string   `json:"suppression"`
	DisabledUntil *int64   `json:"disabledUntil,omitempty"`
	Description   string   `json:"description"`
	URLList       []string `json:"urlList"`
	CurrentSite   string   `json:"currentSite,omitempty"`
}

// State returns the current snapshot.
func (controller *Controller) State() (State, error) {
	prefs, err := controller.store.CurrentState()
	if err != nil {
		return State{}, fmt.Errorf("read state: %w", err)
	}
	status := controller.beeper.Status()
	state := Snapshot(status, prefs.URLList, controller.clock.Now())
	state.CurrentSite = controller.tracker.CurrentSite()
	return state, nil
}

// Snapshot renders a beeper status for display.
func Snapshot(status beeper.Status, urls []string, now time.Time) State {
	state := State{
		IsActive:    status.Active,
		IsMuted:     status.Muted,
		LoopRunning: status.LoopRunning,
		Volume:      status.Volume,
		Suppression: status.Suppression.Kind.String(),
		Description: status.Suppression.Describe(now),
		URLList:     append([]string{}, urls...),
	}
	if status.Suppression.Kind == model.SuppressionUntilTimestamp {
		millis := status.Suppression.Until.UnixMilli()
		state.DisabledUntil = &millis
	}
	return state
}

func normalizeSite(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "://") {
		return tracker.Hostname(raw)
	}
	return strings.ToLower(raw)
}
