package beeper

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"sitebeep/internal/core/model"
)

// ErrInvalidVolume is returned by SetVolume for values outside 1..100.
var ErrInvalidVolume = errors.New("volume must be between 1 and 100")

// PreferenceStore persists the durable part of the Beeper state.
type PreferenceStore interface {
	CurrentState() (model.Preferences, error)
	Update(mutate func(*model.Preferences)) error
}

// Sink plays a tone. Play must return promptly; playback is asynchronous.
type Sink interface {
	Play(ctx context.Context, tone model.Tone) error
}

// LockChecker reports whether the user session is locked.
type LockChecker interface {
	SystemLocked() (bool, error)
}

// Config contains runtime options for the Beeper. Zero fields take defaults.
type Config struct {
	Interval    model.Range
	Cue         model.Tone
	PreBeep     []model.Tone
	Clock       clockwork.Clock
	Rand        *rand.Rand
	LockChecker LockChecker
	Logger      zerolog.Logger
}

// DefaultInterval is the range periodic cues are spaced by.
func DefaultInterval() model.Range {
	return model.Range{Min: 5 * time.Second, Max: 30 * time.Second}
}

// Beeper decides whether a cue should play and drives the periodic cue loop.
type Beeper struct {
	mu     sync.Mutex
	store  PreferenceStore
	sink   Sink
	config Config
	clock  clockwork.Clock
	rng    *rand.Rand
	log    zerolog.Logger

	volume      int
	active      bool
	muted       bool
	suppression model.Suppression

	reactivation    clockwork.Timer
	reactivationGen uint64

	loopRunning bool
	loopTimer   clockwork.Timer
	loopGen     uint64

	settle    clockwork.Timer
	settleGen uint64

	lockWarn sync.Once

	events []chan Event
}

// Init constructs a Beeper from the persisted state. A scheduled re-enable
// whose deadline has passed is applied immediately; a future one is re-armed.
func Init(store PreferenceStore, sink Sink, config Config) (*Beeper, error) {
	if config.Interval.Min <= 0 {
		config.Interval = DefaultInterval()
	}
	if config.Cue.Frequency <= 0 {
		config.Cue = model.DefaultCue()
	}
	if len(config.PreBeep) == 0 {
		config.PreBeep = model.DefaultPreBeep()
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.Rand == nil {
		config.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	prefs, err := store.CurrentState()
	if err != nil {
		return nil, fmt.Errorf("load beeper state: %w", err)
	}

	beeper := &Beeper{
		store:       store,
		sink:        sink,
		config:      config,
		clock:       config.Clock,
		rng:         config.Rand,
		log:         config.Logger.With().Str("component", "beeper").Logger(),
		volume:      prefs.Volume,
		active:      prefs.Active,
		muted:       true,
		suppression: prefs.Suppression,
	}
	if !model.ValidVolume(beeper.volume) {
		beeper.volume = model.DefaultVolume
	}

	if prefs.Suppression.Kind == model.SuppressionUntilTimestamp {
		if !beeper.clock.Now().Before(prefs.Suppression.Until) {
			beeper.log.Info().Time("until", prefs.Suppression.Until).Msg("persisted deadline passed, re-enabling")
			if err := beeper.Enable(); err != nil {
				return nil, err
			}
		} else {
			beeper.mu.Lock()
			beeper.armReactivationLocked(prefs.Suppression.Until)
			beeper.mu.Unlock()
		}
	}

	return beeper, nil
}

// Subscribe registers a new observer channel.
func (beeper *Beeper) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	beeper.mu.Lock()
	beeper.events = append(beeper.events, ch)
	beeper.mu.Unlock()
	return ch
}

// Enable clears every suppression mode and the disabled flag.
func (beeper *Beeper) Enable() error {
	beeper.mu.Lock()
	defer beeper.mu.Unlock()
	return beeper.enableLocked()
}

func (beeper *Beeper) enableLocked() error {
	err := beeper.store.Update(func(prefs *model.Preferences) {
		prefs.Active = true
		prefs.Suppression = model.NoSuppression()
	})
	if err != nil {
		return fmt.Errorf("enable: %w", err)
	}

	beeper.cancelReactivationLocked()
	beeper.active = true
	beeper.suppression = model.NoSuppression()
	beeper.log.Info().Msg("enabled")
	beeper.emitStateLocked()
	return nil
}

// Disable turns cues off until explicitly enabled.
func (beeper *Beeper) Disable() error {
	beeper.mu.Lock()
	defer beeper.mu.Unlock()

	err := beeper.store.Update(func(prefs *model.Preferences) {
		prefs.Active = false
		prefs.Suppression = model.NoSuppression()
	})
	if err != nil {
		return fmt.Errorf("disable: %w", err)
	}

	beeper.cancelReactivationLocked()
	beeper.cancelSettleLocked()
	beeper.active = false
	beeper.suppression = model.NoSuppression()
	beeper.log.Info().Msg("disabled")
	beeper.emitStateLocked()
	return nil
}

// DisableTemporarily suppresses cues until the next qualifying visit.
// The loop stops immediately; the tracker restarts it on that visit.
func (beeper *Beeper) DisableTemporarily() error {
	beeper.mu.Lock()
	defer beeper.mu.Unlock()

	err := beeper.store.Update(func(prefs *model.Preferences) {
		prefs.Active = true
		prefs.Suppression = model.UntilNextVisit()
	})
	if err != nil {
		return fmt.Errorf("disable until next visit: %w", err)
	}

	beeper.cancelReactivationLocked()
	beeper.active = true
	beeper.suppression = model.UntilNextVisit()
	beeper.stopLoopLocked()
	beeper.log.Info().Msg("disabled until next visit")
	beeper.emitStateLocked()
	return nil
}

// DisableUntil suppresses cues until deadline and schedules the re-enable.
// A deadline that is not in the future behaves like Enable.
func (beeper *Beeper) DisableUntil(deadline time.Time) error {
	if !beeper.clock.Now().Before(deadline) {
		beeper.log.Debug().Time("until", deadline).Msg("deadline already passed")
		return beeper.Enable()
	}

	beeper.mu.Lock()
	defer beeper.mu.Unlock()

	suppression := model.UntilTimestamp(deadline)
	err := beeper.store.Update(func(prefs *model.Preferences) {
		prefs.Active = false
		prefs.Suppression = suppression
	})
	if err != nil {
		return fmt.Errorf("disable until %s: %w", deadline.Format(time.RFC3339), err)
	}

	beeper.cancelSettleLocked()
	beeper.active = false
	beeper.suppression = suppression
	beeper.armReactivationLocked(suppression.Until)
	beeper.log.Info().Time("until", suppression.Until).Msg("disabled until deadline")
	beeper.emitStateLocked()
	return nil
}

// LiftVisitSuppression clears the until-next-visit mode if it is set and
// reports whether it was.
func (beeper *Beeper) LiftVisitSuppression() (bool, error) {
	beeper.mu.Lock()
	defer beeper.mu.Unlock()

	if beeper.suppression.Kind != model.SuppressionUntilNextVisit {
		return false, nil
	}
	err := beeper.store.Update(func(prefs *model.Preferences) {
		prefs.Suppression = model.NoSuppression()
	})
	if err != nil {
		return false, fmt.Errorf("lift visit suppression: %w", err)
	}

	beeper.suppression = model.NoSuppression()
	beeper.log.Info().Msg("visit suppression lifted")
	beeper.emitStateLocked()
	return true, nil
}

// SetVolume changes the gain of the next cue.
func (beeper *Beeper) SetVolume(volume int) error {
	if !model.ValidVolume(volume) {
		return fmt.Errorf("set volume %d: %w", volume, ErrInvalidVolume)
	}

	beeper.mu.Lock()
	defer beeper.mu.Unlock()

	if err := beeper.store.Update(func(prefs *model.Preferences) {
		prefs.Volume = volume
	}); err != nil {
		return fmt.Errorf("set volume: %w", err)
	}
	beeper.volume = volume
	beeper.emitStateLocked()
	return nil
}

// Mute holds cues back while the tracked site is not focused.
func (beeper *Beeper) Mute() {
	beeper.setMuted(true)
}

// Unmute releases the focus gate.
func (beeper *Beeper) Unmute() {
	beeper.setMuted(false)
}

func (beeper *Beeper) setMuted(muted bool) {
	beeper.mu.Lock()
	defer beeper.mu.Unlock()
	if beeper.muted == muted {
		return
	}
	beeper.muted = muted
	beeper.log.Debug().Bool("muted", muted).Msg("focus gate changed")
	beeper.emitStateLocked()
}

// TemporarilyDisabled reports whether the until-next-visit mode is set.
func (beeper *Beeper) TemporarilyDisabled() bool {
	beeper.mu.Lock()
	defer beeper.mu.Unlock()
	return beeper.suppression.Kind == model.SuppressionUntilNextVisit
}

// Status returns a snapshot of the current state.
func (beeper *Beeper) Status() Status {
	beeper.mu.Lock()
	defer beeper.mu.Unlock()
	return beeper.statusLocked()
}

// EffectiveActive reports whether a cue would play right now, including a
// fresh query of the system lock state.
func (beeper *Beeper) EffectiveActive() bool {
	beeper.mu.Lock()
	eligible := beeper.effectiveActiveLocked()
	beeper.mu.Unlock()
	return eligible && !beeper.systemLocked()
}

// Shutdown stops the loop, cancels every timer and closes observers.
func (beeper *Beeper) Shutdown() {
	beeper.mu.Lock()
	beeper.stopLoopLocked()
	beeper.cancelReactivationLocked()
	events := beeper.events
	beeper.events = nil
	beeper.mu.Unlock()

	for _, ch := range events {
		close(ch)
	}
}

func (beeper *Beeper) effectiveActiveLocked() bool {
	return beeper.active &&
		!beeper.muted &&
		!beeper.suppression.ActiveAt(beeper.clock.Now())
}

func (beeper *Beeper) systemLocked() bool {
	checker := beeper.config.LockChecker
	if checker == nil {
		return false
	}
	locked, err := checker.SystemLocked()
	if err != nil {
		beeper.lockWarn.Do(func() {
			beeper.log.Warn().Err(err).Msg("lock state unavailable, assuming unlocked")
		})
		return false
	}
	return locked
}

func (beeper *Beeper) statusLocked() Status {
	return Status{
		Active:      beeper.active,
		Muted:       beeper.muted,
		LoopRunning: beeper.loopRunning,
		Volume:      beeper.volume,
		Suppression: beeper.suppression,
	}
}

func (beeper *Beeper) armReactivationLocked(deadline time.Time) {
	beeper.cancelReactivationLocked()
	gen := beeper.reactivationGen
	beeper.reactivation = beeper.clock.AfterFunc(deadline.Sub(beeper.clock.Now()), func() {
		beeper.reactivate(gen)
	})
}

func (beeper *Beeper) cancelReactivationLocked() {
	if beeper.reactivation != nil {
		beeper.reactivation.Stop()
		beeper.reactivation = nil
	}
	beeper.reactivationGen++
}

func (beeper *Beeper) reactivate(gen uint64) {
	beeper.mu.Lock()
	if gen != beeper.reactivationGen || beeper.reactivation == nil {
		beeper.mu.Unlock()
		return
	}
	beeper.reactivation = nil
	beeper.log.Info().Msg("re-enabling after deadline")
	err := beeper.enableLocked()
	running := beeper.loopRunning
	beeper.mu.Unlock()

	if err != nil {
		beeper.log.Error().Err(err).Msg("scheduled re-enable failed")
		return
	}
	if running {
		beeper.PreBeepIfActive(context.Background())
	}
}

func (beeper *Beeper) emitStateLocked() {
	beeper.emitLocked(Event{
		Type:   EventStateChange,
		Status: beeper.statusLocked(),
		At:     beeper.clock.Now(),
	})
}

func (beeper *Beeper) emit(event Event) {
	beeper.mu.Lock()
	defer beeper.mu.Unlock()
	beeper.emitLocked(event)
}

func (beeper *Beeper) emitLocked(event Event) {
	for _, ch := range beeper.events {
		select {
		case ch <- event:
		default:
		}
	}
}
