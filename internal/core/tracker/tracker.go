package tracker

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sitebeep/internal/core/beeper"
	"sitebeep/internal/core/model"
)

// DefaultSettleDelay keeps rapid tab switching from producing a cue.
const DefaultSettleDelay = 900 * time.Millisecond

// Beeper is the part of the beeper the tracker drives.
type Beeper interface {
	Mute()
	Unmute()
	StartLoop()
	StopLoop()
	LiftVisitSuppression() (bool, error)
	BeepIfActive(ctx context.Context, opts ...beeper.BeepOption) bool
	PreBeepIfActive(ctx context.Context) bool
}

// PreferenceStore supplies the allow-list and the version fingerprint.
type PreferenceStore interface {
	CurrentState() (model.Preferences, error)
	Update(mutate func(*model.Preferences)) error
}

// Config contains tracker options. Zero fields take defaults.
type Config struct {
	SettleDelay time.Duration
	Logger      zerolog.Logger
}

// Tracker reduces browser events to a single focused-site identifier and
// feeds it to the Beeper.
type Tracker struct {
	mu     sync.Mutex
	beeper Beeper
	store  PreferenceStore
	settle time.Duration
	log    zerolog.Logger

	lastSite string
	url      string
	focused  bool
	idle     IdleState

	versionHash uint32
}

// New returns a tracker that assumes a focused window on an unknown page.
func New(target Beeper, store PreferenceStore, config Config) *Tracker {
	settle := config.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Tracker{
		beeper:  target,
		store:   store,
		settle:  settle,
		log:     config.Logger.With().Str("component", "tracker").Logger(),
		focused: true,
		idle:    IdleActive,
	}
}

// OnFocusChange applies the focus policy for site. An empty site means
// nothing is focused.
func (tracker *Tracker) OnFocusChange(ctx context.Context, site string) error {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.focusLocked(ctx, site)
}

func (tracker *Tracker) focusLocked(ctx context.Context, site string) error {
	previous := tracker.lastSite
	tracker.lastSite = site

	if site == "" {
		tracker.log.Debug().Msg("focus lost")
		tracker.silence()
		return nil
	}

	prefs, err := tracker.store.CurrentState()
	if err != nil {
		tracker.lastSite = previous
		return fmt.Errorf("read allow-list: %w", err)
	}
	if !prefs.Allows(site) {
		tracker.log.Debug().Str("site", site).Msg("site not allow-listed")
		tracker.silence()
		return nil
	}
	if site == previous {
		tracker.log.Debug().Str("site", site).Msg("site unchanged")
		return nil
	}

	tracker.log.Debug().Str("site", site).Msg("qualifying visit")
	tracker.beeper.Unmute()
	lifted, err := tracker.beeper.LiftVisitSuppression()
	if err != nil {
		return err
	}
	tracker.beeper.StartLoop()
	if lifted {
		tracker.beeper.PreBeepIfActive(ctx)
		return nil
	}
	tracker.beeper.BeepIfActive(ctx, beeper.WithDelay(tracker.settle))
	return nil
}

func (tracker *Tracker) silence() {
	tracker.beeper.Mute()
	tracker.beeper.StopLoop()
}

// HandleEvent folds a browser event into the tracked window state and
// re-evaluates focus.
func (tracker *Tracker) HandleEvent(ctx context.Context, event Event) error {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	switch event.Kind {
	case EventTabUpdated:
		if event.URL == "" {
			return nil
		}
		tracker.url = event.URL
	case EventTabActivated:
		tracker.url = event.URL
	case EventWindowFocusChanged:
		tracker.focused = event.Focused
		if event.URL != "" {
			tracker.url = event.URL
		}
	case EventIdleStateChanged:
		wasAway := tracker.idle != IdleActive
		tracker.idle = event.Idle
		if event.URL != "" {
			tracker.url = event.URL
		}
		if wasAway && event.Idle == IdleActive {
			skip, err := tracker.versionChangedLocked()
			if err != nil {
				return err
			}
			if skip {
				tracker.log.Info().Msg("browser version changed while away, skipping re-evaluation")
				return nil
			}
		}
	default:
		return fmt.Errorf("unknown event kind %q", event.Kind)
	}

	return tracker.focusLocked(ctx, tracker.siteLocked())
}

// Reevaluate forgets the last visit and applies the policy to the current
// site again, which lets allow-list edits take effect immediately.
func (tracker *Tracker) Reevaluate(ctx context.Context) error {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	tracker.lastSite = ""
	return tracker.focusLocked(ctx, tracker.siteLocked())
}

// CurrentSite returns the hostname of the focused allow-list candidate, or
// empty when the window is unfocused or the session is away.
func (tracker *Tracker) CurrentSite() string {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.siteLocked()
}

// SetBrowserVersion records the running browser version for the guard.
func (tracker *Tracker) SetBrowserVersion(version string) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	tracker.versionHash = VersionHash(version)
	tracker.log.Debug().Str("version", version).Uint32("hash", tracker.versionHash).Msg("browser version")
}

func (tracker *Tracker) siteLocked() string {
	if !tracker.focused || tracker.idle != IdleActive {
		return ""
	}
	return Hostname(tracker.url)
}

// versionChangedLocked compares the stored fingerprint with the current one
// and stores the current one whenever they differ.
func (tracker *Tracker) versionChangedLocked() (bool, error) {
	current := tracker.versionHash
	if current == 0 {
		return false, nil
	}
	prefs, err := tracker.store.CurrentState()
	if err != nil {
		return false, fmt.Errorf("read version fingerprint: %w", err)
	}
	if prefs.LastVersionHash == current {
		return false, nil
	}
	if err := tracker.store.Update(func(prefs *model.Preferences) {
		prefs.LastVersionHash = current
	}); err != nil {
		return false, fmt.Errorf("store version fingerprint: %w", err)
	}
	return prefs.LastVersionHash != 0, nil
}

// Hostname extracts the host of an http(s) URL. Anything else, including
// browser-internal pages, yields an empty identifier.
func Hostname(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// VersionHash fingerprints a browser version string.
func VersionHash(version string) uint32 {
	if version == "" {
		return 0
	}
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(version))
	return hash.Sum32()
}
