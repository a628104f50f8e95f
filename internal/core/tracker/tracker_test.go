package tracker

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"sitebeep/internal/audio"
	"sitebeep/internal/core/beeper"
	"sitebeep/internal/core/model"
	"sitebeep/internal/storage"
)

type fixture struct {
	tracker  *Tracker
	beeper   *beeper.Beeper
	clock    *clockwork.FakeClock
	recorder *audio.Recorder
	store    *storage.MemoryStore
}

func newFixture(t *testing.T, interval time.Duration, sites ...string) *fixture {
	t.Helper()
	prefs := model.DefaultPreferences()
	prefs.URLList = sites
	store := storage.NewMemoryStore(prefs)
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC))
	recorder := audio.NewRecorder()

	target, err := beeper.Init(store, recorder, beeper.Config{
		Interval: model.Range{Min: interval, Max: interval},
		Clock:    clock,
		Rand:     rand.New(rand.NewSource(7)),
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("beeper.Init: %v", err)
	}
	t.Cleanup(target.Shutdown)

	return &fixture{
		tracker:  New(target, store, Config{Logger: zerolog.Nop()}),
		beeper:   target,
		clock:    clock,
		recorder: recorder,
		store:    store,
	}
}

func (f *fixture) focus(t *testing.T, site string) {
	t.Helper()
	if err := f.tracker.OnFocusChange(context.Background(), site); err != nil {
		t.Fatalf("OnFocusChange(%q): %v", site, err)
	}
}

func (f *fixture) handle(t *testing.T, event Event) {
	t.Helper()
	if err := f.tracker.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent(%+v): %v", event, err)
	}
}

func (f *fixture) waiters(t *testing.T, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.clock.BlockUntilContext(ctx, n); err != nil {
		t.Fatalf("waiting for %d clock waiters: %v", n, err)
	}
}

func waitTone(t *testing.T, recorder *audio.Recorder) model.Tone {
	t.Helper()
	select {
	case tone := <-recorder.Played():
		return tone
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a tone")
		return model.Tone{}
	}
}

func expectSilence(t *testing.T, recorder *audio.Recorder) {
	t.Helper()
	select {
	case tone := <-recorder.Played():
		t.Fatalf("unexpected tone at %.1fHz", tone.Frequency)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestArrivalOnAllowedSite(t *testing.T) {
	f := newFixture(t, 5*time.Second, "site.com")

	f.focus(t, "site.com")
	if f.beeper.Status().Muted {
		t.Fatal("beeper should be unmuted on arrival")
	}
	if !f.beeper.LoopRunning() {
		t.Fatal("loop should be running on arrival")
	}

	f.waiters(t, 2)
	f.clock.Advance(899 * time.Millisecond)
	expectSilence(t, f.recorder)
	f.clock.Advance(time.Millisecond)
	if tone := waitTone(t, f.recorder); tone.Waveform != model.WaveSquare {
		t.Errorf("settle cue waveform = %s, want square", tone.Waveform)
	}

	f.clock.Advance(4100 * time.Millisecond)
	waitTone(t, f.recorder)
	f.waiters(t, 1)
	f.clock.Advance(5 * time.Second)
	waitTone(t, f.recorder)

	f.focus(t, "")
	f.clock.Advance(time.Minute)
	expectSilence(t, f.recorder)
	if !f.beeper.Status().Muted || f.beeper.LoopRunning() {
		t.Errorf("status after focus loss = %+v, want muted and stopped", f.beeper.Status())
	}
}

func TestSameSiteTwiceIsNoop(t *testing.T) {
	f := newFixture(t, time.Hour, "allowed.example")

	f.focus(t, "allowed.example")
	f.waiters(t, 2)
	f.focus(t, "allowed.example")

	f.clock.Advance(time.Second)
	waitTone(t, f.recorder)
	expectSilence(t, f.recorder)
	if got := len(f.recorder.Tones()); got != 1 {
		t.Errorf("recorded %d cues, want 1", got)
	}
}

func TestSettleSupersededBySiteChange(t *testing.T) {
	f := newFixture(t, time.Hour, "a.example", "b.example")

	f.focus(t, "a.example")
	f.focus(t, "b.example")
	f.waiters(t, 2)
	f.clock.Advance(900 * time.Millisecond)

	waitTone(t, f.recorder)
	expectSilence(t, f.recorder)
}

func TestNotAllowedSiteSilences(t *testing.T) {
	f := newFixture(t, time.Hour, "site.com")

	f.focus(t, "site.com")
	f.focus(t, "other.com")
	f.clock.Advance(time.Minute)

	expectSilence(t, f.recorder)
	if !f.beeper.Status().Muted || f.beeper.LoopRunning() {
		t.Errorf("status = %+v, want muted and stopped", f.beeper.Status())
	}
}

func TestRefocusAfterTemporaryDisablePlaysPreBeep(t *testing.T) {
	f := newFixture(t, time.Hour, "site.com")

	f.focus(t, "site.com")
	if err := f.beeper.DisableTemporarily(); err != nil {
		t.Fatalf("DisableTemporarily: %v", err)
	}
	f.focus(t, "")
	f.focus(t, "site.com")

	first := waitTone(t, f.recorder)
	if first.Frequency != 340 || first.Waveform != model.WaveTriangle {
		t.Fatalf("first tone = %+v, want 340Hz triangle", first)
	}
	f.waiters(t, 2)
	f.clock.Advance(250 * time.Millisecond)
	if second := waitTone(t, f.recorder); second.Frequency != 220 {
		t.Errorf("second tone = %vHz, want 220Hz", second.Frequency)
	}

	if f.beeper.TemporarilyDisabled() {
		t.Error("qualifying visit should lift the suppression")
	}
	prefs, _ := f.store.CurrentState()
	if !prefs.Suppression.IsNone() {
		t.Errorf("persisted suppression = %v, want none", prefs.Suppression)
	}
}

func TestStoreReadFailure(t *testing.T) {
	f := newFixture(t, time.Hour, "site.com")
	f.store.Close()

	if err := f.tracker.OnFocusChange(context.Background(), "site.com"); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("OnFocusChange error = %v, want ErrClosed", err)
	}
}

func TestHandleEvent_Reduction(t *testing.T) {
	f := newFixture(t, time.Hour, "site.com")

	f.handle(t, Event{Kind: EventTabActivated, URL: "https://site.com/inbox"})
	if got := f.tracker.CurrentSite(); got != "site.com" {
		t.Fatalf("CurrentSite() = %q, want site.com", got)
	}
	if f.beeper.Status().Muted {
		t.Fatal("allowed tab should unmute")
	}

	f.handle(t, Event{Kind: EventTabUpdated})
	if got := f.tracker.CurrentSite(); got != "site.com" {
		t.Errorf("update without url changed site to %q", got)
	}

	f.handle(t, Event{Kind: EventWindowFocusChanged, Focused: false})
	if got := f.tracker.CurrentSite(); got != "" {
		t.Errorf("unfocused CurrentSite() = %q, want empty", got)
	}
	if !f.beeper.Status().Muted {
		t.Error("window focus loss should mute")
	}

	f.handle(t, Event{Kind: EventWindowFocusChanged, Focused: true, URL: "chrome://newtab/"})
	if got := f.tracker.CurrentSite(); got != "" {
		t.Errorf("internal page CurrentSite() = %q, want empty", got)
	}

	f.handle(t, Event{Kind: EventTabUpdated, URL: "https://site.com/"})
	if f.beeper.Status().Muted {
		t.Error("navigating back should unmute")
	}

	f.handle(t, Event{Kind: EventIdleStateChanged, Idle: IdleLocked})
	if !f.beeper.Status().Muted || f.beeper.LoopRunning() {
		t.Error("lock should mute and stop the loop")
	}
	f.handle(t, Event{Kind: EventIdleStateChanged, Idle: IdleActive})
	if f.beeper.Status().Muted {
		t.Error("unlock on an allowed site should unmute")
	}

	if err := f.tracker.HandleEvent(context.Background(), Event{Kind: "bogus"}); err == nil {
		t.Error("unknown event kind should fail")
	}
}

func TestVersionGuard(t *testing.T) {
	f := newFixture(t, time.Hour, "site.com")
	if err := f.store.Update(func(prefs *model.Preferences) {
		prefs.LastVersionHash = VersionHash("119.0.6045.105")
	}); err != nil {
		t.Fatal(err)
	}
	f.tracker.SetBrowserVersion("120.0.6099.71")

	f.handle(t, Event{Kind: EventTabActivated, URL: "https://site.com/"})
	f.handle(t, Event{Kind: EventIdleStateChanged, Idle: IdleLocked})
	f.handle(t, Event{Kind: EventIdleStateChanged, Idle: IdleActive})

	if !f.beeper.Status().Muted {
		t.Error("version change should skip the unlock re-evaluation")
	}
	prefs, _ := f.store.CurrentState()
	if want := VersionHash("120.0.6099.71"); prefs.LastVersionHash != want {
		t.Errorf("stored hash = %d, want %d", prefs.LastVersionHash, want)
	}

	f.handle(t, Event{Kind: EventIdleStateChanged, Idle: IdleIdle})
	f.handle(t, Event{Kind: EventIdleStateChanged, Idle: IdleActive})
	if f.beeper.Status().Muted {
		t.Error("second unlock with a matching version should re-evaluate")
	}
}

func TestVersionGuard_NoBaselineRecords(t *testing.T) {
	f := newFixture(t, time.Hour, "site.com")
	f.tracker.SetBrowserVersion("120")

	f.handle(t, Event{Kind: EventIdleStateChanged, Idle: IdleLocked, URL: "https://site.com/"})
	f.handle(t, Event{Kind: EventIdleStateChanged, Idle: IdleActive})

	if f.beeper.Status().Muted {
		t.Error("missing baseline should not skip re-evaluation")
	}
	prefs, _ := f.store.CurrentState()
	if prefs.LastVersionHash != VersionHash("120") {
		t.Errorf("baseline not recorded: %d", prefs.LastVersionHash)
	}
}

func TestReevaluateAfterAllowListEdit(t *testing.T) {
	f := newFixture(t, time.Hour)

	f.handle(t, Event{Kind: EventTabActivated, URL: "https://site.com/"})
	if !f.beeper.Status().Muted {
		t.Fatal("site is not allow-listed yet")
	}

	if err := f.store.Update(func(prefs *model.Preferences) {
		prefs.URLList = append(prefs.URLList, "site.com")
	}); err != nil {
		t.Fatal(err)
	}
	if err := f.tracker.Reevaluate(context.Background()); err != nil {
		t.Fatalf("Reevaluate: %v", err)
	}
	if f.beeper.Status().Muted || !f.beeper.LoopRunning() {
		t.Errorf("status = %+v, want unmuted with loop", f.beeper.Status())
	}
}

func TestHostname(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "https://Site.com/path?q=1", want: "site.com"},
		{raw: "http://localhost:8080/", want: "localhost"},
		{raw: "chrome://newtab/", want: ""},
		{raw: "about:blank", want: ""},
		{raw: "", want: ""},
		{raw: "://broken", want: ""},
	}
	for _, tt := range tests {
		if got := Hostname(tt.raw); got != tt.want {
			t.Errorf("Hostname(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestParseIdleState(t *testing.T) {
	if state, ok := ParseIdleState("locked"); !ok || state != IdleLocked {
		t.Errorf("ParseIdleState(locked) = %q, %v", state, ok)
	}
	if _, ok := ParseIdleState("asleep"); ok {
		t.Error("ParseIdleState(asleep) should fail")
	}
}
