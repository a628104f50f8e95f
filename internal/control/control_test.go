package control

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"sitebeep/internal/audio"
	"sitebeep/internal/core/beeper"
	"sitebeep/internal/core/model"
	"sitebeep/internal/core/tracker"
	"sitebeep/internal/messaging"
	"sitebeep/internal/storage"
)

type env struct {
	controller *Controller
	beeper     *beeper.Beeper
	tracker    *tracker.Tracker
	store      *storage.MemoryStore
	clock      *clockwork.FakeClock
}

func newEnv(t *testing.T, sites ...string) *env {
	t.Helper()
	prefs := model.DefaultPreferences()
	prefs.URLList = sites
	store := storage.NewMemoryStore(prefs)
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 6, 10, 0, 0, 0, time.Local))

	b, err := beeper.Init(store, audio.NewRecorder(), beeper.Config{
		Interval: model.Range{Min: time.Hour, Max: time.Hour},
		Clock:    clock,
		Rand:     rand.New(rand.NewSource(3)),
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("beeper.Init: %v", err)
	}
	t.Cleanup(b.Shutdown)
	tr := tracker.New(b, store, tracker.Config{Logger: zerolog.Nop()})

	return &env{
		controller: New(b, tr, store, clock, zerolog.Nop()),
		beeper:     b,
		tracker:    tr,
		store:      store,
		clock:      clock,
	}
}

func (e *env) visit(t *testing.T, url string) {
	t.Helper()
	if err := e.tracker.HandleEvent(context.Background(), tracker.Event{Kind: tracker.EventTabActivated, URL: url}); err != nil {
		t.Fatalf("visit %s: %v", url, err)
	}
}

func TestToggleActivation(t *testing.T) {
	e := newEnv(t)

	active, err := e.controller.ToggleActivation(context.Background())
	if err != nil || active {
		t.Fatalf("first toggle = %v, %v; want false", active, err)
	}
	if e.beeper.Status().Active {
		t.Error("beeper should be disabled")
	}

	active, err = e.controller.ToggleActivation(context.Background())
	if err != nil || !active {
		t.Fatalf("second toggle = %v, %v; want true", active, err)
	}
}

func TestToggleActivation_FromSuppressed(t *testing.T) {
	tests := []struct {
		name     string
		suppress func(c *Controller) error
	}{
		{name: "next visit", suppress: func(c *Controller) error { return c.DisableUntilNextVisit() }},
		{name: "timed", suppress: func(c *Controller) error { return c.DisableFor(1, 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			if err := tt.suppress(e.controller); err != nil {
				t.Fatal(err)
			}
			active, err := e.controller.ToggleActivation(context.Background())
			if err != nil || !active {
				t.Fatalf("toggle = %v, %v; want true", active, err)
			}
			if status := e.beeper.Status(); !status.Active || !status.Suppression.IsNone() {
				t.Errorf("status = %+v, want enabled and unsuppressed", status)
			}
		})
	}
}

func TestToggleActivation_RestartsLoopOnCurrentSite(t *testing.T) {
	e := newEnv(t, "site.com")
	e.visit(t, "https://site.com/page")
	if err := e.controller.DisableUntilNextVisit(); err != nil {
		t.Fatal(err)
	}
	if e.beeper.Status().LoopRunning {
		t.Fatal("precondition: next-visit suppression stops the loop")
	}

	active, err := e.controller.ToggleActivation(context.Background())
	if err != nil || !active {
		t.Fatalf("toggle = %v, %v; want true", active, err)
	}
	status := e.beeper.Status()
	if !status.Active || status.Muted || !status.Suppression.IsNone() || !status.LoopRunning {
		t.Errorf("status = %+v, want enabled, unmuted and looping", status)
	}

	e.visit(t, "https://site.com/other")
	if !e.beeper.Status().LoopRunning {
		t.Error("loop stopped after a same-site event")
	}
}

func TestToggleActivation_OffSiteLeavesLoopStopped(t *testing.T) {
	e := newEnv(t, "site.com")
	e.visit(t, "https://other.org/")
	if err := e.controller.DisableUntilNextVisit(); err != nil {
		t.Fatal(err)
	}
	if _, err := e.controller.ToggleActivation(context.Background()); err != nil {
		t.Fatal(err)
	}
	if status := e.beeper.Status(); status.LoopRunning || !status.Muted {
		t.Errorf("status = %+v, want muted and stopped", status)
	}
}

func TestDisableFor(t *testing.T) {
	e := newEnv(t)

	if err := e.controller.DisableFor(0, 0); err != nil {
		t.Fatal(err)
	}
	if !e.beeper.Status().Suppression.IsNone() {
		t.Fatal("empty span should be ignored")
	}

	if err := e.controller.DisableFor(1, 30); err != nil {
		t.Fatal(err)
	}
	got := e.beeper.Status().Suppression
	want := e.clock.Now().Add(90 * time.Minute)
	if got.Kind != model.SuppressionUntilTimestamp || !got.Until.Equal(want) {
		t.Errorf("suppression = %+v, want until %s", got, want)
	}
}

func TestDisableUntilMorning(t *testing.T) {
	e := newEnv(t)
	if err := e.controller.DisableUntilMorning(); err != nil {
		t.Fatal(err)
	}
	want := model.TomorrowAt(e.clock.Now(), MorningHour)
	if got := e.beeper.Status().Suppression.Until; !got.Equal(want) {
		t.Errorf("deadline = %s, want %s", got, want)
	}
}

func TestAddURL_CurrentSiteEnables(t *testing.T) {
	e := newEnv(t)
	e.visit(t, "https://site.com/")
	if err := e.beeper.Disable(); err != nil {
		t.Fatal(err)
	}

	if err := e.controller.AddURL(context.Background(), "site.com"); err != nil {
		t.Fatalf("AddURL: %v", err)
	}
	status := e.beeper.Status()
	if !status.Active || status.Muted || !status.LoopRunning {
		t.Errorf("status = %+v, want active, unmuted, looping", status)
	}

	writes := e.store.Writes()
	if err := e.controller.AddURL(context.Background(), "https://SITE.com/other"); err != nil {
		t.Fatal(err)
	}
	if e.store.Writes() != writes+1 {
		t.Errorf("duplicate add wrote %d times, want only the no-op update", e.store.Writes()-writes)
	}
	prefs, _ := e.store.CurrentState()
	if len(prefs.URLList) != 1 {
		t.Errorf("urlList = %v, want one entry", prefs.URLList)
	}
}

func TestAddURL_OtherSiteLeavesBeeper(t *testing.T) {
	e := newEnv(t)
	e.visit(t, "https://news.example/")
	_ = e.beeper.Disable()

	if err := e.controller.AddURL(context.Background(), "site.com"); err != nil {
		t.Fatal(err)
	}
	if e.beeper.Status().Active {
		t.Error("adding an unfocused site must not enable")
	}
}

func TestRemoveURL(t *testing.T) {
	e := newEnv(t, "site.com", "mail.example")
	e.visit(t, "https://site.com/")
	if e.beeper.Status().Muted {
		t.Fatal("precondition: focused allowed site")
	}

	if err := e.controller.RemoveURL(context.Background(), "mail.example"); err != nil {
		t.Fatal(err)
	}
	if e.beeper.Status().Muted {
		t.Error("removing another site must not mute")
	}

	if err := e.controller.RemoveURL(context.Background(), "site.com"); err != nil {
		t.Fatal(err)
	}
	status := e.beeper.Status()
	if !status.Muted || status.LoopRunning {
		t.Errorf("status = %+v, want muted and stopped", status)
	}
	prefs, _ := e.store.CurrentState()
	if len(prefs.URLList) != 0 {
		t.Errorf("urlList = %v, want empty", prefs.URLList)
	}
	if !prefs.Active || !status.Active {
		t.Errorf("isActive = %v (stored %v), want removal to leave activation on", status.Active, prefs.Active)
	}

	if err := e.controller.RemoveURL(context.Background(), " "); !errors.Is(err, ErrEmptyURL) {
		t.Errorf("blank remove error = %v, want ErrEmptyURL", err)
	}
}

func TestStoreFailureSurfaces(t *testing.T) {
	e := newEnv(t)
	boom := errors.New("disk full")
	e.store.FailWrites(boom)

	if _, err := e.controller.ToggleActivation(context.Background()); !errors.Is(err, boom) {
		t.Errorf("toggle error = %v", err)
	}
	if err := e.controller.AddURL(context.Background(), "site.com"); !errors.Is(err, boom) {
		t.Errorf("add error = %v", err)
	}
	if err := e.controller.SetVolume(30); !errors.Is(err, boom) {
		t.Errorf("volume error = %v", err)
	}
}

func TestState(t *testing.T) {
	e := newEnv(t, "site.com")
	e.visit(t, "https://site.com/")
	deadline := e.clock.Now().Add(time.Hour)
	if err := e.controller.DisableUntil(deadline); err != nil {
		t.Fatal(err)
	}

	state, err := e.controller.State()
	if err != nil {
		t.Fatal(err)
	}
	if state.IsActive || state.Suppression != "until_timestamp" || state.CurrentSite != "site.com" {
		t.Errorf("state = %+v", state)
	}
	if state.DisabledUntil == nil || *state.DisabledUntil != deadline.UnixMilli() {
		t.Errorf("disabledUntil = %v, want %d", state.DisabledUntil, deadline.UnixMilli())
	}
	if state.Description == "" {
		t.Error("description should name the deadline")
	}
	if got := Describe(e.beeper.Status(), e.clock.Now()); got != "disabled "+state.Description {
		t.Errorf("Describe() = %q", got)
	}
}

func frames(t *testing.T, bodies ...string) io.Reader {
	t.Helper()
	var buf bytes.Buffer
	for _, body := range bodies {
		if err := messaging.WriteFrame(&buf, []byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	return &buf
}

func replies(t *testing.T, r io.Reader) map[int64]map[string]any {
	t.Helper()
	out := make(map[int64]map[string]any)
	for {
		payload, err := messaging.ReadFrame(r)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatal(err)
		}
		var reply map[string]any
		if err := json.Unmarshal(payload, &reply); err != nil {
			t.Fatal(err)
		}
		id, _ := reply["id"].(float64)
		out[int64(id)] = reply
	}
}

func TestRegisterRoutes(t *testing.T) {
	e := newEnv(t, "site.com")
	router := messaging.NewRouter(zerolog.Nop())
	e.controller.Register(router)
	if router.Types() != 13 {
		t.Errorf("registered %d types, want 13", router.Types())
	}

	input := frames(t,
		`{"type":"browser-version","version":"120.0"}`,
		`{"type":"tab-activated","url":"https://site.com/"}`,
		`{"id":1,"type":"check-beeper-temporarily-disabled"}`,
		`{"id":2,"type":"disable-until-next-visit"}`,
		`{"id":3,"type":"check-beeper-temporarily-disabled"}`,
		`{"id":4,"type":"volume-changed","volume":0}`,
		`{"id":5,"type":"volume-changed","volume":45}`,
		`{"id":6,"type":"disable-until"}`,
		`{"id":7,"type":"activation-toggled"}`,
		`{"id":8,"type":"idle-state-changed","state":"dozing"}`,
		`{"id":9,"type":"url-added","url":"mail.example"}`,
		`{"id":10,"type":"get-state"}`,
	)
	var output bytes.Buffer
	if err := router.Serve(context.Background(), messaging.NewConn(input, &output)); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	got := replies(t, &output)
	if got[1]["result"] != false || got[3]["result"] != true {
		t.Errorf("temporarily-disabled replies = %v, %v", got[1], got[3])
	}
	if _, ok := got[2]; ok {
		t.Error("disable-until-next-visit should not reply")
	}
	if got[4]["type"] != messaging.TypeError {
		t.Errorf("volume 0 reply = %v, want error", got[4])
	}
	if _, ok := got[5]; ok {
		t.Error("valid volume-changed should not reply")
	}
	if got[6]["type"] != messaging.TypeError {
		t.Errorf("disable-until without untilMs = %v, want error", got[6])
	}
	if got[7]["result"] != true {
		t.Errorf("activation-toggled from next-visit = %v, want true", got[7])
	}
	if got[8]["type"] != messaging.TypeError {
		t.Errorf("bad idle state reply = %v, want error", got[8])
	}

	state, ok := got[10]["result"].(map[string]any)
	if !ok {
		t.Fatalf("get-state reply = %v", got[10])
	}
	if state["volume"] != float64(45) || state["isActive"] != true || state["loopRunning"] != true || state["currentSite"] != "site.com" {
		t.Errorf("state = %v", state)
	}
	if urls, _ := state["urlList"].([]any); len(urls) != 2 {
		t.Errorf("urlList = %v, want 2 entries", state["urlList"])
	}
}

type recordingSender struct {
	mu       sync.Mutex
	messages []any
	received chan struct{}
}

func (sender *recordingSender) Send(message any) error {
	sender.mu.Lock()
	sender.messages = append(sender.messages, message)
	sender.mu.Unlock()
	sender.received <- struct{}{}
	return nil
}

func TestPublish(t *testing.T) {
	e := newEnv(t, "site.com")
	events := e.beeper.Subscribe(8)
	sender := &recordingSender{received: make(chan struct{}, 8)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.controller.Publish(ctx, events, sender)
		close(done)
	}()

	if err := e.controller.SetVolume(60); err != nil {
		t.Fatal(err)
	}
	select {
	case <-sender.received:
	case <-time.After(time.Second):
		t.Fatal("no state-changed published")
	}

	sender.mu.Lock()
	message, ok := sender.messages[0].(StateChanged)
	sender.mu.Unlock()
	if !ok || message.Type != MsgStateChanged || message.Volume != 60 {
		t.Errorf("published %+v", sender.messages[0])
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish did not stop on cancel")
	}
}
