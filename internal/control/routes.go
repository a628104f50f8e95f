package control

import (
	"context"
	"fmt"
	"time"

	"sitebeep/internal/core/beeper"
	"sitebeep/internal/core/model"
	"sitebeep/internal/core/tracker"
	"sitebeep/internal/messaging"
)

// Message types understood by the host.
const (
	MsgActivationToggled     = "activation-toggled"
	MsgDisableUntilNextVisit = "disable-until-next-visit"
	MsgDisableUntil          = "disable-until"
	MsgURLAdded              = "url-added"
	MsgURLRemoved            = "url-removed"
	MsgVolumeChanged         = "volume-changed"
	MsgCheckTemporarily      = "check-beeper-temporarily-disabled"
	MsgGetState              = "get-state"
	MsgBrowserVersion        = "browser-version"
	MsgStateChanged          = "state-changed"
)

type untilPayload struct {
	UntilMs *int64 `json:"untilMs"`
}

type urlPayload struct {
	URL string `json:"url"`
}

type volumePayload struct {
	Volume *int `json:"volume"`
}

type versionPayload struct {
	Version string `json:"version"`
}

type browserEventPayload struct {
	URL     string `json:"url"`
	Focused bool   `json:"focused"`
	State   string `json:"state"`
}

// Register binds every control and browser-event message to router.
func (controller *Controller) Register(router *messaging.Router) {
	router.Handle(MsgActivationToggled, func(ctx context.Context, _ messaging.Request) (any, error) {
		return controller.ToggleActivation(ctx)
	})
	router.Handle(MsgDisableUntilNextVisit, func(context.Context, messaging.Request) (any, error) {
		return nil, controller.DisableUntilNextVisit()
	})
	router.Handle(MsgDisableUntil, func(_ context.Context, request messaging.Request) (any, error) {
		var payload untilPayload
		if err := request.Decode(&payload); err != nil {
			return nil, err
		}
		if payload.UntilMs == nil {
			return nil, fmt.Errorf("%s: untilMs is required", request.Type)
		}
		return nil, controller.DisableUntil(time.UnixMilli(*payload.UntilMs))
	})
	router.Handle(MsgURLAdded, func(ctx context.Context, request messaging.Request) (any, error) {
		var payload urlPayload
		if err := request.Decode(&payload); err != nil {
			return nil, err
		}
		return nil, controller.AddURL(ctx, payload.URL)
	})
	router.Handle(MsgURLRemoved, func(ctx context.Context, request messaging.Request) (any, error) {
		var payload urlPayload
		if err := request.Decode(&payload); err != nil {
			return nil, err
		}
		return nil, controller.RemoveURL(ctx, payload.URL)
	})
	router.Handle(MsgVolumeChanged, func(_ context.Context, request messaging.Request) (any, error) {
		var payload volumePayload
		if err := request.Decode(&payload); err != nil {
			return nil, err
		}
		if payload.Volume == nil {
			return nil, fmt.Errorf("%s: volume is required", request.Type)
		}
		return nil, controller.SetVolume(*payload.Volume)
	})
	router.Handle(MsgCheckTemporarily, func(context.Context, messaging.Request) (any, error) {
		return controller.TemporarilyDisabled(), nil
	})
	router.Handle(MsgGetState, func(context.Context, messaging.Request) (any, error) {
		return controller.State()
	})
	router.Handle(MsgBrowserVersion, func(_ context.Context, request messaging.Request) (any, error) {
		var payload versionPayload
		if err := request.Decode(&payload); err != nil {
			return nil, err
		}
		controller.tracker.SetBrowserVersion(payload.Version)
		return nil, nil
	})

	for _, kind := range []tracker.EventKind{
		tracker.EventTabUpdated,
		tracker.EventTabActivated,
		tracker.EventWindowFocusChanged,
		tracker.EventIdleStateChanged,
	} {
		kind := kind
		router.Handle(string(kind), func(ctx context.Context, request messaging.Request) (any, error) {
			event, err := decodeBrowserEvent(kind, request)
			if err != nil {
				return nil, err
			}
			return nil, controller.tracker.HandleEvent(ctx, event)
		})
	}
}

func decodeBrowserEvent(kind tracker.EventKind, request messaging.Request) (tracker.Event, error) {
	var payload browserEventPayload
	if err := request.Decode(&payload); err != nil {
		return tracker.Event{}, err
	}
	event := tracker.Event{Kind: kind, URL: payload.URL, Focused: payload.Focused}
	if kind == tracker.EventIdleStateChanged {
		state, ok := tracker.ParseIdleState(payload.State)
		if !ok {
			return tracker.Event{}, fmt.Errorf("%s: unknown state %q", request.Type, payload.State)
		}
		event.Idle = state
	}
	return event, nil
}

// StateChanged is pushed to the extension after every beeper transition.
type StateChanged struct {
	Type string `json:"type"`
	State
}

// Sender delivers a message to the extension.
type Sender interface {
	Send(message any) error
}

// Publish forwards beeper state changes to sender until events is closed or
// ctx is done. Send failures are logged and the next change is tried.
func (controller *Controller) Publish(ctx context.Context, events <-chan beeper.Event, sender Sender) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Type != beeper.EventStateChange {
				continue
			}
			prefs, err := controller.store.CurrentState()
			if err != nil {
				controller.log.Warn().Err(err).Msg("state publish skipped")
				continue
			}
			message := StateChanged{
				Type:  MsgStateChanged,
				State: Snapshot(event.Status, prefs.URLList, event.At),
			}
			if err := sender.Send(message); err != nil {
				controller.log.Warn().Err(err).Msg("state publish failed")
			}
		}
	}
}

// Describe renders the suppression part of a status line.
func Describe(status beeper.Status, now time.Time) string {
	if !status.Active && status.Suppression.IsNone() {
		return "disabled"
	}
	if description := status.Suppression.Describe(now); description != "" {
		return "disabled " + description
	}
	if status.Suppression.Kind == model.SuppressionUntilTimestamp {
		return "re-enabling"
	}
	return "active"
}
