package cli

import (
	"context"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"

	"sitebeep/internal/control"
	"sitebeep/internal/core/beeper"
	"sitebeep/internal/ui/tray"
)

// runTray serves the browser on a goroutine while fyne owns the main thread.
// The tray closes when the browser disconnects.
func runTray(ctx context.Context, h *host) error {
	fyneApp := app.NewWithID("com.sitebeep.host")
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		h.log.Warn().Msg("system tray unsupported on this platform")
		return h.serve(ctx)
	}

	report := func(action string, err error) {
		if err != nil {
			h.log.Error().Err(err).Str("action", action).Msg("tray action failed")
		}
	}

	trayManager := tray.New(desktopApp, tray.Callbacks{
		OnToggle: func() {
			_, err := h.controller.ToggleActivation(ctx)
			report("toggle", err)
		},
		OnDisableNextVisit: func() {
			report("disable until next visit", h.controller.DisableUntilNextVisit())
		},
		OnDisableFor: func(hours, minutes int) {
			report("disable for", h.controller.DisableFor(hours, minutes))
		},
		OnDisableMorning: func() {
			report("disable until morning", h.controller.DisableUntilMorning())
		},
		OnVolume: func(volume int) {
			report("volume", h.controller.SetVolume(volume))
		},
		OnQuit: func() {
			fyneApp.Quit()
		},
	})

	apply := func(status beeper.Status) {
		trayManager.SetStatus(control.Describe(status, time.Now()))
		trayManager.SetActive(status.Active && status.Suppression.IsNone())
		trayManager.SetVolume(status.Volume)
		if status.Active && status.Suppression.IsNone() {
			desktopApp.SetSystemTrayIcon(theme.VolumeUpIcon())
		} else {
			desktopApp.SetSystemTrayIcon(theme.VolumeMuteIcon())
		}
	}
	apply(h.beeper.Status())

	events := h.beeper.Subscribe(8)
	go func() {
		for event := range events {
			if event.Type != beeper.EventStateChange {
				continue
			}
			status := event.Status
			fyne.Do(func() {
				apply(status)
			})
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- h.serve(ctx)
		fyne.Do(fyneApp.Quit)
	}()

	fyneApp.Run()

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}
