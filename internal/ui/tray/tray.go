package tray

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// Span is one "Disable for..." choice.
type Span struct {
	Label   string
	Hours   int
	Minutes int
}

// DefaultSpans mirrors the popup's quick choices.
var DefaultSpans = []Span{
	{Label: "15 minutes", Minutes: 15},
	{Label: "30 minutes", Minutes: 30},
	{Label: "1 hour", Hours: 1},
	{Label: "2 hours", Hours: 2},
	{Label: "4 hours", Hours: 4},
}

// VolumeSteps are the tray's volume presets.
var VolumeSteps = []int{10, 20, 40, 60, 80, 100}

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnToggle           func()
	OnDisableNextVisit func()
	OnDisableFor       func(hours, minutes int)
	OnDisableMorning   func()
	OnVolume           func(volume int)
	OnQuit             func()
}

// Manager handles system tray state.
type Manager struct {
	app         desktop.App
	callbacks   Callbacks
	statusItem  *fyne.MenuItem
	toggleItem  *fyne.MenuItem
	visitItem   *fyne.MenuItem
	disableFor  *fyne.MenuItem
	morningItem *fyne.MenuItem
	volumeItem  *fyne.MenuItem
	quitItem    *fyne.MenuItem
	active      bool
	volume      int
}

// New creates a tray manager with the provided callbacks. app may be nil,
// in which case the menu is built but not installed.
func New(app desktop.App, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:       app,
		callbacks: callbacks,
		active:    true,
	}

	manager.statusItem = fyne.NewMenuItem("Status: starting...", nil)
	manager.statusItem.Disabled = true

	manager.toggleItem = fyne.NewMenuItem("Disable", func() {
		if manager.callbacks.OnToggle != nil {
			manager.callbacks.OnToggle()
		}
	})

	manager.visitItem = fyne.NewMenuItem("Disable until next visit", func() {
		if manager.callbacks.OnDisableNextVisit != nil {
			manager.callbacks.OnDisableNextVisit()
		}
	})

	spans := make([]*fyne.MenuItem, 0, len(DefaultSpans))
	for _, span := range DefaultSpans {
		span := span
		spans = append(spans, fyne.NewMenuItem(span.Label, func() {
			if manager.callbacks.OnDisableFor != nil {
				manager.callbacks.OnDisableFor(span.Hours, span.Minutes)
			}
		}))
	}
	manager.disableFor = fyne.NewMenuItem("Disable for...", nil)
	manager.disableFor.ChildMenu = fyne.NewMenu("", spans...)

	manager.morningItem = fyne.NewMenuItem("Disable until tomorrow morning", func() {
		if manager.callbacks.OnDisableMorning != nil {
			manager.callbacks.OnDisableMorning()
		}
	})

	manager.volumeItem = fyne.NewMenuItem("Volume", nil)
	manager.volumeItem.ChildMenu = fyne.NewMenu("", manager.volumeChoices()...)

	manager.quitItem = fyne.NewMenuItem("Quit", func() {
		if manager.callbacks.OnQuit != nil {
			manager.callbacks.OnQuit()
		}
	})

	manager.refreshMenu()
	return manager
}

// Menu returns the current tray menu.
func (manager *Manager) Menu() *fyne.Menu {
	return fyne.NewMenu("sitebeep",
		manager.statusItem,
		fyne.NewMenuItemSeparator(),
		manager.toggleItem,
		manager.visitItem,
		manager.disableFor,
		manager.morningItem,
		manager.volumeItem,
		fyne.NewMenuItemSeparator(),
		manager.quitItem,
	)
}

// SetStatus updates the status label.
func (manager *Manager) SetStatus(status string) {
	manager.statusItem.Label = fmt.Sprintf("Status: %s", status)
	manager.refreshMenu()
}

// SetActive switches the toggle between Enable and Disable.
func (manager *Manager) SetActive(active bool) {
	manager.active = active
	if active {
		manager.toggleItem.Label = "Disable"
	} else {
		manager.toggleItem.Label = "Enable"
	}
	manager.refreshMenu()
}

// SetVolume marks the preset matching volume.
func (manager *Manager) SetVolume(volume int) {
	manager.volume = volume
	for i, item := range manager.volumeItem.ChildMenu.Items {
		item.Checked = VolumeSteps[i] == volume
	}
	manager.refreshMenu()
}

func (manager *Manager) volumeChoices() []*fyne.MenuItem {
	items := make([]*fyne.MenuItem, 0, len(VolumeSteps))
	for _, step := range VolumeSteps {
		step := step
		items = append(items, fyne.NewMenuItem(fmt.Sprintf("%d%%", step), func() {
			if manager.callbacks.OnVolume != nil {
				manager.callbacks.OnVolume(step)
			}
		}))
	}
	return items
}

func (manager *Manager) refreshMenu() {
	if manager.app != nil {
		manager.app.SetSystemTrayMenu(manager.Menu())
	}
}
