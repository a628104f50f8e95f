package tray

import (
	"testing"

	"fyne.io/fyne/v2"
)

func findItem(t *testing.T, menu *fyne.Menu, label string) *fyne.MenuItem {
	t.Helper()
	for _, item := range menu.Items {
		if item.Label == label {
			return item
		}
	}
	t.Fatalf("menu has no %q item", label)
	return nil
}

func TestMenuDispatchesCallbacks(t *testing.T) {
	var (
		toggled, visit, morning, quit int
		spans                         [][2]int
		volumes                       []int
	)
	manager := New(nil, Callbacks{
		OnToggle:           func() { toggled++ },
		OnDisableNextVisit: func() { visit++ },
		OnDisableFor:       func(h, m int) { spans = append(spans, [2]int{h, m}) },
		OnDisableMorning:   func() { morning++ },
		OnVolume:           func(v int) { volumes = append(volumes, v) },
		OnQuit:             func() { quit++ },
	})
	menu := manager.Menu()

	findItem(t, menu, "Disable").Action()
	findItem(t, menu, "Disable until next visit").Action()
	findItem(t, menu, "Disable until tomorrow morning").Action()
	findItem(t, menu, "Quit").Action()

	disableFor := findItem(t, menu, "Disable for...")
	findItem(t, disableFor.ChildMenu, "30 minutes").Action()
	findItem(t, disableFor.ChildMenu, "2 hours").Action()

	volume := findItem(t, menu, "Volume")
	findItem(t, volume.ChildMenu, "40%").Action()

	if toggled != 1 || visit != 1 || morning != 1 || quit != 1 {
		t.Errorf("counts = toggle %d, visit %d, morning %d, quit %d", toggled, visit, morning, quit)
	}
	if len(spans) != 2 || spans[0] != [2]int{0, 30} || spans[1] != [2]int{2, 0} {
		t.Errorf("spans = %v", spans)
	}
	if len(volumes) != 1 || volumes[0] != 40 {
		t.Errorf("volumes = %v", volumes)
	}
}

func TestMenuToleratesMissingCallbacks(t *testing.T) {
	menu := New(nil, Callbacks{}).Menu()
	for _, item := range menu.Items {
		if item.Action != nil {
			item.Action()
		}
	}
}

func TestStateLabels(t *testing.T) {
	manager := New(nil, Callbacks{})

	manager.SetActive(false)
	findItem(t, manager.Menu(), "Enable")
	manager.SetActive(true)
	findItem(t, manager.Menu(), "Disable")

	manager.SetStatus("disabled until next visit")
	findItem(t, manager.Menu(), "Status: disabled until next visit")

	manager.SetVolume(60)
	for _, item := range findItem(t, manager.Menu(), "Volume").ChildMenu.Items {
		if item.Checked != (item.Label == "60%") {
			t.Errorf("%s checked = %v", item.Label, item.Checked)
		}
	}
}
