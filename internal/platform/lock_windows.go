package platform

import (
	"golang.org/x/sys/windows"
)

const desktopSwitchDesktop = 0x0100

type lockProvider struct {
	openInputDesktop *windows.LazyProc
	closeDesktop     *windows.LazyProc
}

func newLockProvider() LockProvider {
	user32 := windows.NewLazySystemDLL("user32.dll")
	return &lockProvider{
		openInputDesktop: user32.NewProc("OpenInputDesktop"),
		closeDesktop:     user32.NewProc("CloseDesktop"),
	}
}

// SystemLocked reports true while the input desktop cannot be opened, which
// is the case when the secure desktop (lock screen, UAC prompt) is active.
func (provider *lockProvider) SystemLocked() (bool, error) {
	if err := provider.openInputDesktop.Find(); err != nil {
		return false, ErrLockUnsupported
	}
	desktop, _, _ := provider.openInputDesktop.Call(0, 0, desktopSwitchDesktop)
	if desktop == 0 {
		return true, nil
	}
	_, _, _ = provider.closeDesktop.Call(desktop)
	return false, nil
}
