package platform

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	login1Service     = "org.freedesktop.login1"
	login1AutoSession = dbus.ObjectPath("/org/freedesktop/login1/session/auto")
	lockedHintProp    = "org.freedesktop.login1.Session.LockedHint"
)

// lockProvider reads logind's LockedHint for the caller's session.
type lockProvider struct {
	conn *dbus.Conn
}

func newLockProvider() LockProvider {
	conn, err := dbus.SystemBus()
	if err != nil {
		return unsupportedLockProvider{}
	}
	return &lockProvider{conn: conn}
}

func (provider *lockProvider) SystemLocked() (bool, error) {
	session := provider.conn.Object(login1Service, login1AutoSession)
	variant, err := session.GetProperty(lockedHintProp)
	if err != nil {
		return false, fmt.Errorf("read LockedHint: %w", err)
	}
	locked, ok := variant.Value().(bool)
	if !ok {
		return false, fmt.Errorf("read LockedHint: unexpected type %s", variant.Signature())
	}
	return locked, nil
}
