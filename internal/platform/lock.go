package platform

import "errors"

// ErrLockUnsupported is returned where the session lock state cannot be read.
var ErrLockUnsupported = errors.New("session lock detection unsupported")

// LockProvider reports whether the user session is locked. Implementations
// query the system on every call.
type LockProvider interface {
	SystemLocked() (bool, error)
}

// NewLockProvider returns a platform-specific lock provider.
func NewLockProvider() LockProvider {
	return newLockProvider()
}

type unsupportedLockProvider struct{}

func (unsupportedLockProvider) SystemLocked() (bool, error) {
	return false, ErrLockUnsupported
}
