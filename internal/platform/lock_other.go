//go:build !linux && !windows

package platform

func newLockProvider() LockProvider {
	return unsupportedLockProvider{}
}
