package platform

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"os"
)

// ErrAlreadyRunning indicates another host already holds the lock.
var ErrAlreadyRunning = errors.New("host already running")

// InstanceGuard keeps a second host from playing duplicate cues when the
// browser opens another port.
type InstanceGuard struct {
	listener net.Listener
	address  string
}

// AcquireSingleInstance binds a localhost port derived from name and the
// current user, so different users on one machine do not collide.
func AcquireSingleInstance(name string) (*InstanceGuard, error) {
	address := fmt.Sprintf("127.0.0.1:%d", instancePort(instanceKey(name)))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", ErrAlreadyRunning, address)
	}
	return &InstanceGuard{listener: listener, address: address}, nil
}

// Release frees the lock. It is safe on a nil guard.
func (guard *InstanceGuard) Release() error {
	if guard == nil || guard.listener == nil {
		return nil
	}
	return guard.listener.Close()
}

// Address returns the bound address.
func (guard *InstanceGuard) Address() string {
	if guard == nil {
		return ""
	}
	return guard.address
}

func instanceKey(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return name + "\x00" + home
}

func instancePort(key string) int {
	const (
		minPort = 20000
		maxPort = 39999
	)
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(key))
	return minPort + int(hash.Sum32()%uint32(maxPort-minPort+1))
}
