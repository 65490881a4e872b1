package sidecar

import "sync"

var (
	sharedMu   sync.Mutex
	sharedConn Connection
)

// SetShared installs the process-wide connection. It is set once at
// boot; layers that cannot receive the connection at construction time
// read it back with Shared. Constructors should still prefer an
// explicit Connection argument.
func SetShared(c Connection) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	sharedConn = c
}

// Shared returns the process-wide connection, or nil if none has been
// set.
func Shared() Connection {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	return sharedConn
}
