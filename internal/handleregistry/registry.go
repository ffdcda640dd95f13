// Package handleregistry implements the Open-Handle Registry: the mapping
// from a kernel-supplied file handle to the Encoder Session transcoding it,
// created on open and destroyed on release.
package handleregistry

import (
	"errors"
	"sync"
)

// ErrBusy is returned by Register when handle already has a live session,
// enforcing the "no concurrent opens of the same backing file" policy.
var ErrBusy = errors.New("handleregistry: handle already has an open session")

// ErrNotFound is returned by Read and Release for a handle with no
// registered session.
var ErrNotFound = errors.New("handleregistry: no session for handle")

// session is the narrow interface the registry needs from an encoder
// session: pull bytes, and release native resources on close.
type session interface {
	Read(n int) ([]byte, error)
	Close() error
}

// Registry is the OpenHandleRegistry of the specification. A single mutex
// guards the mapping; because Read holds the lock across encode steps,
// concurrent reads on different handles serialize against each other.
// This is acceptable for the target workload of one client per handle
// reading sequentially.
type Registry struct {
	mu       sync.Mutex
	sessions map[uint64]session
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{sessions: make(map[uint64]session)}
}

// Register associates handle with sess. It fails with ErrBusy if handle
// already has a registered session.
func (r *Registry) Register(handle uint64, sess session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[handle]; exists {
		return ErrBusy
	}

	r.sessions[handle] = sess
	return nil
}

// Read looks up the session for handle and delegates n bytes of Read to it,
// holding the registry lock for the duration of the encode steps that may
// be required to produce them.
func (r *Registry) Read(handle uint64, n int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[handle]
	if !ok {
		return nil, ErrNotFound
	}

	return sess.Read(n)
}

// Release removes handle's session and closes it, releasing the FLAC
// source and encoder context it owns.
func (r *Registry) Release(handle uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[handle]
	if !ok {
		return ErrNotFound
	}

	delete(r.sessions, handle)
	return sess.Close()
}
