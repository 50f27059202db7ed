package coordinator

import (
	"sync"

	"github.com/google/uuid"
)

// keyedMutex serializes lifecycle transitions per ride identity. Unrelated
// rides lock independent entries and proceed fully in parallel. Entries are
// reference-counted and removed once the last waiter releases, so the table
// does not grow with ride history.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[uuid.UUID]*lockEntry)}
}

// Lock acquires the exclusive scope for one key and returns its release
// function. The caller must hold the scope across the whole read-modify-write
// of the transition.
func (k *keyedMutex) Lock(key uuid.UUID) (unlock func()) {
	k.mu.Lock()
	e := k.entries[key]
	if e == nil {
		e = &lockEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
