package coordinator

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestKeyedMutex_Exclusion tests that holders of the same key never overlap
func TestKeyedMutex_Exclusion(t *testing.T) {
	km := newKeyedMutex()
	key := uuid.New()

	const n = 50
	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock(key)
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen, "at most one holder per key at any time")
}

// TestKeyedMutex_IndependentKeys tests that unrelated keys do not serialize
func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := newKeyedMutex()

	unlockA := km.Lock(uuid.New())
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock(uuid.New())
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a different key must not block behind a held lock")
	}
}

// TestKeyedMutex_EntryCleanup tests that released entries leave the table
func TestKeyedMutex_EntryCleanup(t *testing.T) {
	km := newKeyedMutex()

	keys := make([]uuid.UUID, 10)
	for i := range keys {
		keys[i] = uuid.New()
		unlock := km.Lock(keys[i])
		unlock()
	}

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.entries, "lock table must not grow with ride history")
}
