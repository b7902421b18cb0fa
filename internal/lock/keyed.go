// Package lock provides per-key mutual exclusion. Every state-changing
// operation on a given subscription id is serialized through the same key so
// the read-validate-write sequence is atomic within a single instance.
// Multi-instance deployments additionally rely on the repository's optimistic
// version check.
package lock

import "sync"

// KeyedMutex serializes callers per key. Locks are never evicted; the key
// space is bounded by the number of distinct subscription ids an instance
// touches.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the mutex for key and returns the unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
