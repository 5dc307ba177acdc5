package quiz

import "sync"

// keyLock hands out one mutex per learner key so turns for the same
// learner serialize while different learners never contend. Entries are
// refcounted and removed once the last holder releases, keeping the map
// from growing with the user population.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*lockEntry)}
}

// acquire blocks until the key's lock is held and returns the release
// function. Callers must release on every exit path.
func (k *keyLock) acquire(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
