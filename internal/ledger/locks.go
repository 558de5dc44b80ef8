package ledger

import "sync"

// keyedMutex hands out one mutex per key. Fills on the same portfolio are
// serialized; fills on different portfolios proceed concurrently. Mutexes are
// never evicted, which is fine at portfolio cardinality.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
