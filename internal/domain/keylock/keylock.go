// Package keylock provides striped per-key mutual exclusion.
//
// Keys hash onto a fixed set of mutexes, so two keys may share a stripe.
// That only costs concurrency; it never breaks exclusion for a single key.
package keylock

import (
	"hash/fnv"
	"sync"
)

const defaultStripes = 256

// Locker serializes critical sections per key.
type Locker struct {
	stripes []sync.Mutex
}

// New returns a Locker with n stripes (256 when n <= 0).
func New(n int) *Locker {
	if n <= 0 {
		n = defaultStripes
	}
	return &Locker{stripes: make([]sync.Mutex, n)}
}

func (l *Locker) stripe(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &l.stripes[h.Sum32()%uint32(len(l.stripes))]
}

// Lock acquires the stripe for key and returns its unlock func.
func (l *Locker) Lock(key string) (unlock func()) {
	m := l.stripe(key)
	m.Lock()
	return m.Unlock
}

// Do runs fn while holding the stripe for key.
func (l *Locker) Do(key string, fn func() error) error {
	unlock := l.Lock(key)
	defer unlock()
	return fn()
}
