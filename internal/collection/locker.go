package collection

import "sync"

// KeyedLocker serialises work per key while letting different keys proceed independently.
type KeyedLocker[K comparable] struct {
	mux   sync.Mutex
	locks map[K]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

// Lock acquires the lock for key and returns its release function.
func (l *KeyedLocker[K]) Lock(key K) func() {
	l.mux.Lock()
	if l.locks == nil {
		l.locks = make(map[K]*keyedLock)
	}
	lock, ok := l.locks[key]
	if !ok {
		lock = &keyedLock{}
		l.locks[key] = lock
	}
	lock.refs++
	l.mux.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()
		l.mux.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, key)
		}
		l.mux.Unlock()
	}
}

// NewKeyedLocker creates a KeyedLocker
func NewKeyedLocker[K comparable]() *KeyedLocker[K] {
	return &KeyedLocker[K]{locks: make(map[K]*keyedLock)}
}
