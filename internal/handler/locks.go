package handler

import "sync"

// scopeLocks serializes the read-modify-write cycles of one client scope.
// Requests of different scopes never wait on each other, and an entry
// lives only while some request holds or waits for it.
type scopeLocks struct {
	mu   sync.Mutex
	held map[string]*scopeLock
}

type scopeLock struct {
	mu   sync.Mutex
	refs int
}

func newScopeLocks() *scopeLocks {
	return &scopeLocks{held: map[string]*scopeLock{}}
}

// lock blocks until id is free and returns the matching unlock.
func (l *scopeLocks) lock(id string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.held[id]
	if !ok {
		e = &scopeLock{}
		l.held[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}
