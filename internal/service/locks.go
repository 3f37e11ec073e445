package service

import "sync"

// UserLocks hands out one mutex per user ID so that Click, Reset and Buy for
// the same player run one at a time while different players proceed in
// parallel. Entries are reference counted and dropped when the last holder
// unlocks, so the map only ever holds users with a request in flight.
//
// The same *UserLocks must be shared by every service that mutates a
// progression.
type UserLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[string]*userLock)}
}

// Lock blocks until userID's mutex is held and returns its unlock func.
//
//	unlock := s.locks.Lock(userID)
//	defer unlock()
func (l *UserLocks) Lock(userID string) (unlock func()) {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()

	return func() {
		ul.mu.Unlock()

		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}

// size is for tests.
func (l *UserLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
