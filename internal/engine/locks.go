package engine

import (
	"sync"

	"github.com/google/uuid"
)

// Locks is a mutex-per-timetable registry: at most one generation may be
// in flight per timetable, without serialising different timetables
// against each other. Like pkg/concurrent.SafeGo, this is the
// equivalent per-key discipline applied to locking instead of recovery.
type Locks struct {
	mu      sync.Mutex
	perKey  map[uuid.UUID]*sync.Mutex
	holders map[uuid.UUID]int
}

// NewLocks returns an empty lock registry.
func NewLocks() *Locks {
	return &Locks{
		perKey:  map[uuid.UUID]*sync.Mutex{},
		holders: map[uuid.UUID]int{},
	}
}

// TryLock acquires timetableID's lock without blocking. Returns false if a
// generation for that timetable is already in flight.
func (l *Locks) TryLock(timetableID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.holders[timetableID] > 0 {
		return false
	}
	if l.perKey[timetableID] == nil {
		l.perKey[timetableID] = &sync.Mutex{}
	}
	l.perKey[timetableID].Lock()
	l.holders[timetableID] = 1
	return true
}

// Unlock releases timetableID's lock and evicts its registry entry once
// nobody else is waiting, so the map doesn't grow unbounded across the
// lifetime of a long-running process.
func (l *Locks) Unlock(timetableID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if m, ok := l.perKey[timetableID]; ok {
		m.Unlock()
	}
	delete(l.holders, timetableID)
	delete(l.perKey, timetableID)
}
