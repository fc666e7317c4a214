// Package sse streams generation progress to watchers of a timetable's
// generation run over server-sent events.
package sse

import (
	"sync"

	"github.com/google/uuid"
)

// EventChannelBufferSize bounds how many unconsumed events a slow watcher
// can accumulate before new sends are dropped rather than blocking the
// generation goroutine.
const EventChannelBufferSize = 32

// Event is one generation-log line or status change pushed to a watcher.
type Event struct {
	Type string      `json:"type"` // "log", "status"
	Data interface{} `json:"data"`
}

// ConnectionManager fans out generation events to every watcher currently
// subscribed to a timetable id. One timetable can have several watchers
// (e.g. more than one browser tab); one watcher only ever follows one
// timetable id at a time.
type ConnectionManager struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]chan Event
}

// NewConnectionManager creates an empty connection manager.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[uuid.UUID][]chan Event),
	}
}

// AddConnection registers eventChan as a watcher of timetableID.
func (cm *ConnectionManager) AddConnection(timetableID uuid.UUID, eventChan chan Event) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[timetableID] = append(cm.connections[timetableID], eventChan)
}

// RemoveConnection unregisters and closes eventChan.
func (cm *ConnectionManager) RemoveConnection(timetableID uuid.UUID, eventChan chan Event) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	channels, exists := cm.connections[timetableID]
	if !exists {
		return
	}

	for i, ch := range channels {
		if ch == eventChan {
			cm.connections[timetableID] = append(channels[:i], channels[i+1:]...)
			close(eventChan)
			break
		}
	}

	if len(cm.connections[timetableID]) == 0 {
		delete(cm.connections, timetableID)
	}
}

// SendToTimetable pushes event to every watcher of timetableID. A watcher
// whose channel is full is skipped rather than blocking the sender -
// generation progress is best-effort, not a guaranteed delivery log.
func (cm *ConnectionManager) SendToTimetable(timetableID uuid.UUID, event Event) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	channels, exists := cm.connections[timetableID]
	if !exists || len(channels) == 0 {
		return false
	}

	sent := false
	for _, ch := range channels {
		select {
		case ch <- event:
			sent = true
		default:
		}
	}

	return sent
}

// CreateEventChannel allocates a buffered channel sized for one watcher.
func CreateEventChannel() chan Event {
	return make(chan Event, EventChannelBufferSize)
}

// GetConnectionCount returns the total number of watchers across every timetable.
func (cm *ConnectionManager) GetConnectionCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	count := 0
	for _, channels := range cm.connections {
		count += len(channels)
	}
	return count
}

// IsWatched reports whether any watcher is currently subscribed to timetableID.
func (cm *ConnectionManager) IsWatched(timetableID uuid.UUID) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	channels, exists := cm.connections[timetableID]
	return exists && len(channels) > 0
}
