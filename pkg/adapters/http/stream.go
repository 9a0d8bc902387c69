package http

import (
	"log/slog"
	"sync"

	"github.com/nodus-reseau/leadform/pkg/domain"
)

// StreamManager fans session views out to the SSE subscribers of each session.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- []byte]struct{} // SessionID -> set of channels
	phases      map[string]domain.Phase                // last phase streamed per session
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- []byte]struct{}),
		phases:      make(map[string]domain.Phase),
		logger:      logger,
	}
}

// Subscribe registers a subscriber for sessionID. The returned function
// unregisters it and closes the channel.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan []byte, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan []byte, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- []byte]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
					delete(sm.phases, sessionID)
				}
			}
			close(ch)
		})
	}
}

// Broadcast sends msg to every subscriber of sessionID.
// Subscribers with a full buffer miss the message.
func (sm *StreamManager) Broadcast(sessionID string, msg []byte) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	subs := sm.subscribers[sessionID]
	for ch := range subs {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("sse client buffer full, dropping view", "session_id", sessionID)
		}
	}
}

// MarkPhase records phase as the last one streamed on sessionID and reports
// whether it differs from the previous one. It reports false when nobody listens.
func (sm *StreamManager) MarkPhase(sessionID string, phase domain.Phase) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.subscribers[sessionID]) == 0 {
		return false
	}
	prev, seen := sm.phases[sessionID]
	sm.phases[sessionID] = phase
	return !seen || prev != phase
}

// Subscribers returns the number of open streams on sessionID.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}
