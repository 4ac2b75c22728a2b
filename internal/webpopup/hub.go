package webpopup

import (
	"sync"

	"github.com/samber/lo"
)

// Hub tracks the live sessions of a server.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
	// live counts registered sessions that have not finished tearing down.
	live sync.WaitGroup
}

func newHub() *Hub {
	return &Hub{sessions: make(map[string]*Session)}
}

// register adds s. It reports false once the hub has been closed. Every
// successful register must be paired with unregister.
func (h *Hub) register(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.sessions[s.id] = s
	h.live.Add(1)
	return true
}

// unregister removes s once its teardown is complete.
func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()
	h.live.Done()
}

// Wait blocks until every registered session has unregistered.
func (h *Hub) Wait() {
	h.live.Wait()
}

// Len returns the number of live sessions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// IDs returns the ids of the live sessions.
func (h *Hub) IDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return lo.Keys(h.sessions)
}

// CloseAll closes every session and refuses new ones.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	h.closed = true
	sessions := lo.Values(h.sessions)
	h.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}
