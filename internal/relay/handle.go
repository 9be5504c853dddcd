package relay

import (
	"log/slog"
	"sync"

	"github.com/nfrund/quorum/internal/domain"
)

// identifyRequest is a server-internal message riding a session's outbound
// queue. The owning session answers it with its own identity snapshot; it
// must never reach the wire.
type identifyRequest struct {
	reply chan<- domain.ActiveUser
}

// Handle is the registry's non-owning reference to a session: a bounded
// multi-producer outbound queue the registry and the owning session can
// both push into. The owning session drains it; the registry must tolerate
// the handle becoming unusable at any time.
type Handle struct {
	sessionID string

	mu sync.Mutex
	// ch carries OutPacket and identifyRequest values. Set to nil once the
	// handle is closed to prevent further sends.
	ch chan any
}

// NewHandle creates an outbound handle with the given queue capacity.
func NewHandle(sessionID string, capacity int) *Handle {
	return &Handle{
		sessionID: sessionID,
		ch:        make(chan any, capacity),
	}
}

// SessionID returns the id of the session this handle belongs to.
func (h *Handle) SessionID() string { return h.sessionID }

// Push enqueues an outbound packet without blocking. A full queue means the
// owner stopped draining or the client is too slow; the queue is killed on
// the spot and the owning session, seeing it close, disconnects itself.
// Returns false when the packet was not enqueued; the caller never retries.
func (h *Handle) Push(p OutPacket) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ch == nil {
		return false
	}

	select {
	case h.ch <- p:
		return true
	default:
		slog.Warn("Session send queue overflowed, killing handle", "session_id", h.sessionID)
		close(h.ch)
		h.ch = nil
		return false
	}
}

// Identify enqueues an internal identity request. The reply channel receives
// the session's ActiveUser snapshot if the session is still draining its
// queue. Returns false when the request could not be enqueued, in which
// case the caller must not wait for a reply from this handle.
func (h *Handle) Identify(reply chan<- domain.ActiveUser) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ch == nil {
		return false
	}

	select {
	case h.ch <- identifyRequest{reply: reply}:
		return true
	default:
		return false
	}
}

// Close shuts the queue down. Pending messages are still drained by the
// owning session; subsequent pushes fail fast. Idempotent.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ch != nil {
		close(h.ch)
		h.ch = nil
	}
}

// inbox returns the receive side of the queue for the owning session. The
// owner grabs it once at startup; the returned channel stays drainable
// after Close.
func (h *Handle) inbox() <-chan any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ch
}
