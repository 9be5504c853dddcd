package relay

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/nfrund/quorum/internal/domain"
)

const (
	// heartbeatInterval is how often a session probes its peer for liveness.
	heartbeatInterval = 5 * time.Second

	// sessionTimeout is how long a session tolerates silence (no pong, no
	// inbound traffic) before disconnecting itself.
	sessionTimeout = 10 * time.Second

	// sendQueueSize is the capacity of a session's outbound queue.
	sendQueueSize = 256

	// writeTimeout bounds a single write to the peer.
	writeTimeout = 10 * time.Second
)

// Session is the server-side state for one live client connection. It owns
// the WebSocket, parses inbound frames, keeps the liveness clock, and
// forwards validated actions to the registry. A session always tears itself
// down: transport errors, protocol violations, heartbeat timeouts, and a
// saturated outbound queue all funnel into the same shutdown path, which
// tells the registry to drop the session's handle and notify the room.
type Session struct {
	ID      string
	PostID  int
	ForumID int
	User    domain.ActiveUser

	conn     *websocket.Conn
	registry *Registry
	handle   *Handle

	// Overridable in tests.
	probeInterval time.Duration
	idleTimeout   time.Duration

	lastBeat atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

// NewSession creates a session for an accepted connection. The session id
// is a fresh UUID; the caller resolved user, post, and forum beforehand.
func NewSession(conn *websocket.Conn, registry *Registry, user domain.ActiveUser, postID, forumID int) *Session {
	id := uuid.NewString()
	return &Session{
		ID:            id,
		PostID:        postID,
		ForumID:       forumID,
		User:          user,
		conn:          conn,
		registry:      registry,
		handle:        NewHandle(id, sendQueueSize),
		probeInterval: heartbeatInterval,
		idleTimeout:   sessionTimeout,
		done:          make(chan struct{}),
	}
}

// Run registers the session with the registry and pumps the connection
// until it dies. It blocks; callers start it in its own goroutine.
func (s *Session) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-s.done
		cancel()
	}()

	s.markAlive()
	s.registry.Connect(s.ID, s.PostID, s.handle, s.User)

	go s.writePump(ctx)
	go s.heartbeat(ctx)

	s.readPump(ctx)
}

// markAlive records peer activity for the liveness check.
func (s *Session) markAlive() {
	s.lastBeat.Store(time.Now().UnixNano())
}

func (s *Session) sinceLastBeat() time.Duration {
	return time.Since(time.Unix(0, s.lastBeat.Load()))
}

// shutdown tears the session down exactly once: registry removal and room
// notification, queue close, transport close.
func (s *Session) shutdown(code websocket.StatusCode, reason string) {
	s.closeOnce.Do(func() {
		close(s.done)
		s.registry.Disconnect(s.ID, s.PostID, s.User.ID)
		s.handle.Close()
		s.conn.Close(code, reason)
		slog.Info("Session closed", "session_id", s.ID, "post_id", s.PostID, "reason", reason)
	})
}

// readPump reads frames off the wire until the connection dies or the
// client breaks protocol. Any successfully read frame counts as liveness.
func (s *Session) readPump(ctx context.Context) {
	defer s.shutdown(websocket.StatusNormalClosure, "read loop ended")

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				slog.Info("WebSocket closed by client", "session_id", s.ID)
			} else if err != io.EOF && ctx.Err() == nil {
				slog.Error("WebSocket read error", "session_id", s.ID, "error", err)
			}
			return
		}
		s.markAlive()

		pkt, err := DecodeInPacket(data)
		if err != nil {
			// Protocol violation is fatal, not recoverable.
			slog.Warn("Closing session on malformed packet", "session_id", s.ID, "error", err)
			s.shutdown(websocket.StatusUnsupportedData, "malformed packet")
			return
		}

		switch {
		case pkt.Message != nil:
			s.registry.Relay(s.PostID, InComment{
				User:     s.User,
				PostID:   s.PostID,
				ForumID:  s.ForumID,
				ParentID: pkt.Message.ParentID,
				Content:  pkt.Message.Content,
				Media:    pkt.Message.Media,
			})

		case pkt.ListActiveUsers:
			// Answered off the read loop so a slow gather cannot hold up
			// inbound traffic. The result goes back through our own queue
			// and reaches only this client.
			go func() {
				users := s.registry.ListActiveUsers(ctx, s.PostID)
				s.handle.Push(ActiveUserList(users))
			}()
		}
	}
}

// writePump drains the outbound queue onto the wire. Identify requests are
// answered locally with the session's own snapshot and never serialized.
func (s *Session) writePump(ctx context.Context) {
	inbox := s.handle.inbox()
	for {
		select {
		case msg, ok := <-inbox:
			if !ok {
				// The queue was killed on overflow, or shutdown already ran.
				s.shutdown(websocket.StatusPolicyViolation, "send queue overflowed")
				return
			}
			switch m := msg.(type) {
			case identifyRequest:
				select {
				case m.reply <- s.User:
				default:
				}

			case OutPacket:
				data, err := EncodeOutPacket(m)
				if err != nil {
					slog.Error("Failed to encode outbound packet", "session_id", s.ID, "error", err)
					continue
				}
				wctx, cancel := context.WithTimeout(ctx, writeTimeout)
				err = s.conn.Write(wctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					if ctx.Err() == nil {
						slog.Error("WebSocket write error", "session_id", s.ID, "error", err)
					}
					s.shutdown(websocket.StatusAbnormalClosure, "write failed")
					return
				}
			}

		case <-s.done:
			return
		}
	}
}

// heartbeat probes the peer on a fixed interval and enforces the idle
// timeout. The timeout check and the probe share one ticker; there is no
// separate watchdog.
func (s *Session) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(s.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.sinceLastBeat() > s.idleTimeout {
				slog.Info("Heartbeat timeout, evicting session", "session_id", s.ID, "post_id", s.PostID)
				s.shutdown(websocket.StatusGoingAway, "heartbeat timeout")
				return
			}
			// Ping blocks until the pong arrives, so it runs off the ticker
			// goroutine. A successful pong counts as liveness.
			go func() {
				pctx, cancel := context.WithTimeout(ctx, s.probeInterval)
				defer cancel()
				if err := s.conn.Ping(pctx); err == nil {
					s.markAlive()
				}
			}()

		case <-s.done:
			return
		}
	}
}
