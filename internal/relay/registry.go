package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/nfrund/quorum/internal/domain"
)

const (
	// gatherTimeout bounds how long a presence query waits for identity
	// replies before returning partial results.
	gatherTimeout = 2 * time.Second

	// persistTimeout bounds the comment store call made during a relay.
	persistTimeout = 5 * time.Second
)

// CommentPublisher emits a domain event after a comment row is created.
// Satisfied by events.Emitter; may be nil when live subscriptions are
// disabled.
type CommentPublisher interface {
	CommentCreated(ctx context.Context, c domain.Comment) error
}

type connectCmd struct {
	sessionID string
	postID    int
	handle    *Handle
	notif     ConnectNotification
}

type disconnectCmd struct {
	sessionID string
	postID    int
	notif     DisconnectNotification
}

type relayCmd struct {
	postID  int
	comment InComment
}

type listCmd struct {
	postID int
	reply  chan []domain.ActiveUser
}

// Snapshot is a point-in-time view of the registry's state, exposed for
// the stats endpoint and for tests.
type Snapshot struct {
	// Rooms maps each post id to the session ids currently present.
	Rooms map[int][]string `json:"rooms"`
	// Sessions lists every session id with a live outbound handle.
	Sessions []string `json:"sessions"`
}

// Registry is the single owner of the room index: which sessions are in
// which room, and each session's outbound handle. All mutations flow
// through its command channels and are applied one at a time by Run, so
// the maps are never shared and never locked.
type Registry struct {
	store  domain.CommentStore
	events CommentPublisher

	connect    chan connectCmd
	disconnect chan disconnectCmd
	relay      chan relayCmd
	list       chan listCmd
	inspect    chan chan Snapshot

	// rooms maps post id -> set of session ids. Entries are added and
	// removed together with their handles entry, never partially. Empty
	// rooms are cleaned up lazily.
	rooms   map[int]map[string]struct{}
	handles map[string]*Handle

	done chan struct{}
}

// NewRegistry creates a registry. The events publisher may be nil.
func NewRegistry(store domain.CommentStore, events CommentPublisher) *Registry {
	return &Registry{
		store:      store,
		events:     events,
		connect:    make(chan connectCmd),
		disconnect: make(chan disconnectCmd),
		relay:      make(chan relayCmd),
		list:       make(chan listCmd),
		inspect:    make(chan chan Snapshot),
		rooms:      make(map[int]map[string]struct{}),
		handles:    make(map[string]*Handle),
		done:       make(chan struct{}),
	}
}

// Run starts the registry's command loop. It must be run in its own
// goroutine and exits when ctx is canceled.
func (r *Registry) Run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case cmd := <-r.connect:
			r.handleConnect(cmd)
		case cmd := <-r.disconnect:
			r.handleDisconnect(cmd)
		case cmd := <-r.relay:
			r.handleRelay(ctx, cmd)
		case cmd := <-r.list:
			r.handleList(cmd)
		case reply := <-r.inspect:
			reply <- r.snapshot()
		case <-ctx.Done():
			return
		}
	}
}

// Connect inserts a session into a room and notifies the members already
// present. The room is created implicitly if this is its first member.
func (r *Registry) Connect(sessionID string, postID int, handle *Handle, user domain.ActiveUser) {
	select {
	case r.connect <- connectCmd{
		sessionID: sessionID,
		postID:    postID,
		handle:    handle,
		notif:     ConnectNotification{User: user},
	}:
	case <-r.done:
	}
}

// Disconnect removes a session from its room and notifies the remaining
// members. Removing an absent session is a no-op.
func (r *Registry) Disconnect(sessionID string, postID int, userID int) {
	select {
	case r.disconnect <- disconnectCmd{
		sessionID: sessionID,
		postID:    postID,
		notif:     DisconnectNotification{ID: userID},
	}:
	case <-r.done:
	}
}

// Relay persists an inbound comment and, on success, broadcasts it to every
// session in the room. Persistence failures are logged and the broadcast is
// dropped; the submitter is not told either way. The outbound protocol has
// no error variant, so a failed relay is indistinguishable from a slow one
// on the client side. Known limitation.
func (r *Registry) Relay(postID int, comment InComment) {
	select {
	case r.relay <- relayCmd{postID: postID, comment: comment}:
	case <-r.done:
	}
}

// ListActiveUsers scatter-gathers identity snapshots from every session
// currently in the room. Sessions that are dead or fail to answer within
// the gather window contribute no entry; the call itself never fails.
func (r *Registry) ListActiveUsers(ctx context.Context, postID int) []domain.ActiveUser {
	reply := make(chan []domain.ActiveUser, 1)
	select {
	case r.list <- listCmd{postID: postID, reply: reply}:
	case <-r.done:
		return nil
	case <-ctx.Done():
		return nil
	}

	select {
	case users := <-reply:
		return users
	case <-ctx.Done():
		return nil
	}
}

// Stats returns a snapshot of rooms and live sessions.
func (r *Registry) Stats(ctx context.Context) Snapshot {
	reply := make(chan Snapshot, 1)
	select {
	case r.inspect <- reply:
	case <-r.done:
		return Snapshot{Rooms: map[int][]string{}}
	case <-ctx.Done():
		return Snapshot{Rooms: map[int][]string{}}
	}

	select {
	case snap := <-reply:
		return snap
	case <-ctx.Done():
		return Snapshot{Rooms: map[int][]string{}}
	}
}

func (r *Registry) handleConnect(cmd connectCmd) {
	r.handles[cmd.sessionID] = cmd.handle
	room, ok := r.rooms[cmd.postID]
	if !ok {
		room = make(map[string]struct{})
		r.rooms[cmd.postID] = room
	}
	room[cmd.sessionID] = struct{}{}

	// Notify everyone already watching the thread. The session that just
	// joined does not get its own join echo.
	for id := range room {
		if id == cmd.sessionID {
			continue
		}
		if h, ok := r.handles[id]; ok {
			h.Push(cmd.notif)
		}
	}
	slog.Info("Session joined room", "session_id", cmd.sessionID, "post_id", cmd.postID, "room_size", len(room))
}

func (r *Registry) handleDisconnect(cmd disconnectCmd) {
	delete(r.handles, cmd.sessionID)
	if room, ok := r.rooms[cmd.postID]; ok {
		delete(room, cmd.sessionID)
	}
	r.fanout(cmd.postID, cmd.notif)
	slog.Info("Session left room", "session_id", cmd.sessionID, "post_id", cmd.postID)
}

func (r *Registry) handleRelay(ctx context.Context, cmd relayCmd) {
	inc := cmd.comment

	persistCtx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	comment, err := r.store.Create(persistCtx, domain.NewComment{
		UserID:   inc.User.ID,
		PostID:   inc.PostID,
		ForumID:  inc.ForumID,
		ParentID: inc.ParentID,
		Content:  inc.Content,
		Media:    inc.Media,
	})
	if err != nil {
		slog.Error("Failed to persist comment, dropping broadcast", "post_id", cmd.postID, "user_id", inc.User.ID, "error", err)
		return
	}

	r.fanout(cmd.postID, OutComment{
		ID:        comment.ID,
		CreatedAt: comment.CreatedAt,
		User:      inc.User,
		PostID:    inc.PostID,
		ForumID:   inc.ForumID,
		ParentID:  inc.ParentID,
		Content:   inc.Content,
		Media:     inc.Media,
	})

	if r.events != nil {
		if err := r.events.CommentCreated(ctx, *comment); err != nil {
			slog.Error("Failed to publish comment event", "comment_id", comment.ID, "error", err)
		}
	}
}

func (r *Registry) handleList(cmd listCmd) {
	room, ok := r.rooms[cmd.postID]
	if !ok || len(room) == 0 {
		cmd.reply <- nil
		return
	}

	targets := make([]*Handle, 0, len(room))
	for id := range room {
		if h, ok := r.handles[id]; ok {
			targets = append(targets, h)
		}
	}

	// Gather off-loop so a slow or dead member cannot stall command
	// processing for everyone else.
	go gatherIdentities(targets, cmd.reply)
}

// gatherIdentities fans an identify request out to every target and
// collects the replies that arrive within the gather window. Targets whose
// handle refuses the request are skipped up front.
func gatherIdentities(targets []*Handle, reply chan<- []domain.ActiveUser) {
	replies := make(chan domain.ActiveUser, len(targets))
	outstanding := 0
	for _, h := range targets {
		if h.Identify(replies) {
			outstanding++
		}
	}

	users := make([]domain.ActiveUser, 0, outstanding)
	timeout := time.NewTimer(gatherTimeout)
	defer timeout.Stop()
	for outstanding > 0 {
		select {
		case u := <-replies:
			users = append(users, u)
			outstanding--
		case <-timeout.C:
			slog.Warn("Presence gather timed out, returning partial results", "collected", len(users), "missing", outstanding)
			outstanding = 0
		}
	}
	reply <- users
}

// fanout pushes a packet to every member of a room. A failed push is not
// retried and does not stop iteration; each session detects its own dead
// handle and disconnects itself.
func (r *Registry) fanout(postID int, p OutPacket) {
	room, ok := r.rooms[postID]
	if !ok {
		return
	}
	for id := range room {
		if h, ok := r.handles[id]; ok {
			h.Push(p)
		}
	}
}

func (r *Registry) snapshot() Snapshot {
	snap := Snapshot{
		Rooms:    make(map[int][]string, len(r.rooms)),
		Sessions: make([]string, 0, len(r.handles)),
	}
	for postID, room := range r.rooms {
		if len(room) == 0 {
			continue
		}
		members := make([]string, 0, len(room))
		for id := range room {
			members = append(members, id)
		}
		snap.Rooms[postID] = members
	}
	for id := range r.handles {
		snap.Sessions = append(snap.Sessions, id)
	}
	return snap
}
