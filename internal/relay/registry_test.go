package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/quorum/internal/domain"
)

// stubCommentStore records create calls and hands out sequential ids.
type stubCommentStore struct {
	mu      sync.Mutex
	created []domain.NewComment
	err     error
	nextID  int
}

func (s *stubCommentStore) Create(ctx context.Context, nc domain.NewComment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, nc)
	s.nextID++
	return &domain.Comment{
		ID:        s.nextID,
		UserID:    nc.UserID,
		PostID:    nc.PostID,
		ForumID:   nc.ForumID,
		ParentID:  nc.ParentID,
		Content:   nc.Content,
		Media:     nc.Media,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (s *stubCommentStore) createCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

// stubMember drains a handle the way a live session's write pump would:
// it records outbound packets and answers identify requests with its user.
type stubMember struct {
	user   domain.ActiveUser
	handle *Handle

	mu      sync.Mutex
	packets []OutPacket
}

func newStubMember(userID int) *stubMember {
	m := &stubMember{
		user: domain.ActiveUser{
			ID:          userID,
			Username:    fmt.Sprintf("user%d", userID),
			DisplayName: fmt.Sprintf("User %d", userID),
		},
		handle: NewHandle(fmt.Sprintf("session-%d", userID), 64),
	}
	go func() {
		for msg := range m.handle.inbox() {
			switch v := msg.(type) {
			case identifyRequest:
				v.reply <- m.user
			case OutPacket:
				m.mu.Lock()
				m.packets = append(m.packets, v)
				m.mu.Unlock()
			}
		}
	}()
	return m
}

func (m *stubMember) received() []OutPacket {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OutPacket, len(m.packets))
	copy(out, m.packets)
	return out
}

func (m *stubMember) countOf(match func(OutPacket) bool) int {
	n := 0
	for _, p := range m.received() {
		if match(p) {
			n++
		}
	}
	return n
}

func isOutComment(p OutPacket) bool {
	_, ok := p.(OutComment)
	return ok
}

func startRegistry(t *testing.T, store domain.CommentStore) *Registry {
	t.Helper()
	r := NewRegistry(store, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go r.Run(ctx)
	return r
}

func TestConnectDisconnectMembership(t *testing.T) {
	r := startRegistry(t, &stubCommentStore{})

	a := newStubMember(1)
	b := newStubMember(2)

	r.Connect("sa", 42, a.handle, a.user)
	r.Connect("sb", 42, b.handle, b.user)

	snap := r.Stats(context.Background())
	assert.ElementsMatch(t, []string{"sa", "sb"}, snap.Rooms[42])
	assert.ElementsMatch(t, []string{"sa", "sb"}, snap.Sessions)

	r.Disconnect("sa", 42, a.user.ID)

	snap = r.Stats(context.Background())
	assert.ElementsMatch(t, []string{"sb"}, snap.Rooms[42])
	assert.ElementsMatch(t, []string{"sb"}, snap.Sessions)

	// Removing an absent session is a no-op.
	r.Disconnect("sa", 42, a.user.ID)
	snap = r.Stats(context.Background())
	assert.ElementsMatch(t, []string{"sb"}, snap.Rooms[42])
}

func TestMembershipAndHandlesStayInSync(t *testing.T) {
	r := startRegistry(t, &stubCommentStore{})

	// Interleave connects and disconnects across two rooms, then check that
	// every room member has a handle and every handle belongs to a room.
	members := make([]*stubMember, 8)
	for i := range members {
		members[i] = newStubMember(i + 1)
		room := 10 + i%2
		r.Connect(fmt.Sprintf("s%d", i), room, members[i].handle, members[i].user)
	}
	for i := 0; i < 4; i++ {
		r.Disconnect(fmt.Sprintf("s%d", i), 10+i%2, members[i].user.ID)
	}

	snap := r.Stats(context.Background())
	var allMembers []string
	for _, ids := range snap.Rooms {
		allMembers = append(allMembers, ids...)
	}
	assert.ElementsMatch(t, snap.Sessions, allMembers,
		"session ids with handles must be exactly the room members")
	assert.Len(t, allMembers, 4)
}

func TestConnectNotifiesOtherMembersOnly(t *testing.T) {
	r := startRegistry(t, &stubCommentStore{})

	a := newStubMember(1)
	b := newStubMember(2)

	r.Connect("sa", 42, a.handle, a.user)
	r.Connect("sb", 42, b.handle, b.user)

	require.Eventually(t, func() bool {
		return a.countOf(func(p OutPacket) bool {
			n, ok := p.(ConnectNotification)
			return ok && n.User.ID == b.user.ID
		}) == 1
	}, time.Second, 10*time.Millisecond, "existing member should see the join")

	assert.Zero(t, b.countOf(func(p OutPacket) bool {
		_, ok := p.(ConnectNotification)
		return ok
	}), "joining member should not see its own join echo")
}

func TestRelayFanoutReachesEveryMember(t *testing.T) {
	store := &stubCommentStore{}
	r := startRegistry(t, store)

	members := []*stubMember{newStubMember(1), newStubMember(2), newStubMember(3)}
	for i, m := range members {
		r.Connect(fmt.Sprintf("s%d", i), 42, m.handle, m.user)
	}

	r.Relay(42, InComment{
		User:    members[0].user,
		PostID:  42,
		ForumID: 7,
		Content: "hi",
	})

	for i, m := range members {
		m := m
		require.Eventually(t, func() bool {
			return m.countOf(isOutComment) == 1
		}, time.Second, 10*time.Millisecond, "member %d should receive the comment", i)
	}

	require.Equal(t, 1, store.createCount())

	got := members[1].received()
	var oc OutComment
	for _, p := range got {
		if c, ok := p.(OutComment); ok {
			oc = c
		}
	}
	assert.Equal(t, 1, oc.ID)
	assert.Equal(t, 42, oc.PostID)
	assert.Equal(t, 7, oc.ForumID)
	assert.Equal(t, "hi", oc.Content)
	assert.Equal(t, members[0].user.ID, oc.User.ID)
}

func TestRelayDropsBroadcastOnPersistFailure(t *testing.T) {
	store := &stubCommentStore{err: errors.New("disk on fire")}
	r := startRegistry(t, store)

	a := newStubMember(1)
	r.Connect("sa", 42, a.handle, a.user)

	r.Relay(42, InComment{User: a.user, PostID: 42, ForumID: 7, Content: "lost"})

	// Force the relay command through by issuing a synchronous query after it.
	r.Stats(context.Background())

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, a.countOf(isOutComment), "no comment may be broadcast when the store fails")
}

func TestRelayPreservesRoomOrder(t *testing.T) {
	store := &stubCommentStore{}
	r := startRegistry(t, store)

	a := newStubMember(1)
	r.Connect("sa", 42, a.handle, a.user)

	for i := 0; i < 5; i++ {
		r.Relay(42, InComment{User: a.user, PostID: 42, ForumID: 7, Content: fmt.Sprintf("m%d", i)})
	}

	require.Eventually(t, func() bool {
		return a.countOf(isOutComment) == 5
	}, time.Second, 10*time.Millisecond)

	var contents []string
	for _, p := range a.received() {
		if c, ok := p.(OutComment); ok {
			contents = append(contents, c.Content)
		}
	}
	assert.Equal(t, []string{"m0", "m1", "m2", "m3", "m4"}, contents,
		"fanout must preserve registry arrival order")
}

func TestListActiveUsersSkipsDeadHandles(t *testing.T) {
	r := startRegistry(t, &stubCommentStore{})

	a := newStubMember(1)
	b := newStubMember(2)
	c := newStubMember(3)

	r.Connect("sa", 42, a.handle, a.user)
	r.Connect("sb", 42, b.handle, b.user)
	r.Connect("sc", 42, c.handle, c.user)

	// B dies without disconnecting; its handle refuses further pushes.
	b.handle.Close()

	users := r.ListActiveUsers(context.Background(), 42)

	ids := make([]int, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	assert.ElementsMatch(t, []int{1, 3}, ids)
}

func TestListActiveUsersEmptyRoom(t *testing.T) {
	r := startRegistry(t, &stubCommentStore{})
	users := r.ListActiveUsers(context.Background(), 99)
	assert.Empty(t, users)
}

func TestDisconnectNotifiesRemainingMembers(t *testing.T) {
	r := startRegistry(t, &stubCommentStore{})

	a := newStubMember(1)
	b := newStubMember(2)

	r.Connect("sa", 42, a.handle, a.user)
	r.Connect("sb", 42, b.handle, b.user)
	r.Disconnect("sb", 42, b.user.ID)

	require.Eventually(t, func() bool {
		return a.countOf(func(p OutPacket) bool {
			n, ok := p.(DisconnectNotification)
			return ok && n.ID == b.user.ID
		}) == 1
	}, time.Second, 10*time.Millisecond)
}

// recordingPublisher captures comment events emitted by the registry.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Comment
}

func (p *recordingPublisher) CommentCreated(ctx context.Context, c domain.Comment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, c)
	return nil
}

func TestRelayPublishesCommentEvent(t *testing.T) {
	store := &stubCommentStore{}
	pub := &recordingPublisher{}
	r := NewRegistry(store, pub)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go r.Run(ctx)

	a := newStubMember(1)
	r.Connect("sa", 42, a.handle, a.user)
	r.Relay(42, InComment{User: a.user, PostID: 42, ForumID: 7, Content: "hi"})

	require.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.events) == 1
	}, time.Second, 10*time.Millisecond)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, "hi", pub.events[0].Content)
	assert.Equal(t, 7, pub.events[0].ForumID)
}
