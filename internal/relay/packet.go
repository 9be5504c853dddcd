package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nfrund/quorum/internal/domain"
)

// ErrMalformedPacket is returned when an inbound frame does not decode into
// exactly one known packet variant. Protocol violations are fatal to the
// offending connection.
var ErrMalformedPacket = errors.New("malformed inbound packet")

// validatorInstance is a package-level validator instance.
var validatorInstance = validator.New()

// InMessage is the body of an inbound "Message" frame: a comment the client
// wants relayed to the room.
type InMessage struct {
	ParentID *int     `json:"parent_id"`
	Content  string   `json:"content" validate:"required,max=10000"`
	Media    []string `json:"media" validate:"omitempty,max=8,dive,max=512"`
}

// InPacket is the decoded form of one inbound client frame. Exactly one
// field is set.
type InPacket struct {
	Message         *InMessage
	ListActiveUsers bool
}

// DecodeInPacket parses an inbound frame against the wire protocol. The
// protocol is an externally tagged union: a JSON object with a single key
// naming the variant, e.g. {"Message":{...}} or {"ListActiveUsers":null}.
func DecodeInPacket(data []byte) (InPacket, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return InPacket{}, fmt.Errorf("%w: %v", ErrMalformedPacket, err)
	}
	if len(raw) != 1 {
		return InPacket{}, fmt.Errorf("%w: expected exactly one variant, got %d", ErrMalformedPacket, len(raw))
	}

	switch {
	case raw["Message"] != nil:
		var msg InMessage
		if err := json.Unmarshal(raw["Message"], &msg); err != nil {
			return InPacket{}, fmt.Errorf("%w: %v", ErrMalformedPacket, err)
		}
		if err := validatorInstance.Struct(&msg); err != nil {
			return InPacket{}, fmt.Errorf("%w: %v", ErrMalformedPacket, err)
		}
		return InPacket{Message: &msg}, nil

	default:
		if _, ok := raw["ListActiveUsers"]; ok {
			return InPacket{ListActiveUsers: true}, nil
		}
		return InPacket{}, fmt.Errorf("%w: unknown variant", ErrMalformedPacket)
	}
}

// InComment is a relay request: a validated inbound message together with
// the submitting session's identity snapshot and room coordinates.
type InComment struct {
	User     domain.ActiveUser
	PostID   int
	ForumID  int
	ParentID *int
	Content  string
	Media    []string
}

// OutPacket is one server-to-client frame. Variants marshal as a
// single-key object tagged with the variant name, mirroring the inbound
// protocol.
type OutPacket interface {
	variant() (tag string, body any)
}

// EncodeOutPacket serializes an outbound packet into its tagged wire form.
func EncodeOutPacket(p OutPacket) ([]byte, error) {
	tag, body := p.variant()
	return json.Marshal(map[string]any{tag: body})
}

// ConnectNotification tells room members that a user joined.
type ConnectNotification struct {
	User domain.ActiveUser `json:"user"`
}

func (n ConnectNotification) variant() (string, any) { return "ConnectNotification", n }

// DisconnectNotification tells room members that a user left. It carries
// just the user id; clients already hold the full snapshot from the
// matching ConnectNotification.
type DisconnectNotification struct {
	ID int `json:"id"`
}

func (n DisconnectNotification) variant() (string, any) { return "DisconnectNotification", n }

// OutComment is a persisted comment broadcast to every member of a room.
type OutComment struct {
	ID        int               `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	User      domain.ActiveUser `json:"user"`
	PostID    int               `json:"post_id"`
	ForumID   int               `json:"forum_id"`
	ParentID  *int              `json:"parent_id"`
	Content   string            `json:"content"`
	Media     []string          `json:"media"`
}

func (c OutComment) variant() (string, any) { return "OutComment", c }

// ActiveUserList answers a ListActiveUsers request. Sent only to the
// requesting client, never broadcast.
type ActiveUserList []domain.ActiveUser

func (l ActiveUserList) variant() (string, any) {
	if l == nil {
		l = ActiveUserList{}
	}
	return "ActiveUserList", []domain.ActiveUser(l)
}
