package domain

import (
	"context"
	"time"
)

// User represents the core user model in the application domain.
type User struct {
	ID          int       `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Bio         *string   `json:"bio,omitempty"`
	Pfp         *string   `json:"pfp,omitempty"`
	Banner      *string   `json:"banner,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ActiveUser is the immutable identity snapshot taken when a user connects
// to a thread. It is never refreshed for the lifetime of the connection, so
// a display-name change made mid-session only shows up after a reconnect.
type ActiveUser struct {
	ID          int     `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	Bio         *string `json:"bio"`
	Pfp         *string `json:"pfp"`
	Banner      *string `json:"banner"`
}

// Snapshot freezes a user into the ActiveUser form carried by live connections.
func (u *User) Snapshot() ActiveUser {
	return ActiveUser{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		Pfp:         u.Pfp,
		Banner:      u.Banner,
	}
}

// UserStore defines the contract for user data storage operations.
// It lives in the domain because it's a requirement OF the domain, not
// of the database implementation.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
}
