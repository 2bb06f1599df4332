package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	MaxDisplayNameLen = 36

	// DefaultDisplayName is used until the client asserts a name of its own.
	DefaultDisplayName = "guest"
)

var (
	ErrNameTooLong = errors.New("display name too long")
	ErrNameEmpty   = errors.New("display name empty")
)

// ConnID identifies one active channel. Assigned at channel establishment,
// never reused.
type ConnID string

func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

// Member is a participant attached to exactly one room via one channel.
type Member struct {
	ConnID      ConnID    `json:"id"`
	DisplayName string    `json:"name"`
	RoomID      RoomID    `json:"room"`
	JoinedAt    time.Time `json:"joined_at"`
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
// An empty name falls back to DefaultDisplayName.
func NewMember(connID ConnID, roomID RoomID, name string) (*Member, error) {
	if name == "" {
		name = DefaultDisplayName
	}
	if len(name) > MaxDisplayNameLen {
		return nil, ErrNameTooLong
	}
	return &Member{
		ConnID:      connID,
		DisplayName: name,
		RoomID:      roomID,
		JoinedAt:    time.Now(),
	}, nil
}

func (m *Member) SetDisplayName(name string) error {
	if name == "" {
		return ErrNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return ErrNameTooLong
	}
	m.DisplayName = name
	return nil
}
