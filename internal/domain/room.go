// Package domain contains entities without logic, just meta-data.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type RoomID string

// NewRoomID generates an opaque room identifier. Uniqueness against live
// rooms is the registry's job, not ours.
func NewRoomID() RoomID {
	return RoomID(uuid.NewString())
}

type Room struct {
	ID        RoomID    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

func NewRoom(id RoomID) *Room {
	return &Room{ID: id, CreatedAt: time.Now()}
}
