package app

import (
	"github.com/rs/zerolog/log"

	"github.com/huddlechat/huddle/internal/domain"
)

// Coordinator is the request/response preflight that runs before a channel
// is established. A successful preflight is a fast-reject check, never a
// reservation: the room can disappear before the channel-level join, which
// re-validates on its own.
type Coordinator struct {
	registry *Registry
}

func NewCoordinator(registry *Registry) *Coordinator {
	return &Coordinator{registry: registry}
}

func (c *Coordinator) CreateRoom() (domain.RoomID, error) {
	id, err := c.registry.Create()
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Msg("create room")
		return "", err
	}
	return id, nil
}

// ValidateRoom reports whether the room currently exists. No side effect.
func (c *Coordinator) ValidateRoom(id domain.RoomID) bool {
	return c.registry.Exists(id)
}
