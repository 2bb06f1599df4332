package channel

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/huddlechat/huddle/internal/core"
	"github.com/huddlechat/huddle/internal/domain"
	"github.com/huddlechat/huddle/internal/protocol"
)

func (s *session) handleJoin(data []byte) {
	if s.room != nil {
		s.sendJSON(protocol.NewErrorEvent("already in a room"))
		return
	}

	var p protocol.JoinRoomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "channel").Msg("bad join payload")
		s.sendJSON(protocol.NewErrorEvent("bad_payload"))
		return
	}

	// The preflight is no reservation: the room may have been reaped since,
	// so the join re-validates against the registry and the actor.
	actor, ok := s.ctl.registry.Get(domain.RoomID(p.Room))
	if !ok {
		log.Info().Str("module", "channel").Str("room", p.Room).Msg("join to unknown room")
		s.sendJSON(protocol.NewErrorEvent("room does not exist"))
		return
	}

	if err := actor.Join(s.connID, p.Name, s.conn); err != nil {
		if errors.Is(err, core.ErrRoomGone) {
			s.sendJSON(protocol.NewErrorEvent("room does not exist"))
			return
		}
		log.Warn().Err(err).Str("module", "channel").Str("conn", string(s.connID)).Msg("join rejected")
		s.sendJSON(protocol.NewErrorEvent(err.Error()))
		return
	}

	s.room = actor
	s.sendJSON(protocol.RoomJoinedEvent{
		Type:  protocol.TypeRoomJoined,
		Room:  actor.ID(),
		ID:    s.connID,
		Count: actor.MemberCount(),
	})
}

func (s *session) handleMessage(data []byte) {
	if s.room == nil {
		log.Debug().Str("module", "channel").Str("conn", string(s.connID)).Msg("message before join dropped")
		return
	}

	var p protocol.NewMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "channel").Msg("bad message payload")
		return
	}

	// NotAMember and validation failures are dropped, not surfaced: the
	// channel is already bound, so these only happen on duplicate teardown
	// races or junk input.
	if err := s.room.Post(s.connID, p.Text, p.User); err != nil {
		log.Debug().Err(err).Str("module", "channel").Str("conn", string(s.connID)).Msg("message dropped")
	}
}
