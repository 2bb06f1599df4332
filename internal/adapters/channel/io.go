package channel

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/huddlechat/huddle/internal/protocol"
)

func (s *session) writePump(ctx context.Context) {
	ticker := time.NewTicker(s.ctl.cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-s.conn.send:
			if !ok {
				return
			}
			if err := s.conn.ws.SetWriteDeadline(time.Now().Add(s.ctl.cfg.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "channel").Msg("writePump set deadline")
				return
			}
			if err := s.conn.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "channel").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(s.ctl.cfg.WriteTimeout)
			if err := s.conn.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Warn().Err(err).Str("module", "channel").Msg("writePump ping error")
				return
			}
		}
	}
}

func (s *session) readPump(ctx context.Context) {
	defer s.teardown()

	pongWait := s.ctl.cfg.PingPeriod * 10 / 9
	s.conn.ws.SetReadLimit(s.ctl.cfg.ReadLimit)
	_ = s.conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.ws.SetPongHandler(func(string) error {
		return s.conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := s.conn.ws.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "channel").Str("conn", string(s.connID)).Msg("readPump read error")
				return
			}
			if done := s.handleEvent(data); done {
				return
			}
		}
	}
}

// handleEvent dispatches one inbound frame. Returns true when the channel
// should shut down.
func (s *session) handleEvent(data []byte) bool {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "channel").Msg("bad json")
		return false
	}

	switch env.Type {
	case protocol.TypeJoinRoom:
		s.handleJoin(data)
	case protocol.TypeNewMessage:
		s.handleMessage(data)
	case protocol.TypeLeaveRoom:
		// Same path as a transport-level close.
		return true
	default:
		log.Warn().Str("module", "channel").Str("type", env.Type).Msg("unknown event")
	}
	return false
}

func (s *session) sendJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "channel").Msg("sendJSON marshal")
		return
	}
	_ = s.conn.TrySend(b)
}
