// Package protocol defines the JSON events exchanged over a presence
// channel. Every frame carries a "type" field the receiving side dispatches
// on.
package protocol

import "github.com/huddlechat/huddle/internal/domain"

// Client -> server event types.
const (
	TypeJoinRoom   = "join_room"
	TypeNewMessage = "new_message"
	TypeLeaveRoom  = "leave_room"
)

// Server -> client event types.
const (
	TypeRoomJoined = "room_joined"
	TypeMessages   = "update_messages"
	TypePresence   = "update_room_users_count"
	TypeError      = "error"
)

type Envelope struct {
	Type string `json:"type"`
}

type JoinRoomPayload struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Name string `json:"name,omitempty"`
}

type NewMessagePayload struct {
	Type string `json:"type"`
	Text string `json:"text"`
	User string `json:"user,omitempty"`
}

// MessageBody mirrors what the observed client renders: "id" is the sender's
// connection id, which clients compare against their own to tell their
// messages apart.
type MessageBody struct {
	Text string `json:"text"`
	User string `json:"user"`
	ID   string `json:"id"`
}

type MessagesEvent struct {
	Type    string      `json:"type"`
	Message MessageBody `json:"message"`
}

func NewMessagesEvent(msg domain.Message) MessagesEvent {
	return MessagesEvent{
		Type: TypeMessages,
		Message: MessageBody{
			Text: msg.Text,
			User: msg.SenderName,
			ID:   string(msg.SenderID),
		},
	}
}

type PresenceEvent struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

func NewPresenceEvent(count int) PresenceEvent {
	return PresenceEvent{Type: TypePresence, Count: count}
}

// RoomJoinedEvent acknowledges a channel-level join. ID is the client's own
// connection id, which it compares against MessageBody.ID to tell its
// messages apart from everyone else's.
type RoomJoinedEvent struct {
	Type  string        `json:"type"`
	Room  domain.RoomID `json:"room"`
	ID    domain.ConnID `json:"id"`
	Count int           `json:"count"`
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func NewErrorEvent(reason string) ErrorEvent {
	return ErrorEvent{Type: TypeError, Error: reason}
}
