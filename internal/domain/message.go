package domain

import (
	"errors"
	"time"
)

const MaxMessageLen = 4096

var (
	ErrMessageEmpty   = errors.New("message empty")
	ErrMessageTooLong = errors.New("message too long")
)

// Message is transient: stamped by the owning room, delivered once, never
// stored. Seq establishes a room-local total order.
type Message struct {
	Text       string    `json:"text"`
	SenderID   ConnID    `json:"id"`
	SenderName string    `json:"user"`
	Seq        uint64    `json:"-"`
	SentAt     time.Time `json:"-"`
}

func ValidateMessageText(text string) error {
	if text == "" {
		return ErrMessageEmpty
	}
	if len(text) > MaxMessageLen {
		return ErrMessageTooLong
	}
	return nil
}
