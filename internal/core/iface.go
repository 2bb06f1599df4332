package core

// Frame is a marshaled wire payload.
type Frame []byte

// Outbound abstracts a member's transport endpoint.
// Owned by the adapter; the adapter must Close() it.
type Outbound interface {
	TrySend(Frame) error
	Close()
}
