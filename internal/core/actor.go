package core

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/huddlechat/huddle/internal/domain"
	"github.com/huddlechat/huddle/internal/protocol"
)

var (
	// ErrRoomGone means the room was reaped between preflight and join, or
	// the server is shutting down.
	ErrRoomGone = errors.New("room gone")

	// ErrNotAMember means the sender's connection is not attached to the
	// room. The transport drops these silently.
	ErrNotAMember = errors.New("not a member")
)

// ReapPolicy controls what happens when the last member leaves.
type ReapPolicy struct {
	OnEmpty bool
	Grace   time.Duration
}

// Actor owns one room's membership set. All operations funnel through a
// single mailbox goroutine, so join/leave/message events on a room are
// totally ordered and never interleave. Rooms are fully independent.
type Actor struct {
	room    *domain.Room
	mailbox chan command
	done    chan struct{}
	stop    sync.Once

	router  *Router
	policy  ReapPolicy
	onEmpty func(domain.RoomID)

	// Loop-owned state, touched only by run().
	members   map[domain.ConnID]*attached
	order     []domain.ConnID
	seq       uint64
	reapTimer *time.Timer
}

type attached struct {
	meta *domain.Member
	out  Outbound
}

type command interface{}

type joinCmd struct {
	connID domain.ConnID
	name   string
	out    Outbound
	reply  chan error
}

type leaveCmd struct {
	connID domain.ConnID
	done   chan struct{}
}

type postCmd struct {
	connID domain.ConnID
	text   string
	name   string
	reply  chan error
}

type countCmd struct {
	reply chan int
}

type reapCheckCmd struct{}

type stopIfEmptyCmd struct {
	reply chan bool
}

// NewActor starts the room's processing loop. onEmpty is invoked (on its own
// goroutine) when the member set empties and the reap policy says so.
func NewActor(room *domain.Room, router *Router, policy ReapPolicy, onEmpty func(domain.RoomID)) *Actor {
	a := &Actor{
		room:    room,
		mailbox: make(chan command, 16),
		done:    make(chan struct{}),
		router:  router,
		policy:  policy,
		onEmpty: onEmpty,
		members: make(map[domain.ConnID]*attached),
	}
	go a.run()
	return a
}

func (a *Actor) Room() *domain.Room { return a.room }

func (a *Actor) ID() domain.RoomID { return a.room.ID }

// Join attaches a channel to the room and broadcasts the new presence count
// to every member, including the joiner. Fails with ErrRoomGone once the
// actor is stopped.
func (a *Actor) Join(connID domain.ConnID, name string, out Outbound) error {
	reply := make(chan error, 1)
	select {
	case a.mailbox <- joinCmd{connID: connID, name: name, out: out, reply: reply}:
	case <-a.done:
		return ErrRoomGone
	}
	select {
	case err := <-reply:
		return err
	case <-a.done:
		return ErrRoomGone
	}
}

// Leave detaches the connection. A leave for an absent connection is a
// silent no-op, so duplicate disconnect signals are harmless. Blocks until
// the room has processed the removal.
func (a *Actor) Leave(connID domain.ConnID) {
	done := make(chan struct{})
	select {
	case a.mailbox <- leaveCmd{connID: connID, done: done}:
	case <-a.done:
		return
	}
	select {
	case <-done:
	case <-a.done:
	}
}

// Post stamps a message with the room-local sequence and fans it out to every
// member, including the sender. A non-empty name updates the sender's
// display name first, mirroring the wire where the name rides along with
// each message.
func (a *Actor) Post(connID domain.ConnID, text, name string) error {
	reply := make(chan error, 1)
	select {
	case a.mailbox <- postCmd{connID: connID, text: text, name: name, reply: reply}:
	case <-a.done:
		return ErrRoomGone
	}
	select {
	case err := <-reply:
		return err
	case <-a.done:
		return ErrRoomGone
	}
}

// MemberCount reports the live presence count. Zero once the actor stopped.
func (a *Actor) MemberCount() int {
	reply := make(chan int, 1)
	select {
	case a.mailbox <- countCmd{reply: reply}:
	case <-a.done:
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-a.done:
		return 0
	}
}

// StopIfEmpty stops the actor iff no member is attached. The check and the
// stop happen inside the loop, so a concurrent join either lands before (and
// keeps the room alive) or observes ErrRoomGone.
func (a *Actor) StopIfEmpty() bool {
	reply := make(chan bool, 1)
	select {
	case a.mailbox <- stopIfEmptyCmd{reply: reply}:
	case <-a.done:
		return true
	}
	select {
	case ok := <-reply:
		return ok
	case <-a.done:
		return true
	}
}

// Stop terminates the loop unconditionally. Used on server shutdown.
func (a *Actor) Stop() {
	a.stop.Do(func() { close(a.done) })
}

func (a *Actor) run() {
	for {
		select {
		case <-a.done:
			return
		case cmd := <-a.mailbox:
			a.dispatch(cmd)
		}
	}
}

func (a *Actor) dispatch(cmd command) {
	switch c := cmd.(type) {
	case joinCmd:
		c.reply <- a.handleJoin(c)
	case leaveCmd:
		a.handleLeave(c.connID)
		close(c.done)
	case postCmd:
		c.reply <- a.handlePost(c)
	case countCmd:
		c.reply <- len(a.members)
	case reapCheckCmd:
		a.handleReapCheck()
	case stopIfEmptyCmd:
		c.reply <- a.handleStopIfEmpty()
	}
}

func (a *Actor) handleJoin(c joinCmd) error {
	if _, ok := a.members[c.connID]; ok {
		// Channel already attached; never double-count.
		return nil
	}
	m, err := domain.NewMember(c.connID, a.room.ID, c.name)
	if err != nil {
		return err
	}
	a.members[c.connID] = &attached{meta: m, out: c.out}
	a.order = append(a.order, c.connID)
	a.cancelReap()
	log.Info().Str("module", "core.actor").Str("room", string(a.room.ID)).Str("conn", string(c.connID)).Str("name", m.DisplayName).Msg("member joined")
	a.broadcastPresence()
	return nil
}

func (a *Actor) handleLeave(connID domain.ConnID) {
	if _, ok := a.members[connID]; !ok {
		return
	}
	delete(a.members, connID)
	a.order = lo.Without(a.order, connID)
	log.Info().Str("module", "core.actor").Str("room", string(a.room.ID)).Str("conn", string(connID)).Msg("member left")
	if len(a.members) == 0 {
		a.scheduleReap()
		return
	}
	a.broadcastPresence()
}

func (a *Actor) handlePost(c postCmd) error {
	att, ok := a.members[c.connID]
	if !ok {
		return ErrNotAMember
	}
	if err := domain.ValidateMessageText(c.text); err != nil {
		return err
	}
	if c.name != "" && c.name != att.meta.DisplayName {
		if err := att.meta.SetDisplayName(c.name); err != nil {
			log.Warn().Err(err).Str("module", "core.actor").Str("conn", string(c.connID)).Msg("rename rejected")
		}
	}
	a.seq++
	msg := domain.Message{
		Text:       c.text,
		SenderID:   c.connID,
		SenderName: att.meta.DisplayName,
		Seq:        a.seq,
		SentAt:     time.Now(),
	}
	a.router.Deliver(a.outbounds(), protocol.NewMessagesEvent(msg))
	return nil
}

func (a *Actor) handleReapCheck() {
	if len(a.members) != 0 || a.onEmpty == nil {
		return
	}
	// The registry calls back into StopIfEmpty, which must not run on the
	// loop goroutine.
	go a.onEmpty(a.room.ID)
}

func (a *Actor) handleStopIfEmpty() bool {
	if len(a.members) != 0 {
		return false
	}
	a.Stop()
	return true
}

func (a *Actor) broadcastPresence() {
	a.router.Deliver(a.outbounds(), protocol.NewPresenceEvent(len(a.members)))
}

// outbounds preserves join order.
func (a *Actor) outbounds() []Outbound {
	return lo.Map(a.order, func(id domain.ConnID, _ int) Outbound {
		return a.members[id].out
	})
}

func (a *Actor) scheduleReap() {
	if !a.policy.OnEmpty {
		return
	}
	a.cancelReap()
	a.reapTimer = time.AfterFunc(a.policy.Grace, func() {
		select {
		case a.mailbox <- reapCheckCmd{}:
		case <-a.done:
		}
	})
}

func (a *Actor) cancelReap() {
	if a.reapTimer != nil {
		a.reapTimer.Stop()
		a.reapTimer = nil
	}
}
