package core

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/huddlechat/huddle/internal/domain"
	"github.com/huddlechat/huddle/internal/protocol"
)

// captureOut records everything delivered to one channel.
type captureOut struct {
	mu     sync.Mutex
	frames []Frame
	fail   bool
}

func (o *captureOut) TrySend(f Frame) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail {
		return ErrDeliveryRefused
	}
	cp := make(Frame, len(f))
	copy(cp, f)
	o.frames = append(o.frames, cp)
	return nil
}

func (o *captureOut) Close() {}

// presenceCounts extracts the counts of every presence event received, in
// order.
func (o *captureOut) presenceCounts(t *testing.T) []int {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []int
	for _, f := range o.frames {
		var ev protocol.PresenceEvent
		require.NoError(t, json.Unmarshal(f, &ev))
		if ev.Type == protocol.TypePresence {
			out = append(out, ev.Count)
		}
	}
	return out
}

func (o *captureOut) messages(t *testing.T) []protocol.MessageBody {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []protocol.MessageBody
	for _, f := range o.frames {
		var ev protocol.MessagesEvent
		require.NoError(t, json.Unmarshal(f, &ev))
		if ev.Type == protocol.TypeMessages {
			out = append(out, ev.Message)
		}
	}
	return out
}

var ErrDeliveryRefused = fmt.Errorf("delivery refused")

func newTestActor() *Actor {
	room := domain.NewRoom(domain.NewRoomID())
	return NewActor(room, NewRouter(), ReapPolicy{}, nil)
}

func TestJoinBroadcastsPresenceToAllIncludingJoiner(t *testing.T) {
	a := newTestActor()
	defer a.Stop()

	alice := &captureOut{}
	require.NoError(t, a.Join("conn-a", "Alice", alice))
	assert.Equal(t, []int{1}, alice.presenceCounts(t))
	assert.Equal(t, 1, a.MemberCount())

	bob := &captureOut{}
	require.NoError(t, a.Join("conn-b", "Bob", bob))
	assert.Equal(t, []int{1, 2}, alice.presenceCounts(t))
	assert.Equal(t, []int{2}, bob.presenceCounts(t))
	assert.Equal(t, 2, a.MemberCount())
}

func TestJoinSameConnTwiceNeverDoubleCounts(t *testing.T) {
	a := newTestActor()
	defer a.Stop()

	out := &captureOut{}
	require.NoError(t, a.Join("conn-a", "Alice", out))
	require.NoError(t, a.Join("conn-a", "Alice", out))
	assert.Equal(t, 1, a.MemberCount())
	assert.Equal(t, []int{1}, out.presenceCounts(t))
}

func TestPostEchoesToSenderInOrder(t *testing.T) {
	a := newTestActor()
	defer a.Stop()

	alice := &captureOut{}
	bob := &captureOut{}
	require.NoError(t, a.Join("conn-a", "Alice", alice))
	require.NoError(t, a.Join("conn-b", "Bob", bob))

	require.NoError(t, a.Post("conn-a", "hi", "Alice"))
	require.NoError(t, a.Post("conn-b", "hello", "Bob"))
	require.NoError(t, a.Post("conn-a", "bye", "Alice"))

	want := []protocol.MessageBody{
		{Text: "hi", User: "Alice", ID: "conn-a"},
		{Text: "hello", User: "Bob", ID: "conn-b"},
		{Text: "bye", User: "Alice", ID: "conn-a"},
	}
	assert.Equal(t, want, alice.messages(t), "sender must receive its own echo in posting order")
	assert.Equal(t, want, bob.messages(t))
}

func TestPostValidation(t *testing.T) {
	a := newTestActor()
	defer a.Stop()

	out := &captureOut{}
	require.NoError(t, a.Join("conn-a", "Alice", out))

	assert.ErrorIs(t, a.Post("conn-ghost", "hi", ""), ErrNotAMember)
	assert.ErrorIs(t, a.Post("conn-a", "", ""), domain.ErrMessageEmpty)
	assert.Empty(t, out.messages(t), "rejected posts must not be delivered")
}

func TestDefaultDisplayName(t *testing.T) {
	a := newTestActor()
	defer a.Stop()

	out := &captureOut{}
	require.NoError(t, a.Join("conn-a", "", out))
	require.NoError(t, a.Post("conn-a", "hi", ""))

	msgs := out.messages(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.DefaultDisplayName, msgs[0].User)
}

func TestRenameRidesAlongWithMessage(t *testing.T) {
	a := newTestActor()
	defer a.Stop()

	out := &captureOut{}
	require.NoError(t, a.Join("conn-a", "", out))
	require.NoError(t, a.Post("conn-a", "hi", "Alice"))
	require.NoError(t, a.Post("conn-a", "again", ""))

	msgs := out.messages(t)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Alice", msgs[0].User)
	assert.Equal(t, "Alice", msgs[1].User, "name sticks once asserted")
}

func TestLeaveIsIdempotent(t *testing.T) {
	a := newTestActor()
	defer a.Stop()

	alice := &captureOut{}
	bob := &captureOut{}
	require.NoError(t, a.Join("conn-a", "Alice", alice))
	require.NoError(t, a.Join("conn-b", "Bob", bob))

	a.Leave("conn-b")
	a.Leave("conn-b") // duplicate disconnect signal
	a.Leave("conn-ghost")

	assert.Equal(t, 1, a.MemberCount())
	assert.Equal(t, []int{1, 2, 1}, alice.presenceCounts(t), "exactly one presence update per real leave")
}

func TestRoomsAreIndependent(t *testing.T) {
	a1 := newTestActor()
	defer a1.Stop()
	a2 := newTestActor()
	defer a2.Stop()

	out1 := &captureOut{}
	out2 := &captureOut{}
	require.NoError(t, a1.Join("conn-a", "Alice", out1))
	require.NoError(t, a2.Join("conn-b", "Bob", out2))

	require.NoError(t, a1.Post("conn-a", "secret", ""))

	assert.Len(t, out1.messages(t), 1)
	assert.Empty(t, out2.messages(t), "rooms must never observe each other's messages")
}

func TestJoinAfterStopFailsRoomGone(t *testing.T) {
	a := newTestActor()
	a.Stop()

	err := a.Join("conn-a", "Alice", &captureOut{})
	assert.ErrorIs(t, err, ErrRoomGone)
	assert.Equal(t, 0, a.MemberCount())
}

func TestStopIfEmpty(t *testing.T) {
	a := newTestActor()

	out := &captureOut{}
	require.NoError(t, a.Join("conn-a", "Alice", out))
	assert.False(t, a.StopIfEmpty(), "occupied room must not stop")

	a.Leave("conn-a")
	assert.True(t, a.StopIfEmpty())
	assert.True(t, a.StopIfEmpty(), "stopping an already-stopped actor stays true")
}

func TestSlowMemberIsSkippedNotWaitedOn(t *testing.T) {
	a := newTestActor()
	defer a.Stop()

	alice := &captureOut{}
	slow := &captureOut{fail: true}
	require.NoError(t, a.Join("conn-a", "Alice", alice))
	require.NoError(t, a.Join("conn-s", "Slow", slow))

	done := make(chan error, 1)
	go func() { done <- a.Post("conn-a", "hi", "") }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("post must not block on a refusing member")
	}

	msgs := alice.messages(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Text)
}

func TestPresenceCountMatchesDistinctJoinedConns(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := newTestActor()
		defer a.Stop()

		model := make(map[domain.ConnID]bool)
		ops := rapid.SliceOfN(rapid.IntRange(0, 19), 1, 60).Draw(rt, "ops")
		for _, op := range ops {
			conn := domain.ConnID(fmt.Sprintf("conn-%d", op%10))
			if op < 10 {
				if err := a.Join(conn, "", &captureOut{}); err != nil {
					rt.Fatalf("join: %v", err)
				}
				model[conn] = true
			} else {
				a.Leave(conn)
				delete(model, conn)
			}
			if got := a.MemberCount(); got != len(model) {
				rt.Fatalf("presence count %d, want %d distinct joined conns", got, len(model))
			}
		}
	})
}
