package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlechat/huddle/internal/protocol"
)

func TestDeliverFansOutToEveryTarget(t *testing.T) {
	rt := NewRouter()
	a := &captureOut{}
	b := &captureOut{}

	sent, dropped := rt.Deliver([]Outbound{a, b}, protocol.NewPresenceEvent(2))
	assert.Equal(t, 2, sent)
	assert.Equal(t, 0, dropped)

	for _, out := range []*captureOut{a, b} {
		require.Len(t, out.frames, 1)
		var ev protocol.PresenceEvent
		require.NoError(t, json.Unmarshal(out.frames[0], &ev))
		assert.Equal(t, protocol.TypePresence, ev.Type)
		assert.Equal(t, 2, ev.Count)
	}
}

func TestDeliverDropsRefusingTargetsWithoutRetry(t *testing.T) {
	rt := NewRouter()
	ok := &captureOut{}
	bad := &captureOut{fail: true}

	sent, dropped := rt.Deliver([]Outbound{ok, bad}, protocol.NewPresenceEvent(1))
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, dropped)
	assert.Len(t, ok.frames, 1)
	assert.Empty(t, bad.frames)
}

func TestDeliverUnmarshalablePayload(t *testing.T) {
	rt := NewRouter()
	out := &captureOut{}

	sent, dropped := rt.Deliver([]Outbound{out}, make(chan int))
	assert.Equal(t, 0, sent)
	assert.Equal(t, 1, dropped)
	assert.Empty(t, out.frames)
}

func TestDeliverNoTargets(t *testing.T) {
	rt := NewRouter()
	sent, dropped := rt.Deliver(nil, protocol.NewPresenceEvent(0))
	assert.Equal(t, 0, sent)
	assert.Equal(t, 0, dropped)
}
