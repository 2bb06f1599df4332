package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemberDefaultsEmptyName(t *testing.T) {
	m, err := NewMember("conn-a", "room-1", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultDisplayName, m.DisplayName)
	assert.Equal(t, ConnID("conn-a"), m.ConnID)
	assert.Equal(t, RoomID("room-1"), m.RoomID)
	assert.False(t, m.JoinedAt.IsZero())
}

func TestNewMemberRejectsLongName(t *testing.T) {
	_, err := NewMember("conn-a", "room-1", strings.Repeat("x", MaxDisplayNameLen+1))
	assert.ErrorIs(t, err, ErrNameTooLong)
}

func TestSetDisplayName(t *testing.T) {
	m, err := NewMember("conn-a", "room-1", "Alice")
	require.NoError(t, err)

	assert.ErrorIs(t, m.SetDisplayName(""), ErrNameEmpty)
	assert.ErrorIs(t, m.SetDisplayName(strings.Repeat("x", MaxDisplayNameLen+1)), ErrNameTooLong)
	assert.Equal(t, "Alice", m.DisplayName, "rejected renames must not stick")

	require.NoError(t, m.SetDisplayName("Bob"))
	assert.Equal(t, "Bob", m.DisplayName)
}

func TestValidateMessageText(t *testing.T) {
	assert.ErrorIs(t, ValidateMessageText(""), ErrMessageEmpty)
	assert.ErrorIs(t, ValidateMessageText(strings.Repeat("x", MaxMessageLen+1)), ErrMessageTooLong)
	assert.NoError(t, ValidateMessageText("hi"))
}

func TestNewRoomIDIsOpaqueAndFresh(t *testing.T) {
	a := NewRoomID()
	b := NewRoomID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
