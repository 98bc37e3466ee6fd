package gameserver

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finalsentence/server/internal/game/rng"
	"github.com/finalsentence/server/internal/game/typing"
)

// scriptedSource replays a fixed value sequence, cycling when exhausted.
type scriptedSource struct {
	mu   sync.Mutex
	vals []int
	i    int
}

func (s *scriptedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vals[s.i%len(s.vals)] % n
	s.i++
	return v
}

func TestRegistry_CreateAssignsIDAndCode(t *testing.T) {
	reg := NewRegistry(&scriptedSource{vals: []int{0}})
	host := typing.NewPlayer("h1", "Ana", "")

	entry := reg.Create(host, typing.KindPrivate, 4, 45*time.Second)
	require.NotNil(t, entry)

	room := entry.room
	assert.NotEmpty(t, room.ID)
	assert.Equal(t, "AAAAAA", room.Code)
	assert.Len(t, room.Code, codeLength)
	for _, c := range room.Code {
		assert.True(t, strings.ContainsRune(rng.CodeAlphabet, c))
	}
	assert.Equal(t, typing.KindPrivate, room.Kind)
	assert.Equal(t, typing.RoomWaiting, room.Status)
	assert.Equal(t, 4, room.MaxPlayers)
	assert.Equal(t, 45*time.Second, room.RoundDuration)
	assert.Equal(t, "h1", room.HostID)

	assert.NotNil(t, entry.graceGens)
	assert.NotNil(t, entry.graceTimers)

	assert.Same(t, entry, reg.FindByID(room.ID))
	assert.Same(t, entry, reg.FindByCode(room.Code))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_FindUnknownReturnsNil(t *testing.T) {
	reg := NewRegistry(&scriptedSource{vals: []int{0}})
	assert.Nil(t, reg.FindByID("nope"))
	assert.Nil(t, reg.FindByCode("NOCODE"))
}

func TestRegistry_CodeCollisionRegenerates(t *testing.T) {
	// First room draws AAAAAA. The second draws AAAAAA again, collides, and
	// regenerates as BBBBBB.
	src := &scriptedSource{vals: []int{
		0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0,
		1, 1, 1, 1, 1, 1,
	}}
	reg := NewRegistry(src)

	first := reg.Create(typing.NewPlayer("h1", "Ana", ""), typing.KindPublic, 4, time.Second)
	second := reg.Create(typing.NewPlayer("h2", "Bela", ""), typing.KindPublic, 4, time.Second)

	assert.Equal(t, "AAAAAA", first.room.Code)
	assert.Equal(t, "BBBBBB", second.room.Code)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_RemoveForgetsRoomAndFreesCode(t *testing.T) {
	reg := NewRegistry(&scriptedSource{vals: []int{0}})
	entry := reg.Create(typing.NewPlayer("h1", "Ana", ""), typing.KindPublic, 4, time.Second)
	roomID := entry.room.ID

	reg.Remove(roomID)

	assert.Nil(t, reg.FindByID(roomID))
	assert.Nil(t, reg.FindByCode("AAAAAA"))
	assert.Equal(t, 0, reg.Len())

	// Removing twice is fine.
	reg.Remove(roomID)

	// The code is free for the next room.
	again := reg.Create(typing.NewPlayer("h2", "Bela", ""), typing.KindPublic, 4, time.Second)
	assert.Equal(t, "AAAAAA", again.room.Code)
}
