package gameserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_BroadcastReachesEverySubscriber(t *testing.T) {
	hub := NewHub()
	a := make(chan Event, 4)
	b := make(chan Event, 4)
	hub.Register("room-1", a)
	hub.Register("room-1", b)

	hub.Broadcast("room-1", Event{Type: EventPlayerJoined})

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, EventPlayerJoined, (<-a).Type)
	assert.Equal(t, EventPlayerJoined, (<-b).Type)
}

func TestHub_BroadcastIsScopedToRoom(t *testing.T) {
	hub := NewHub()
	a := make(chan Event, 4)
	b := make(chan Event, 4)
	hub.Register("room-1", a)
	hub.Register("room-2", b)

	hub.Broadcast("room-1", Event{Type: EventPlayerJoined})

	assert.Len(t, a, 1)
	assert.Empty(t, b)
}

func TestHub_BroadcastToUnknownRoomIsNoOp(t *testing.T) {
	hub := NewHub()
	hub.Broadcast("nope", Event{Type: EventPlayerJoined})
	assert.Equal(t, 0, hub.Subscribers("nope"))
}

func TestHub_SlowSubscriberIsDropped(t *testing.T) {
	hub := NewHub()
	slow := make(chan Event, 1)
	fast := make(chan Event, 4)
	hub.Register("room-1", slow)
	hub.Register("room-1", fast)

	hub.Broadcast("room-1", Event{Type: EventPlayerJoined})
	hub.Broadcast("room-1", Event{Type: EventPlayerLeft})

	// The fast channel holds both events; the slow one was dropped and closed
	// after its buffer filled, still holding the first event.
	require.Equal(t, 1, hub.Subscribers("room-1"))
	assert.Len(t, fast, 2)

	ev, ok := <-slow
	require.True(t, ok)
	assert.Equal(t, EventPlayerJoined, ev.Type)
	_, ok = <-slow
	assert.False(t, ok)
}

func TestHub_UnregisterClosesChannel(t *testing.T) {
	hub := NewHub()
	ch := make(chan Event, 4)
	hub.Register("room-1", ch)

	hub.Unregister("room-1", ch)

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Subscribers("room-1"))

	// A second unregister of the same channel must not double-close.
	hub.Unregister("room-1", ch)
}

func TestHub_SendRequiresMembership(t *testing.T) {
	hub := NewHub()
	member := make(chan Event, 4)
	stranger := make(chan Event, 4)
	hub.Register("room-1", member)

	assert.True(t, hub.Send("room-1", member, Event{Type: EventError}))
	assert.False(t, hub.Send("room-1", stranger, Event{Type: EventError}))
	assert.False(t, hub.Send("room-2", member, Event{Type: EventError}))
	assert.Len(t, member, 1)
	assert.Empty(t, stranger)
}

func TestHub_CloseRoomClosesEveryChannel(t *testing.T) {
	hub := NewHub()
	a := make(chan Event, 4)
	b := make(chan Event, 4)
	hub.Register("room-1", a)
	hub.Register("room-1", b)

	hub.CloseRoom("room-1")

	_, ok := <-a
	assert.False(t, ok)
	_, ok = <-b
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Subscribers("room-1"))

	// Broadcasting into the closed room must not panic.
	hub.Broadcast("room-1", Event{Type: EventPlayerJoined})
}
