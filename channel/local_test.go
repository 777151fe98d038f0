package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalBusFanOut(t *testing.T) {
	bus := NewLocalBus()

	var first, second []Message
	bus.Subscribe(func(msg Message) { first = append(first, msg) })
	bus.Subscribe(func(msg Message) { second = append(second, msg) })

	bus.Broadcast(Message{Type: TypePresence, DocID: "d1", UserID: "alice"})

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
	assert.Equal(t, "alice", first[0].UserID)
}

func TestLocalBusUnsubscribe(t *testing.T) {
	bus := NewLocalBus()

	var got []Message
	unsubscribe := bus.Subscribe(func(msg Message) { got = append(got, msg) })
	unsubscribe()

	bus.Broadcast(Message{Type: TypePresence, DocID: "d1"})
	assert.Empty(t, got)
}

func TestLocalBusDeliversToSender(t *testing.T) {
	bus := NewLocalBus()

	var got []Message
	bus.Subscribe(func(msg Message) { got = append(got, msg) })

	// In-process transport self-delivers; protocol code filters on user id.
	bus.Broadcast(Message{Type: TypeUpdate, DocID: "d1", UserID: "alice"})
	assert.Len(t, got, 1)
}
