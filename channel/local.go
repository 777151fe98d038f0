package channel

import "sync"

// LocalBus fans messages out to every subscriber in the same process,
// including the sender's own handler.
type LocalBus struct {
	mu       sync.Mutex
	handlers map[int]Handler
	nextID   int
}

func NewLocalBus() *LocalBus {
	return &LocalBus{handlers: make(map[int]Handler)}
}

func (b *LocalBus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

func (b *LocalBus) Broadcast(msg Message) {
	b.mu.Lock()
	hs := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		hs = append(hs, h)
	}
	b.mu.Unlock()

	for _, h := range hs {
		h(msg)
	}
}
