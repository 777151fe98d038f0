package channel

import (
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"devsync/pkg/logger"
)

// RelayBus is a Bus backed by a relay connection. When the relay is
// unreachable the bus degrades: Subscribe still succeeds but never fires,
// Broadcast becomes a no-op, and the document still loads from the
// repository without collaboration.
type RelayBus struct {
	mu       sync.Mutex
	handlers map[int]Handler
	nextID   int

	writeMu sync.Mutex
	ws      *websocket.Conn // nil in degraded mode
}

// Dial connects to the relay at addr (host:port) using token for
// authentication. It never fails: connection errors produce a degraded bus.
func Dial(addr, token string) *RelayBus {
	b := &RelayBus{handlers: make(map[int]Handler)}

	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws", RawQuery: "token=" + url.QueryEscape(token)}
	ws, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Sugar.Warnf("sync channel unavailable, collaboration disabled: %v", err)
		return b
	}
	b.ws = ws
	go b.readLoop()
	return b
}

func (b *RelayBus) readLoop() {
	for {
		var msg Message
		if err := b.ws.ReadJSON(&msg); err != nil {
			logger.Sugar.Warnf("sync channel closed: %v", err)
			return
		}

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
}

func (b *RelayBus) Subscribe(h Handler) func() {
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

func (b *RelayBus) Broadcast(msg Message) {
	if b.ws == nil {
		return
	}
	b.writeMu.Lock()
	err := b.ws.WriteJSON(msg)
	b.writeMu.Unlock()
	if err != nil {
		logger.Sugar.Warnf("failed to broadcast sync message: %v", err)
	}
}

func (b *RelayBus) Close() {
	if b.ws != nil {
		b.ws.Close()
	}
}
