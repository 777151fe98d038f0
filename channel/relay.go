package channel

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"devsync/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The relay only ever binds to loopback; origin checks add nothing here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type frame struct {
	sender  *relayConn
	payload []byte
}

// Relay is the process boundary crossing for the sync channel: every frame
// from one connection is fanned out to all other connections, nothing is
// inspected beyond the Message envelope and nothing is stored. It mirrors a
// browser broadcast channel, so there are no rooms and no delivery
// guarantees for connections that are not currently open.
type Relay struct {
	Register   chan *relayConn
	Unregister chan *relayConn
	Frames     chan frame
	conns      map[*relayConn]bool
}

func NewRelay() *Relay {
	return &Relay{
		Register:   make(chan *relayConn),
		Unregister: make(chan *relayConn),
		Frames:     make(chan frame),
		conns:      make(map[*relayConn]bool),
	}
}

func (r *Relay) Run() {
	for {
		select {
		case c := <-r.Register:
			r.conns[c] = true
			logger.Sugar.Infof("relay: peer connected (user %s, %d open)", c.userID, len(r.conns))

		case c := <-r.Unregister:
			if _, ok := r.conns[c]; ok {
				delete(r.conns, c)
				close(c.send)
				logger.Sugar.Infof("relay: peer disconnected (user %s, %d open)", c.userID, len(r.conns))
			}

		case f := <-r.Frames:
			for c := range r.conns {
				if c == f.sender {
					// A broadcast channel never echoes to the posting context.
					continue
				}
				select {
				case c.send <- f.payload:
				default:
					// Lagging receiver; drop it rather than block the relay.
					logger.Sugar.Warnf("relay: send buffer full for user %s, dropping connection", c.userID)
					delete(r.conns, c)
					close(c.send)
				}
			}
		}
	}
}

type relayConn struct {
	relay  *Relay
	ws     *websocket.Conn
	userID string
	send   chan []byte
}

// ServeWS upgrades the request and attaches the connection to the relay.
// userID is the authenticated identity, enforced on every relayed frame.
func (r *Relay) ServeWS(w http.ResponseWriter, req *http.Request, userID string) {
	ws, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	c := &relayConn{relay: r, ws: ws, userID: userID, send: make(chan []byte, 256)}
	r.Register <- c

	go c.writePump()
	go c.readPump()
}

func (c *relayConn) readPump() {
	defer func() {
		c.relay.Unregister <- c
		c.ws.Close()
	}()

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("relay: read error: %v", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Sugar.Errorf("relay: dropping malformed frame: %v", err)
			continue
		}

		// Overwrite the sender identity with the authenticated one so a
		// peer cannot speak for another user.
		msg.UserID = c.userID
		payload, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		c.relay.Frames <- frame{sender: c, payload: payload}
	}
}

func (c *relayConn) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			c.ws.WriteMessage(websocket.TextMessage, payload)
		case <-ticker.C:
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
