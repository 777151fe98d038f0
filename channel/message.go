package channel

const (
	TypePresence     = "presence"      // a view announcing it is open on a document
	TypeUpdate       = "update"        // incremental field change
	TypeRequestSync  = "request_sync"  // a new view asking peers for full state
	TypeSyncResponse = "sync_response" // full-document state transfer
)

// Message is the transient sync payload exchanged between open views of a
// document. It is never persisted: no listener at send time means the
// message is lost. Optional fields are pointers so a received update only
// carries the fields that actually changed.
type Message struct {
	Type      string  `json:"type"`
	DocID     string  `json:"docId"`
	UserID    string  `json:"userId"`
	UserName  string  `json:"userName"`
	Content   *string `json:"content,omitempty"`
	Title     *string `json:"title,omitempty"`
	IsPrivate *bool   `json:"isPrivate,omitempty"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// Handler receives broadcast messages. Handlers run synchronously on
// dispatch and must not block.
type Handler func(Message)

// Bus is the peer sync channel: at-most-once delivery, no ordering across
// senders, no buffering for late joiners. Broadcast never fails loudly; in
// a degraded environment it is a no-op while Subscribe still succeeds.
// Self-delivery is transport-dependent and allowed, so protocol handlers
// filter on their own user id.
type Bus interface {
	Subscribe(h Handler) func()
	Broadcast(msg Message)
}
