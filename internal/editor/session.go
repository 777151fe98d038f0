// Package editor holds the per-view sync engine: the presence and
// convergence protocol over the peer channel, the autosave scheduler and
// the undo/redo history.
//
// Convergence is deliberately weak: a received update overwrites exactly
// the fields it carries, later messages win, and there is no ordering or
// version comparison. Two peers editing the same field concurrently can
// therefore observe different final states depending on delivery order.
// That gap is a property of the protocol, not a bug to patch here.
package editor

import (
	"context"
	"errors"
	"sync"
	"time"

	"devsync/channel"
	"devsync/internal/document/repository"
	"devsync/pkg/clock"
	"devsync/pkg/logger"
	"devsync/store"
)

type State int

const (
	StateInitializing State = iota
	StateAwaitingPeerSync
	StateLoaded
	StateNotFound
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAwaitingPeerSync:
		return "awaiting_peer_sync"
	case StateLoaded:
		return "loaded"
	case StateNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

const (
	peerSyncWait   = 5 * time.Second
	sweepInterval  = 5 * time.Second
	livenessWindow = 10 * time.Second
)

// Peer is another open view of the same document. There is no leave
// message; silence past the liveness window is the only departure signal.
type Peer struct {
	Name     string
	LastSeen time.Time
}

// Session is one open view of a document. All mutable state is guarded by
// one mutex; message handlers run synchronously and never block inside it.
type Session struct {
	docID    string
	userID   string
	userName string

	repo  *repository.Repository
	bus   channel.Bus
	clk   clock.Clock
	saver *Autosaver

	mu      sync.Mutex
	state   State
	doc     *store.Document
	peers   map[string]Peer
	history *history

	unsubscribe func()
	syncTimer   clock.Timer
	sweeper     clock.Ticker
	done        chan struct{}
	closeOnce   sync.Once
}

func NewSession(docID, userID, userName string, repo *repository.Repository, bus channel.Bus, clk clock.Clock) *Session {
	if clk == nil {
		clk = clock.System()
	}
	return &Session{
		docID:    docID,
		userID:   userID,
		userName: userName,
		repo:     repo,
		bus:      bus,
		clk:      clk,
		saver:    NewAutosaver(repo, clk),
		state:    StateInitializing,
		peers:    make(map[string]Peer),
		history:  newHistory(),
		done:     make(chan struct{}),
	}
}

// Open wires the session to the channel, announces presence and loads the
// document. When the repository has no copy, the session asks peers for a
// full state transfer and waits a bounded interval before giving up.
func (s *Session) Open(ctx context.Context) error {
	s.unsubscribe = s.bus.Subscribe(s.handleMessage)
	s.sweeper = s.clk.NewTicker(sweepInterval)
	go s.sweepLoop()

	s.bus.Broadcast(channel.Message{
		Type: channel.TypePresence, DocID: s.docID, UserID: s.userID, UserName: s.userName,
	})

	doc, err := s.repo.Get(ctx, s.docID)
	switch {
	case err == nil:
		s.mu.Lock()
		if s.doc == nil {
			d := doc
			s.doc = &d
			s.state = StateLoaded
		}
		s.mu.Unlock()
		return nil

	case errors.Is(err, store.ErrNotFound):
		s.mu.Lock()
		// A peer may have answered before the repository read came back.
		if s.doc != nil {
			s.mu.Unlock()
			return nil
		}
		s.state = StateAwaitingPeerSync
		s.syncTimer = s.clk.AfterFunc(peerSyncWait, s.syncTimedOut)
		s.mu.Unlock()

		s.bus.Broadcast(channel.Message{
			Type: channel.TypeRequestSync, DocID: s.docID, UserID: s.userID, UserName: s.userName,
		})
		return nil

	default:
		s.mu.Lock()
		s.state = StateNotFound
		s.mu.Unlock()
		return err
	}
}

func (s *Session) syncTimedOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil && s.state == StateAwaitingPeerSync {
		s.state = StateNotFound
	}
}

func (s *Session) handleMessage(msg channel.Message) {
	if msg.DocID != s.docID {
		return
	}

	var reply *channel.Message
	var adopted *store.Document

	s.mu.Lock()
	switch msg.Type {
	case channel.TypePresence, channel.TypeUpdate, channel.TypeSyncResponse:
		// Any traffic counts as liveness. Our own broadcasts come back on
		// some transports; never track ourselves as a peer.
		if msg.UserID != s.userID {
			s.peers[msg.UserID] = Peer{Name: msg.UserName, LastSeen: s.clk.Now()}
		}
	}

	switch msg.Type {
	case channel.TypeRequestSync:
		if s.doc != nil {
			content, title, isPrivate := s.doc.Content, s.doc.Title, s.doc.IsPrivate
			reply = &channel.Message{
				Type: channel.TypeSyncResponse, DocID: s.docID,
				UserID: s.userID, UserName: s.userName,
				Content: &content, Title: &title, IsPrivate: &isPrivate,
			}
		}

	case channel.TypeSyncResponse:
		if s.doc == nil {
			now := s.clk.Now().UnixMilli()
			doc := store.Document{
				ID:        s.docID,
				Title:     repository.DefaultTitle,
				OwnerID:   msg.UserID,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if msg.Title != nil {
				doc.Title = *msg.Title
			}
			if msg.Content != nil {
				doc.Content = *msg.Content
			}
			if msg.IsPrivate != nil {
				doc.IsPrivate = *msg.IsPrivate
			}
			s.doc = &doc
			s.state = StateLoaded
			if s.syncTimer != nil {
				s.syncTimer.Stop()
			}
			persist := doc
			adopted = &persist
		}
		// A response after the document materialized is ignored.

	case channel.TypeUpdate:
		if s.doc != nil && msg.UserID != s.userID {
			// Field-level overwrite of exactly what the message carries.
			if msg.Content != nil {
				s.doc.Content = *msg.Content
			}
			if msg.Title != nil {
				s.doc.Title = *msg.Title
			}
			if msg.IsPrivate != nil {
				s.doc.IsPrivate = *msg.IsPrivate
			}
		}
	}
	s.mu.Unlock()

	if reply != nil {
		s.bus.Broadcast(*reply)
	}
	if adopted != nil {
		// Persist the peer-supplied copy locally; failure only costs the
		// local cache, the in-memory doc stays live.
		go func(d store.Document) {
			if _, err := s.repo.Save(context.Background(), d); err != nil {
				logger.Sugar.Warnf("failed to persist synced document %s: %v", d.ID, err)
			}
		}(*adopted)
	}
}

func (s *Session) sweepLoop() {
	for {
		select {
		case <-s.done:
			return
		case now := <-s.sweeper.C():
			s.mu.Lock()
			for id, p := range s.peers {
				if now.Sub(p.LastSeen) > livenessWindow {
					delete(s.peers, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

// SetContent applies an organic local edit: snapshot for undo, mutate,
// broadcast the delta immediately and schedule the debounced save.
func (s *Session) SetContent(content string) {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return
	}
	s.history.record(s.doc.Content)
	s.doc.Content = content
	pending := *s.doc
	s.mu.Unlock()

	s.broadcastUpdate(channel.Message{Content: &content})
	s.saver.Schedule(pending)
}

func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return
	}
	s.doc.Title = title
	pending := *s.doc
	s.mu.Unlock()

	s.broadcastUpdate(channel.Message{Title: &title})
	s.saver.Schedule(pending)
}

func (s *Session) SetPrivate(isPrivate bool) {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return
	}
	s.doc.IsPrivate = isPrivate
	pending := *s.doc
	s.mu.Unlock()

	s.broadcastUpdate(channel.Message{IsPrivate: &isPrivate})
	s.saver.Schedule(pending)
}

// Undo restores the previous content snapshot. Peers see it as a plain
// edit; it broadcasts and autosaves exactly like SetContent.
func (s *Session) Undo() {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return
	}
	snapshot, ok := s.history.popUndo(s.doc.Content)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.doc.Content = snapshot
	pending := *s.doc
	s.mu.Unlock()

	s.broadcastUpdate(channel.Message{Content: &snapshot})
	s.saver.Schedule(pending)
}

func (s *Session) Redo() {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return
	}
	snapshot, ok := s.history.popRedo(s.doc.Content)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.doc.Content = snapshot
	pending := *s.doc
	s.mu.Unlock()

	s.broadcastUpdate(channel.Message{Content: &snapshot})
	s.saver.Schedule(pending)
}

func (s *Session) broadcastUpdate(msg channel.Message) {
	msg.Type = channel.TypeUpdate
	msg.DocID = s.docID
	msg.UserID = s.userID
	msg.UserName = s.userName
	s.bus.Broadcast(msg)
}

// Close detaches the session from the channel. A pending autosave is left
// to land on its own.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		if s.sweeper != nil {
			s.sweeper.Stop()
		}
		if s.syncTimer != nil {
			s.syncTimer.Stop()
		}
		close(s.done)
	})
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Document returns a copy of the in-memory document, when loaded.
func (s *Session) Document() (store.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return store.Document{}, false
	}
	return *s.doc, true
}

// Peers returns a copy of the live peer set.
func (s *Session) Peers() map[string]Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	peers := make(map[string]Peer, len(s.peers))
	for id, p := range s.peers {
		peers[id] = p
	}
	return peers
}

func (s *Session) Saving() bool { return s.saver.Saving() }
func (s *Session) Saved() bool  { return s.saver.Saved() }

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.canUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.canRedo()
}
