// Package store is a small persistent collection layer modelled after a
// browser's per-origin storage: one namespaced JSON blob per collection,
// whole-collection read-modify-write, and simulated network latency so
// local and remote modes feel the same to callers.
package store

import (
	"os"
	"sync"
	"time"
)

type Options struct {
	DataDir string
	// Latency is applied to every collection operation. Zero disables the
	// simulation (used by tests).
	Latency time.Duration
}

type DB struct {
	Users     *Collection[User]
	Documents *Collection[Document]

	mu        sync.Mutex
	listeners map[int]func()
	nextID    int
}

// Open prepares the data directory and hands back the two collections.
func Open(opts Options) (*DB, error) {
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, err
	}
	db := &DB{
		Users:     newCollection[User](opts.DataDir, "users", opts.Latency),
		Documents: newCollection[Document](opts.DataDir, "documents", opts.Latency),
		listeners: make(map[int]func()),
	}
	// Dashboard-style consumers refresh off this signal instead of polling.
	db.Documents.changed = db.notifyDocumentsChanged
	return db, nil
}

// OnDocumentsChanged registers fn to run after any successful update or
// delete on the documents collection. The returned func unsubscribes.
func (db *DB) OnDocumentsChanged(fn func()) func() {
	db.mu.Lock()
	id := db.nextID
	db.nextID++
	db.listeners[id] = fn
	db.mu.Unlock()

	return func() {
		db.mu.Lock()
		delete(db.listeners, id)
		db.mu.Unlock()
	}
}

func (db *DB) notifyDocumentsChanged() {
	db.mu.Lock()
	fns := make([]func(), 0, len(db.listeners))
	for _, fn := range db.listeners {
		fns = append(fns, fn)
	}
	db.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
