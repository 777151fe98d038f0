package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"devsync/pkg/logger"
)

var ErrNotFound = errors.New("record not found")

// Collection is a generic persistent collection stored as a single JSON
// file. Every operation is a full read-modify-write of the file: the last
// writer wins at the storage layer, concurrent processes included. A fixed
// latency is applied to each call for parity with remote mode, so callers
// must treat every operation as a real round trip.
type Collection[T Record] struct {
	name    string
	path    string
	latency time.Duration

	mu      sync.Mutex
	changed func() // fired after a successful update or delete, when set
}

func newCollection[T Record](dir, name string, latency time.Duration) *Collection[T] {
	return &Collection[T]{
		name:    name,
		path:    filepath.Join(dir, "devsync_db_"+name+".json"),
		latency: latency,
	}
}

func (c *Collection[T]) load() []T {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		// Corrupt state degrades to an empty collection rather than failing.
		logger.Sugar.Warnf("collection %s: unreadable state, starting empty: %v", c.name, err)
		return nil
	}
	return items
}

func (c *Collection[T]) save(items []T) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, raw, 0o644)
}

func (c *Collection[T]) simulate(ctx context.Context) error {
	if c.latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(c.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Find returns all records matching q. An empty query matches everything.
func (c *Collection[T]) Find(ctx context.Context, q Query) ([]T, error) {
	c.mu.Lock()
	var results []T
	for _, item := range c.load() {
		if item.Match(q) {
			results = append(results, item)
		}
	}
	c.mu.Unlock()

	if err := c.simulate(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

// FindOne returns the first record matching q, or ErrNotFound.
func (c *Collection[T]) FindOne(ctx context.Context, q Query) (T, error) {
	var zero T
	c.mu.Lock()
	for _, item := range c.load() {
		if item.Match(q) {
			c.mu.Unlock()
			if err := c.simulate(ctx); err != nil {
				return zero, err
			}
			return item, nil
		}
	}
	c.mu.Unlock()

	if err := c.simulate(ctx); err != nil {
		return zero, err
	}
	return zero, ErrNotFound
}

func (c *Collection[T]) InsertOne(ctx context.Context, item T) (T, error) {
	var zero T
	c.mu.Lock()
	items := append(c.load(), item)
	err := c.save(items)
	c.mu.Unlock()
	if err != nil {
		return zero, err
	}

	if err := c.simulate(ctx); err != nil {
		return zero, err
	}
	return item, nil
}

// UpdateOne applies the partial patch to the first record matching q and
// persists the result. Returns ErrNotFound when nothing matched.
func (c *Collection[T]) UpdateOne(ctx context.Context, q Query, patch func(T) T) (T, error) {
	var zero T
	c.mu.Lock()
	items := c.load()
	index := -1
	for i, item := range items {
		if item.Match(q) {
			index = i
			break
		}
	}
	if index == -1 {
		c.mu.Unlock()
		if err := c.simulate(ctx); err != nil {
			return zero, err
		}
		return zero, ErrNotFound
	}

	items[index] = patch(items[index])
	updated := items[index]
	err := c.save(items)
	changed := c.changed
	c.mu.Unlock()
	if err != nil {
		return zero, err
	}
	if changed != nil {
		changed()
	}

	if err := c.simulate(ctx); err != nil {
		return zero, err
	}
	return updated, nil
}

// DeleteOne removes every record matching q and reports whether anything
// was removed.
func (c *Collection[T]) DeleteOne(ctx context.Context, q Query) (bool, error) {
	c.mu.Lock()
	items := c.load()
	kept := items[:0]
	for _, item := range items {
		if !item.Match(q) {
			kept = append(kept, item)
		}
	}
	removed := len(kept) != len(items)
	var err error
	if removed {
		err = c.save(kept)
	}
	changed := c.changed
	c.mu.Unlock()
	if err != nil {
		return false, err
	}
	if removed && changed != nil {
		changed()
	}

	if err := c.simulate(ctx); err != nil {
		return false, err
	}
	return removed, nil
}
