package editor

import (
	"context"
	"sync"
	"time"

	"devsync/internal/document/repository"
	"devsync/pkg/clock"
	"devsync/pkg/logger"
	"devsync/store"
)

const (
	quietPeriod  = 1 * time.Second
	savedDisplay = 3 * time.Second
)

// Autosaver coalesces bursts of edits into one repository write: each
// Schedule call rearms a trailing debounce timer, so the write happens one
// quiet period after the last edit. Persistence failures are logged and
// otherwise silent; the edit survives in memory and on the wire.
type Autosaver struct {
	repo *repository.Repository
	clk  clock.Clock

	mu        sync.Mutex
	pending   store.Document
	timer     clock.Timer
	hideTimer clock.Timer
	saving    bool
	saved     bool
}

func NewAutosaver(repo *repository.Repository, clk clock.Clock) *Autosaver {
	if clk == nil {
		clk = clock.System()
	}
	return &Autosaver{repo: repo, clk: clk}
}

// Schedule records doc as the state to persist and restarts the quiet
// period. The pending save is not cancelled on view teardown; a save
// landing after close is acceptable.
func (a *Autosaver) Schedule(doc store.Document) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pending = doc
	a.saving = true
	a.saved = false
	if a.hideTimer != nil {
		a.hideTimer.Stop()
	}
	if a.timer != nil {
		a.timer.Reset(quietPeriod)
	} else {
		a.timer = a.clk.AfterFunc(quietPeriod, a.flush)
	}
}

func (a *Autosaver) flush() {
	a.mu.Lock()
	doc := a.pending
	a.mu.Unlock()

	_, err := a.repo.Save(context.Background(), doc)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.saving = false
	if err != nil {
		logger.Sugar.Warnf("autosave failed for document %s: %v", doc.ID, err)
		return
	}
	a.saved = true
	a.hideTimer = a.clk.AfterFunc(savedDisplay, func() {
		a.mu.Lock()
		a.saved = false
		a.mu.Unlock()
	})
}

// Saving reports whether a write is pending or in flight.
func (a *Autosaver) Saving() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saving
}

// Saved reports the transient post-save confirmation.
func (a *Autosaver) Saved() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saved
}
