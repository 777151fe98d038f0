package editor

// history keeps full content snapshots for undo/redo, local to one view
// and never synchronized to peers. Stacks are capped; the oldest snapshot
// falls off when the cap is hit.
type history struct {
	undo  []string
	redo  []string
	limit int
}

const historyLimit = 512

func newHistory() *history {
	return &history{limit: historyLimit}
}

// record pushes the pre-change snapshot for an organic edit and
// invalidates the redo stack.
func (h *history) record(snapshot string) {
	h.undo = append(h.undo, snapshot)
	if len(h.undo) > h.limit {
		h.undo = h.undo[1:]
	}
	h.redo = h.redo[:0]
}

// popUndo moves current onto the redo stack and returns the snapshot to
// restore.
func (h *history) popUndo(current string) (string, bool) {
	if len(h.undo) == 0 {
		return "", false
	}
	snapshot := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, current)
	if len(h.redo) > h.limit {
		h.redo = h.redo[1:]
	}
	return snapshot, true
}

// popRedo is the inverse of popUndo.
func (h *history) popRedo(current string) (string, bool) {
	if len(h.redo) == 0 {
		return "", false
	}
	snapshot := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, current)
	if len(h.undo) > h.limit {
		h.undo = h.undo[1:]
	}
	return snapshot, true
}

func (h *history) canUndo() bool { return len(h.undo) > 0 }
func (h *history) canRedo() bool { return len(h.redo) > 0 }
