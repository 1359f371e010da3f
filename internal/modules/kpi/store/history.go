package store

import (
	"sync"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
)

// maxHistoryDepth bounds the undo stack. Datasets are small enough to stack
// wholesale, so history keeps full snapshots instead of diffs.
const maxHistoryDepth = 25

type historyEntry struct {
	label string
	data  *models.Dataset
}

// history keeps bounded past/future snapshot stacks for undo and redo.
type history struct {
	mu     sync.Mutex
	depth  int
	past   []historyEntry
	future []historyEntry
}

func newHistory(depth int) *history {
	return &history{depth: depth}
}

func (h *history) push(label string, data *models.Dataset) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.past = append(h.past, historyEntry{label: label, data: data})
	if len(h.past) > h.depth {
		h.past = h.past[1:]
	}
	h.future = h.future[:0]
}

// pop discards the newest past entry, used to roll back a failed mutation.
func (h *history) pop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.past) > 0 {
		h.past = h.past[:len(h.past)-1]
	}
}

func (h *history) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.past = nil
	h.future = nil
}

// WithHistory snapshots the dataset, runs the mutation and keeps the
// snapshot on the undo stack. A failed mutation removes the snapshot again
// so undo never restores into a half-applied write.
func (s *Store) WithHistory(label string, fn func() error) error {
	before := s.Snapshot()
	s.history.push(label, before)
	if err := fn(); err != nil {
		s.history.pop()
		return err
	}
	return nil
}

// Undo restores the newest undo snapshot, pushing the current dataset onto
// the redo stack. Returns false when there is nothing to undo.
func (s *Store) Undo() bool {
	s.history.mu.Lock()
	if len(s.history.past) == 0 {
		s.history.mu.Unlock()
		return false
	}
	entry := s.history.past[len(s.history.past)-1]
	s.history.past = s.history.past[:len(s.history.past)-1]
	current := s.Snapshot()
	s.history.future = append(s.history.future, historyEntry{label: entry.label, data: current})
	s.history.mu.Unlock()

	s.ReplaceAll(entry.data)
	return true
}

// Redo re-applies the newest redo snapshot. Returns false when there is
// nothing to redo.
func (s *Store) Redo() bool {
	s.history.mu.Lock()
	if len(s.history.future) == 0 {
		s.history.mu.Unlock()
		return false
	}
	entry := s.history.future[len(s.history.future)-1]
	s.history.future = s.history.future[:len(s.history.future)-1]
	current := s.Snapshot()
	s.history.past = append(s.history.past, historyEntry{label: entry.label, data: current})
	s.history.mu.Unlock()

	s.ReplaceAll(entry.data)
	return true
}

// HistoryDepth reports how many undo and redo steps are available.
func (s *Store) HistoryDepth() (past, future int) {
	s.history.mu.Lock()
	defer s.history.mu.Unlock()
	return len(s.history.past), len(s.history.future)
}
