package history

import (
	"sync"

	"github.com/ldi/clipflow/pkg/models"
)

// Store holds the task list for the current session. It is a cache of the
// backend's state: it is only ever replaced wholesale or trimmed after a
// successful delete.
type Store struct {
	mu    sync.RWMutex
	tasks []models.Task
}

func NewStore() *Store {
	return &Store{tasks: make([]models.Task, 0)}
}

// Tasks returns a copy of the current list.
func (s *Store) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Replace swaps the whole list for tasks.
func (s *Store) Replace(tasks []models.Task) {
	next := make([]models.Task, len(tasks))
	copy(next, tasks)

	s.mu.Lock()
	s.tasks = next
	s.mu.Unlock()
}

// Remove drops the entries whose ID matches id and reports how many were
// removed.
func (s *Store) Remove(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	removed := len(s.tasks) - len(kept)
	s.tasks = kept
	return removed
}

// Find returns the task with the given id.
func (s *Store) Find(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}
