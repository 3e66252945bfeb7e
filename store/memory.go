package store

import (
	"context"
	"sync"

	"picmagic/models"
)

// MemoryStore keeps tasks in a process-local map. Development only: state
// is lost on restart and invisible to other instances, so it cannot back a
// separate worker deployment.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]models.Task
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]models.Task)}
}

func (s *MemoryStore) Put(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = *task
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Task, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, false, nil
	}
	return &task, true, nil
}
