package questionbank

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// memoryStore backs unit tests and seed previews without a database.
type memoryStore struct {
	mu        sync.RWMutex
	questions []Question
}

func NewInMemoryStore() Store {
	return &memoryStore{}
}

func (m *memoryStore) PutQuestion(_ context.Context, q Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions = append(m.questions, q)
	return nil
}

func (m *memoryStore) PoolByType(_ context.Context, skill string, difficulty Difficulty) (map[Type][]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pool := map[Type][]Question{}
	for _, q := range m.questions {
		if q.Skill == skill && q.Difficulty == difficulty {
			pool[q.Type] = append(pool[q.Type], q)
		}
	}
	return pool, nil
}
