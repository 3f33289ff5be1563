package status

import (
	"sync"

	"github.com/namtrader/engine/pkg/models"
)

// Store потокобезопасное хранилище снимка состояния.
// Пишет только рабочий цикл, читает HTTP-обработчик статуса.
type Store struct {
	mu       sync.RWMutex
	snapshot models.StatusSnapshot
}

// NewStore создает пустое хранилище
func NewStore() *Store {
	return &Store{}
}

// Publish атомарно заменяет снимок состояния
func (s *Store) Publish(snapshot models.StatusSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
}

// Snapshot возвращает копию последнего снимка
func (s *Store) Snapshot() models.StatusSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}
