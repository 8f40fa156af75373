package inmemory

import (
	"context"
	"sync"
	"time"

	"taskBoard/internal/models"
	repo "taskBoard/internal/repository"

	"github.com/google/uuid"
)

// UserStorage is a map-backed user directory. The ids slice keeps
// insertion order, which is the directory enumeration order used for
// deterministic assignment tie-breaks.
type UserStorage struct {
	storage map[uuid.UUID]*models.User
	mtx     *sync.RWMutex
	ids     []uuid.UUID
}

func NewUserStorage() *UserStorage {
	return &UserStorage{
		storage: make(map[uuid.UUID]*models.User),
		mtx:     &sync.RWMutex{},
		ids:     []uuid.UUID{},
	}
}

func (s *UserStorage) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *UserStorage) Create(ctx context.Context, userToCreate *models.User) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if userToCreate.CreatedAt.IsZero() {
		userToCreate.CreatedAt = time.Now()
	}

	s.storage[userToCreate.ID] = userToCreate
	s.ids = append(s.ids, userToCreate.ID)
	return nil
}

func (s *UserStorage) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	userToGet, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return userToGet, nil
}

func (s *UserStorage) ListAll(ctx context.Context) ([]*models.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make([]*models.User, 0, len(s.ids))
	for _, id := range s.ids {
		res = append(res, s.storage[id])
	}
	return res, nil
}
