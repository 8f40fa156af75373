package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskBoard/internal/models"
	repo "taskBoard/internal/repository"

	"github.com/google/uuid"
)

// UserDirectory is the slice of the user store the task store needs:
// enumeration order for assignment and id->name lookups for reads.
type UserDirectory interface {
	ListAll(ctx context.Context) ([]*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// record is what actually gets stored: user references are kept as raw
// ids and joined against the directory on every read.
type record struct {
	ID           uuid.UUID
	Title        string
	Description  string
	Status       models.Status
	Priority     models.Priority
	DueDate      *time.Time
	AssignedTo   *uuid.UUID
	CreatedBy    uuid.UUID
	LastEditedBy uuid.UUID
	LastEditedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

type TaskStorage struct {
	storage map[uuid.UUID]*record
	mtx     *sync.RWMutex
	users   UserDirectory
}

func NewTaskStorage(users UserDirectory) *TaskStorage {
	return &TaskStorage{
		storage: make(map[uuid.UUID]*record),
		mtx:     &sync.RWMutex{},
		users:   users,
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *models.Task) error {
	s.mtx.Lock()
	rec := toRecord(taskToCreate)
	rec.CreatedAt = time.Now()
	s.storage[rec.ID] = rec
	s.mtx.Unlock()

	return s.reload(ctx, rec.ID, taskToCreate)
}

// CreateAutoAssigned picks the least-loaded user and inserts the task in
// one critical section. Holding the store mutex across the count and the
// write is what keeps two concurrent creations from both observing the
// same least-loaded user.
func (s *TaskStorage) CreateAutoAssigned(ctx context.Context, taskToCreate *models.Task) error {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return repo.ErrNoUsers
	}

	s.mtx.Lock()

	counts := make(map[uuid.UUID]int, len(users))
	for _, rec := range s.storage {
		if rec.AssignedTo != nil {
			counts[*rec.AssignedTo]++
		}
	}

	// directory enumeration order makes the tie-break deterministic
	assignee := users[0].ID
	best := counts[assignee]
	for _, u := range users[1:] {
		if counts[u.ID] < best {
			assignee = u.ID
			best = counts[u.ID]
		}
	}

	rec := toRecord(taskToCreate)
	rec.AssignedTo = &assignee
	rec.CreatedAt = time.Now()
	s.storage[rec.ID] = rec

	s.mtx.Unlock()

	return s.reload(ctx, rec.ID, taskToCreate)
}

func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	s.mtx.RLock()
	rec, ok := s.storage[id]
	if !ok {
		s.mtx.RUnlock()
		return nil, repo.ErrNotFound
	}
	snapshot := *rec
	s.mtx.RUnlock()

	return s.resolve(ctx, &snapshot)
}

// GetAll returns every task, newest first, with user names resolved.
func (s *TaskStorage) GetAll(ctx context.Context) ([]*models.Task, error) {
	s.mtx.RLock()
	snapshots := make([]record, 0, len(s.storage))
	for _, rec := range s.storage {
		snapshots = append(snapshots, *rec)
	}
	s.mtx.RUnlock()

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].CreatedAt.Equal(snapshots[j].CreatedAt) {
			return snapshots[i].ID.String() > snapshots[j].ID.String()
		}
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})

	tasks := make([]*models.Task, 0, len(snapshots))
	for i := range snapshots {
		t, err := s.resolve(ctx, &snapshots[i])
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *TaskStorage) Update(ctx context.Context, id uuid.UUID, patch repo.TaskPatch) (*models.Task, error) {
	s.mtx.Lock()

	rec, ok := s.storage[id]
	if !ok {
		s.mtx.Unlock()
		return nil, repo.ErrNotFound
	}

	if patch.Title != nil {
		rec.Title = *patch.Title
	}
	if patch.Description != nil {
		rec.Description = *patch.Description
	}
	if patch.Status != nil {
		rec.Status = *patch.Status
	}
	if patch.Priority != nil {
		rec.Priority = *patch.Priority
	}
	if patch.DueDate != nil {
		due := *patch.DueDate
		rec.DueDate = &due
	}
	if patch.AssignedTo != nil {
		assignee := *patch.AssignedTo
		rec.AssignedTo = &assignee
	}
	rec.LastEditedBy = patch.LastEditedBy
	editedAt := patch.LastEditedAt
	rec.LastEditedAt = &editedAt
	now := time.Now()
	rec.UpdatedAt = &now

	snapshot := *rec
	s.mtx.Unlock()

	return s.resolve(ctx, &snapshot)
}

func (s *TaskStorage) Delete(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.storage, id)
	return nil
}

func toRecord(t *models.Task) *record {
	rec := &record{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status,
		Priority:     t.Priority,
		DueDate:      t.DueDate,
		CreatedBy:    t.CreatedBy.ID,
		LastEditedBy: t.LastEditedBy.ID,
		LastEditedAt: t.LastEditedAt,
	}
	if t.AssignedTo != nil {
		assignee := t.AssignedTo.ID
		rec.AssignedTo = &assignee
	}
	return rec
}

func (s *TaskStorage) reload(ctx context.Context, id uuid.UUID, dst *models.Task) error {
	resolved, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	*dst = *resolved
	return nil
}

// resolve joins user names onto a record snapshot. A reference to a user
// that has since vanished keeps the id with an empty name.
func (s *TaskStorage) resolve(ctx context.Context, rec *record) (*models.Task, error) {
	t := &models.Task{
		ID:           rec.ID,
		Title:        rec.Title,
		Description:  rec.Description,
		Status:       rec.Status,
		Priority:     rec.Priority,
		DueDate:      rec.DueDate,
		CreatedBy:    s.ref(ctx, rec.CreatedBy),
		LastEditedBy: s.ref(ctx, rec.LastEditedBy),
		LastEditedAt: rec.LastEditedAt,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
	if rec.AssignedTo != nil {
		ref := s.ref(ctx, *rec.AssignedTo)
		t.AssignedTo = &ref
	}
	return t, nil
}

func (s *TaskStorage) ref(ctx context.Context, id uuid.UUID) models.UserRef {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.UserRef{ID: id}
	}
	return user.Ref()
}
