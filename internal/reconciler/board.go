package reconciler

import (
	"fmt"
	"sort"

	"taskBoard/internal/models"

	"github.com/google/uuid"
)

// Board is a client's local view of the task collection, keyed by task
// id. It is owned by a single goroutine (the connection's event loop)
// and is deliberately unsynchronized: events are applied strictly in the
// order they arrive on the connection.
type Board struct {
	tasks map[uuid.UUID]models.Task
}

func NewBoard() *Board {
	return &Board{tasks: make(map[uuid.UUID]models.Task)}
}

// Seed replaces the whole local state with a fresh server snapshot. It
// is the only recovery mechanism for events missed while disconnected.
func (b *Board) Seed(tasks []*models.Task) {
	b.tasks = make(map[uuid.UUID]models.Task, len(tasks))
	for _, t := range tasks {
		b.tasks[t.ID] = *t
	}
}

// Apply merges one change event into local state.
//
//   - task_created inserts by id; a duplicate id (the originating client
//     receiving its own echo) replaces instead of duplicating.
//   - task_updated replaces the entry wholesale; any local edit in
//     flight is clobbered, mirroring the server's last-writer-wins.
//   - task_deleted evicts the id; an already-absent id is a no-op.
func (b *Board) Apply(event models.Event) error {
	switch event.Kind {
	case models.EventTaskCreated, models.EventTaskUpdated:
		task, err := event.Task()
		if err != nil {
			return err
		}
		b.tasks[task.ID] = *task
		return nil
	case models.EventTaskDeleted:
		id, err := event.DeletedID()
		if err != nil {
			return err
		}
		delete(b.tasks, id)
		return nil
	default:
		return fmt.Errorf("unknown event kind %q", event.Kind)
	}
}

func (b *Board) Get(id uuid.UUID) (models.Task, bool) {
	t, ok := b.tasks[id]
	return t, ok
}

func (b *Board) Len() int {
	return len(b.tasks)
}

// Tasks returns the board newest-first, the order the UI renders.
func (b *Board) Tasks() []models.Task {
	res := make([]models.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID.String() > res[j].ID.String()
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res
}
