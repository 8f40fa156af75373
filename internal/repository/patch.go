package repository

import (
	"time"

	"taskBoard/internal/models"

	"github.com/google/uuid"
)

// TaskPatch carries a partial update. A nil field is left untouched by
// the store, so two concurrent writers only overwrite each other on the
// fields both of them actually sent (last-writer-wins per field).
// LastEditedBy/LastEditedAt are unconditional: every update restamps them.
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *models.Status
	Priority     *models.Priority
	DueDate      *time.Time
	AssignedTo   *uuid.UUID
	LastEditedBy uuid.UUID
	LastEditedAt time.Time
}
