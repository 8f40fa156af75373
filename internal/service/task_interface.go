package service

import (
	"context"

	"taskBoard/internal/models"
	"taskBoard/internal/repository"

	"github.com/google/uuid"
)

type TaskRepository interface {
	HealthCheck(ctx context.Context) error
	Create(ctx context.Context, task *models.Task) error
	CreateAutoAssigned(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetAll(ctx context.Context) ([]*models.Task, error)
	Update(ctx context.Context, id uuid.UUID, patch repository.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListAll(ctx context.Context) ([]*models.User, error)
}

// EventPublisher receives every committed mutation. Publishing is
// fire-and-forget: it must never fail the mutation that produced it.
type EventPublisher interface {
	Publish(event models.Event)
}
