package handlers

import (
	"context"

	"taskBoard/internal/models"
	"taskBoard/internal/service"

	"github.com/google/uuid"
)

type Service interface {
	HealthCheck(ctx context.Context) error
	CreateTask(ctx context.Context, actor models.User, in service.CreateTaskInput) (*models.Task, error)
	UpdateTask(ctx context.Context, actor models.User, id uuid.UUID, in service.UpdateTaskInput) (*models.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
	GetTaskByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListTasks(ctx context.Context) ([]*models.Task, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}
