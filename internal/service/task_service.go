package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskBoard/internal/logger"
	"taskBoard/internal/models"
	rep "taskBoard/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskService is the single write path for tasks. It validates input,
// stamps provenance, routes unassigned creations through automatic
// assignment and hands every committed mutation to the publisher.
type TaskService struct {
	tasks     TaskRepository
	users     UserRepository
	publisher EventPublisher
}

func NewTaskService(tasks TaskRepository, users UserRepository, publisher EventPublisher) TaskService {
	return TaskService{
		tasks:     tasks,
		users:     users,
		publisher: publisher,
	}
}

type CreateTaskInput struct {
	Title       string
	Description string
	Status      models.Status
	Priority    models.Priority
	DueDate     *time.Time
	AssignedTo  *uuid.UUID // nil or uuid.Nil means auto-assign
}

type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *models.Status
	Priority    *models.Priority
	DueDate     *time.Time
	AssignedTo  *uuid.UUID
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	return s.tasks.HealthCheck(ctx)
}

func (s *TaskService) CreateTask(ctx context.Context, actor models.User, in CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, NewValidationError("title", "must not be empty")
	}

	status := in.Status
	if status == "" {
		status = models.StatusTodo
	}
	if !status.Valid() {
		return nil, NewValidationError("status", fmt.Sprintf("unknown status %q", in.Status))
	}

	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, NewValidationError("priority", fmt.Sprintf("unknown priority %q", in.Priority))
	}

	task := &models.Task{
		ID:           uuid.New(),
		Title:        title,
		Description:  in.Description,
		Status:       status,
		Priority:     priority,
		DueDate:      in.DueDate,
		CreatedBy:    actor.Ref(),
		LastEditedBy: actor.Ref(),
	}

	if in.AssignedTo == nil || *in.AssignedTo == uuid.Nil {
		if err := s.tasks.CreateAutoAssigned(ctx, task); err != nil {
			if errors.Is(err, rep.ErrNoUsers) {
				logger.Warn("Service: no users available for assignment",
					zap.String("actor_id", actor.ID.String()))
				return nil, NewNoAssigneeAvailable()
			}
			return nil, NewStoreError("create task", err)
		}
	} else {
		assignee, err := s.resolveAssignee(ctx, *in.AssignedTo)
		if err != nil {
			return nil, err
		}
		ref := assignee.Ref()
		task.AssignedTo = &ref
		if err := s.tasks.Create(ctx, task); err != nil {
			return nil, NewStoreError("create task", err)
		}
	}

	s.publish(models.NewTaskCreated(task))

	logger.Info("Service: task created",
		zap.String("task_id", task.ID.String()),
		zap.String("assigned_to", task.AssignedTo.ID.String()),
		zap.String("created_by", actor.ID.String()))

	return task, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, actor models.User, id uuid.UUID, in UpdateTaskInput) (*models.Task, error) {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, NewValidationError("title", "must not be empty")
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, NewValidationError("status", fmt.Sprintf("unknown status %q", *in.Status))
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return nil, NewValidationError("priority", fmt.Sprintf("unknown priority %q", *in.Priority))
	}
	if in.AssignedTo != nil {
		if _, err := s.resolveAssignee(ctx, *in.AssignedTo); err != nil {
			return nil, err
		}
	}

	patch := rep.TaskPatch{
		Title:        in.Title,
		Description:  in.Description,
		Status:       in.Status,
		Priority:     in.Priority,
		DueDate:      in.DueDate,
		AssignedTo:   in.AssignedTo,
		LastEditedBy: actor.ID,
		LastEditedAt: time.Now(),
	}

	task, err := s.tasks.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: task not found", zap.String("target_id", id.String()))
			return nil, NewNotFound("task", id.String())
		}
		return nil, NewStoreError("update task", err)
	}

	s.publish(models.NewTaskUpdated(task))

	logger.Info("Service: task updated",
		zap.String("task_id", task.ID.String()),
		zap.String("edited_by", actor.ID.String()))

	return task, nil
}

// DeleteTask hard-deletes the task. A second delete of the same id is
// NOT_FOUND again and publishes nothing, never a silent duplicate event.
func (s *TaskService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if err := s.tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: task not found", zap.String("target_id", id.String()))
			return NewNotFound("task", id.String())
		}
		return NewStoreError("delete task", err)
	}

	s.publish(models.NewTaskDeleted(id))

	logger.Info("Service: task deleted", zap.String("task_id", id.String()))
	return nil
}

func (s *TaskService) GetTaskByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewNotFound("task", id.String())
		}
		return nil, NewStoreError("fetch task", err)
	}
	return task, nil
}

// ListTasks is the read API that seeds every connecting client.
func (s *TaskService) ListTasks(ctx context.Context) ([]*models.Task, error) {
	tasks, err := s.tasks.GetAll(ctx)
	if err != nil {
		return nil, NewStoreError("fetch tasks", err)
	}
	return tasks, nil
}

func (s *TaskService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, NewStoreError("fetch users", err)
	}
	return users, nil
}

func (s *TaskService) resolveAssignee(ctx context.Context, id uuid.UUID) (*models.User, error) {
	assignee, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewValidationError("assigned_to", fmt.Sprintf("user %s does not exist", id))
		}
		return nil, NewStoreError("resolve assignee", err)
	}
	return assignee, nil
}

// publish hands the event to the broadcaster. The mutation is already
// committed at this point, so a marshalling failure is logged and dropped.
func (s *TaskService) publish(event models.Event, err error) {
	if err != nil {
		logger.Error("Service: failed to build event", err)
		return
	}
	s.publisher.Publish(event)
}
