package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskBoard/internal/logger"
	"taskBoard/internal/models"
	repo "taskBoard/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// assignLockKey serializes auto-assignment transactions. Without it two
// concurrent creations can both read the same workload snapshot and pile
// onto the same user.
const assignLockKey = 420_001

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, connString string, maxConns, minConns int32, idleTimeout time.Duration) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: failed to parse pool config", err)
		return nil, fmt.Errorf("parsing pool config: %w", err)
	}

	config.MaxConns = maxConns
	config.MinConns = minConns
	config.MaxConnIdleTime = idleTimeout

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: failed to create pool", err)
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		logger.Error("Repository: ping failed", err)
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("Repository: connected to PostgreSQL")
	return &Storage{pool: pool}, nil
}

func NewWithPool(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: closed all PostgreSQL connections")
}

func (s *Storage) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Repository: ping failed", err)
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

const taskColumns = `
	t.id,
	t.title,
	t.description,
	t.status,
	t.priority,
	t.due_date,
	t.assigned_to,
	ua.name,
	t.created_by,
	uc.name,
	t.last_edited_by,
	ue.name,
	t.last_edited_at,
	t.created_at,
	t.updated_at`

const taskJoins = `
	LEFT JOIN users ua ON ua.id = t.assigned_to
	JOIN users uc ON uc.id = t.created_by
	JOIN users ue ON ue.id = t.last_edited_by`

func (s *Storage) Create(ctx context.Context, taskToCreate *models.Task) error {
	start := time.Now()

	var assignee *uuid.UUID
	if taskToCreate.AssignedTo != nil {
		assignee = &taskToCreate.AssignedTo.ID
	}

	query := `INSERT INTO tasks
				(id, title, description, status, priority, due_date, assigned_to, created_by, last_edited_by, last_edited_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				RETURNING created_at`

	err := s.pool.QueryRow(ctx, query,
		taskToCreate.ID,
		taskToCreate.Title,
		taskToCreate.Description,
		taskToCreate.Status,
		taskToCreate.Priority,
		taskToCreate.DueDate,
		assignee,
		taskToCreate.CreatedBy.ID,
		taskToCreate.LastEditedBy.ID,
		taskToCreate.LastEditedAt,
	).Scan(&taskToCreate.CreatedAt)

	if err != nil {
		logger.Error("Repository: failed to insert task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("inserting task: %w", err)
	}

	if time.Since(start) > time.Millisecond*50 {
		logger.Warn("Repository: slow query", zap.Duration("ms", time.Since(start)))
	}

	return s.reload(ctx, taskToCreate.ID, taskToCreate)
}

// CreateAutoAssigned selects the least-loaded user and inserts the task
// inside a single transaction guarded by an advisory lock, so concurrent
// creations serialize on the selection instead of racing it. Workload is
// counted over all tasks regardless of status; ties break by directory
// enumeration order (created_at, then id).
func (s *Storage) CreateAutoAssigned(ctx context.Context, taskToCreate *models.Task) error {
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		logger.Error("Repository: failed to begin transaction", err)
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, assignLockKey); err != nil {
		logger.Error("Repository: failed to take assignment lock", err)
		return fmt.Errorf("taking assignment lock: %w", err)
	}

	var assignee uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT u.id
		FROM users u
		LEFT JOIN tasks t ON t.assigned_to = u.id
		GROUP BY u.id, u.created_at
		ORDER BY COUNT(t.id) ASC, u.created_at ASC, u.id ASC
		LIMIT 1`).Scan(&assignee)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ErrNoUsers
		}
		logger.Error("Repository: failed to select assignee", err)
		return fmt.Errorf("selecting assignee: %w", err)
	}

	query := `INSERT INTO tasks
				(id, title, description, status, priority, due_date, assigned_to, created_by, last_edited_by, last_edited_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				RETURNING created_at`

	err = tx.QueryRow(ctx, query,
		taskToCreate.ID,
		taskToCreate.Title,
		taskToCreate.Description,
		taskToCreate.Status,
		taskToCreate.Priority,
		taskToCreate.DueDate,
		assignee,
		taskToCreate.CreatedBy.ID,
		taskToCreate.LastEditedBy.ID,
		taskToCreate.LastEditedAt,
	).Scan(&taskToCreate.CreatedAt)

	if err != nil {
		logger.Error("Repository: failed to insert auto-assigned task", err)
		return fmt.Errorf("inserting task: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error("Repository: failed to commit assignment", err)
		return fmt.Errorf("committing transaction: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: slow operation", zap.Duration("ms", time.Since(start)))
	}

	return s.reload(ctx, taskToCreate.ID, taskToCreate)
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + `
				FROM tasks t` + taskJoins + `
				WHERE t.id = $1`

	task, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to fetch task", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("fetching task: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: slow query", zap.Duration("ms", time.Since(start)))
	}

	return task, nil
}

// GetAll returns the full collection, newest first, with all three user
// references resolved to id+name.
func (s *Storage) GetAll(ctx context.Context) ([]*models.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + `
				FROM tasks t` + taskJoins + `
				ORDER BY t.created_at DESC, t.id DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		logger.Error("Repository: failed to fetch tasks", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("fetching tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: task scan failed", zap.Error(err))
			continue
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: row iteration failed", err)
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: slow query", zap.Duration("ms", time.Since(start)))
	}

	return tasks, nil
}

// Update writes only the fields the patch actually carries; everything
// else keeps whatever the previous writer left there.
func (s *Storage) Update(ctx context.Context, id uuid.UUID, patch repo.TaskPatch) (*models.Task, error) {
	start := time.Now()

	query := `UPDATE tasks
			SET title = COALESCE($2, title),
				description = COALESCE($3, description),
				status = COALESCE($4, status),
				priority = COALESCE($5, priority),
				due_date = COALESCE($6, due_date),
				assigned_to = COALESCE($7, assigned_to),
				last_edited_by = $8,
				last_edited_at = $9,
				updated_at = NOW()
			WHERE id = $1
			RETURNING id`

	var returned uuid.UUID
	err := s.pool.QueryRow(ctx, query,
		id,
		patch.Title,
		patch.Description,
		patch.Status,
		patch.Priority,
		patch.DueDate,
		patch.AssignedTo,
		patch.LastEditedBy,
		patch.LastEditedAt,
	).Scan(&returned)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to update task", err)
		return nil, fmt.Errorf("updating task: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: slow operation", zap.Duration("ms", time.Since(start)))
	}

	return s.GetByID(ctx, id)
}

func (s *Storage) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()

	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: failed to delete task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("deleting task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: slow operation", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *Storage) reload(ctx context.Context, id uuid.UUID, dst *models.Task) error {
	resolved, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	*dst = *resolved
	return nil
}

func scanTask(row pgx.Row) (*models.Task, error) {
	task := &models.Task{}
	var assigneeID *uuid.UUID
	var assigneeName *string

	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&assigneeID,
		&assigneeName,
		&task.CreatedBy.ID,
		&task.CreatedBy.Name,
		&task.LastEditedBy.ID,
		&task.LastEditedBy.Name,
		&task.LastEditedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assigneeID != nil {
		ref := models.UserRef{ID: *assigneeID}
		if assigneeName != nil {
			ref.Name = *assigneeName
		}
		task.AssignedTo = &ref
	}
	return task, nil
}
