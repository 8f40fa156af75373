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

type Storage struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Repository: users ping failed", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Storage) Create(ctx context.Context, userToCreate *models.User) error {
	start := time.Now()

	query := `INSERT INTO users (id, name, email)
				VALUES ($1, $2, $3)
				RETURNING created_at`

	err := s.pool.QueryRow(ctx, query,
		userToCreate.ID,
		userToCreate.Name,
		userToCreate.Email,
	).Scan(&userToCreate.CreatedAt)

	if err != nil {
		logger.Error("Repository: failed to insert user", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("inserting user: %w", err)
	}

	if time.Since(start) > time.Millisecond*50 {
		logger.Warn("Repository: slow query", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	start := time.Now()

	query := `SELECT id, name, email, created_at
				FROM users
				WHERE id = $1`

	user := &models.User{}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to fetch user", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("fetching user: %w", err)
	}

	return user, nil
}

// ListAll returns the full directory in enumeration order (creation
// order), the same order the assignment tie-break relies on.
func (s *Storage) ListAll(ctx context.Context) ([]*models.User, error) {
	start := time.Now()

	query := `SELECT id, name, email, created_at
				FROM users
				ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		logger.Error("Repository: failed to fetch users", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("fetching users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt); err != nil {
			logger.Warn("Repository: user scan failed", zap.Error(err))
			continue
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: row iteration failed", err)
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: slow query", zap.Duration("ms", time.Since(start)))
	}

	return users, nil
}
