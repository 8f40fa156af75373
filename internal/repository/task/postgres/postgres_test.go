package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"taskBoard/internal/migrations"
	"taskBoard/internal/models"
	repo "taskBoard/internal/repository"
	"taskBoard/internal/repository/task/postgres"
	userpostgres "taskBoard/internal/repository/user/postgres"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresTestSuite runs the task storage against a real PostgreSQL
type PostgresTestSuite struct {
	suite.Suite
	container testcontainers.Container
	storage   *postgres.Storage
	users     *userpostgres.Storage
	ctx       context.Context
}

func (s *PostgresTestSuite) SetupSuite() {
	s.ctx = context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(s.ctx)
	require.NoError(s.T(), err)

	port, err := container.MappedPort(s.ctx, "5432")
	require.NoError(s.T(), err)

	connString := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	require.NoError(s.T(), migrations.Up(connString))

	s.storage, err = postgres.New(s.ctx, connString, 10, 2, time.Minute)
	require.NoError(s.T(), err)

	s.users = userpostgres.New(s.storage.Pool())
}

func (s *PostgresTestSuite) TearDownSuite() {
	if s.storage != nil {
		s.storage.Close()
	}
	if s.container != nil {
		s.container.Terminate(s.ctx)
	}
}

// SetupTest wipes both tables so every test starts from an empty board
func (s *PostgresTestSuite) SetupTest() {
	_, err := s.storage.Pool().Exec(s.ctx, "DELETE FROM tasks")
	require.NoError(s.T(), err)
	_, err = s.storage.Pool().Exec(s.ctx, "DELETE FROM users")
	require.NoError(s.T(), err)
}

func (s *PostgresTestSuite) createUser(name string) *models.User {
	user := &models.User{ID: uuid.New(), Name: name, Email: name + "@example.com"}
	require.NoError(s.T(), s.users.Create(s.ctx, user))
	return user
}

func (s *PostgresTestSuite) newTask(title string, creator *models.User) *models.Task {
	return &models.Task{
		ID:           uuid.New(),
		Title:        title,
		Status:       models.StatusTodo,
		Priority:     models.PriorityMedium,
		CreatedBy:    creator.Ref(),
		LastEditedBy: creator.Ref(),
	}
}

func TestPostgresTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	suite.Run(t, new(PostgresTestSuite))
}

func (s *PostgresTestSuite) TestStorage_Create() {
	ctx := context.Background()
	creator := s.createUser("alice")
	assignee := s.createUser("bob")

	taskToCreate := s.newTask("Test Task", creator)
	taskToCreate.Description = "Test Description"
	ref := assignee.Ref()
	taskToCreate.AssignedTo = &ref

	err := s.storage.Create(ctx, taskToCreate)
	require.NoError(s.T(), err)
	assert.False(s.T(), taskToCreate.CreatedAt.IsZero())

	retrieved, err := s.storage.GetByID(ctx, taskToCreate.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Test Task", retrieved.Title)
	assert.Equal(s.T(), models.StatusTodo, retrieved.Status)
	require.NotNil(s.T(), retrieved.AssignedTo)
	assert.Equal(s.T(), "bob", retrieved.AssignedTo.Name, "reads resolve the assignee name via join")
	assert.Equal(s.T(), "alice", retrieved.CreatedBy.Name)
}

func (s *PostgresTestSuite) TestStorage_GetByID_NotFound() {
	_, err := s.storage.GetByID(context.Background(), uuid.New())
	require.ErrorIs(s.T(), err, repo.ErrNotFound)
}

func (s *PostgresTestSuite) TestStorage_CreateAutoAssigned_PicksLeastLoaded() {
	ctx := context.Background()
	alice := s.createUser("alice")
	bob := s.createUser("bob")

	// bob already carries two tasks, one of them Done: workload counts
	// every task regardless of status
	for _, status := range []models.Status{models.StatusTodo, models.StatusDone} {
		seeded := s.newTask("seed", alice)
		seeded.Status = status
		ref := bob.Ref()
		seeded.AssignedTo = &ref
		require.NoError(s.T(), s.storage.Create(ctx, seeded))
	}

	taskToCreate := s.newTask("fresh", alice)
	require.NoError(s.T(), s.storage.CreateAutoAssigned(ctx, taskToCreate))

	require.NotNil(s.T(), taskToCreate.AssignedTo)
	assert.Equal(s.T(), alice.ID, taskToCreate.AssignedTo.ID)
	assert.Equal(s.T(), "alice", taskToCreate.AssignedTo.Name)
}

func (s *PostgresTestSuite) TestStorage_CreateAutoAssigned_EmptyDirectory() {
	ctx := context.Background()

	taskToCreate := s.newTask("orphan", &models.User{ID: uuid.New(), Name: "ghost"})
	err := s.storage.CreateAutoAssigned(ctx, taskToCreate)
	require.ErrorIs(s.T(), err, repo.ErrNoUsers)

	tasks, err := s.storage.GetAll(ctx)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), tasks, "a rejected creation leaves no record behind")
}

func (s *PostgresTestSuite) TestStorage_CreateAutoAssigned_ConcurrentCreationsBalance() {
	ctx := context.Background()
	alice := s.createUser("alice")
	bob := s.createUser("bob")

	const n = 10
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			taskToCreate := s.newTask("load", alice)
			assert.NoError(s.T(), s.storage.CreateAutoAssigned(ctx, taskToCreate))
		}()
	}
	wg.Wait()

	tasks, err := s.storage.GetAll(ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), tasks, n)

	counts := map[uuid.UUID]int{}
	for _, task := range tasks {
		require.NotNil(s.T(), task.AssignedTo)
		counts[task.AssignedTo.ID]++
	}
	assert.Equal(s.T(), n/2, counts[alice.ID], "the advisory lock serializes selection, so load splits evenly")
	assert.Equal(s.T(), n/2, counts[bob.ID])
}

func (s *PostgresTestSuite) TestStorage_Update_PatchTouchesOnlyProvidedFields() {
	ctx := context.Background()
	alice := s.createUser("alice")
	bob := s.createUser("bob")

	taskToCreate := s.newTask("Original Title", alice)
	taskToCreate.Description = "Original Description"
	ref := alice.Ref()
	taskToCreate.AssignedTo = &ref
	require.NoError(s.T(), s.storage.Create(ctx, taskToCreate))

	status := models.StatusInProgress
	updated, err := s.storage.Update(ctx, taskToCreate.ID, repo.TaskPatch{
		Status:       &status,
		LastEditedBy: bob.ID,
		LastEditedAt: time.Now(),
	})
	require.NoError(s.T(), err)

	assert.Equal(s.T(), models.StatusInProgress, updated.Status)
	assert.Equal(s.T(), "Original Title", updated.Title)
	assert.Equal(s.T(), "Original Description", updated.Description)
	assert.Equal(s.T(), bob.ID, updated.LastEditedBy.ID)
	assert.Equal(s.T(), "bob", updated.LastEditedBy.Name)
	assert.Equal(s.T(), alice.ID, updated.CreatedBy.ID)
	require.NotNil(s.T(), updated.UpdatedAt)
	require.NotNil(s.T(), updated.LastEditedAt)
}

func (s *PostgresTestSuite) TestStorage_Update_LastWriterWinsPerField() {
	ctx := context.Background()
	alice := s.createUser("alice")
	bob := s.createUser("bob")

	taskToCreate := s.newTask("Shared", alice)
	ref := alice.Ref()
	taskToCreate.AssignedTo = &ref
	require.NoError(s.T(), s.storage.Create(ctx, taskToCreate))

	// alice writes the title, bob writes the status; neither patch
	// clobbers the other's field
	title := "Renamed by alice"
	_, err := s.storage.Update(ctx, taskToCreate.ID, repo.TaskPatch{
		Title:        &title,
		LastEditedBy: alice.ID,
		LastEditedAt: time.Now(),
	})
	require.NoError(s.T(), err)

	status := models.StatusDone
	final, err := s.storage.Update(ctx, taskToCreate.ID, repo.TaskPatch{
		Status:       &status,
		LastEditedBy: bob.ID,
		LastEditedAt: time.Now(),
	})
	require.NoError(s.T(), err)

	assert.Equal(s.T(), "Renamed by alice", final.Title)
	assert.Equal(s.T(), models.StatusDone, final.Status)
	assert.Equal(s.T(), bob.ID, final.LastEditedBy.ID)
}

func (s *PostgresTestSuite) TestStorage_Update_NotFound() {
	_, err := s.storage.Update(context.Background(), uuid.New(), repo.TaskPatch{
		LastEditedBy: uuid.New(),
		LastEditedAt: time.Now(),
	})
	require.ErrorIs(s.T(), err, repo.ErrNotFound)
}

func (s *PostgresTestSuite) TestStorage_Delete() {
	ctx := context.Background()
	alice := s.createUser("alice")

	taskToCreate := s.newTask("Task to delete", alice)
	ref := alice.Ref()
	taskToCreate.AssignedTo = &ref
	require.NoError(s.T(), s.storage.Create(ctx, taskToCreate))

	require.NoError(s.T(), s.storage.Delete(ctx, taskToCreate.ID))

	_, err := s.storage.GetByID(ctx, taskToCreate.ID)
	require.ErrorIs(s.T(), err, repo.ErrNotFound)

	// the second delete reports not found instead of succeeding silently
	err = s.storage.Delete(ctx, taskToCreate.ID)
	require.ErrorIs(s.T(), err, repo.ErrNotFound)
}

func (s *PostgresTestSuite) TestStorage_GetAll_NewestFirst() {
	ctx := context.Background()
	alice := s.createUser("alice")

	for i := 1; i <= 3; i++ {
		taskToCreate := s.newTask(fmt.Sprintf("Task %d", i), alice)
		ref := alice.Ref()
		taskToCreate.AssignedTo = &ref
		require.NoError(s.T(), s.storage.Create(ctx, taskToCreate))
		time.Sleep(10 * time.Millisecond)
	}

	tasks, err := s.storage.GetAll(ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), tasks, 3)
	assert.Equal(s.T(), "Task 3", tasks[0].Title)
	assert.Equal(s.T(), "Task 1", tasks[2].Title)
}

func (s *PostgresTestSuite) TestStorage_UnassignedTaskReadsBack() {
	ctx := context.Background()
	alice := s.createUser("alice")

	taskToCreate := s.newTask("No assignee", alice)
	require.NoError(s.T(), s.storage.Create(ctx, taskToCreate))

	retrieved, err := s.storage.GetByID(ctx, taskToCreate.ID)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), retrieved.AssignedTo)
	assert.Equal(s.T(), "alice", retrieved.CreatedBy.Name)
}

func (s *PostgresTestSuite) TestUsers_ListAllInDirectoryOrder() {
	first := s.createUser("first")
	second := s.createUser("second")

	users, err := s.users.ListAll(s.ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), users, 2)
	assert.Equal(s.T(), first.ID, users[0].ID)
	assert.Equal(s.T(), second.ID, users[1].ID)
}

func (s *PostgresTestSuite) TestStorage_HealthCheck() {
	require.NoError(s.T(), s.storage.HealthCheck(context.Background()))
}

// unit tests, no database

func TestStorage_New_InvalidConnString(t *testing.T) {
	tests := []struct {
		name       string
		connString string
	}{
		{name: "invalid connection string", connString: "invalid"},
		{name: "unreachable host", connString: "postgres://u:p@127.0.0.1:1/none?connect_timeout=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_, err := postgres.New(ctx, tt.connString, 4, 1, time.Minute)
			assert.Error(t, err)
		})
	}
}
