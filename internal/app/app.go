package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"taskBoard/internal/auth"
	"taskBoard/internal/broadcast"
	"taskBoard/internal/config"
	"taskBoard/internal/handlers"
	"taskBoard/internal/logger"
	"taskBoard/internal/middleware"
	"taskBoard/internal/migrations"
	"taskBoard/internal/service"

	taskinmemory "taskBoard/internal/repository/task/inmemory"
	taskpostgres "taskBoard/internal/repository/task/postgres"
	userinmemory "taskBoard/internal/repository/user/inmemory"
	userpostgres "taskBoard/internal/repository/user/postgres"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type App struct {
	config    *config.Config
	server    *http.Server
	router    *chi.Mux
	hub       *broadcast.Hub
	shutdowns []func()
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Shutting down logging...")
		logger.Sync()
	})

	var taskRepo service.TaskRepository
	var userRepo service.UserRepository
	var userDirectory auth.UserDirectory

	switch a.config.Repository.Type {
	case "postgres":
		if a.config.Database.Migrate {
			if err := migrations.Up(a.config.Database.URL); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}
			logger.Info("Migrations applied")
		}

		tasks, err := taskpostgres.New(ctx,
			a.config.Database.URL,
			a.config.Database.MaxConnections,
			a.config.Database.MinConnections,
			a.config.Database.IdleTimeout,
		)
		if err != nil {
			return fmt.Errorf("connecting task repository: %w", err)
		}
		a.shutdowns = append(a.shutdowns, tasks.Close)

		users := userpostgres.New(tasks.Pool())
		taskRepo, userRepo, userDirectory = tasks, users, users
	case "inmemory":
		users := userinmemory.NewUserStorage()
		tasks := taskinmemory.NewTaskStorage(users)
		taskRepo, userRepo, userDirectory = tasks, users, users
	default:
		return fmt.Errorf("unknown repository type %q", a.config.Repository.Type)
	}

	a.hub = broadcast.NewHub(
		a.config.Broadcast.SendBuffer,
		a.config.Broadcast.WriteTimeout,
		a.config.Broadcast.PingInterval,
	)

	taskService := service.NewTaskService(taskRepo, userRepo, a.hub)
	taskHandler := handlers.NewTaskHandler(&taskService)
	wsHandler := handlers.NewWSHandler(a.hub)

	a.router = newRouter(a.config, &taskHandler, &wsHandler, userDirectory)
	a.server = &http.Server{
		Addr:    a.config.ServerAddr(),
		Handler: a.router,
	}

	return nil
}

func newRouter(cfg *config.Config, taskHandler *handlers.TaskHandler, wsHandler *handlers.WSHandler, users auth.UserDirectory) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.RateLimit(300))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
	}))

	authenticate := auth.Middleware(cfg.Auth.Secret, users)

	r.Route("/api", func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/users", taskHandler.GetUsers) // GET /api/users

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.GetTasks)  // GET /api/tasks
			r.Post("/", taskHandler.PostTask) // POST /api/tasks

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.GetTaskByID)       // GET /api/tasks/{id}
				r.Put("/", taskHandler.UpdateTaskByID)    // PUT /api/tasks/{id}
				r.Delete("/", taskHandler.DeleteTaskByID) // DELETE /api/tasks/{id}
			})
		})
	})

	r.With(authenticate).Get("/ws", wsHandler.Subscribe)

	r.Get("/health", taskHandler.HealthCheck)

	return r
}

// Run starts the hub and the HTTP server and blocks until the context
// is cancelled, then drains both.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server started on " + a.config.ServerAddr())
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", err)
	}
	a.hub.Wait()

	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	return nil
}

// used by tests that need a handler without binding a port
func (a *App) Router() http.Handler {
	return a.router
}
