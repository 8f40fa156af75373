package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"taskBoard/internal/auth"
	"taskBoard/internal/handlers/dto"
	"taskBoard/internal/logger"
	"taskBoard/internal/models"
	"taskBoard/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskHandler struct {
	TaskService Service
}

func NewTaskHandler(taskService Service) TaskHandler {
	return TaskHandler{
		TaskService: taskService,
	}
}

func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	tasks, err := h.TaskService.ListTasks(r.Context())
	if err != nil {
		handleBusinessError(w, err)
		return
	}

	logger.Info("HTTP_OUT: tasks fetched",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, tasks)
}

func (h *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	actor, ok := auth.ActingUser(r.Context())
	if !ok {
		responseWithError(w, http.StatusUnauthorized, "no acting user")
		return
	}

	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: wrong content type",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var request dto.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: failed to read JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	in := service.CreateTaskInput{
		Title:       request.Title,
		Description: request.Description,
		Status:      models.Status(request.Status),
		Priority:    models.Priority(request.Priority),
		DueDate:     request.DueDate,
	}

	// a blank assignee means "pick one for me"
	if request.AssignedTo != "" {
		assignee, err := uuid.Parse(request.AssignedTo)
		if err != nil {
			logger.Warn("HTTP: invalid assignee id",
				zap.Error(err),
				zap.String("client_ip", r.RemoteAddr))
			responseWithError(w, http.StatusBadRequest, "invalid assigned_to: "+err.Error())
			return
		}
		in.AssignedTo = &assignee
	}

	task, err := h.TaskService.CreateTask(r.Context(), actor, in)
	if err != nil {
		handleBusinessError(w, err)
		return
	}

	logger.Info("HTTP_OUT: task created",
		zap.String("task_id", task.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithBody(w, http.StatusCreated, task)
}

func (h *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	task, err := h.TaskService.GetTaskByID(r.Context(), id)
	if err != nil {
		handleBusinessError(w, err)
		return
	}

	logger.Info("HTTP_OUT: task fetched",
		zap.String("task_id", task.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, task)
}

func (h *TaskHandler) UpdateTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	actor, ok := auth.ActingUser(r.Context())
	if !ok {
		responseWithError(w, http.StatusUnauthorized, "no acting user")
		return
	}

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var request dto.UpdateTaskRequest
	decoder := json.NewDecoder(r.Body)
	defer r.Body.Close()

	if err := decoder.Decode(&request); err != nil {
		logger.Warn("HTTP: failed to read JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "invalid update parameters: "+err.Error())
		return
	}

	in := service.UpdateTaskInput{
		Title:       request.Title,
		Description: request.Description,
		DueDate:     request.DueDate,
	}
	if request.Status != nil {
		status := models.Status(*request.Status)
		in.Status = &status
	}
	if request.Priority != nil {
		priority := models.Priority(*request.Priority)
		in.Priority = &priority
	}
	if request.AssignedTo != nil {
		assignee, err := uuid.Parse(*request.AssignedTo)
		if err != nil {
			logger.Warn("HTTP: invalid assignee id",
				zap.Error(err),
				zap.String("client_ip", r.RemoteAddr))
			responseWithError(w, http.StatusBadRequest, "invalid assigned_to: "+err.Error())
			return
		}
		in.AssignedTo = &assignee
	}

	task, err := h.TaskService.UpdateTask(r.Context(), actor, id, in)
	if err != nil {
		handleBusinessError(w, err)
		return
	}

	logger.Info("HTTP_OUT: task updated",
		zap.String("task_id", task.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, task)
}

func (h *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	if err := h.TaskService.DeleteTask(r.Context(), id); err != nil {
		handleBusinessError(w, err)
		return
	}

	logger.Info("HTTP_OUT: task deleted",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("message", "task deleted"))
}

func (h *TaskHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	users, err := h.TaskService.ListUsers(r.Context())
	if err != nil {
		handleBusinessError(w, err)
		return
	}

	logger.Info("HTTP_OUT: users fetched",
		zap.Int("count", len(users)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromUserList(users))
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: health check")

	if err := h.TaskService.HealthCheck(r.Context()); err != nil {
		responseWithJSON(w, http.StatusServiceUnavailable, toPayload("status", "unhealthy"))
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("status", "ok"))
}

func taskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		logger.Warn("HTTP: failed to parse id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "failed to parse id: "+err.Error())
		return uuid.Nil, false
	}

	if id == uuid.Nil {
		logger.Warn("HTTP: invalid id value",
			zap.String("error", "nil id"),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "id must not be empty")
		return uuid.Nil, false
	}
	return id, true
}
