package dto

import (
	"time"

	"taskBoard/internal/models"

	"github.com/google/uuid"
)

type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	// empty string means unassigned and triggers auto-assignment
	AssignedTo string `json:"assigned_to"`
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	AssignedTo  *string    `json:"assigned_to,omitempty"`
}

type UserResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func FromUser(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name}
}

func FromUserList(users []*models.User) []UserResponse {
	res := make([]UserResponse, len(users))
	for i, u := range users {
		res[i] = FromUser(u)
	}
	return res
}
