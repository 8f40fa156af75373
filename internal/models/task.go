package models

import (
	"time"

	"github.com/google/uuid"
)

type Status string
type Priority string

const StatusTodo Status = "Todo"
const StatusInProgress Status = "In Progress"
const StatusDone Status = "Done"

const PriorityLow Priority = "Low"
const PriorityMedium Priority = "Medium"
const PriorityHigh Priority = "High"

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// UserRef is a display summary of a user, resolved at read time.
// Tasks persist only the user id; the name is joined on every read, so a
// renamed user shows up correctly in previously created tasks.
type UserRef struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
}

type Task struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Title        string     `json:"title" db:"title"`
	Description  string     `json:"description" db:"description"`
	Status       Status     `json:"status" db:"status"`
	Priority     Priority   `json:"priority" db:"priority"`
	DueDate      *time.Time `json:"due_date,omitempty" db:"due_date"`
	AssignedTo   *UserRef   `json:"assigned_to,omitempty" db:"assigned_to"`
	CreatedBy    UserRef    `json:"created_by" db:"created_by"`
	LastEditedBy UserRef    `json:"last_edited_by" db:"last_edited_by"`
	LastEditedAt *time.Time `json:"last_edited_at,omitempty" db:"last_edited_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}
