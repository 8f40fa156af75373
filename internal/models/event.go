package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type EventKind string

const EventTaskCreated EventKind = "task_created"
const EventTaskUpdated EventKind = "task_updated"
const EventTaskDeleted EventKind = "task_deleted"

// Event is the wire message fanned out to every connected board client.
// Created/Updated carry the full resolved task, Deleted carries only the id.
type Event struct {
	Kind    EventKind       `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

type DeletedPayload struct {
	ID uuid.UUID `json:"id"`
}

func NewTaskCreated(t *Task) (Event, error) {
	return taskEvent(EventTaskCreated, t)
}

func NewTaskUpdated(t *Task) (Event, error) {
	return taskEvent(EventTaskUpdated, t)
}

func NewTaskDeleted(id uuid.UUID) (Event, error) {
	payload, err := json.Marshal(DeletedPayload{ID: id})
	if err != nil {
		return Event{}, fmt.Errorf("marshal deleted payload: %w", err)
	}
	return Event{Kind: EventTaskDeleted, Payload: payload}, nil
}

func taskEvent(kind EventKind, t *Task) (Event, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return Event{}, fmt.Errorf("marshal task payload: %w", err)
	}
	return Event{Kind: kind, Payload: payload}, nil
}

// Task decodes the payload of a Created/Updated event.
func (e Event) Task() (*Task, error) {
	if e.Kind != EventTaskCreated && e.Kind != EventTaskUpdated {
		return nil, fmt.Errorf("event %s carries no task payload", e.Kind)
	}
	t := &Task{}
	if err := json.Unmarshal(e.Payload, t); err != nil {
		return nil, fmt.Errorf("decode task payload: %w", err)
	}
	return t, nil
}

// DeletedID decodes the payload of a Deleted event.
func (e Event) DeletedID() (uuid.UUID, error) {
	if e.Kind != EventTaskDeleted {
		return uuid.Nil, fmt.Errorf("event %s carries no deletion payload", e.Kind)
	}
	var p DeletedPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return uuid.Nil, fmt.Errorf("decode deleted payload: %w", err)
	}
	return p.ID, nil
}
