package repository

import "errors"

// ErrNotFound is returned when the requested record does not exist.
// A repeated delete of the same id must surface this again, never a no-op.
var ErrNotFound = errors.New("record not found")

// ErrNoUsers is returned by the auto-assignment path when the user
// directory is empty and no assignee can be selected.
var ErrNoUsers = errors.New("no users available for assignment")
