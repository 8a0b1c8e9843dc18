// Package storage defines persistence contracts for task records.
package storage

import (
	"context"

	apperrors "github.com/louisbranch/tasks/internal/platform/errors"
)

// ErrNotFound indicates the referenced task id does not exist. It carries
// CodeNotFound, so errors.Is matches any not-found domain error.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "task not found")

// Task is one persisted task record.
type Task struct {
	ID          int64
	Description string
	Completed   bool
}

// TaskStore persists task records.
//
// UpdateTask and DeleteTask return ErrNotFound when no record has the id;
// other failures carry a platform error code.
type TaskStore interface {
	Initialize(ctx context.Context) error
	ListTasks(ctx context.Context) ([]Task, error)
	InsertTask(ctx context.Context, description string, completed bool) (int64, error)
	UpdateTask(ctx context.Context, id int64, description string, completed bool) error
	DeleteTask(ctx context.Context, id int64) error
}
