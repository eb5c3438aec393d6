package api

import (
	"context"

	"daily-app/internal/domain"
)

// Storage abstracts task persistence for handlers.
type Storage interface {
	ListTasks(ctx context.Context, userID string) ([]domain.Task, error)
	AddTask(ctx context.Context, userID string, task domain.Task) (domain.Task, error)
	CompleteTask(ctx context.Context, userID, id string) error
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper prevents a save from being processed twice.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when the save fails.
	Remove(ctx context.Context, userID, key string) error
}

type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

type saveRequest struct {
	Title string `json:"title"`
}

type duplicateResponse struct {
	Duplicate bool `json:"duplicate"`
}
