package domain

import "time"

// Task represents a single daily task owned by a user.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Task event types published after a successful write.
const (
	TaskCreated   = "task-created"
	TaskCompleted = "task-completed"
)

// TaskEvent is the envelope published for every task write.
type TaskEvent struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	EntityID string `json:"entityId"`
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	Time     int64  `json:"time"`
}
