package storage

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"daily-app/internal/domain"
)

type queueClient interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// Events publishes a domain.TaskEvent to a queue after every successful write.
// Publish failures are logged and never fail the write.
type Events struct {
	base   Backend
	queue  queueClient
	logger *log.Logger
	now    func() time.Time
}

// NewEvents wraps base so writes are announced on queue.
func NewEvents(base Backend, queue queueClient, logger *log.Logger) *Events {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Events{base: base, queue: queue, logger: logger, now: time.Now}
}

func (e *Events) ListTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	return e.base.ListTasks(ctx, userID)
}

func (e *Events) AddTask(ctx context.Context, userID string, task domain.Task) (domain.Task, error) {
	created, err := e.base.AddTask(ctx, userID, task)
	if err != nil {
		return domain.Task{}, err
	}
	e.publish(ctx, domain.TaskEvent{UserID: userID, EntityID: created.ID, Type: domain.TaskCreated, Title: created.Title})
	return created, nil
}

func (e *Events) CompleteTask(ctx context.Context, userID, id string) error {
	if err := e.base.CompleteTask(ctx, userID, id); err != nil {
		return err
	}
	e.publish(ctx, domain.TaskEvent{UserID: userID, EntityID: id, Type: domain.TaskCompleted})
	return nil
}

func (e *Events) publish(ctx context.Context, ev domain.TaskEvent) {
	if e.queue == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.Time = e.now().UnixNano()
	data, err := sonic.Marshal(ev)
	if err != nil {
		e.logger.Errorf("marshal task event: %v", err)
		return
	}
	if _, err := e.queue.EnqueueMessage(ctx, string(data), nil); err != nil {
		e.logger.WithFields(log.Fields{
			"type":   ev.Type,
			"task":   ev.EntityID,
			"user":   ev.UserID,
			"reason": err.Error(),
		}).Error("task event enqueue failed")
	}
}
