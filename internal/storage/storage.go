package storage

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"daily-app/internal/domain"
)

// Backend is implemented by every task store and decorator in this package.
type Backend interface {
	ListTasks(ctx context.Context, userID string) ([]domain.Task, error)
	AddTask(ctx context.Context, userID string, task domain.Task) (domain.Task, error)
	CompleteTask(ctx context.Context, userID, id string) error
}

var retryStatusCodes = []int{408, 429, 500, 502, 503, 504}

// NewTableClient creates a retrying client for the named table.
func NewTableClient(connStr, tableName string) (*aztables.Client, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return svc.NewClient(tableName), nil
}

// NewQueueFromConnectionString creates the queue client used by Events.
func NewQueueFromConnectionString(connStr, queueName string) (*azqueue.QueueClient, error) {
	opts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	return azqueue.NewQueueClientFromConnectionString(connStr, queueName, &opts)
}
