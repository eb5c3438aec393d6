package storage

import (
	"context"
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"
)

const queueAlreadyExists = "QueueAlreadyExists"

type tableCreator interface {
	CreateTable(ctx context.Context, options *aztables.CreateTableOptions) (aztables.CreateTableResponse, error)
}

type queueCreator interface {
	Create(ctx context.Context, options *azqueue.CreateOptions) (azqueue.CreateResponse, error)
}

// EnsureTable creates the table unless it already exists.
func EnsureTable(ctx context.Context, table tableCreator) error {
	_, err := table.CreateTable(ctx, nil)
	if err == nil {
		log.Debug("tasks table created")
		return nil
	}
	if hasErrorCode(err, string(aztables.TableAlreadyExists)) {
		return nil
	}
	return err
}

// EnsureQueue creates the queue unless it already exists.
func EnsureQueue(ctx context.Context, queue queueCreator) error {
	_, err := queue.Create(ctx, nil)
	if err == nil {
		log.Debug("events queue created")
		return nil
	}
	if hasErrorCode(err, queueAlreadyExists) {
		return nil
	}
	return err
}

func hasErrorCode(err error, code string) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.ErrorCode == code
}
