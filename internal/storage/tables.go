package storage

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"daily-app/internal/domain"
)

type tableClient interface {
	AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
	NewListEntitiesPager(options *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
}

// Tables stores tasks in Azure Table Storage, partitioned by user.
type Tables struct {
	table tableClient
	now   func() time.Time
}

// NewTables wraps an existing table client.
func NewTables(table tableClient) *Tables {
	return &Tables{table: table, now: time.Now}
}

type taskEntity struct {
	aztables.Entity
	Title       string `json:"Title"`
	Completed   bool   `json:"Completed"`
	CreatedAt   string `json:"CreatedAt"`
	CompletedAt string `json:"CompletedAt,omitempty"`
}

func decodeTaskEntity(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	t := domain.Task{ID: ent.RowKey, Title: ent.Title, Completed: ent.Completed}
	if ent.CreatedAt != "" {
		created, err := time.Parse(time.RFC3339Nano, ent.CreatedAt)
		if err != nil {
			return domain.Task{}, err
		}
		t.CreatedAt = created
	}
	if ent.CompletedAt != "" {
		completed, err := time.Parse(time.RFC3339Nano, ent.CompletedAt)
		if err != nil {
			return domain.Task{}, err
		}
		t.CompletedAt = &completed
	}
	return t, nil
}

// odataString quotes a value for an OData filter expression.
func odataString(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// ListTasks returns open tasks for the user, newest first.
func (s *Tables) ListTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	filter := "PartitionKey eq " + odataString(userID) + " and Completed eq false"
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			t, err := decodeTaskEntity(e)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })
	return tasks, nil
}

// AddTask inserts a new open task entity.
func (s *Tables) AddTask(ctx context.Context, userID string, task domain.Task) (domain.Task, error) {
	title, err := domain.NormalizeTitle(task.Title)
	if err != nil {
		return domain.Task{}, err
	}
	created := domain.Task{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: s.now().UTC(),
	}
	ent := map[string]any{
		"PartitionKey": userID,
		"RowKey":       created.ID,
		"Title":        created.Title,
		"Completed":    false,
		"CreatedAt":    created.CreatedAt.Format(time.RFC3339Nano),
	}
	data, err := sonic.Marshal(ent)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := s.table.AddEntity(ctx, data, nil); err != nil {
		return domain.Task{}, err
	}
	return created, nil
}

// CompleteTask merges Completed=true into an open task entity.
func (s *Tables) CompleteTask(ctx context.Context, userID, id string) error {
	if id == "" {
		return domain.ErrTaskNotFound
	}
	resp, err := s.table.GetEntity(ctx, userID, id, nil)
	if err != nil {
		if isNotFound(err) {
			return domain.ErrTaskNotFound
		}
		return err
	}
	current, err := decodeTaskEntity(resp.Value)
	if err != nil {
		return err
	}
	if current.Completed {
		return domain.ErrTaskNotFound
	}

	patch, err := sonic.Marshal(map[string]any{
		"PartitionKey": userID,
		"RowKey":       id,
		"Completed":    true,
		"CompletedAt":  s.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	etag := resp.ETag
	_, err = s.table.UpdateEntity(ctx, patch, &aztables.UpdateEntityOptions{
		IfMatch:    &etag,
		UpdateMode: aztables.UpdateModeMerge,
	})
	if isNotFound(err) {
		return domain.ErrTaskNotFound
	}
	return err
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
