package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"daily-app/internal/domain"
)

type stubBackend struct {
	listTasksFn    func(ctx context.Context, userID string) ([]domain.Task, error)
	addTaskFn      func(ctx context.Context, userID string, task domain.Task) (domain.Task, error)
	completeTaskFn func(ctx context.Context, userID, id string) error
}

func (s *stubBackend) ListTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	if s.listTasksFn == nil {
		return nil, errors.New("unexpected ListTasks call")
	}
	return s.listTasksFn(ctx, userID)
}

func (s *stubBackend) AddTask(ctx context.Context, userID string, task domain.Task) (domain.Task, error) {
	if s.addTaskFn == nil {
		return domain.Task{}, errors.New("unexpected AddTask call")
	}
	return s.addTaskFn(ctx, userID, task)
}

func (s *stubBackend) CompleteTask(ctx context.Context, userID, id string) error {
	if s.completeTaskFn == nil {
		return errors.New("unexpected CompleteTask call")
	}
	return s.completeTaskFn(ctx, userID, id)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheListTasksMissThenHit(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	userID := "user-1"
	expected := []domain.Task{{ID: "t1", Title: "Buy milk", CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}}

	var calls int
	cache := NewCache(&stubBackend{
		listTasksFn: func(ctx context.Context, uid string) ([]domain.Task, error) {
			calls++
			if uid != userID {
				t.Fatalf("unexpected user id: %s", uid)
			}
			return append([]domain.Task(nil), expected...), nil
		},
	}, client, time.Minute)

	tasks, err := cache.ListTasks(ctx, userID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if !reflect.DeepEqual(tasks, expected) {
		t.Fatalf("unexpected tasks: %#v", tasks)
	}
	if ttl := mr.TTL(tasksCacheKey(userID)); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	cached, err := cache.ListTasks(ctx, userID)
	if err != nil {
		t.Fatalf("list cached tasks: %v", err)
	}
	if len(cached) != 1 || cached[0].ID != "t1" || !cached[0].CreatedAt.Equal(expected[0].CreatedAt) {
		t.Fatalf("unexpected cached tasks: %#v", cached)
	}
	if calls != 1 {
		t.Fatalf("expected cached list to avoid backend, calls=%d", calls)
	}
}

func TestCacheWritesEvictTasks(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	cache := NewCache(&stubBackend{
		addTaskFn: func(ctx context.Context, userID string, task domain.Task) (domain.Task, error) {
			return domain.Task{ID: "new", Title: task.Title}, nil
		},
		completeTaskFn: func(ctx context.Context, userID, id string) error { return nil },
	}, client, time.Minute)

	if err := mr.Set(tasksCacheKey("u"), "[]"); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	if _, err := cache.AddTask(ctx, "u", domain.Task{Title: "x"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if mr.Exists(tasksCacheKey("u")) {
		t.Fatalf("expected add to evict cached tasks")
	}

	if err := mr.Set(tasksCacheKey("u"), "[]"); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	if err := cache.CompleteTask(ctx, "u", "new"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if mr.Exists(tasksCacheKey("u")) {
		t.Fatalf("expected complete to evict cached tasks")
	}
}

func TestCacheKeepsEntryWhenWriteFails(t *testing.T) {
	mr, client := newTestRedis(t)
	boom := errors.New("boom")
	cache := NewCache(&stubBackend{
		completeTaskFn: func(ctx context.Context, userID, id string) error { return boom },
	}, client, time.Minute)

	if err := mr.Set(tasksCacheKey("u"), "[]"); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	if err := cache.CompleteTask(context.Background(), "u", "t"); !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if !mr.Exists(tasksCacheKey("u")) {
		t.Fatalf("expected failed write to leave cache untouched")
	}
}

func TestCacheCorruptEntryFallsBack(t *testing.T) {
	mr, client := newTestRedis(t)
	var calls int
	cache := NewCache(&stubBackend{
		listTasksFn: func(ctx context.Context, userID string) ([]domain.Task, error) {
			calls++
			return []domain.Task{{ID: "fresh"}}, nil
		},
	}, client, time.Minute)

	if err := mr.Set(tasksCacheKey("u"), "{not json"); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	tasks, err := cache.ListTasks(context.Background(), "u")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if calls != 1 || len(tasks) != 1 || tasks[0].ID != "fresh" {
		t.Fatalf("expected backend fallback, calls=%d tasks=%#v", calls, tasks)
	}
}

func TestCacheWithoutRedisPassesThrough(t *testing.T) {
	var calls int
	cache := NewCache(&stubBackend{
		listTasksFn: func(ctx context.Context, userID string) ([]domain.Task, error) {
			calls++
			return nil, nil
		},
	}, nil, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cache.ListTasks(context.Background(), "u"); err != nil {
			t.Fatalf("list: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected every call to reach the backend, got %d", calls)
	}
}
