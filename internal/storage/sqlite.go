package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"daily-app/internal/domain"
)

//go:embed migrations/*.up.sql
var migrations embed.FS

// SQLite stores tasks in a local SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	// modernc.org/sqlite registers the "sqlite" driver name.
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single writer keeps SQLite from returning SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	names, err := fs.Glob(migrations, "migrations/*.up.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		stmt, err := migrations.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, string(stmt)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

const taskColumns = `id, title, completed, created_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (domain.Task, error) {
	var (
		t         domain.Task
		created   int64
		completed sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Completed, &created, &completed); err != nil {
		return domain.Task{}, err
	}
	t.CreatedAt = time.Unix(0, created).UTC()
	if completed.Valid {
		at := time.Unix(0, completed.Int64).UTC()
		t.CompletedAt = &at
	}
	return t, nil
}

// ListTasks returns open tasks for the user, newest first. Completed tasks
// stay in the table but are never listed.
func (s *SQLite) ListTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM daily_task
		WHERE user_id = ? AND completed = 0
		ORDER BY created_at DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// AddTask inserts a new open task and returns it with its generated ID.
func (s *SQLite) AddTask(ctx context.Context, userID string, task domain.Task) (domain.Task, error) {
	title, err := domain.NormalizeTitle(task.Title)
	if err != nil {
		return domain.Task{}, err
	}

	created := domain.Task{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: s.now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO daily_task (id, user_id, title, completed, created_at)
		VALUES (?, ?, ?, 0, ?)
	`, created.ID, userID, created.Title, created.CreatedAt.UnixNano())
	if err != nil {
		return domain.Task{}, err
	}
	return created, nil
}

// CompleteTask marks an open task completed. Unknown or already completed
// tasks yield domain.ErrTaskNotFound.
func (s *SQLite) CompleteTask(ctx context.Context, userID, id string) error {
	if id == "" {
		return domain.ErrTaskNotFound
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE daily_task
		SET completed = 1, completed_at = ?
		WHERE id = ? AND user_id = ? AND completed = 0
	`, s.now().UTC().UnixNano(), id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}
