package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pkruk/stayimport/internal/model"
)

// ErrTaskNotFound is returned when a task id has no record.
var ErrTaskNotFound = errors.New("task not found")

// TaskRepository wraps all task SQL used by the API and the worker.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository constructs a repository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// Create inserts a pending task before the import job is enqueued.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	now := time.Now().UTC()
	task.Status = model.TaskPending
	task.CreatedAt = now
	task.UpdatedAt = now
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tasks (task_id, file_path, status, report_path, fail_reason, created_at, updated_at)
		VALUES ($1,$2,$3,NULL,NULL,$4,$5)
	`, task.TaskID, task.FilePath, task.Status, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// Get returns a task by id.
func (r *TaskRepository) Get(ctx context.Context, taskID string) (*model.Task, error) {
	var task model.Task
	row := r.pool.QueryRow(ctx, `
		SELECT task_id, file_path, status, report_path, fail_reason, created_at, updated_at
		FROM tasks WHERE task_id=$1
	`, taskID)
	if err := row.Scan(&task.TaskID, &task.FilePath, &task.Status, &task.ReportPath, &task.FailReason, &task.CreatedAt, &task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("select task: %w", err)
	}
	return &task, nil
}

// MarkInProgress sets the status to IN_PROGRESS.
func (r *TaskRepository) MarkInProgress(ctx context.Context, taskID string) error {
	return r.updateStatus(ctx, taskID, model.TaskInProgress, nil, nil)
}

// MarkCompleted finalizes a successful import.
func (r *TaskRepository) MarkCompleted(ctx context.Context, taskID string) error {
	return r.updateStatus(ctx, taskID, model.TaskCompleted, nil, nil)
}

// MarkFailed finalizes a structurally failed import; no report exists.
func (r *TaskRepository) MarkFailed(ctx context.Context, taskID, reason string) error {
	return r.updateStatus(ctx, taskID, model.TaskFailed, nil, &reason)
}

// MarkValidationFailed finalizes an import rejected by row validation and
// records where the error report lives.
func (r *TaskRepository) MarkValidationFailed(ctx context.Context, taskID, reason, reportPath string) error {
	return r.updateStatus(ctx, taskID, model.TaskFailed, &reportPath, &reason)
}

// updateStatus applies a forward-only transition. Terminal rows are excluded
// in the predicate so a redelivered job can never revive a finished task.
func (r *TaskRepository) updateStatus(ctx context.Context, taskID string, status model.TaskStatus, reportPath, failReason *string) error {
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET status=$1,
			report_path = COALESCE($2, report_path),
			fail_reason = COALESCE($3, fail_reason),
			updated_at=$4
		WHERE task_id=$5 AND status NOT IN ($6,$7)
	`, status, reportPath, failReason, now, taskID, model.TaskCompleted, model.TaskFailed)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}
