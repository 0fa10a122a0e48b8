package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// ImportReservationsTask is scheduled each time a spreadsheet is uploaded.
	ImportReservationsTask = "reservations:import"
)

// ImportPayload is serialized into the task payload so the worker knows which
// upload to process and which task record to drive.
type ImportPayload struct {
	TaskID   string `json:"task_id"`
	FilePath string `json:"file_path"`
}

// EnqueueImport enqueues a reservation import job. maxRetries bounds
// redelivery for infrastructure failures only; validation failures are
// terminal and never retried.
func EnqueueImport(ctx context.Context, client *asynq.Client, payload ImportPayload, maxRetries int) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(ImportReservationsTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(maxRetries)); err != nil {
		return fmt.Errorf("enqueue import task: %w", err)
	}
	return nil
}
