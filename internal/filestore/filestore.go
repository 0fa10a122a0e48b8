// Package filestore persists the two file artifacts of the pipeline: the
// uploaded workbook and the per-task error report. Two backends exist, local
// disk (the default) and MinIO/S3 object storage.
package filestore

import (
	"context"
	"errors"
	"io"
)

// ErrReportNotFound is returned when a task has no report artifact, either
// because it is still running, it succeeded, or it failed for a
// non-validation reason.
var ErrReportNotFound = errors.New("report not found")

// Store is the artifact storage used by the API (save upload, read report)
// and the worker (read/delete upload, write report).
type Store interface {
	// SaveUpload stores workbook bytes for the task and returns the stored
	// location (disk path or object key).
	SaveUpload(ctx context.Context, taskID string, r io.Reader, size int64) (string, error)
	// ReadUpload loads the workbook bytes back by stored location.
	ReadUpload(ctx context.Context, path string) ([]byte, error)
	// DeleteUpload removes the workbook; the worker calls it once the task
	// reaches a terminal state.
	DeleteUpload(ctx context.Context, path string) error
	// WriteReport persists the ordered report lines and returns the artifact
	// location. Line order is preserved exactly.
	WriteReport(ctx context.Context, taskID string, lines []string) (string, error)
	// ReadReport returns the raw report text or ErrReportNotFound.
	ReadReport(ctx context.Context, taskID string) ([]byte, error)
}
