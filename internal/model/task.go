// Package model contains the struct definitions shared across packages.
package model

import "time"

// TaskStatus enumerates the lifecycle of one uploaded file. Transitions are
// forward-only: PENDING -> IN_PROGRESS -> COMPLETED or FAILED.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
)

// Terminal reports whether no further transition may leave the status.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Task tracks one spreadsheet upload through the ingestion pipeline.
type Task struct {
	TaskID     string     `json:"taskId"`
	FilePath   string     `json:"filePath,omitempty"`
	Status     TaskStatus `json:"status"`
	ReportPath *string    `json:"reportPath,omitempty"`
	FailReason *string    `json:"failReason,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}
