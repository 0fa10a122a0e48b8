// Package storage contains in-memory implementations of the task and
// reservation stores. They back the unit tests and single-process setups
// where Postgres is not available; the semantics match internal/repository.
package storage

import (
	"context"
	"sync"
	"time"

	"github.com/pkruk/stayimport/internal/model"
	"github.com/pkruk/stayimport/internal/repository"
)

// MemoryTaskStore keeps task records in a mutex-guarded map.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*model.Task
}

// NewMemoryTaskStore constructs an empty store.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[string]*model.Task)}
}

// Create inserts a pending task.
func (m *MemoryTaskStore) Create(_ context.Context, task *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	task.Status = model.TaskPending
	task.CreatedAt = now
	task.UpdatedAt = now
	clone := *task
	m.tasks[task.TaskID] = &clone
	return nil
}

// Get returns a copy of the record so callers cannot mutate internal state.
func (m *MemoryTaskStore) Get(_ context.Context, taskID string) (*model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, repository.ErrTaskNotFound
	}
	clone := *task
	return &clone, nil
}

// MarkInProgress sets the status to IN_PROGRESS.
func (m *MemoryTaskStore) MarkInProgress(ctx context.Context, taskID string) error {
	return m.update(taskID, model.TaskInProgress, nil, nil)
}

// MarkCompleted finalizes a successful import.
func (m *MemoryTaskStore) MarkCompleted(ctx context.Context, taskID string) error {
	return m.update(taskID, model.TaskCompleted, nil, nil)
}

// MarkFailed finalizes a structurally failed import.
func (m *MemoryTaskStore) MarkFailed(ctx context.Context, taskID, reason string) error {
	return m.update(taskID, model.TaskFailed, nil, &reason)
}

// MarkValidationFailed finalizes a validation-rejected import.
func (m *MemoryTaskStore) MarkValidationFailed(ctx context.Context, taskID, reason, reportPath string) error {
	return m.update(taskID, model.TaskFailed, &reportPath, &reason)
}

func (m *MemoryTaskStore) update(taskID string, status model.TaskStatus, reportPath, failReason *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return repository.ErrTaskNotFound
	}
	if task.Status.Terminal() {
		// Transitions are forward-only; a redelivered job cannot revive a
		// finished task.
		return nil
	}
	task.Status = status
	if reportPath != nil {
		task.ReportPath = reportPath
	}
	if failReason != nil {
		task.FailReason = failReason
	}
	task.UpdatedAt = time.Now().UTC()
	return nil
}

// MemoryReservationStore applies the reservation merge rules against a map.
type MemoryReservationStore struct {
	mu           sync.RWMutex
	reservations map[string]*model.Reservation
}

// NewMemoryReservationStore constructs an empty store.
func NewMemoryReservationStore() *MemoryReservationStore {
	return &MemoryReservationStore{reservations: make(map[string]*model.Reservation)}
}

// Upsert mirrors repository.ReservationRepository.Upsert.
func (m *MemoryReservationStore) Upsert(_ context.Context, res *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.reservations[res.ReservationID]
	if !ok {
		if res.Status.Terminal() {
			return nil
		}
		clone := *res
		m.reservations[res.ReservationID] = &clone
		return nil
	}
	if res.Status.Terminal() {
		existing.Status = res.Status
		return nil
	}
	existing.GuestName = res.GuestName
	existing.Status = res.Status
	existing.CheckInDate = res.CheckInDate
	existing.CheckOutDate = res.CheckOutDate
	return nil
}

// Get returns a copy of a stored reservation.
func (m *MemoryReservationStore) Get(reservationID string) (*model.Reservation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.reservations[reservationID]
	if !ok {
		return nil, false
	}
	clone := *res
	return &clone, true
}

// Len reports how many reservations are stored.
func (m *MemoryReservationStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reservations)
}
