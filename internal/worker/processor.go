// Package worker runs the ingestion pipeline: dequeue an import job, validate
// the whole spreadsheet, and apply it to the reservation store only when the
// file is clean, driving the task record through its state machine.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pkruk/stayimport/internal/filestore"
	"github.com/pkruk/stayimport/internal/model"
	"github.com/pkruk/stayimport/internal/notify"
	"github.com/pkruk/stayimport/internal/queue"
	"github.com/pkruk/stayimport/internal/sheet"
	"github.com/pkruk/stayimport/internal/validate"
)

// TaskStore is the slice of the task repository the worker needs.
type TaskStore interface {
	Get(ctx context.Context, taskID string) (*model.Task, error)
	MarkInProgress(ctx context.Context, taskID string) error
	MarkCompleted(ctx context.Context, taskID string) error
	MarkFailed(ctx context.Context, taskID, reason string) error
	MarkValidationFailed(ctx context.Context, taskID, reason, reportPath string) error
}

// ReservationStore applies validated reservations.
type ReservationStore interface {
	Upsert(ctx context.Context, res *model.Reservation) error
}

const defaultBatchSize = 10

// Processor is plugged into the asynq worker loop.
type Processor struct {
	tasks        TaskStore
	reservations ReservationStore
	files        filestore.Store
	notifier     notify.Notifier
	log          *logrus.Logger
	batchSize    int
}

// NewProcessor constructs a worker processor. batchSize bounds concurrent
// upserts during the apply pass.
func NewProcessor(tasks TaskStore, reservations ReservationStore, files filestore.Store, notifier notify.Notifier, log *logrus.Logger, batchSize int) *Processor {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	return &Processor{
		tasks:        tasks,
		reservations: reservations,
		files:        files,
		notifier:     notifier,
		log:          log,
		batchSize:    batchSize,
	}
}

// Handler registers the import job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ImportReservationsTask, p.handleImport)
	return mux
}

func (p *Processor) handleImport(ctx context.Context, task *asynq.Task) error {
	var payload queue.ImportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	// Structural faults are redelivered while attempts remain; once the
	// budget is spent the task is finalized and the upload cleaned up.
	lastAttempt := true
	if retried, ok := asynq.GetRetryCount(ctx); ok {
		if maxRetry, ok := asynq.GetMaxRetry(ctx); ok {
			lastAttempt = retried >= maxRetry
		}
	}
	return p.Process(ctx, payload, lastAttempt)
}

// Process runs the two-phase pipeline for one uploaded file. lastAttempt
// controls whether a structural fault finalizes the task or leaves it for
// queue redelivery; validation outcomes are always terminal.
func (p *Processor) Process(ctx context.Context, payload queue.ImportPayload, lastAttempt bool) error {
	log := p.log.WithFields(logrus.Fields{"task_id": payload.TaskID, "file": payload.FilePath})
	log.Info("processing reservation file")

	task, err := p.tasks.Get(ctx, payload.TaskID)
	if err != nil {
		return p.fault(ctx, log, payload, lastAttempt, fmt.Errorf("load task: %w", err))
	}
	if task.Status.Terminal() {
		log.WithField("status", task.Status).Warn("task already finished, skipping redelivery")
		return nil
	}

	if err := p.tasks.MarkInProgress(ctx, payload.TaskID); err != nil {
		return p.fault(ctx, log, payload, lastAttempt, fmt.Errorf("mark in progress: %w", err))
	}
	p.notifier.TaskUpdate(payload.TaskID, model.TaskInProgress, "")

	data, err := p.files.ReadUpload(ctx, payload.FilePath)
	if err != nil {
		return p.fault(ctx, log, payload, lastAttempt, fmt.Errorf("read upload: %w", err))
	}
	ws, err := sheet.Open(data)
	if err != nil {
		return p.fault(ctx, log, payload, lastAttempt, err)
	}
	if err := ws.ValidateHeader(); err != nil {
		// Structural header error: the whole file is rejected before any row
		// work, no report artifact exists.
		return p.failTask(ctx, log, payload, err.Error())
	}
	if ws.LastRow() < 2 || sheet.Empty(ws.Row(2)) {
		return p.failTask(ctx, log, payload, "the file that is being processed does not contain any data rows")
	}

	// Validation pass. Strictly sequential so the report preserves row order
	// and the tracker sees prior rows. No store writes happen here.
	tracker := validate.NewTracker()
	var messages []string
	lastDataRow := ws.LastRow()
	for n := 2; n <= ws.LastRow(); n++ {
		row := ws.Row(n)
		if sheet.Empty(row) {
			// First empty row ends the data; trailing rows are ignored.
			lastDataRow = n - 1
			break
		}
		if _, findings := validate.Row(row, n); len(findings) > 0 {
			messages = append(messages, findings...)
		}
		if msg, dup := tracker.Check(row["reservation_id"], n); dup {
			messages = append(messages, msg)
		}
	}

	if len(messages) > 0 {
		reportPath, err := p.files.WriteReport(ctx, payload.TaskID, messages)
		if err != nil {
			return p.fault(ctx, log, payload, lastAttempt, fmt.Errorf("write report: %w", err))
		}
		reason := fmt.Sprintf("validation failed with %d error(s)", len(messages))
		if err := p.tasks.MarkValidationFailed(ctx, payload.TaskID, reason, reportPath); err != nil {
			return p.fault(ctx, log, payload, lastAttempt, fmt.Errorf("mark validation failed: %w", err))
		}
		p.notifier.TaskUpdate(payload.TaskID, model.TaskFailed, reason)
		p.cleanup(ctx, log, payload)
		log.WithField("errors", len(messages)).Warn("task failed validation")
		return nil
	}

	// Apply pass. The file is proven clean and duplicate-free, so rows can be
	// upserted with bounded fan-out; batches stay sequential to cap store
	// load.
	if err := p.apply(ctx, ws, lastDataRow); err != nil {
		return p.fault(ctx, log, payload, lastAttempt, err)
	}

	if err := p.tasks.MarkCompleted(ctx, payload.TaskID); err != nil {
		return p.fault(ctx, log, payload, lastAttempt, fmt.Errorf("mark completed: %w", err))
	}
	p.notifier.TaskUpdate(payload.TaskID, model.TaskCompleted, "")
	p.cleanup(ctx, log, payload)
	log.Info("task completed")
	return nil
}

// apply re-scans rows 2..lastDataRow and upserts them in fixed-size batches.
func (p *Processor) apply(ctx context.Context, ws *sheet.Sheet, lastDataRow int) error {
	for start := 2; start <= lastDataRow; start += p.batchSize {
		end := start + p.batchSize - 1
		if end > lastDataRow {
			end = lastDataRow
		}
		g, gctx := errgroup.WithContext(ctx)
		for n := start; n <= end; n++ {
			row := ws.Row(n)
			rowNumber := n
			g.Go(func() error {
				res, findings := validate.Row(row, rowNumber)
				if len(findings) > 0 {
					// Cannot happen after a clean validation pass; treat as a
					// structural fault rather than writing bad data.
					return fmt.Errorf("row %d failed revalidation: %s", rowNumber, findings[0])
				}
				if err := p.reservations.Upsert(gctx, res); err != nil {
					return fmt.Errorf("upsert reservation %s: %w", res.ReservationID, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// failTask finalizes a structurally rejected file (no report artifact).
func (p *Processor) failTask(ctx context.Context, log *logrus.Entry, payload queue.ImportPayload, reason string) error {
	if err := p.tasks.MarkFailed(ctx, payload.TaskID, reason); err != nil {
		log.WithError(err).Error("mark failed")
	}
	p.notifier.TaskUpdate(payload.TaskID, model.TaskFailed, reason)
	p.cleanup(ctx, log, payload)
	log.WithField("reason", reason).Warn("task failed")
	return nil
}

// fault handles an unexpected error from any pipeline step. While redelivery
// attempts remain the task stays IN_PROGRESS and the upload stays in place;
// the final attempt demotes the task to FAILED and cleans up.
func (p *Processor) fault(ctx context.Context, log *logrus.Entry, payload queue.ImportPayload, lastAttempt bool, err error) error {
	if !lastAttempt {
		log.WithError(err).Warn("import attempt failed, leaving task for redelivery")
		return err
	}
	if markErr := p.tasks.MarkFailed(ctx, payload.TaskID, err.Error()); markErr != nil {
		log.WithError(markErr).Error("mark failed")
	}
	p.notifier.TaskUpdate(payload.TaskID, model.TaskFailed, err.Error())
	p.cleanup(ctx, log, payload)
	log.WithError(err).Error("import failed")
	return err
}

// cleanup deletes the uploaded workbook. Deletion failures are logged, never
// propagated.
func (p *Processor) cleanup(ctx context.Context, log *logrus.Entry, payload queue.ImportPayload) {
	if err := p.files.DeleteUpload(ctx, payload.FilePath); err != nil {
		log.WithError(err).Warn("delete upload")
	}
}
