// Package api exposes the HTTP surface: spreadsheet upload, task status and
// report download. The actual processing happens in the worker; this layer
// only creates tasks, stores uploads and enqueues jobs.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/pkruk/stayimport/internal/config"
	"github.com/pkruk/stayimport/internal/filestore"
	"github.com/pkruk/stayimport/internal/model"
	"github.com/pkruk/stayimport/internal/queue"
	"github.com/pkruk/stayimport/internal/repository"
)

// TaskStore is the slice of the task repository the API needs.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	Get(ctx context.Context, taskID string) (*model.Task, error)
}

// Enqueuer schedules import jobs for created tasks.
type Enqueuer interface {
	EnqueueImport(ctx context.Context, payload queue.ImportPayload) error
}

// Server exposes HTTP endpoints for uploads and task visibility.
type Server struct {
	cfg    *config.Config
	tasks  TaskStore
	files  filestore.Store
	queue  Enqueuer
	log    *logrus.Logger
	server *http.Server
}

// New constructs a Server.
func New(cfg *config.Config, tasks TaskStore, files filestore.Store, enqueuer Enqueuer, log *logrus.Logger) *Server {
	s := &Server{
		cfg:   cfg,
		tasks: tasks,
		files: files,
		queue: enqueuer,
		log:   log,
	}
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/tasks/upload", s.handleUpload).Methods(http.MethodPost)
	router.HandleFunc("/tasks/status/{taskID}", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/tasks/report/{taskID}", s.handleReport).Methods(http.MethodGet)
	router.Use(s.loggingMiddleware)
	s.server = &http.Server{Addr: cfg.Address, Handler: router}
	return s
}

// Router returns the handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.server.Handler
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.log.WithField("address", s.cfg.Address).Info("api listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload accepts a multipart xlsx, creates the task and enqueues the
// import job.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "expecting multipart field \"file\"", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		http.Error(w, "only xlsx files supported", http.StatusBadRequest)
		return
	}
	if header.Size <= 0 {
		http.Error(w, "empty file", http.StatusBadRequest)
		return
	}

	taskID := uuid.NewString()
	path, err := s.files.SaveUpload(ctx, taskID, file, header.Size)
	if err != nil {
		s.log.WithError(err).Error("store upload")
		http.Error(w, "failed to store file", http.StatusInternalServerError)
		return
	}

	task := &model.Task{TaskID: taskID, FilePath: path}
	if err := s.tasks.Create(ctx, task); err != nil {
		s.log.WithError(err).Error("create task")
		http.Error(w, "failed to create task", http.StatusInternalServerError)
		return
	}

	payload := queue.ImportPayload{TaskID: taskID, FilePath: path}
	if err := s.queue.EnqueueImport(ctx, payload); err != nil {
		s.log.WithError(err).Error("enqueue import")
		http.Error(w, "failed to queue job", http.StatusInternalServerError)
		return
	}

	s.respondJSON(w, http.StatusAccepted, map[string]string{"taskId": taskID})
}

// statusResponse surfaces the coarse outcome; the fine-grained reasons live
// in the report endpoint.
type statusResponse struct {
	Status     model.TaskStatus `json:"status"`
	ReportPath *string          `json:"reportPath,omitempty"`
	FailReason *string          `json:"failReason,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]
	task, err := s.tasks.Get(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			http.Error(w, fmt.Sprintf("task %s not found", taskID), http.StatusNotFound)
			return
		}
		s.log.WithError(err).Error("load task")
		http.Error(w, "failed to load task", http.StatusInternalServerError)
		return
	}
	s.respondJSON(w, http.StatusOK, statusResponse{
		Status:     task.Status,
		ReportPath: task.ReportPath,
		FailReason: task.FailReason,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]
	report, err := s.files.ReadReport(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, filestore.ErrReportNotFound) {
			http.Error(w, fmt.Sprintf("report for task %s not found", taskID), http.StatusNotFound)
			return
		}
		s.log.WithError(err).Error("read report")
		http.Error(w, "failed to read report", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="report.txt"`)
	w.WriteHeader(http.StatusOK)
	w.Write(report)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.WithError(err).Error("encode response")
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}
