package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkruk/stayimport/internal/config"
	"github.com/pkruk/stayimport/internal/filestore"
	"github.com/pkruk/stayimport/internal/model"
	"github.com/pkruk/stayimport/internal/queue"
	"github.com/pkruk/stayimport/internal/storage"
)

type recordingEnqueuer struct {
	payloads []queue.ImportPayload
}

func (e *recordingEnqueuer) EnqueueImport(_ context.Context, payload queue.ImportPayload) error {
	e.payloads = append(e.payloads, payload)
	return nil
}

type fixture struct {
	tasks    *storage.MemoryTaskStore
	files    filestore.Store
	enqueuer *recordingEnqueuer
	server   *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	files, err := filestore.NewLocalStore(dir+"/uploads", dir+"/reports")
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{Address: ":0", MaxUploadBytes: 1 << 20}
	tasks := storage.NewMemoryTaskStore()
	enqueuer := &recordingEnqueuer{}
	return &fixture{
		tasks:    tasks,
		files:    files,
		enqueuer: enqueuer,
		server:   New(cfg, tasks, files, enqueuer, log),
	}
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadCreatesTaskAndEnqueues(t *testing.T) {
	f := newFixture(t)

	body, contentType := multipartBody(t, "reservations.xlsx", []byte("workbook"))
	req := httptest.NewRequest(http.MethodPost, "/tasks/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	taskID := resp["taskId"]
	require.NotEmpty(t, taskID)

	task, err := f.tasks.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskPending, task.Status)

	require.Len(t, f.enqueuer.payloads, 1)
	assert.Equal(t, taskID, f.enqueuer.payloads[0].TaskID)
	assert.Equal(t, task.FilePath, f.enqueuer.payloads[0].FilePath)
}

func TestUploadRejectsNonXlsx(t *testing.T) {
	f := newFixture(t)

	body, contentType := multipartBody(t, "reservations.csv", []byte("a,b"))
	req := httptest.NewRequest(http.MethodPost, "/tasks/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.enqueuer.payloads)
}

func TestUploadRequiresFileField(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/tasks/upload", bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.tasks.Create(ctx, &model.Task{TaskID: "t1", FilePath: "x"}))
	require.NoError(t, f.tasks.MarkValidationFailed(ctx, "t1", "validation failed with 1 error(s)", "data/reports/t1.txt"))

	req := httptest.NewRequest(http.MethodGet, "/tasks/status/t1", nil)
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.TaskFailed, resp.Status)
	require.NotNil(t, resp.ReportPath)
	assert.Equal(t, "data/reports/t1.txt", *resp.ReportPath)
	require.NotNil(t, resp.FailReason)
}

func TestStatusNotFound(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/tasks/status/missing", nil)
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportDownload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lines := []string{"Row 2: guest_name must not be empty", "Row 3: status must not be empty"}
	_, err := f.files.WriteReport(ctx, "t1", lines)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/tasks/report/t1", nil)
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report.txt")
	assert.Equal(t, "Row 2: guest_name must not be empty\nRow 3: status must not be empty\n", rec.Body.String())
}

func TestReportNotFound(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/tasks/report/t1", nil)
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
