package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps uploads and reports on disk: <uploads>/<taskID>.xlsx and
// <reports>/<taskID>.txt.
type LocalStore struct {
	uploadsDir string
	reportsDir string
}

// NewLocalStore creates both directories if absent.
func NewLocalStore(uploadsDir, reportsDir string) (*LocalStore, error) {
	for _, dir := range []string{uploadsDir, reportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return &LocalStore{uploadsDir: uploadsDir, reportsDir: reportsDir}, nil
}

// SaveUpload writes the workbook to the uploads directory.
func (s *LocalStore) SaveUpload(_ context.Context, taskID string, r io.Reader, _ int64) (string, error) {
	path := filepath.Join(s.uploadsDir, taskID+".xlsx")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return path, nil
}

// ReadUpload loads the workbook bytes.
func (s *LocalStore) ReadUpload(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read upload file: %w", err)
	}
	return data, nil
}

// DeleteUpload removes the workbook from disk.
func (s *LocalStore) DeleteUpload(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// WriteReport persists the report lines, one per line, in the given order.
func (s *LocalStore) WriteReport(_ context.Context, taskID string, lines []string) (string, error) {
	path := filepath.Join(s.reportsDir, taskID+".txt")
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write report file: %w", err)
	}
	return path, nil
}

// ReadReport returns the raw report text for the task.
func (s *LocalStore) ReadReport(_ context.Context, taskID string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.reportsDir, taskID+".txt"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("read report file: %w", err)
	}
	return data, nil
}
