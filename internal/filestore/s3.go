package filestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pkruk/stayimport/internal/config"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// S3Store keeps uploads and reports as MinIO/S3 objects, one bucket each.
type S3Store struct {
	client        *minio.Client
	uploadsBucket string
	reportsBucket string
	region        string
}

// NewS3Store creates a MinIO client from the Config.
func NewS3Store(cfg *config.Config) (*S3Store, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &S3Store{
		client:        client,
		uploadsBucket: cfg.UploadsBucket,
		reportsBucket: cfg.ReportsBucket,
		region:        cfg.S3Region,
	}, nil
}

// EnsureBuckets makes sure the uploads/reports buckets exist before use.
func (s *S3Store) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.uploadsBucket, s.reportsBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
				return fmt.Errorf("make bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// SaveUpload stores the workbook in the uploads bucket.
func (s *S3Store) SaveUpload(ctx context.Context, taskID string, r io.Reader, size int64) (string, error) {
	key := taskID + ".xlsx"
	opts := minio.PutObjectOptions{ContentType: xlsxContentType}
	if _, err := s.client.PutObject(ctx, s.uploadsBucket, key, r, size, opts); err != nil {
		return "", fmt.Errorf("upload workbook object: %w", err)
	}
	return key, nil
}

// ReadUpload fetches the workbook bytes from the uploads bucket.
func (s *S3Store) ReadUpload(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.uploadsBucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get workbook object: %w", err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read workbook object: %w", err)
	}
	return data, nil
}

// DeleteUpload removes the workbook object.
func (s *S3Store) DeleteUpload(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.uploadsBucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete workbook object: %w", err)
	}
	return nil
}

// WriteReport stores the report lines as a text object in the reports bucket.
func (s *S3Store) WriteReport(ctx context.Context, taskID string, lines []string) (string, error) {
	key := taskID + ".txt"
	content := []byte(strings.Join(lines, "\n") + "\n")
	opts := minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"}
	if _, err := s.client.PutObject(ctx, s.reportsBucket, key, bytes.NewReader(content), int64(len(content)), opts); err != nil {
		return "", fmt.Errorf("upload report object: %w", err)
	}
	return key, nil
}

// ReadReport returns the raw report text for the task.
func (s *S3Store) ReadReport(ctx context.Context, taskID string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.reportsBucket, taskID+".txt", minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get report object: %w", err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("read report object: %w", err)
	}
	return data, nil
}
