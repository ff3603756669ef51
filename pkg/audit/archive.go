package audit

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Archiver keeps a copy of entries before retention deletes them
type Archiver interface {
	Archive(ctx context.Context, cutoff time.Time, entries []*Entry) error
}

// S3PutObjectAPI is the subset of the S3 client used by S3Archiver
type S3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads expired entries as one NDJSON object per retention pass
type S3Archiver struct {
	client S3PutObjectAPI
	bucket string
	prefix string
}

// NewS3Archiver creates an archiver writing under bucket/prefix
func NewS3Archiver(client S3PutObjectAPI, bucket, prefix string) *S3Archiver {
	if prefix == "" {
		prefix = DefaultTableName
	}
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix}
}

// ObjectKey returns the key an archive written for cutoff is stored under
func (a *S3Archiver) ObjectKey(cutoff time.Time, id string) string {
	return fmt.Sprintf("%s/%s/%s.ndjson", a.prefix, cutoff.UTC().Format("2006/01/02"), id)
}

// Archive uploads entries
func (a *S3Archiver) Archive(ctx context.Context, cutoff time.Time, entries []*Entry) error {
	key := a.ObjectKey(cutoff, uuid.NewString())
	ctx, span := storeTracer.Start(ctx, "audit.archive.s3",
		trace.WithAttributes(
			attribute.String("s3.bucket", a.bucket),
			attribute.String("s3.key", key),
			attribute.Int("audit.entries", len(entries)),
		))
	defer span.End()

	var buf bytes.Buffer
	if err := Export(&buf, entries, ExportFormatNDJSON); err != nil {
		span.RecordError(err)
		return err
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload archive")
		return fmt.Errorf("failed to upload audit archive: %w", err)
	}

	span.SetStatus(codes.Ok, "archive uploaded")
	return nil
}

// FileArchiver appends expired entries to NDJSON files in a directory
type FileArchiver struct {
	dir string
}

// NewFileArchiver creates dir if needed
func NewFileArchiver(dir string) (*FileArchiver, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &FileArchiver{dir: dir}, nil
}

// Archive appends entries to <dir>/<table>-<cutoff date>.ndjson
func (a *FileArchiver) Archive(ctx context.Context, cutoff time.Time, entries []*Entry) error {
	name := filepath.Join(a.dir, fmt.Sprintf("%s-%s.ndjson", DefaultTableName, cutoff.UTC().Format("2006-01-02")))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open archive file: %w", err)
	}

	if err := Export(f, entries, ExportFormatNDJSON); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
