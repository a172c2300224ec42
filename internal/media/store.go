// Package media stores complaint attachments downloaded from WhatsApp.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Store persists an attachment under key and returns where it was written.
type Store interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// LocalStore writes attachments below a directory on disk.
type LocalStore struct {
	dir string
}

// NewLocalStore creates a store rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	if dir == "" {
		dir = "downloads"
	}
	return &LocalStore{dir: dir}
}

// Save writes data to dir/key, creating parent directories.
func (s *LocalStore) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("media: create dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("media: write %s: %w", path, err)
	}
	return path, nil
}

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads attachments to a bucket.
type S3Store struct {
	client S3API
	bucket string
}

// NewS3Store creates an S3-backed store.
func NewS3Store(client S3API, bucket string) *S3Store {
	if client == nil {
		panic("media: s3 client required")
	}
	if bucket == "" {
		panic("media: bucket required")
	}
	return &S3Store{client: client, bucket: bucket}
}

// Save uploads data and returns its s3:// URI.
func (s *S3Store) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("media: s3 put %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
