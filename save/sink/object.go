package sink

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sv4u/saveimages/save/config"
)

// ObjectSink writes images to an S3-compatible bucket. Object keys are the
// resolved paths relative to the default output directory, under Prefix.
type ObjectSink struct {
	client  *minio.Client
	bucket  string
	region  string
	prefix  string
	rootDir string

	mu    sync.Mutex
	ready bool
}

// NewObjectSink creates a sink for the bucket in cfg. rootDir is the
// default output directory that resolved paths are made relative to.
func NewObjectSink(cfg config.ObjectStoreSettings, rootDir string) (*ObjectSink, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("object store endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("object store access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("object store bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store client: %w", err)
	}

	return &ObjectSink{
		client:  client,
		bucket:  bucket,
		region:  region,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		rootDir: rootDir,
	}, nil
}

// Key returns the object key for a resolved path. Paths outside the root
// directory keep their full slash-separated form.
func (s *ObjectSink) Key(p string) string {
	key := filepath.ToSlash(filepath.Clean(p))
	if s.rootDir != "" {
		if rel, err := filepath.Rel(s.rootDir, p); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			key = filepath.ToSlash(rel)
		}
	}
	key = strings.TrimLeft(key, "/")
	if s.prefix != "" {
		key = path.Join(s.prefix, key)
	}
	return key
}

// ensureBucket creates the bucket if needed. Only success is remembered,
// so a failed check is retried on the next call.
func (s *ObjectSink) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	s.ready = true
	return nil
}

func (s *ObjectSink) Exists(ctx context.Context, p string) (bool, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return false, fmt.Errorf("ensure bucket: %w", err)
	}
	_, err := s.client.StatObject(ctx, s.bucket, s.Key(p), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, fmt.Errorf("stat object: %w", err)
}

func (s *ObjectSink) Write(ctx context.Context, p, contentType string, data []byte) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	_, err := s.client.PutObject(ctx, s.bucket, s.Key(p), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (s *ObjectSink) Location(p string) string {
	return "s3://" + s.bucket + "/" + s.Key(p)
}

// New returns the sink configured by out: an ObjectSink when an object
// store is enabled, otherwise a LocalSink.
func New(out config.OutputSettings) (Sink, error) {
	if out.ObjectStore.Enabled() {
		return NewObjectSink(out.ObjectStore, out.DefaultOutputDir)
	}
	return NewLocalSink(), nil
}
