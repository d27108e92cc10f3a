package server

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Mirror copies stored upload artifacts to secondary storage. Like
// conversion it is best effort.
type Mirror interface {
	Put(ctx context.Context, name string, data []byte) error
	Remove(ctx context.Context, name string) error
	Check(ctx context.Context) error
}

// MirrorConfig locates an S3-compatible bucket.
type MirrorConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

// Enabled reports whether any connection setting is present.
func (c MirrorConfig) Enabled() bool {
	return c.Endpoint != "" || c.AccessKey != "" || c.SecretKey != "" || c.Bucket != ""
}

func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	// Accept either "minio:9000" or "http://minio:9000" / "https://minio:9000".
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	// No scheme provided, treat as host:port (insecure by default for local MinIO).
	return raw, false, nil
}

// MinioMirror writes artifacts into a MinIO (or other S3) bucket.
type MinioMirror struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioMirror connects to the configured endpoint and checks that the
// bucket exists.
func NewMinioMirror(ctx context.Context, cfg MirrorConfig) (*MinioMirror, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio configuration incomplete")
	}

	endpoint, secure, err := normaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	m := &MinioMirror{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}
	if err := m.Check(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MinioMirror) objectKey(name string) string {
	if m.prefix == "" {
		return name
	}
	return path.Join(m.prefix, name)
}

// Put uploads data under the prefixed object key for name.
func (m *MinioMirror) Put(ctx context.Context, name string, data []byte) error {
	_, err := m.client.PutObject(
		ctx,
		m.bucket,
		m.objectKey(name),
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/yaml"},
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", m.objectKey(name), err)
	}
	return nil
}

// Remove deletes the object for name. Missing objects are not an error.
func (m *MinioMirror) Remove(ctx context.Context, name string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, m.objectKey(name), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s: %w", m.objectKey(name), err)
	}
	return nil
}

// Check verifies the bucket is reachable.
func (m *MinioMirror) Check(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("minio bucket does not exist: %s", m.bucket)
	}
	return nil
}
