package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/textbook-backend/internal/pkg/logger"
)

type gcsStorage struct {
	log    *logger.Logger
	client *gcs.Client
	bucket string
}

func NewGCS(ctx context.Context, log *logger.Logger, cfg Config) (Storage, error) {
	var opts []option.ClientOption
	switch cfg.Mode {
	case ModeGCSEmulator:
		endpoint := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/")
		if endpoint == "" {
			return nil, fmt.Errorf("STORAGE_MODE=%q requires STORAGE_EMULATOR_HOST", ModeGCSEmulator)
		}
		_ = os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		opts = append(opts, option.WithoutAuthentication())
	default:
		opts = append(opts, credentialOptions(cfg.CredentialsJSON)...)
		opts = append(opts, option.WithScopes(gcs.ScopeReadWrite))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	serviceLog := log.With("service", "GCSStorage")
	serviceLog.Info("Object storage initialized", "mode", cfg.Mode, "bucket", cfg.Bucket)
	return &gcsStorage{log: serviceLog, client: client, bucket: strings.TrimSpace(cfg.Bucket)}, nil
}

func credentialOptions(creds string) []option.ClientOption {
	creds = strings.TrimSpace(creds)
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

// SplitObjectPath accepts gs://bucket/key or a bare key in the default bucket.
func SplitObjectPath(path, defaultBucket string) (bucket, key string, err error) {
	p := strings.TrimSpace(path)
	if strings.HasPrefix(p, "gs://") {
		rest := strings.TrimPrefix(p, "gs://")
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", fmt.Errorf("invalid object path %q", path)
		}
		return parts[0], parts[1], nil
	}
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "", "", fmt.Errorf("empty object path")
	}
	if defaultBucket == "" {
		return "", "", fmt.Errorf("object path %q has no bucket and no default bucket is configured", path)
	}
	return defaultBucket, p, nil
}

func (s *gcsStorage) object(path string) (*gcs.ObjectHandle, error) {
	bucket, key, err := SplitObjectPath(path, s.bucket)
	if err != nil {
		return nil, err
	}
	return s.client.Bucket(bucket).Object(key), nil
}

func (s *gcsStorage) Read(ctx context.Context, path string) ([]byte, error) {
	obj, err := s.object(path)
	if err != nil {
		return nil, err
	}
	r, err := obj.NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *gcsStorage) Write(ctx context.Context, path string, r io.Reader) error {
	obj, err := s.object(path)
	if err != nil {
		return err
	}
	w := obj.NewWriter(ctx)
	w.ContentType = "application/pdf"
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload %s: %w", path, err)
	}
	return w.Close()
}

func (s *gcsStorage) Delete(ctx context.Context, path string) error {
	obj, err := s.object(path)
	if err != nil {
		return err
	}
	if err := obj.Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}
