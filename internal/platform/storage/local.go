package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/textbook-backend/internal/pkg/logger"
)

type localStorage struct {
	log  *logger.Logger
	root string
}

func NewLocal(log *logger.Logger, root string) (Storage, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	return &localStorage{log: log.With("service", "LocalStorage"), root: abs}, nil
}

// resolve keeps every path inside root, including absolute and ../ paths.
func (s *localStorage) resolve(path string) (string, error) {
	p := strings.TrimSpace(strings.TrimPrefix(path, "file://"))
	if p == "" {
		return "", fmt.Errorf("empty storage path")
	}
	full := filepath.Join(s.root, filepath.Clean("/"+p))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("storage path %q escapes root", path)
	}
	return full, nil
}

func (s *localStorage) Read(ctx context.Context, path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotExist)
	}
	return b, err
}

func (s *localStorage) Write(ctx context.Context, path string, r io.Reader) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	f, err := os.Create(full)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (s *localStorage) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
