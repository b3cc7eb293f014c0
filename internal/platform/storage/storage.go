package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yungbote/textbook-backend/internal/pkg/logger"
)

// ErrNotExist is returned when the object behind a path is missing.
var ErrNotExist = errors.New("object does not exist")

// Storage reads uploaded files by the path the upload gateway recorded.
type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, r io.Reader) error
	Delete(ctx context.Context, path string) error
}

type Mode string

const (
	ModeLocal       Mode = "local"
	ModeGCS         Mode = "gcs"
	ModeGCSEmulator Mode = "gcs_emulator"
)

type Config struct {
	Mode         Mode
	LocalRoot    string
	Bucket       string
	EmulatorHost string
	// CredentialsJSON may hold inline JSON or a file path.
	CredentialsJSON string
}

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeLocal:
		return ModeLocal, nil
	case ModeGCS:
		return ModeGCS, nil
	case ModeGCSEmulator:
		return ModeGCSEmulator, nil
	default:
		return "", fmt.Errorf("invalid STORAGE_MODE=%q (allowed: %q, %q, %q)", raw, ModeLocal, ModeGCS, ModeGCSEmulator)
	}
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (Storage, error) {
	switch cfg.Mode {
	case "", ModeLocal:
		return NewLocal(log, cfg.LocalRoot)
	case ModeGCS, ModeGCSEmulator:
		return NewGCS(ctx, log, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage mode %q", cfg.Mode)
	}
}
