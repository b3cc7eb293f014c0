package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrMiss is returned by Get when the key does not exist or has expired.
var ErrMiss = errors.New("cache miss")

// Store is the subset of key/value and hash operations the services need.
// Implementations must treat every write as an idempotent overwrite.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key starting with prefix and returns how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// HSetExpire sets one hash field and (re)arms the whole hash's TTL.
	HSetExpire(ctx context.Context, key, field, value string, ttl time.Duration) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Ping(ctx context.Context) error
	Close() error
}

const (
	ContentTTL  = 24 * time.Hour
	TrackingTTL = time.Hour
)

func PagePrefix(docID uuid.UUID) string { return fmt.Sprintf("pdf:%s:", docID) }

func PageKey(docID uuid.UUID, page int) string {
	return fmt.Sprintf("pdf:%s:page:%d", docID, page)
}

func InsightsKey(docID uuid.UUID, page int) string {
	return fmt.Sprintf("pdf:%s:insights:%d", docID, page)
}

func ActivitiesPrefix(docID uuid.UUID) string { return fmt.Sprintf("activities:%s:", docID) }

func ActivitiesKey(docID uuid.UUID, page int) string {
	return fmt.Sprintf("activities:%s:page:%d", docID, page)
}

func TrackingKey(docID uuid.UUID) string {
	return fmt.Sprintf("tracking:%s:current", docID)
}

func ResponseKey(activityID, studentID uuid.UUID) string {
	return fmt.Sprintf("response:%s:%s", activityID, studentID)
}
