package repository

import (
	"context"
	"errors"
	"fmt"

	"anpr-api/internal/domain/anpr"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidID    = errors.New("invalid record id")
	ErrInvalidQuery = errors.New("invalid list query")
)

// ListQuery selects records whose effective timestamp lies in Range, ordered
// by Sort. A zero Limit means no limit.
type ListQuery struct {
	Range     anpr.TimeRange
	Sort      []anpr.SortKey
	Skip      int64
	Limit     int64
	WithImage bool
}

func (q ListQuery) validate() error {
	if q.Skip < 0 || q.Limit < 0 {
		return fmt.Errorf("%w: skip %d, limit %d", ErrInvalidQuery, q.Skip, q.Limit)
	}
	return nil
}

// ANPRRepository is read access to the detected plates collection. The
// collection is written by the ingestion pipeline only.
type ANPRRepository interface {
	Count(ctx context.Context) (int64, error)
	// CountInRange counts records by effective timestamp (timestamp, falling
	// back to created_at), evaluated by the store for each record.
	CountInRange(ctx context.Context, r anpr.TimeRange) (int64, error)
	// Iterate streams matching records to fn in order. Iteration stops at the
	// first error returned by fn.
	Iterate(ctx context.Context, q ListQuery, fn func(anpr.DetectionRecord) error) error
	FindByID(ctx context.Context, id string) (*anpr.DetectionRecord, error)
	// FindImage returns only the base64 image payload of a record.
	FindImage(ctx context.Context, id string) (string, error)
}
