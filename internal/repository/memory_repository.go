package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"anpr-api/internal/domain/anpr"
)

// MemoryRepository keeps detections in process memory. Ordering of missing
// values matches MongoDB: they sort before any present value.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []anpr.DetectionRecord
}

func NewMemoryRepository(records ...anpr.DetectionRecord) *MemoryRepository {
	r := &MemoryRepository{}
	for _, rec := range records {
		r.Insert(rec)
	}
	return r
}

// Insert stores rec, assigning a uuid when it has no id, and returns the id.
func (r *MemoryRepository) Insert(rec anpr.DetectionRecord) string {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return rec.ID
}

func (r *MemoryRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.records)), nil
}

func (r *MemoryRepository) CountInRange(ctx context.Context, tr anpr.TimeRange) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, rec := range r.records {
		if tr.Contains(anpr.EffectiveTimestamp(rec)) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) Iterate(ctx context.Context, q ListQuery, fn func(anpr.DetectionRecord) error) error {
	if err := q.validate(); err != nil {
		return err
	}
	r.mu.RLock()
	matched := make([]anpr.DetectionRecord, 0, len(r.records))
	for _, rec := range r.records {
		if q.Range.Contains(anpr.EffectiveTimestamp(rec)) {
			matched = append(matched, rec)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return compareRecords(matched[i], matched[j], q.Sort) < 0
	})

	if q.Skip >= int64(len(matched)) {
		return nil
	}
	matched = matched[q.Skip:]
	if q.Limit > 0 && q.Limit < int64(len(matched)) {
		matched = matched[:q.Limit]
	}

	for _, rec := range matched {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !q.WithImage {
			rec.PlateImage = ""
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*anpr.DetectionRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.ID == id {
			found := rec
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) FindImage(ctx context.Context, id string) (string, error) {
	rec, err := r.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if rec.PlateImage == "" {
		return "", ErrNotFound
	}
	return rec.PlateImage, nil
}

func compareRecords(a, b anpr.DetectionRecord, keys []anpr.SortKey) int {
	for _, k := range keys {
		var c int
		switch k.Field {
		case anpr.FieldTimestamp:
			c = compareTimes(a.Timestamp, b.Timestamp)
		case anpr.FieldCreatedAt:
			c = compareTimes(a.CreatedAt, b.CreatedAt)
		case anpr.FieldPlateNumber:
			c = strings.Compare(a.PlateNumber, b.PlateNumber)
		case anpr.FieldOCREngine:
			c = strings.Compare(a.OCREngine, b.OCREngine)
		}
		if k.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func compareTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}
