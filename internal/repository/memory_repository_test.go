package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anpr-api/internal/domain/anpr"
)

func at(day, hour int) *time.Time {
	t := time.Date(2024, 1, day, hour, 0, 0, 0, time.UTC)
	return &t
}

func collect(t *testing.T, repo ANPRRepository, q ListQuery) []anpr.DetectionRecord {
	t.Helper()
	var out []anpr.DetectionRecord
	err := repo.Iterate(context.Background(), q, func(rec anpr.DetectionRecord) error {
		out = append(out, rec)
		return nil
	})
	require.NoError(t, err)
	return out
}

func plates(recs []anpr.DetectionRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.PlateNumber)
	}
	return out
}

func seeded() *MemoryRepository {
	return NewMemoryRepository(
		anpr.DetectionRecord{PlateNumber: "B", OCREngine: "north", Timestamp: at(10, 8)},
		anpr.DetectionRecord{PlateNumber: "A", OCREngine: "south", CreatedAt: at(12, 8), PlateImage: "aW1n"},
		anpr.DetectionRecord{PlateNumber: "D", OCREngine: "north", Timestamp: at(5, 8), CreatedAt: at(20, 8)},
		anpr.DetectionRecord{PlateNumber: "C", OCREngine: "south"},
	)
}

func TestMemoryRepository_Count(t *testing.T) {
	repo := seeded()
	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestMemoryRepository_CountInRange_UsesEffectiveTimestamp(t *testing.T) {
	repo := seeded()

	// D has created_at on the 20th, but its timestamp (the 5th) wins.
	n, err := repo.CountInRange(context.Background(), anpr.TimeRange{From: at(9, 0), To: at(31, 0)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.CountInRange(context.Background(), anpr.TimeRange{To: at(5, 8)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryRepository_IterateSortOrders(t *testing.T) {
	repo := seeded()

	desc := collect(t, repo, ListQuery{Sort: anpr.SortOrder(anpr.SortDateDesc)})
	// timestamp desc, missing timestamps last ordered by created_at desc
	assert.Equal(t, []string{"B", "D", "A", "C"}, plates(desc))

	asc := collect(t, repo, ListQuery{Sort: anpr.SortOrder(anpr.SortDateAsc)})
	assert.Equal(t, []string{"C", "A", "D", "B"}, plates(asc))

	byPlate := collect(t, repo, ListQuery{Sort: anpr.SortOrder(anpr.SortPlate)})
	assert.Equal(t, []string{"A", "B", "C", "D"}, plates(byPlate))

	bySite := collect(t, repo, ListQuery{Sort: anpr.SortOrder(anpr.SortSite)})
	assert.Equal(t, []string{"B", "D", "A", "C"}, plates(bySite))
}

func TestMemoryRepository_IterateSkipLimit(t *testing.T) {
	repo := seeded()
	q := ListQuery{Sort: anpr.SortOrder(anpr.SortPlate), Skip: 1, Limit: 2}
	assert.Equal(t, []string{"B", "C"}, plates(collect(t, repo, q)))

	q.Skip = 10
	assert.Empty(t, collect(t, repo, q))
}

func TestMemoryRepository_IterateStripsImageUnlessRequested(t *testing.T) {
	repo := seeded()
	q := ListQuery{Sort: anpr.SortOrder(anpr.SortPlate), Limit: 1}

	assert.Empty(t, collect(t, repo, q)[0].PlateImage)

	q.WithImage = true
	assert.Equal(t, "aW1n", collect(t, repo, q)[0].PlateImage)
}

func TestMemoryRepository_FindByID(t *testing.T) {
	repo := NewMemoryRepository()
	id := repo.Insert(anpr.DetectionRecord{PlateNumber: "X", PlateImage: "aW1n"})
	noImage := repo.Insert(anpr.DetectionRecord{PlateNumber: "Y"})

	rec, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "X", rec.PlateNumber)

	_, err = repo.FindByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = repo.FindByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)

	img, err := repo.FindImage(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "aW1n", img)

	_, err = repo.FindImage(context.Background(), noImage)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepository_UpperBoundOnlyExcludesUndated(t *testing.T) {
	got := collect(t, seeded(), ListQuery{
		Range: anpr.TimeRange{To: at(31, 0)},
		Sort:  anpr.SortOrder(anpr.SortPlate),
	})
	assert.Equal(t, []string{"A", "B", "D"}, plates(got))
}

func TestMemoryRepository_IterateRejectsNegativeSkip(t *testing.T) {
	called := false
	err := seeded().Iterate(context.Background(), ListQuery{Skip: -51616, Limit: 50000}, func(anpr.DetectionRecord) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrInvalidQuery)
	assert.False(t, called)
}
