package anpr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestPlateType(t *testing.T) {
	tests := []struct {
		name string
		code *int
		want string
	}{
		{"missing", nil, "Unknown"},
		{"zero", intPtr(0), "Unknown"},
		{"private", intPtr(1), "Private"},
		{"truck", intPtr(7), "Truck"},
		{"above table", intPtr(8), "Unknown"},
		{"negative", intPtr(-1), "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlateType(tt.code))
		})
	}
}

func TestFormatUTC(t *testing.T) {
	assert.Nil(t, FormatUTC(nil))

	naive := time.Date(2024, 1, 15, 8, 30, 5, 123456789, time.UTC)
	require.NotNil(t, FormatUTC(&naive))
	assert.Equal(t, "2024-01-15T08:30:05.123Z", *FormatUTC(&naive))

	zone := time.FixedZone("UTC+3", 3*3600)
	aware := time.Date(2024, 1, 15, 1, 0, 0, 0, zone)
	assert.Equal(t, "2024-01-14T22:00:00.000Z", *FormatUTC(&aware))
}

func TestEffectiveTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	created := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, &ts, EffectiveTimestamp(DetectionRecord{Timestamp: &ts, CreatedAt: &created}))
	assert.Equal(t, &created, EffectiveTimestamp(DetectionRecord{CreatedAt: &created}))
	assert.Nil(t, EffectiveTimestamp(DetectionRecord{}))
}

func TestNormalize(t *testing.T) {
	created := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	conf := 0.91
	rec := DetectionRecord{
		ID:           "abc",
		PlateNumber:  "KA01AB1234",
		OCREngine:    "site-a",
		Confidence:   &conf,
		CreatedAt:    &created,
		VehicleClass: intPtr(6),
		ImageSaved:   true,
		PlateImage:   "aGVsbG8=",
	}

	view := Normalize(rec, false)
	assert.Equal(t, "abc", view.ID)
	assert.Equal(t, "Taxi", view.PlateType)
	require.NotNil(t, view.Timestamp)
	assert.Equal(t, "2024-02-01T10:00:00.000Z", *view.Timestamp)
	assert.Equal(t, *view.Timestamp, *view.CreatedAt)
	assert.Empty(t, view.PlateImage)

	withImage := Normalize(rec, true)
	assert.Equal(t, "aGVsbG8=", withImage.PlateImage)

	rec.PlateImage = ""
	assert.Empty(t, Normalize(rec, true).PlateImage)
}

func TestNormalize_MissingTimestamps(t *testing.T) {
	view := Normalize(DetectionRecord{ID: "x"}, true)
	assert.Nil(t, view.Timestamp)
	assert.Nil(t, view.CreatedAt)
	assert.Equal(t, "Unknown", view.PlateType)
}

func TestNewPageMeta(t *testing.T) {
	meta := NewPageMeta(57, 3, 25)
	assert.Equal(t, int64(3), meta.Pages)

	assert.Equal(t, int64(0), NewPageMeta(57, 1, 0).Pages)
	assert.Equal(t, int64(0), NewPageMeta(0, 1, 25).Pages)
	assert.Equal(t, int64(2), NewPageMeta(50, 1, 25).Pages)
}

func TestSortOrder(t *testing.T) {
	assert.Equal(t, SortOrders[SortDateDesc], SortOrder("bogus"))
	assert.Equal(t, SortOrders[SortSite], SortOrder("site"))
	require.Len(t, SortOrder("site"), 3)
	assert.Equal(t, FieldOCREngine, SortOrder("site")[0].Field)
}

func TestTimeRangeContains(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	r := TimeRange{From: &from, To: &to}

	assert.True(t, r.Contains(&from))
	assert.True(t, r.Contains(&to))
	assert.False(t, r.Contains(timePtr(to.Add(time.Second))))
	assert.False(t, r.Contains(nil))
	assert.True(t, TimeRange{}.Contains(nil))
}
