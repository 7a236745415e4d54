package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/jpeg"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"anpr-api/internal/domain/anpr"
	"anpr-api/internal/repository"
)

func jpegBase64(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func buildWorkbook(t *testing.T, svc *ANPRService, q ExportQuery) (*ExcelExport, *excelize.File) {
	t.Helper()
	export, err := svc.ExportExcel(context.Background(), q)
	require.NoError(t, err)
	t.Cleanup(func() { _ = export.Close() })

	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return export, f
}

func TestExportQueryFilename(t *testing.T) {
	assert.Equal(t, "anpr_export_2024-01-01_to_2024-01-31.xlsx",
		ExportQuery{From: "2024-01-01", To: "2024-01-31"}.Filename())
	assert.Equal(t, "anpr_export_all_to_all.xlsx", ExportQuery{}.Filename())
	assert.Equal(t, "anpr_export_2024-03-05_to_all.xlsx",
		ExportQuery{From: "2024-03-05T10:00:00Z"}.Filename())
}

func TestExportExcel_FiltersAndLaysOutRows(t *testing.T) {
	class := 1
	repo := repository.NewMemoryRepository(
		anpr.DetectionRecord{
			PlateNumber:  "IN-RANGE-1",
			VehicleClass: &class,
			Timestamp:    ptr(time.Date(2024, 1, 10, 14, 5, 9, 0, time.UTC)),
			PlateImage:   jpegBase64(t, 640, 480),
		},
		anpr.DetectionRecord{
			PlateNumber: "IN-RANGE-2",
			CreatedAt:   ptr(time.Date(2024, 1, 20, 6, 0, 0, 0, time.UTC)),
			PlateImage:  "this is not an image",
		},
		anpr.DetectionRecord{
			PlateNumber: "TOO-LATE",
			Timestamp:   ptr(time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)),
		},
		anpr.DetectionRecord{
			PlateNumber: "TOO-EARLY",
			Timestamp:   ptr(time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)),
			CreatedAt:   ptr(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)),
		},
	)
	svc := newTestService(repo)

	export, f := buildWorkbook(t, svc, ExportQuery{From: "2024-01-01", To: "2024-01-31"})
	assert.Equal(t, "anpr_export_2024-01-01_to_2024-01-31.xlsx", export.Filename)
	assert.Equal(t, 2, export.Rows)
	assert.Equal(t, 1, export.Placeholders)

	rows, err := f.GetRows(ExportSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"S.no", "Plate No.", "Plate type", "Date", "Time stamp", "Image"}, rows[0])

	// date-desc orders by timestamp first; records without one come last
	assert.Equal(t, []string{"1", "IN-RANGE-1", "Private", "10.01.24", "14:05:09"}, rows[1])
	assert.Equal(t, []string{"2", "IN-RANGE-2", "Unknown", "20.01.24", "06:00:00", ImagePlaceholder}, rows[2])

	pics, err := f.GetPictures(ExportSheetName, "F2")
	require.NoError(t, err)
	require.Len(t, pics, 1)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(pics[0].File))
	require.NoError(t, err)
	assert.LessOrEqual(t, cfg.Width, 80)
	assert.LessOrEqual(t, cfg.Height, 44)
}

func TestExportExcel_UnparseableBoundsAreIgnored(t *testing.T) {
	repo := repository.NewMemoryRepository(
		anpr.DetectionRecord{PlateNumber: "A", Timestamp: ptr(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))},
		anpr.DetectionRecord{PlateNumber: "B"},
	)
	svc := newTestService(repo)

	export, _ := buildWorkbook(t, svc, ExportQuery{From: "last tuesday", To: ""})
	assert.Equal(t, 2, export.Rows)
	assert.Equal(t, "anpr_export_last tuesd_to_all.xlsx", export.Filename)
}

func TestExportExcel_CapsRows(t *testing.T) {
	repo := repository.NewMemoryRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < anpr.MaxExportRows+3; i++ {
		repo.Insert(anpr.DetectionRecord{Timestamp: ptr(base.Add(time.Duration(i) * time.Second))})
	}
	svc := newTestService(repo)

	export, err := svc.ExportExcel(context.Background(), ExportQuery{})
	require.NoError(t, err)
	defer export.Close()
	assert.Equal(t, anpr.MaxExportRows, export.Rows)
}

func TestExportExcel_OversizedImageGetsPlaceholder(t *testing.T) {
	// GIF header announcing a 30000x30000 screen with no pixel data
	bomb := []byte{'G', 'I', 'F', '8', '9', 'a', 0x30, 0x75, 0x30, 0x75, 0, 0, 0}
	repo := repository.NewMemoryRepository(anpr.DetectionRecord{
		PlateNumber: "BOMB",
		Timestamp:   ptr(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)),
		PlateImage:  base64.StdEncoding.EncodeToString(bomb),
	})

	export, f := buildWorkbook(t, newTestService(repo), ExportQuery{})
	assert.Equal(t, 1, export.Placeholders)

	value, err := f.GetCellValue(ExportSheetName, "F2")
	require.NoError(t, err)
	assert.Equal(t, ImagePlaceholder, value)
}

func TestExportExcel_UpperBoundOnlySkipsUndated(t *testing.T) {
	repo := repository.NewMemoryRepository(
		anpr.DetectionRecord{PlateNumber: "DATED", Timestamp: ptr(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))},
		anpr.DetectionRecord{PlateNumber: "UNDATED"},
	)

	export, f := buildWorkbook(t, newTestService(repo), ExportQuery{To: "2024-01-31"})
	assert.Equal(t, 1, export.Rows)

	rows, err := f.GetRows(ExportSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "DATED", rows[1][1])
}
