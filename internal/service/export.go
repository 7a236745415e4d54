package service

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"anpr-api/internal/domain/anpr"
	"anpr-api/internal/imaging"
	"anpr-api/internal/repository"
	"anpr-api/internal/utils"
)

const (
	ExportSheetName   = "ANPR Export"
	ExportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ImagePlaceholder  = "[image]"

	thumbWidth      = 80
	thumbHeight     = 44
	headerRowHeight = 20
	dataRowHeight   = 35
	imageColWidth   = 14
)

var exportHeaders = []interface{}{"S.no", "Plate No.", "Plate type", "Date", "Time stamp", "Image"}

// ExportQuery carries the raw from/to bounds. Bounds that do not parse are
// ignored.
type ExportQuery struct {
	From string
	To   string
}

func (q ExportQuery) Filename() string {
	return fmt.Sprintf("anpr_export_%s_to_%s.xlsx", utils.DateLabel(q.From), utils.DateLabel(q.To))
}

// ExcelExport is a built workbook waiting to be written out.
type ExcelExport struct {
	Filename string
	Rows     int
	// Placeholders counts rows whose image could not be embedded.
	Placeholders int

	file *excelize.File
}

func (e *ExcelExport) Write(w io.Writer) error {
	return e.file.Write(w)
}

func (e *ExcelExport) Close() error {
	return e.file.Close()
}

// ExportExcel builds a workbook of at most anpr.MaxExportRows detections in
// date-desc order. A record whose image cannot be decoded or embedded gets a
// text placeholder instead; it never fails the export.
func (s *ANPRService) ExportExcel(ctx context.Context, q ExportQuery) (*ExcelExport, error) {
	tr := anpr.TimeRange{From: utils.ParseBound(q.From), To: utils.ParseBound(q.To)}

	f := excelize.NewFile()
	export := &ExcelExport{Filename: q.Filename(), file: f}

	if err := writeHeader(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	query := repository.ListQuery{
		Range:     tr,
		Sort:      anpr.SortOrder(anpr.SortDateDesc),
		Limit:     anpr.MaxExportRows,
		WithImage: true,
	}
	err := s.repo.Iterate(ctx, query, func(rec anpr.DetectionRecord) error {
		row := export.Rows + 2
		if err := writeRecordRow(f, row, export.Rows+1, rec); err != nil {
			return err
		}
		if rec.PlateImage != "" {
			if err := embedImage(f, row, rec.PlateImage); err != nil {
				s.log.Warn().Err(err).Str("id", rec.ID).Int("row", row).Msg("image not embedded in export")
				if err := f.SetCellValue(ExportSheetName, cell("F", row), ImagePlaceholder); err != nil {
					return err
				}
				export.Placeholders++
			}
		}
		export.Rows++
		return nil
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("export detections: %w", err)
	}

	if err := f.SetColWidth(ExportSheetName, "F", "F", imageColWidth); err != nil {
		_ = f.Close()
		return nil, err
	}

	s.log.Info().
		Str("filename", export.Filename).
		Int("rows", export.Rows).
		Int("placeholders", export.Placeholders).
		Msg("built excel export")

	return export, nil
}

func writeHeader(f *excelize.File) error {
	if err := f.SetSheetName("Sheet1", ExportSheetName); err != nil {
		return err
	}
	if err := f.SetSheetRow(ExportSheetName, "A1", &exportHeaders); err != nil {
		return err
	}
	return f.SetRowHeight(ExportSheetName, 1, headerRowHeight)
}

func writeRecordRow(f *excelize.File, row, serial int, rec anpr.DetectionRecord) error {
	date, clock := splitTimestamp(rec)
	values := []interface{}{serial, rec.PlateNumber, anpr.PlateType(rec.VehicleClass), date, clock}
	if err := f.SetSheetRow(ExportSheetName, cell("A", row), &values); err != nil {
		return err
	}
	return f.SetRowHeight(ExportSheetName, row, dataRowHeight)
}

// splitTimestamp renders the effective timestamp as DD.MM.YY and HH:MM:SS in
// UTC, or two empty strings when the record has none.
func splitTimestamp(rec anpr.DetectionRecord) (string, string) {
	ts := anpr.EffectiveTimestamp(rec)
	if ts == nil {
		return "", ""
	}
	utc := ts.UTC()
	return utc.Format("02.01.06"), utc.Format("15:04:05")
}

func embedImage(f *excelize.File, row int, payload string) error {
	raw, err := imaging.DecodeBase64(payload)
	if err != nil {
		return err
	}
	thumb, ext, err := imaging.Thumbnail(raw, thumbWidth, thumbHeight)
	if err != nil {
		return err
	}
	return f.AddPictureFromBytes(ExportSheetName, cell("F", row), &excelize.Picture{
		Extension: ext,
		File:      thumb,
		Format: &excelize.GraphicOptions{
			OffsetX:     2,
			OffsetY:     2,
			Positioning: "oneCell",
		},
	})
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
