package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"anpr-api/internal/domain/anpr"
)

// DetectedPlate is the relational layout of a detection record. Every column
// except the id is nullable.
type DetectedPlate struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	PlateNumber       *string
	RawText           *string
	Confidence        *float64
	OCREngine         *string `gorm:"column:ocr_engine"`
	Timestamp         *time.Time
	CreatedAt         *time.Time `gorm:"autoCreateTime:false"`
	FrameCoords       datatypes.JSON
	VehicleCoords     datatypes.JSON
	VehicleConfidence *float64
	VehicleClass      *int
	ImageSaved        *bool
	PlateImage        *string
}

var plateColumns = []string{
	"id", "plate_number", "raw_text", "confidence", "ocr_engine", `"timestamp"`, "created_at",
	"frame_coords", "vehicle_coords", "vehicle_confidence", "vehicle_class", "image_saved",
}

var sortColumns = map[anpr.Field]string{
	anpr.FieldTimestamp:   `"timestamp"`,
	anpr.FieldCreatedAt:   "created_at",
	anpr.FieldPlateNumber: "plate_number",
	anpr.FieldOCREngine:   "ocr_engine",
}

const effectiveTimestampSQL = `COALESCE("timestamp", created_at)`

type PostgresRepository struct {
	db    *gorm.DB
	table string
}

func NewPostgresRepository(db *gorm.DB, table string) *PostgresRepository {
	return &PostgresRepository{db: db, table: table}
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Table(r.table).Count(&n).Error
	return n, err
}

func (r *PostgresRepository) CountInRange(ctx context.Context, tr anpr.TimeRange) (int64, error) {
	var n int64
	err := applyRange(r.db.WithContext(ctx).Table(r.table), tr).Count(&n).Error
	return n, err
}

func (r *PostgresRepository) Iterate(ctx context.Context, q ListQuery, fn func(anpr.DetectionRecord) error) error {
	if err := q.validate(); err != nil {
		return err
	}
	columns := plateColumns
	if q.WithImage {
		columns = append(append([]string{}, plateColumns...), "plate_image")
	}

	query := applyRange(r.db.WithContext(ctx).Table(r.table).Select(columns), q.Range)
	for _, clause := range orderClauses(q.Sort) {
		query = query.Order(clause)
	}
	if q.Limit > 0 {
		query = query.Limit(int(q.Limit))
	}
	if q.Skip > 0 {
		query = query.Offset(int(q.Skip))
	}

	rows, err := query.Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var row DetectedPlate
		if err := r.db.ScanRows(rows, &row); err != nil {
			return fmt.Errorf("scan detection: %w", err)
		}
		if err := fn(row.toRecord()); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*anpr.DetectionRecord, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	var row DetectedPlate
	err = r.db.WithContext(ctx).Table(r.table).Where("id = ?", uid).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec := row.toRecord()
	return &rec, nil
}

func (r *PostgresRepository) FindImage(ctx context.Context, id string) (string, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return "", ErrInvalidID
	}

	var row DetectedPlate
	err = r.db.WithContext(ctx).Table(r.table).Select("plate_image").Where("id = ?", uid).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if row.PlateImage == nil || *row.PlateImage == "" {
		return "", ErrNotFound
	}
	return *row.PlateImage, nil
}

func applyRange(query *gorm.DB, tr anpr.TimeRange) *gorm.DB {
	if tr.From != nil {
		query = query.Where(effectiveTimestampSQL+" >= ?", *tr.From)
	}
	if tr.To != nil {
		query = query.Where(effectiveTimestampSQL+" <= ?", *tr.To)
	}
	return query
}

// orderClauses places NULLs first on ascending and last on descending keys,
// which is how MongoDB orders missing fields.
func orderClauses(keys []anpr.SortKey) []string {
	clauses := make([]string, 0, len(keys))
	for _, k := range keys {
		column, ok := sortColumns[k.Field]
		if !ok {
			continue
		}
		if k.Desc {
			clauses = append(clauses, column+" DESC NULLS LAST")
		} else {
			clauses = append(clauses, column+" ASC NULLS FIRST")
		}
	}
	return clauses
}

func (p DetectedPlate) toRecord() anpr.DetectionRecord {
	rec := anpr.DetectionRecord{
		ID:                p.ID.String(),
		PlateNumber:       deref(p.PlateNumber),
		RawText:           deref(p.RawText),
		Confidence:        p.Confidence,
		OCREngine:         deref(p.OCREngine),
		Timestamp:         utcPtr(p.Timestamp),
		CreatedAt:         utcPtr(p.CreatedAt),
		FrameCoords:       rawJSON(p.FrameCoords),
		VehicleCoords:     rawJSON(p.VehicleCoords),
		VehicleConfidence: p.VehicleConfidence,
		VehicleClass:      p.VehicleClass,
		PlateImage:        deref(p.PlateImage),
	}
	if p.ImageSaved != nil {
		rec.ImageSaved = *p.ImageSaved
	}
	return rec
}

func rawJSON(j datatypes.JSON) interface{} {
	if len(j) == 0 || strings.TrimSpace(string(j)) == "null" {
		return nil
	}
	return json.RawMessage(j)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
