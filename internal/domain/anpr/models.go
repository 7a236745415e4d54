package anpr

import (
	"time"
)

const (
	MaxPageLimit     = 50000
	DefaultPageLimit = 25
	MaxExportRows    = 5000
)

// DetectionRecord is a stored detection document. Every field except ID may
// be missing in storage, since the ingestion pipeline changed its schema over
// time.
type DetectionRecord struct {
	ID                string
	PlateNumber       string
	RawText           string
	Confidence        *float64
	OCREngine         string
	Timestamp         *time.Time
	CreatedAt         *time.Time
	FrameCoords       interface{}
	VehicleCoords     interface{}
	VehicleConfidence *float64
	VehicleClass      *int
	ImageSaved        bool
	PlateImage        string
}

type PlateView struct {
	ID                string      `json:"id"`
	PlateNumber       string      `json:"plate_number"`
	RawText           string      `json:"raw_text"`
	Confidence        *float64    `json:"confidence"`
	OCREngine         string      `json:"ocr_engine"`
	Timestamp         *string     `json:"timestamp"`
	FrameCoords       interface{} `json:"frame_coords"`
	VehicleCoords     interface{} `json:"vehicle_coords"`
	VehicleConfidence *float64    `json:"vehicle_confidence"`
	VehicleClass      *int        `json:"vehicle_class"`
	PlateType         string      `json:"plate_type"`
	ImageSaved        bool        `json:"image_saved"`
	CreatedAt         *string     `json:"created_at"`
	PlateImage        string      `json:"plate_image,omitempty"`
}

type PageMeta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int64 `json:"pages"`
}

type PageEnvelope struct {
	Items []PlateView `json:"items"`
	PageMeta
}

// NewPageMeta computes the page count as ceil(total/limit).
func NewPageMeta(total int64, page, limit int) PageMeta {
	meta := PageMeta{Total: total, Page: page, Limit: limit}
	if limit > 0 {
		meta.Pages = (total + int64(limit) - 1) / int64(limit)
	}
	return meta
}

type Stats struct {
	Total   int64 `json:"total"`
	Today   int64 `json:"today"`
	Week    int64 `json:"week"`
	Cameras int   `json:"cameras"`
	Sites   int   `json:"sites"`
}

// TimeRange bounds the effective timestamp of a record. Both ends are
// inclusive; a nil end is unbounded.
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

func (r TimeRange) IsZero() bool {
	return r.From == nil && r.To == nil
}

func (r TimeRange) Contains(t *time.Time) bool {
	if r.IsZero() {
		return true
	}
	if t == nil {
		return false
	}
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}
