package anpr

import (
	"time"
)

const isoMillisUTC = "2006-01-02T15:04:05.000Z"

// VehicleClassLabels maps vehicle_class codes to the plate type shown to users.
var VehicleClassLabels = map[int]string{
	0: "Unknown",
	1: "Private",
	2: "Commercial",
	3: "Government",
	4: "Special",
	5: "Diplomatic",
	6: "Taxi",
	7: "Truck",
}

const UnknownPlateType = "Unknown"

func PlateType(code *int) string {
	if code == nil {
		return UnknownPlateType
	}
	if label, ok := VehicleClassLabels[*code]; ok {
		return label
	}
	return UnknownPlateType
}

// EffectiveTimestamp is timestamp when present, otherwise created_at.
func EffectiveTimestamp(r DetectionRecord) *time.Time {
	if r.Timestamp != nil {
		return r.Timestamp
	}
	return r.CreatedAt
}

// FormatUTC renders t in UTC with millisecond precision and a Z suffix.
// Sub-millisecond digits are truncated.
func FormatUTC(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(isoMillisUTC)
	return &s
}

func Normalize(r DetectionRecord, includeImage bool) PlateView {
	view := PlateView{
		ID:                r.ID,
		PlateNumber:       r.PlateNumber,
		RawText:           r.RawText,
		Confidence:        r.Confidence,
		OCREngine:         r.OCREngine,
		Timestamp:         FormatUTC(EffectiveTimestamp(r)),
		FrameCoords:       r.FrameCoords,
		VehicleCoords:     r.VehicleCoords,
		VehicleConfidence: r.VehicleConfidence,
		VehicleClass:      r.VehicleClass,
		PlateType:         PlateType(r.VehicleClass),
		ImageSaved:        r.ImageSaved,
		CreatedAt:         FormatUTC(r.CreatedAt),
	}
	if includeImage && r.PlateImage != "" {
		view.PlateImage = r.PlateImage
	}
	return view
}
