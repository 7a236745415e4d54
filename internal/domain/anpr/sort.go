package anpr

type Field string

const (
	FieldTimestamp   Field = "timestamp"
	FieldCreatedAt   Field = "created_at"
	FieldPlateNumber Field = "plate_number"
	FieldOCREngine   Field = "ocr_engine"
)

type SortKey struct {
	Field Field
	Desc  bool
}

const (
	SortDateDesc = "date-desc"
	SortDateAsc  = "date-asc"
	SortPlate    = "plate"
	SortSite     = "site"

	DefaultSort = SortDateDesc
)

// SortOrders maps every accepted sort name to its full ordering including
// tie-breakers, so that paging through a result set stays stable.
var SortOrders = map[string][]SortKey{
	SortDateDesc: {
		{Field: FieldTimestamp, Desc: true},
		{Field: FieldCreatedAt, Desc: true},
	},
	SortDateAsc: {
		{Field: FieldTimestamp},
		{Field: FieldCreatedAt},
	},
	SortPlate: {
		{Field: FieldPlateNumber},
	},
	SortSite: {
		{Field: FieldOCREngine},
		{Field: FieldTimestamp, Desc: true},
		{Field: FieldCreatedAt, Desc: true},
	},
}

// SortOrder returns the ordering for name, falling back to date-desc.
func SortOrder(name string) []SortKey {
	if keys, ok := SortOrders[name]; ok {
		return keys
	}
	return SortOrders[DefaultSort]
}
