package core

import "time"

// FieldKind is the value type of a schema field.
type FieldKind int

const (
	KindString FieldKind = iota
	KindNumber
	KindDate
)

// String returns the lower-case name of the kind.
func (k FieldKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

// FieldKey identifies a field. It matches the JSON key used by the record payload.
type FieldKey string

// FieldRef is the position of a field inside its schema.
// Obtain one with Schema.Ref; it is only meaningful for that schema.
type FieldRef int

// FieldDescriptor defines one column of a record schema.
type FieldDescriptor struct {
	Key         FieldKey  // Payload key: "work_title"
	Label       string    // Table header: "Work Title"
	Kind        FieldKind // Value type used for decoding, sorting and export
	Searchable  bool      // Included in free-text search
	Sortable    bool      // May be used as the sort field
	Exported    bool      // Included in the spreadsheet export
	ExportLabel string    // Spreadsheet header; falls back to Label
}

// HeaderLabel returns the spreadsheet header for the field.
func (f FieldDescriptor) HeaderLabel() string {
	if f.ExportLabel != "" {
		return f.ExportLabel
	}
	return f.Label
}

// Orientation is the page orientation of the document export.
type Orientation string

const (
	Portrait  Orientation = "P"
	Landscape Orientation = "L"
)

// DocumentColumn is one column of the printable report.
// Width is in millimetres; zero shares the remaining page width.
type DocumentColumn struct {
	Key   FieldKey
	Label string
	Width float64
}

// DocumentLayout is the curated projection used for the paginated report.
type DocumentLayout struct {
	Title       string
	Orientation Orientation
	Columns     []DocumentColumn
}

// ExportLayout holds the schema-bound export settings.
type ExportLayout struct {
	FileBase  string // "music_catalog" -> music_catalog.xlsx / music_catalog.pdf
	SheetName string
	Document  DocumentLayout
}

// StatLabels names the aggregate figures for display.
type StatLabels struct {
	Count   string
	Sum     string
	Average string
	Max     string
}

// ViewState is the transient browse state owned by the UI.
// The query engine receives it by value and never stores it.
type ViewState struct {
	SearchTerm    string
	SortField     FieldKey
	SortAscending bool
	Selected      *Record
}

// ToggleSort returns the state after the user picks a sort column.
// Picking the current column flips the direction; a new column starts ascending.
func (v ViewState) ToggleSort(field FieldKey) ViewState {
	if v.SortField == field {
		v.SortAscending = !v.SortAscending
		return v
	}
	v.SortField = field
	v.SortAscending = true
	return v
}

// Stats are the aggregates of a filtered view.
type Stats struct {
	Count   int
	Sum     float64
	Average float64
	Max     float64
}

// View is the filtered, sorted projection of the store.
type View struct {
	Records []Record
	Stats   Stats
}

// UploadCandidate describes a file picked or dropped by the user.
type UploadCandidate struct {
	Filename  string
	SizeBytes int64
	MIMEType  string
}

// UploadPolicy restricts which files may be uploaded.
type UploadPolicy struct {
	AllowedExtensions []string // Dot-prefixed, matched case-insensitively
	MaxSizeBytes      int64
}

// DefaultMaxUploadSize is 10 MiB.
const DefaultMaxUploadSize int64 = 10 * 1024 * 1024

// DefaultUploadPolicy accepts the spreadsheet formats the collaborator can ingest.
func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		AllowedExtensions: []string{".csv", ".xlsx", ".xls", ".ods"},
		MaxSizeBytes:      DefaultMaxUploadSize,
	}
}

// StoreStatus is the loading/error state of the record store for the UI.
type StoreStatus struct {
	Loading    bool
	Err        error // Last refresh failure; nil after a successful refresh
	Generation uint64
	UpdatedAt  time.Time
	Count      int
}
