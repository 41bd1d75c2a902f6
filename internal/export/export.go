// Package export serializes record sets to downloadable files.
//
// Two formats are supported: a spreadsheet (.xlsx) with every exported field,
// and a paginated report (.pdf) over the schema's curated column projection.
// Both encoders are pure: they take the full record set and the schema and
// return the file bytes. An empty record set yields core.ErrNothingToExport
// and no file.
//
// Encoding can be slow for large sets, so callers in the UI path should go
// through a Runner, which encodes on its own goroutine and hands the bytes to
// a Sink.
package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/dataflow/internal/core"
)

// Format is an export file format.
type Format string

const (
	XLSX Format = "xlsx"
	PDF  Format = "pdf"
)

// Formats lists the supported formats in UI order.
var Formats = []Format{XLSX, PDF}

// DefaultDateLayout renders dates as the en-US short date, e.g. 3/7/2021.
const DefaultDateLayout = "1/2/2006"

// ParseFormat parses a format name such as "xlsx", "XLSX" or ".pdf".
func ParseFormat(s string) (Format, error) {
	switch Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")) {
	case XLSX:
		return XLSX, nil
	case PDF:
		return PDF, nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case PDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// Filename returns the schema-bound output filename, e.g. music_catalog.xlsx.
func Filename(schema *core.Schema, f Format) string {
	return schema.Export.FileBase + "." + string(f)
}

// Options control cell rendering.
type Options struct {
	// DateLayout is the Go time layout for date cells (default: DefaultDateLayout).
	DateLayout string

	// Optimize runs the rendered PDF through pdfcpu's optimizer.
	Optimize bool
}

func (o Options) dateLayout() string {
	if o.DateLayout == "" {
		return DefaultDateLayout
	}
	return o.DateLayout
}

// Encode dispatches to the encoder for f.
func Encode(f Format, records []core.Record, schema *core.Schema, opts Options) ([]byte, error) {
	switch f {
	case XLSX:
		return EncodeSpreadsheet(records, schema, opts)
	case PDF:
		return EncodeDocument(records, schema, opts)
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownFormat, string(f))
	}
}

// formatCell renders a value as cell text. Absent values are "".
func formatCell(v core.Value, dateLayout string) string {
	if !v.Valid() {
		return ""
	}
	switch v.Kind() {
	case core.KindNumber:
		n, _ := v.Number()
		return strconv.FormatFloat(n, 'f', -1, 64)
	case core.KindDate:
		t, _ := v.Time()
		return t.Format(dateLayout)
	default:
		s, _ := v.Text()
		return s
	}
}

// timestamp is swapped in tests.
var timestamp = time.Now
