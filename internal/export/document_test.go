package export

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"

	"github.com/JonMunkholm/dataflow/internal/core"
)

func manyTracks(n int) []core.Record {
	records := make([]core.Record, n)
	for i := range records {
		records[i] = track(float64(i+1), "Track", core.NumberValue(float64(i)), core.Null(core.KindDate))
	}
	return records
}

func TestEncodeDocument(t *testing.T) {
	data, err := EncodeDocument(sampleTracks(), trackSchema(), Options{})
	if err != nil {
		t.Fatalf("EncodeDocument() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output does not start with a PDF header: %q", data[:min(len(data), 8)])
	}

	pages, err := PageCount(data)
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if pages != 1 {
		t.Errorf("pages = %d, want 1", pages)
	}
}

func TestEncodeDocument_Paginates(t *testing.T) {
	data, err := EncodeDocument(manyTracks(200), trackSchema(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	pages, err := PageCount(data)
	if err != nil {
		t.Fatal(err)
	}
	if pages < 2 {
		t.Errorf("pages = %d, want more than one for 200 rows", pages)
	}
}

func TestEncodeDocument_Optimized(t *testing.T) {
	data, err := EncodeDocument(manyTracks(50), trackSchema(), Options{Optimize: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := PageCount(data); err != nil {
		t.Errorf("optimized output does not parse: %v", err)
	}
}

func TestEncodeDocument_DefaultsToExportedColumns(t *testing.T) {
	s := trackSchema()
	s.Export.Document = core.DocumentLayout{}

	data, err := EncodeDocument(sampleTracks(), s, Options{})
	if err != nil {
		t.Fatalf("EncodeDocument() error = %v", err)
	}
	if len(data) == 0 {
		t.Error("empty document")
	}
}

func TestResolveColumns(t *testing.T) {
	pdf := fpdf.New("L", "mm", "A4", "")
	cols, refs, err := resolveColumns(pdf, trackSchema())
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 3 || len(refs) != 3 {
		t.Fatalf("got %d columns, %d refs, want 3", len(cols), len(refs))
	}
	// 297mm page, 14mm margins, 75mm fixed.
	if want := 297.0 - 28 - 75; math.Abs(cols[2].Width-want) > 0.01 {
		t.Errorf("flexible width = %v, want %v", cols[2].Width, want)
	}
	if refs[2] != 4 {
		t.Errorf("refs[2] = %d, want 4 (released)", refs[2])
	}
}

func TestFitText(t *testing.T) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont(documentFont, "", fontSize)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if got := fitText(pdf, tr, "short", 40); got != "short" {
		t.Errorf("fitText(short) = %q, want unchanged", got)
	}

	long := strings.Repeat("very long title ", 20)
	got := fitText(pdf, tr, long, 40)
	if !strings.HasSuffix(got, ellipsis) {
		t.Errorf("fitText(long) = %q, want ellipsis suffix", got)
	}
	if w := pdf.GetStringWidth(got); w > 40-2*cellPadding {
		t.Errorf("truncated width = %v, want <= %v", w, 40-2*cellPadding)
	}
}
