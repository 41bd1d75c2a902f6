package export

// document.go renders the paginated report.
//
// Layout follows a grid-themed table: title line at the top of the first
// page, a filled header row repeated on every page, one row per record.
// Column widths come from the schema; columns without a width share the
// remaining page width equally. Text that does not fit a cell is truncated.

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/JonMunkholm/dataflow/internal/core"
)

const (
	pageMargin   = 14.0 // mm, left/right/bottom
	titleY       = 15.0 // baseline of the title line
	tableTop     = 20.0
	rowHeight    = 6.0
	fontSize     = 8.0
	titleSize    = 14.0
	cellPadding  = 1.0
	ellipsis     = "..."
	documentFont = "Helvetica"
)

// headerFill is the header row background.
var headerFill = [3]int{52, 211, 153}

// EncodeDocument renders records as an A4 report over the schema's
// document columns. When opts.Optimize is set the output is passed through
// pdfcpu; if optimization fails the unoptimized bytes are returned.
func EncodeDocument(records []core.Record, schema *core.Schema, opts Options) ([]byte, error) {
	if len(records) == 0 {
		return nil, core.ErrNothingToExport
	}

	layout := schema.Export.Document
	orientation := string(layout.Orientation)
	if orientation == "" {
		orientation = string(core.Portrait)
	}

	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(pageMargin, tableTop, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.SetTitle(layout.Title, true)
	pdf.SetCreationDate(timestamp())
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	cols, refs, err := resolveColumns(pdf, schema)
	if err != nil {
		return nil, err
	}

	_, pageHeight := pdf.GetPageSize()
	bottom := pageHeight - pageMargin
	dateLayout := opts.dateLayout()

	pdf.AddPage()
	if layout.Title != "" {
		pdf.SetFont(documentFont, "B", titleSize)
		pdf.Text(pageMargin, titleY, tr(layout.Title))
	}
	pdf.SetXY(pageMargin, tableTop)
	drawHeader(pdf, cols, tr)

	pdf.SetFont(documentFont, "", fontSize)
	for _, r := range records {
		if pdf.GetY()+rowHeight > bottom {
			pdf.AddPage()
			pdf.SetXY(pageMargin, tableTop)
			drawHeader(pdf, cols, tr)
			pdf.SetFont(documentFont, "", fontSize)
		}
		for i, col := range cols {
			text := fitText(pdf, tr, formatCell(r.Get(refs[i]), dateLayout), col.Width)
			pdf.CellFormat(col.Width, rowHeight, text, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}

	if !opts.Optimize {
		return buf.Bytes(), nil
	}
	optimized, err := optimize(buf.Bytes())
	if err != nil {
		return buf.Bytes(), nil
	}
	return optimized, nil
}

// resolveColumns returns the document columns with concrete widths and the
// field refs they read from.
func resolveColumns(pdf *fpdf.Fpdf, schema *core.Schema) ([]core.DocumentColumn, []core.FieldRef, error) {
	cols := append([]core.DocumentColumn(nil), schema.Export.Document.Columns...)
	if len(cols) == 0 {
		for _, ref := range schema.ExportRefs() {
			f := schema.Field(ref)
			cols = append(cols, core.DocumentColumn{Key: f.Key, Label: f.Label})
		}
	}

	refs := make([]core.FieldRef, len(cols))
	fixed, flexible := 0.0, 0
	for i, col := range cols {
		ref, ok := schema.Ref(col.Key)
		if !ok {
			return nil, nil, fmt.Errorf("document column %q: %w", col.Key, core.ErrUnknownField)
		}
		refs[i] = ref
		if col.Width > 0 {
			fixed += col.Width
		} else {
			flexible++
		}
	}

	pageWidth, _ := pdf.GetPageSize()
	usable := pageWidth - 2*pageMargin
	if flexible > 0 {
		share := (usable - fixed) / float64(flexible)
		if share < 10 {
			share = 10
		}
		for i := range cols {
			if cols[i].Width <= 0 {
				cols[i].Width = share
			}
		}
	}
	return cols, refs, nil
}

func drawHeader(pdf *fpdf.Fpdf, cols []core.DocumentColumn, tr func(string) string) {
	pdf.SetFont(documentFont, "B", fontSize)
	pdf.SetFillColor(headerFill[0], headerFill[1], headerFill[2])
	pdf.SetTextColor(255, 255, 255)
	for _, col := range cols {
		pdf.CellFormat(col.Width, rowHeight, fitText(pdf, tr, col.Label, col.Width), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
}

// fitText translates s for the core font and truncates it with an ellipsis
// so that it fits in a cell of width w. Truncation works on runes before
// translation so multi-byte characters are never split.
func fitText(pdf *fpdf.Fpdf, tr func(string) string, s string, w float64) string {
	limit := w - 2*cellPadding
	if out := tr(s); pdf.GetStringWidth(out) <= limit {
		return out
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if out := tr(string(runes) + ellipsis); pdf.GetStringWidth(out) <= limit {
			return out
		}
	}
	return ""
}

// optimize rewrites a PDF with pdfcpu and checks it still parses.
func optimize(raw []byte) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(raw), &out, conf); err != nil {
		return nil, fmt.Errorf("optimize document: %w", err)
	}
	if _, err := api.PageCount(bytes.NewReader(out.Bytes()), conf); err != nil {
		return nil, fmt.Errorf("verify optimized document: %w", err)
	}
	return out.Bytes(), nil
}

// PageCount returns the number of pages of an encoded document.
func PageCount(doc []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(doc), conf)
}
