package result

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"todoweb/internal/store"
)

var ErrUnknownFormat = errors.New("unknown export format")

type Lister interface {
	List(ctx context.Context) ([]store.Todo, error)
}

type Exporter struct{ st Lister }

func NewExporter(st Lister) *Exporter { return &Exporter{st: st} }

// ContentType returns the MIME type for an export format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "csv":
		return "text/csv"
	case "pdf":
		return "application/pdf"
	default:
		return "application/json"
	}
}

func (e *Exporter) Export(ctx context.Context, format string) ([]byte, error) {
	format = strings.ToLower(format)
	switch format {
	case "json", "csv", "pdf":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	all, err := e.st.List(ctx)
	if err != nil {
		return nil, err
	}
	switch format {
	case "json":
		return json.MarshalIndent(all, "", "  ")
	case "csv":
		return exportCSV(all)
	default:
		return exportPDF(all)
	}
}

func exportCSV(all []store.Todo) ([]byte, error) {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	_ = w.Write([]string{"id", "title", "description", "completed", "created_at", "updated_at"})
	for _, t := range all {
		desc := ""
		if t.Description != nil {
			desc = *t.Description
		}
		_ = w.Write([]string{
			t.ID, t.Title, desc, fmt.Sprint(t.Completed),
			t.CreatedAt.UTC().Format(time.RFC3339), t.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func exportPDF(all []store.Todo) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252; titles arrive as UTF-8.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "Todos")
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 10)
	if len(all) == 0 {
		pdf.Cell(40, 6, "No todos yet.")
	}
	for _, t := range all {
		pdf.MultiCell(0, 6, pdfLine(t, tr), "0", "L", false)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func pdfLine(t store.Todo, tr func(string) string) string {
	box := "[ ]"
	if t.Completed {
		box = "[x]"
	}
	line := fmt.Sprintf("%s %s (created %s)", box, t.Title, t.CreatedAt.UTC().Format("2006-01-02"))
	if t.Description != nil && *t.Description != "" {
		line += " - " + *t.Description
	}
	return tr(line)
}
