// Package xlsx extracts cell text from Excel workbooks.
package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MIMEType is the Office Open XML spreadsheet content type.
const MIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxCellsPerSheet bounds the text taken from one sheet.
const maxCellsPerSheet = 10000

// Normaliser handles XLSX workbooks.
type Normaliser struct{}

// New creates a new XLSX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise emits one block per sheet with one tab-separated line per row.
func (n *Normaliser) Normalise(ctx context.Context, in driven.NormaliseInput) (*driven.NormaliseResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(in.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", domain.ErrInvalidInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	parts := make([]string, 0, len(sheets))
	for _, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		if text := sheetText(sheet, rows); text != "" {
			parts = append(parts, text)
		}
	}

	title := titleFromPath(in.Path)
	meta := map[string]string{
		"mime_type": in.MIMEType,
		"format":    "xlsx",
		"sheets":    strconv.Itoa(len(sheets)),
	}
	if props, err := f.GetDocProps(); err == nil && props != nil {
		if t := strings.TrimSpace(props.Title); t != "" {
			title = t
		}
		if c := strings.TrimSpace(props.Creator); c != "" {
			meta["author"] = c
		}
	}

	return &driven.NormaliseResult{
		Title:    title,
		Text:     strings.Join(parts, "\n\n"),
		Metadata: meta,
	}, nil
}

func sheetText(name string, rows [][]string) string {
	var sb strings.Builder
	cells := 0
	for _, row := range rows {
		var values []string
		for _, cell := range row {
			if cell = strings.TrimSpace(cell); cell != "" {
				values = append(values, cell)
			}
		}
		if len(values) == 0 {
			continue
		}
		sb.WriteString(strings.Join(values, "\t"))
		sb.WriteByte('\n')
		if cells += len(values); cells >= maxCellsPerSheet {
			break
		}
	}
	if sb.Len() == 0 {
		return ""
	}
	return "Sheet: " + name + "\n" + strings.TrimRight(sb.String(), "\n")
}

func titleFromPath(path string) string {
	filename := filepath.Base(path)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
}
