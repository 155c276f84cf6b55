// Package pdf extracts page text from PDF documents.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MIMEType is the PDF content type.
const MIMEType = "application/pdf"

// Normaliser handles PDF documents.
type Normaliser struct{}

// New creates a new PDF normaliser.
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

// Normalise extracts the plain text of every page. Pages that fail to
// decode are skipped; a document without any page is invalid input.
func (n *Normaliser) Normalise(ctx context.Context, in driven.NormaliseInput) (*driven.NormaliseResult, error) {
	reader, err := pdf.NewReader(bytes.NewReader(in.Content), int64(len(in.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: parse pdf: %v", domain.ErrInvalidInput, err)
	}

	pages := reader.NumPage()
	parts := make([]string, 0, pages)
	failed := 0
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			failed++
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}

	title := infoString(reader, "Title")
	if title == "" {
		title = titleFromPath(in.Path)
	}

	meta := map[string]string{
		"mime_type": in.MIMEType,
		"format":    "pdf",
		"pages":     strconv.Itoa(pages),
	}
	if author := infoString(reader, "Author"); author != "" {
		meta["author"] = author
	}
	if failed > 0 {
		meta["failed_pages"] = strconv.Itoa(failed)
	}

	return &driven.NormaliseResult{
		Title:    title,
		Text:     strings.Join(parts, "\n\n"),
		Metadata: meta,
	}, nil
}

// infoString reads a string from the document information dictionary.
func infoString(r *pdf.Reader, key string) string {
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return ""
	}
	return strings.TrimSpace(info.Key(key).Text())
}

func titleFromPath(path string) string {
	filename := filepath.Base(path)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
}
