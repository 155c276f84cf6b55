package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// sniffLen is how much of the content is checked for NUL bytes.
const sniffLen = 8000

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Normaliser handles plain text, structured text and source code. It is the
// fallback for every text/* type without a dedicated normaliser.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/csv",
		"text/tab-separated-values",
		"text/x-log",
		"text/x-go",
		"text/x-python",
		"text/x-java",
		"text/x-c",
		"text/x-shellscript",
		"text/x-sql",
		"text/yaml",
		"text/toml",
		"text/javascript",
		"text/css",
		"application/json",
		"application/xml",
		"application/x-ndjson",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // fallback
}

// Normalise returns the content as UTF-8 text with unified line endings.
// Content that looks binary is refused with domain.ErrUnsupportedType so a
// mislabelled file surfaces as an item error instead of indexed garbage.
func (n *Normaliser) Normalise(_ context.Context, in driven.NormaliseInput) (*driven.NormaliseResult, error) {
	content := bytes.TrimPrefix(in.Content, utf8BOM)
	if looksBinary(content) {
		return nil, fmt.Errorf("%w: %s looks binary", domain.ErrUnsupportedType, filepath.Base(in.Path))
	}

	text := strings.ToValidUTF8(string(content), "�")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)

	lines := 0
	if text != "" {
		lines = strings.Count(text, "\n") + 1
	}

	return &driven.NormaliseResult{
		Title: extractTitle(in.Path),
		Text:  text,
		Metadata: map[string]string{
			"mime_type": in.MIMEType,
			"format":    "text",
			"lines":     strconv.Itoa(lines),
		},
	}, nil
}

func looksBinary(content []byte) bool {
	if len(content) > sniffLen {
		content = content[:sniffLen]
	}
	return bytes.IndexByte(content, 0) >= 0
}

// extractTitle turns the file name into a readable title.
func extractTitle(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
