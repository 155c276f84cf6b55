package html

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise extracts readable text and the <title> of an HTML document.
func (n *Normaliser) Normalise(_ context.Context, in driven.NormaliseInput) (*driven.NormaliseResult, error) {
	title, text, err := Extract(in.Content)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = titleFromPath(in.Path)
	}

	return &driven.NormaliseResult{
		Title: title,
		Text:  text,
		Metadata: map[string]string{
			"mime_type": in.MIMEType,
			"format":    "html",
		},
	}, nil
}

// skipped elements contribute no text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Template: true,
}

// block elements start a new line.
var block = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Hr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Tr: true, atom.Blockquote: true, atom.Pre: true, atom.Table: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
}

// Extract returns the document title and its visible text, one block per line.
func Extract(content []byte) (title, text string, err error) {
	z := xhtml.NewTokenizer(bytes.NewReader(content))

	var (
		sb      strings.Builder
		tb      strings.Builder
		depth   int // inside skipped elements
		inTitle bool
	)
	for {
		tt := z.Next()
		switch tt {
		case xhtml.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return strings.TrimSpace(collapse(tb.String())), tidy(sb.String()), nil
			}
			return "", "", z.Err()
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case a == atom.Title:
				inTitle = tt == xhtml.StartTagToken
			case skipped[a] && tt == xhtml.StartTagToken:
				depth++
			case block[a]:
				sb.WriteByte('\n')
			}
		case xhtml.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case a == atom.Title:
				inTitle = false
			case skipped[a]:
				if depth > 0 {
					depth--
				}
			case block[a]:
				sb.WriteByte('\n')
			}
		case xhtml.TextToken:
			if depth > 0 {
				continue
			}
			if inTitle {
				tb.Write(z.Text())
				continue
			}
			sb.Write(z.Text())
		}
	}
}

// collapse folds runs of spaces and tabs into one space.
func collapse(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }), " ")
}

// tidy trims lines and drops empty ones.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = collapse(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func titleFromPath(path string) string {
	filename := filepath.Base(path)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
}
