package normalisers

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexer/internal/normalisers/docx"
	"github.com/custodia-labs/sercha-indexer/internal/normalisers/eml"
	"github.com/custodia-labs/sercha-indexer/internal/normalisers/html"
	"github.com/custodia-labs/sercha-indexer/internal/normalisers/ics"
	"github.com/custodia-labs/sercha-indexer/internal/normalisers/markdown"
	"github.com/custodia-labs/sercha-indexer/internal/normalisers/pdf"
	"github.com/custodia-labs/sercha-indexer/internal/normalisers/plaintext"
	"github.com/custodia-labs/sercha-indexer/internal/normalisers/xlsx"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches items to normalisers by MIME type. When several
// normalisers accept a type the highest priority wins; a normaliser that
// reports domain.ErrUnsupportedType hands over to the next one.
type Registry struct {
	mu     sync.RWMutex
	byMIME map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byMIME: make(map[string][]driven.Normaliser)}
}

// Defaults returns a registry holding every bundled normaliser.
func Defaults() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(eml.New())
	r.Register(ics.New())
	r.Register(docx.New())
	r.Register(pdf.New())
	r.Register(xlsx.New())
	return r
}

// Register adds a normaliser for each of its MIME types.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mt := range n.SupportedMIMETypes() {
		mt = baseType(mt)
		list := append(r.byMIME[mt], n)
		slices.SortStableFunc(list, func(a, b driven.Normaliser) int {
			return b.Priority() - a.Priority()
		})
		r.byMIME[mt] = list
	}
}

// SupportedMIMETypes returns all registered MIME types in sorted order.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byMIME))
	for mt := range r.byMIME {
		types = append(types, mt)
	}
	slices.Sort(types)
	return types
}

// Normalise runs the best matching normaliser. Unknown text/* types fall back
// to the text/plain normalisers.
func (r *Registry) Normalise(ctx context.Context, in driven.NormaliseInput) (*driven.NormaliseResult, error) {
	candidates := r.candidates(in.MIMEType)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, mimeLabel(in.MIMEType))
	}

	var lastErr error
	for _, n := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := n.Normalise(ctx, in)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, domain.ErrUnsupportedType) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (r *Registry) candidates(mimeType string) []driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mt := baseType(mimeType)
	if list := r.byMIME[mt]; len(list) > 0 {
		return slices.Clone(list)
	}
	if strings.HasPrefix(mt, "text/") {
		return slices.Clone(r.byMIME["text/plain"])
	}
	return nil
}

// baseType strips parameters such as charset and lowercases the type.
func baseType(mimeType string) string {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

func mimeLabel(mimeType string) string {
	if mimeType == "" {
		return "unknown MIME type"
	}
	return mimeType
}
