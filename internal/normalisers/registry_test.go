package normalisers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
)

type stubNormaliser struct {
	types    []string
	priority int
	title    string
	err      error
}

func (s *stubNormaliser) SupportedMIMETypes() []string { return s.types }
func (s *stubNormaliser) Priority() int                { return s.priority }
func (s *stubNormaliser) Normalise(_ context.Context, _ driven.NormaliseInput) (*driven.NormaliseResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &driven.NormaliseResult{Title: s.title}, nil
}

func TestRegistry_PriorityWins(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{types: []string{"text/plain"}, priority: 5, title: "low"})
	r.Register(&stubNormaliser{types: []string{"text/plain"}, priority: 90, title: "high"})

	result, err := r.Normalise(context.Background(), driven.NormaliseInput{MIMEType: "text/plain; charset=utf-8"})

	require.NoError(t, err)
	assert.Equal(t, "high", result.Title)
}

func TestRegistry_FallsThroughOnUnsupported(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{types: []string{"text/html"}, priority: 90, err: domain.ErrUnsupportedType})
	r.Register(&stubNormaliser{types: []string{"text/html"}, priority: 50, title: "generic"})

	result, err := r.Normalise(context.Background(), driven.NormaliseInput{MIMEType: "text/html"})

	require.NoError(t, err)
	assert.Equal(t, "generic", result.Title)
}

func TestRegistry_OtherErrorsStop(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry()
	r.Register(&stubNormaliser{types: []string{"text/html"}, priority: 90, err: boom})
	r.Register(&stubNormaliser{types: []string{"text/html"}, priority: 50, title: "generic"})

	_, err := r.Normalise(context.Background(), driven.NormaliseInput{MIMEType: "text/html"})

	assert.ErrorIs(t, err, boom)
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewRegistry()

	_, err := r.Normalise(context.Background(), driven.NormaliseInput{MIMEType: "image/png"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = r.Normalise(context.Background(), driven.NormaliseInput{})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_TextFallback(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{types: []string{"text/plain"}, priority: 5, title: "plain"})

	result, err := r.Normalise(context.Background(), driven.NormaliseInput{MIMEType: "text/x-unknown"})

	require.NoError(t, err)
	assert.Equal(t, "plain", result.Title)
}

func TestDefaults(t *testing.T) {
	r := Defaults()

	types := r.SupportedMIMETypes()
	for _, mt := range []string{"text/plain", "text/markdown", "text/html", "message/rfc822", "text/calendar"} {
		assert.Contains(t, types, mt)
	}
	assert.IsNonDecreasing(t, types)

	result, err := r.Normalise(context.Background(), driven.NormaliseInput{
		Path:     "/docs/notes.md",
		MIMEType: "text/markdown",
		Content:  []byte("# Notes\n\nSome **text** here."),
	})
	require.NoError(t, err)
	assert.Equal(t, "Notes", result.Title)
	assert.Contains(t, result.Text, "Some text here.")
}
