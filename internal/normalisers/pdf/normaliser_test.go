package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
)

func TestNormaliser_Metadata(t *testing.T) {
	n := New()
	assert.Equal(t, []string{"application/pdf"}, n.SupportedMIMETypes())
	assert.Equal(t, 50, n.Priority())
}

func TestNormalise_InvalidInput(t *testing.T) {
	_, err := New().Normalise(context.Background(), driven.NormaliseInput{
		Path:     "/docs/broken.pdf",
		MIMEType: MIMEType,
		Content:  []byte("not a pdf"),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTitleFromPath(t *testing.T) {
	assert.Equal(t, "annual report 2024", titleFromPath("/docs/annual_report-2024.pdf"))
}
