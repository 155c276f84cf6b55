// Package index provides the bundled content processor. It normalises item
// bytes to text, splits the text into chunks and stores them in a ChunkStore.
package index

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexer/internal/logger"
	"github.com/custodia-labs/sercha-indexer/internal/postprocessors/chunker"
)

// Ensure Processor implements the interfaces.
var (
	_ driven.ContentProcessor = (*Processor)(nil)
	_ driven.SourcePurger     = (*Processor)(nil)
)

// Processor indexes item content into a chunk store.
type Processor struct {
	registry driven.NormaliserRegistry
	store    driven.ChunkStore
}

// NewProcessor creates a processor.
func NewProcessor(registry driven.NormaliserRegistry, store driven.ChunkStore) *Processor {
	return &Processor{registry: registry, store: store}
}

// Process normalises content and replaces the chunks stored for the item.
// Chunk geometry comes from the source. Text that yields no chunks removes
// any previous entries and reports zero.
func (p *Processor) Process(ctx context.Context, source domain.Source, path string, content []byte, mimeType string) (int, error) {
	result, err := p.registry.Normalise(ctx, driven.NormaliseInput{
		SourceID: source.ID,
		Path:     path,
		MIMEType: mimeType,
		Content:  content,
	})
	if err != nil {
		return 0, fmt.Errorf("normalise %s: %w", path, err)
	}

	split := chunker.New(
		chunker.WithChunkSize(source.ChunkSize),
		chunker.WithOverlap(source.ChunkOverlap),
		chunker.WithMaxChunks(source.MaxChunksPerItem),
	).Split(result.Text)

	docID := driven.DocumentID(source.ID, path)
	if !source.FulltextEnabled {
		// Chunks are still counted so the item reads as indexed.
		if err := p.store.DeleteDocument(ctx, docID); err != nil {
			return 0, err
		}
		return len(split), nil
	}

	chunks := make([]domain.Chunk, len(split))
	for i, text := range split {
		chunks[i] = domain.Chunk{
			DocumentID: docID,
			SourceID:   source.ID,
			Path:       path,
			Title:      result.Title,
			Index:      i,
			Text:       text,
		}
	}
	if err := p.store.ReplaceDocument(ctx, docID, chunks); err != nil {
		return 0, fmt.Errorf("store chunks for %s: %w", path, err)
	}

	logger.Debug("index: %s -> %d chunks", docID, len(chunks))
	return len(chunks), nil
}

// RemoveFromIndex deletes every chunk of a document.
func (p *Processor) RemoveFromIndex(ctx context.Context, documentID string) error {
	return p.store.DeleteDocument(ctx, documentID)
}

// RemoveSource deletes every chunk of a source.
func (p *Processor) RemoveSource(ctx context.Context, sourceID string) error {
	return p.store.DeleteSource(ctx, sourceID)
}
