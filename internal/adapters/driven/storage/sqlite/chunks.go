package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
)

// ChunkIndex stores chunks in an FTS5 table and answers keyword queries.
type ChunkIndex struct {
	store *Store
}

var (
	_ driven.ChunkStore    = (*ChunkIndex)(nil)
	_ driven.ChunkSearcher = (*ChunkIndex)(nil)
)

// ReplaceDocument swaps the chunks of a document in one transaction.
func (c *ChunkIndex) ReplaceDocument(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks_fts WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	if len(chunks) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks_fts (text, title, document_id, source_id, path, chunk_index)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

		for _, ch := range chunks {
			if _, err := stmt.ExecContext(ctx, ch.Text, ch.Title, documentID, ch.SourceID, ch.Path, ch.Index); err != nil {
				return fmt.Errorf("saving chunk %d: %w", ch.Index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteDocument removes every chunk of a document.
func (c *ChunkIndex) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := c.store.db.ExecContext(ctx, "DELETE FROM chunks_fts WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// DeleteSource removes every chunk of a source.
func (c *ChunkIndex) DeleteSource(ctx context.Context, sourceID string) error {
	if _, err := c.store.db.ExecContext(ctx, "DELETE FROM chunks_fts WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("deleting source chunks: %w", err)
	}
	return nil
}

// CountChunks returns the number of chunks stored for a source.
func (c *ChunkIndex) CountChunks(ctx context.Context, sourceID string) (int, error) {
	var n int
	err := c.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks_fts WHERE source_id = ?", sourceID).Scan(&n)
	return n, err
}

// Search runs a BM25-ranked keyword query. Every term must match.
func (c *ChunkIndex) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	match := ftsQuery(query)
	if match == "" {
		return []domain.SearchResult{}, nil
	}

	sqlText := `
		SELECT source_id, path, title, chunk_index,
			snippet(chunks_fts, 0, '[', ']', '...', 12), bm25(chunks_fts)
		FROM chunks_fts
		WHERE chunks_fts MATCH ?`
	args := []any{match}
	if len(opts.SourceIDs) > 0 {
		sqlText += " AND source_id IN (" + strings.TrimSuffix(strings.Repeat("?,", len(opts.SourceIDs)), ",") + ")"
		for _, id := range opts.SourceIDs {
			args = append(args, id)
		}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	sqlText += " ORDER BY bm25(chunks_fts) LIMIT ?"
	args = append(args, limit)

	rows, err := c.store.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	results := []domain.SearchResult{}
	for rows.Next() {
		var r domain.SearchResult
		var rank float64
		if err := rows.Scan(&r.SourceID, &r.Path, &r.Title, &r.ChunkIndex, &r.Snippet, &rank); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		// bm25 is negative; lower is better.
		r.Score = -rank
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating results: %w", err)
	}
	return results, nil
}

// ftsQuery quotes every term so user input cannot use FTS5 syntax.
func ftsQuery(query string) string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		terms = append(terms, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " ")
}
