package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
)

// sourceStore implements driven.SourceStore.
type sourceStore struct {
	store *Store
}

var _ driven.SourceStore = (*sourceStore)(nil)

// sourceConfig is the JSON form of the fields without their own column.
type sourceConfig struct {
	ScopePaths         []string `json:"scope_paths,omitempty"`
	IncludePatterns    []string `json:"include_patterns,omitempty"`
	ExcludePatterns    []string `json:"exclude_patterns,omitempty"`
	MaxDepth           int      `json:"max_depth"`
	MaxFileSizeBytes   int64    `json:"max_file_size_bytes"`
	Schedule           string   `json:"schedule"`
	IntervalMinutes    int      `json:"interval_minutes"`
	StartHour          int      `json:"start_hour"`
	StartMinute        int      `json:"start_minute"`
	MaxDurationMinutes int      `json:"max_duration_minutes"`
	ChangeDetection    string   `json:"change_detection"`
	Direction          string   `json:"direction"`
	FulltextEnabled    bool     `json:"fulltext_enabled"`
	EmbeddingEnabled   bool     `json:"embedding_enabled"`
	ChunkSize          int      `json:"chunk_size"`
	ChunkOverlap       int      `json:"chunk_overlap"`
	MaxChunksPerItem   int      `json:"max_chunks_per_item"`
	Watch              bool     `json:"watch"`
}

func configFromSource(s domain.Source) sourceConfig {
	return sourceConfig{
		ScopePaths:         s.ScopePaths,
		IncludePatterns:    s.IncludePatterns,
		ExcludePatterns:    s.ExcludePatterns,
		MaxDepth:           s.MaxDepth,
		MaxFileSizeBytes:   s.MaxFileSizeBytes,
		Schedule:           string(s.Schedule),
		IntervalMinutes:    s.IntervalMinutes,
		StartHour:          s.StartHour,
		StartMinute:        s.StartMinute,
		MaxDurationMinutes: s.MaxDurationMinutes,
		ChangeDetection:    string(s.ChangeDetection),
		Direction:          string(s.Direction),
		FulltextEnabled:    s.FulltextEnabled,
		EmbeddingEnabled:   s.EmbeddingEnabled,
		ChunkSize:          s.ChunkSize,
		ChunkOverlap:       s.ChunkOverlap,
		MaxChunksPerItem:   s.MaxChunksPerItem,
		Watch:              s.Watch,
	}
}

func (c sourceConfig) apply(s *domain.Source) {
	s.ScopePaths = c.ScopePaths
	s.IncludePatterns = c.IncludePatterns
	s.ExcludePatterns = c.ExcludePatterns
	s.MaxDepth = c.MaxDepth
	s.MaxFileSizeBytes = c.MaxFileSizeBytes
	s.Schedule = domain.ScheduleMode(c.Schedule)
	s.IntervalMinutes = c.IntervalMinutes
	s.StartHour = c.StartHour
	s.StartMinute = c.StartMinute
	s.MaxDurationMinutes = c.MaxDurationMinutes
	s.ChangeDetection = domain.ChangeDetectionMode(c.ChangeDetection)
	s.Direction = domain.IndexDirection(c.Direction)
	s.FulltextEnabled = c.FulltextEnabled
	s.EmbeddingEnabled = c.EmbeddingEnabled
	s.ChunkSize = c.ChunkSize
	s.ChunkOverlap = c.ChunkOverlap
	s.MaxChunksPerItem = c.MaxChunksPerItem
	s.Watch = c.Watch
}

// Save stores or updates a source.
func (s *sourceStore) Save(ctx context.Context, source domain.Source) error {
	configJSON, err := json.Marshal(configFromSource(source))
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sources (id, name, kind, enabled, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			enabled = excluded.enabled,
			config = excluded.config,
			updated_at = excluded.updated_at
	`, source.ID, source.Name, string(source.Kind), boolToInt(source.Enabled), string(configJSON),
		toUnix(source.CreatedAt), toUnix(source.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving source: %w", err)
	}
	return nil
}

// Get retrieves a source by ID.
func (s *sourceStore) Get(ctx context.Context, id string) (*domain.Source, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, kind, enabled, config, created_at, updated_at
		FROM sources WHERE id = ?
	`, id)

	source, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return source, nil
}

// Delete removes a source.
func (s *sourceStore) Delete(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM sources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting source: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns all configured sources ordered by name.
func (s *sourceStore) List(ctx context.Context) ([]domain.Source, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, kind, enabled, config, created_at, updated_at
		FROM sources ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	sources := []domain.Source{}
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sources: %w", err)
	}
	return sources, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*domain.Source, error) {
	var (
		source               domain.Source
		kind, configJSON     string
		enabled              int
		createdAt, updatedAt sql.NullInt64
	)
	if err := row.Scan(&source.ID, &source.Name, &kind, &enabled, &configJSON, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning source: %w", err)
	}

	var cfg sourceConfig
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.apply(&source)
	source.Kind = domain.SourceKind(kind)
	source.Enabled = enabled != 0
	source.CreatedAt = fromUnix(createdAt)
	source.UpdatedAt = fromUnix(updatedAt)
	return &source, nil
}
