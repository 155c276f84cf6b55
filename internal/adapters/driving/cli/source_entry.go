package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

// sourceEntry is the user-facing description of a source, shared by the
// "source add" flags and by import files.
type sourceEntry struct {
	ID                 string   `yaml:"id" toml:"id"`
	Name               string   `yaml:"name" toml:"name"`
	Kind               string   `yaml:"kind" toml:"kind"`
	Enabled            *bool    `yaml:"enabled" toml:"enabled"`
	Paths              []string `yaml:"paths" toml:"paths"`
	Include            []string `yaml:"include" toml:"include"`
	Exclude            []string `yaml:"exclude" toml:"exclude"`
	MaxDepth           *int     `yaml:"max_depth" toml:"max_depth"`
	MaxFileSizeBytes   *int64   `yaml:"max_file_size_bytes" toml:"max_file_size_bytes"`
	Schedule           string   `yaml:"schedule" toml:"schedule"`
	IntervalMinutes    int      `yaml:"interval_minutes" toml:"interval_minutes"`
	Start              string   `yaml:"start" toml:"start"`
	MaxDurationMinutes int      `yaml:"max_duration_minutes" toml:"max_duration_minutes"`
	ChangeDetection    string   `yaml:"change_detection" toml:"change_detection"`
	Direction          string   `yaml:"direction" toml:"direction"`
	Fulltext           *bool    `yaml:"fulltext" toml:"fulltext"`
	ChunkSize          int      `yaml:"chunk_size" toml:"chunk_size"`
	ChunkOverlap       int      `yaml:"chunk_overlap" toml:"chunk_overlap"`
	MaxChunksPerItem   *int     `yaml:"max_chunks_per_item" toml:"max_chunks_per_item"`
	Watch              bool     `yaml:"watch" toml:"watch"`
}

// toSource applies the entry on top of the defaults for its kind.
func (s sourceEntry) toSource() (domain.Source, error) {
	kind := domain.SourceKind(strings.ToLower(s.Kind))
	if !kind.IsValid() {
		return domain.Source{}, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidInput, s.Kind)
	}
	name := s.Name
	if name == "" && len(s.Paths) > 0 {
		name = filepath.Base(s.Paths[0])
	}

	src := domain.NewSource(s.ID, kind, name)
	if s.Enabled != nil {
		src.Enabled = *s.Enabled
	}
	for _, p := range s.Paths {
		src.ScopePaths = append(src.ScopePaths, expandHome(p))
	}
	src.IncludePatterns = s.Include
	src.ExcludePatterns = s.Exclude
	if s.MaxDepth != nil {
		src.MaxDepth = *s.MaxDepth
	}
	if s.MaxFileSizeBytes != nil {
		src.MaxFileSizeBytes = *s.MaxFileSizeBytes
	}

	if s.Schedule != "" {
		src.Schedule = domain.ScheduleMode(s.Schedule)
	}
	if s.IntervalMinutes > 0 {
		src.IntervalMinutes = s.IntervalMinutes
	}
	if s.Start != "" {
		t, err := time.Parse("15:04", s.Start)
		if err != nil {
			return domain.Source{}, fmt.Errorf("%w: start must be HH:MM", domain.ErrInvalidInput)
		}
		src.StartHour, src.StartMinute = t.Hour(), t.Minute()
	}
	src.MaxDurationMinutes = s.MaxDurationMinutes

	if s.ChangeDetection != "" {
		src.ChangeDetection = domain.ChangeDetectionMode(s.ChangeDetection)
	}
	if s.Direction != "" {
		src.Direction = domain.IndexDirection(s.Direction)
	}
	if s.Fulltext != nil {
		src.FulltextEnabled = *s.Fulltext
	}
	if s.ChunkSize > 0 {
		src.ChunkSize = s.ChunkSize
	}
	if s.ChunkOverlap > 0 {
		src.ChunkOverlap = s.ChunkOverlap
	}
	if s.MaxChunksPerItem != nil {
		src.MaxChunksPerItem = *s.MaxChunksPerItem
	}
	src.Watch = s.Watch

	// Validate needs an ID; the service assigns the real one.
	probe := src
	if probe.ID == "" {
		probe.ID = uuid.NewString()
	}
	if err := probe.Validate(); err != nil {
		return domain.Source{}, err
	}
	return src, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
