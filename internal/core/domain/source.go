package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// SourceKind identifies which scanner enumerates a source.
type SourceKind string

// Available source kinds.
const (
	// SourceKindLocal is a tree of files on a local or mounted filesystem.
	SourceKindLocal SourceKind = "local"

	// SourceKindMail is a local mail store (mbox files or Maildir folders).
	SourceKindMail SourceKind = "mail"

	// SourceKindFTP is a remote FTP tree. No scanner ships for it yet.
	SourceKindFTP SourceKind = "ftp"

	// SourceKindNDV is a host dataset store. No scanner ships for it yet.
	SourceKindNDV SourceKind = "ndv"

	// SourceKindWeb is a crawled web site. No scanner ships for it yet.
	SourceKindWeb SourceKind = "web"
)

// SourceKinds lists every recognised kind.
var SourceKinds = []SourceKind{SourceKindLocal, SourceKindMail, SourceKindFTP, SourceKindNDV, SourceKindWeb}

// IsValid returns true if the kind is recognised.
func (k SourceKind) IsValid() bool {
	return slices.Contains(SourceKinds, k)
}

// String returns the string representation.
func (k SourceKind) String() string {
	return string(k)
}

// ScheduleMode controls when the scheduler triggers runs for a source.
type ScheduleMode string

// Available schedule modes.
const (
	// ScheduleManual sources only run when explicitly requested.
	ScheduleManual ScheduleMode = "manual"

	// ScheduleOnStartup sources run once when the service starts.
	ScheduleOnStartup ScheduleMode = "on_startup"

	// ScheduleInterval sources run every IntervalMinutes after the last success.
	ScheduleInterval ScheduleMode = "interval"

	// ScheduleDaily sources run once per day at StartHour:StartMinute.
	ScheduleDaily ScheduleMode = "daily"
)

// IsValid returns true if the schedule mode is recognised.
func (m ScheduleMode) IsValid() bool {
	switch m {
	case ScheduleManual, ScheduleOnStartup, ScheduleInterval, ScheduleDaily:
		return true
	default:
		return false
	}
}

// ChangeDetectionMode selects how the pipeline decides whether an item changed.
type ChangeDetectionMode string

// Available change detection modes.
const (
	// ChangeDetectionMtimeSize compares modification time and size only.
	ChangeDetectionMtimeSize ChangeDetectionMode = "mtime_size"

	// ChangeDetectionContentHash fetches every item and compares a content hash.
	ChangeDetectionContentHash ChangeDetectionMode = "content_hash"

	// ChangeDetectionMtimeThenHash hashes only when modification time or size differ.
	ChangeDetectionMtimeThenHash ChangeDetectionMode = "mtime_then_hash"
)

// IsValid returns true if the change detection mode is recognised.
func (m ChangeDetectionMode) IsValid() bool {
	switch m {
	case ChangeDetectionMtimeSize, ChangeDetectionContentHash, ChangeDetectionMtimeThenHash:
		return true
	default:
		return false
	}
}

// IndexDirection is an ordering hint for scanners.
type IndexDirection string

// Available index directions.
const (
	IndexDirectionDefault     IndexDirection = "default"
	IndexDirectionNewestFirst IndexDirection = "newest_first"
	IndexDirectionOldestFirst IndexDirection = "oldest_first"
)

// Source defaults.
const (
	DefaultMaxDepth         = 10
	DefaultMaxFileSizeBytes = 50 * 1024 * 1024
	DefaultIntervalMinutes  = 60
	DefaultChunkSize        = 512
	DefaultChunkOverlap     = 64
	DefaultMaxChunksPerItem = 100
)

// Source describes one index source: what to scan, when, and how to process it.
// The pipeline receives a Source by value and never modifies it.
type Source struct {
	// ID is the unique identifier for the source. Immutable once assigned.
	ID string

	// Name is the human-readable name for this source.
	Name string

	// Kind selects the scanner.
	Kind SourceKind

	// Enabled sources are considered by the scheduler and RunAll.
	Enabled bool

	// ScopePaths are the roots the scanner enumerates.
	ScopePaths []string

	// IncludePatterns are glob patterns matched against item names.
	// Empty means include everything.
	IncludePatterns []string

	// ExcludePatterns are glob patterns matched against paths relative to the scope root.
	ExcludePatterns []string

	// MaxDepth limits directory recursion below each scope root.
	MaxDepth int

	// MaxFileSizeBytes marks larger items as skipped. Zero disables the limit.
	MaxFileSizeBytes int64

	Schedule           ScheduleMode
	IntervalMinutes    int
	StartHour          int
	StartMinute        int
	MaxDurationMinutes int

	ChangeDetection ChangeDetectionMode
	Direction       IndexDirection

	FulltextEnabled  bool
	EmbeddingEnabled bool
	ChunkSize        int
	ChunkOverlap     int
	MaxChunksPerItem int

	// Watch asks the host to trigger runs on filesystem change notifications.
	Watch bool

	// CreatedAt is when the source was created.
	CreatedAt time.Time

	// UpdatedAt is when the source was last updated.
	UpdatedAt time.Time
}

// NewSource returns a source with default scope, schedule and processing settings.
func NewSource(id string, kind SourceKind, name string) Source {
	return Source{
		ID:               id,
		Name:             name,
		Kind:             kind,
		Enabled:          true,
		MaxDepth:         DefaultMaxDepth,
		MaxFileSizeBytes: DefaultMaxFileSizeBytes,
		Schedule:         ScheduleManual,
		IntervalMinutes:  DefaultIntervalMinutes,
		ChangeDetection:  ChangeDetectionMtimeSize,
		Direction:        IndexDirectionDefault,
		FulltextEnabled:  true,
		ChunkSize:        DefaultChunkSize,
		ChunkOverlap:     DefaultChunkOverlap,
		MaxChunksPerItem: DefaultMaxChunksPerItem,
	}
}

// MaxDuration returns the run time budget, or zero when runs are unbounded.
func (s Source) MaxDuration() time.Duration {
	if s.MaxDurationMinutes <= 0 {
		return 0
	}
	return time.Duration(s.MaxDurationMinutes) * time.Minute
}

// Interval returns the interval between scheduled runs.
func (s Source) Interval() time.Duration {
	if s.IntervalMinutes <= 0 {
		return DefaultIntervalMinutes * time.Minute
	}
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// Validate checks the source for configuration errors.
func (s Source) Validate() error {
	var problems []string
	if s.ID == "" {
		problems = append(problems, "id is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		problems = append(problems, "name is required")
	}
	if !s.Kind.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown kind %q", s.Kind))
	}
	if !s.Schedule.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown schedule %q", s.Schedule))
	}
	if !s.ChangeDetection.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown change detection %q", s.ChangeDetection))
	}
	if s.StartHour < 0 || s.StartHour > 23 {
		problems = append(problems, "start hour must be 0-23")
	}
	if s.StartMinute < 0 || s.StartMinute > 59 {
		problems = append(problems, "start minute must be 0-59")
	}
	if s.MaxDepth < 0 || s.MaxFileSizeBytes < 0 {
		problems = append(problems, "limits must not be negative")
	}
	if s.ChunkSize < 0 || s.ChunkOverlap < 0 || s.MaxChunksPerItem < 0 {
		problems = append(problems, "chunk settings must not be negative")
	}
	if s.ChunkSize > 0 && s.ChunkOverlap >= s.ChunkSize {
		problems = append(problems, "chunk overlap must be smaller than chunk size")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

// Clone returns a deep copy of the source.
func (s Source) Clone() Source {
	s.ScopePaths = slices.Clone(s.ScopePaths)
	s.IncludePatterns = slices.Clone(s.IncludePatterns)
	s.ExcludePatterns = slices.Clone(s.ExcludePatterns)
	return s
}
