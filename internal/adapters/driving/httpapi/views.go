package httpapi

import (
	"time"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

type sourceView struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Kind            string   `json:"kind"`
	Enabled         bool     `json:"enabled"`
	ScopePaths      []string `json:"scope_paths"`
	Schedule        string   `json:"schedule"`
	IntervalMinutes int      `json:"interval_minutes,omitempty"`
	StartTime       string   `json:"start_time,omitempty"`
	ChangeDetection string   `json:"change_detection"`
	Watch           bool     `json:"watch"`
}

func toSourceView(s domain.Source) sourceView {
	v := sourceView{
		ID:              s.ID,
		Name:            s.Name,
		Kind:            s.Kind.String(),
		Enabled:         s.Enabled,
		ScopePaths:      s.ScopePaths,
		Schedule:        string(s.Schedule),
		ChangeDetection: string(s.ChangeDetection),
		Watch:           s.Watch,
	}
	switch s.Schedule {
	case domain.ScheduleInterval:
		v.IntervalMinutes = s.IntervalMinutes
	case domain.ScheduleDaily:
		v.StartTime = formatClock(s.StartHour, s.StartMinute)
	}
	return v
}

func formatClock(h, m int) string {
	return time.Date(0, 1, 1, h, m, 0, 0, time.UTC).Format("15:04")
}

type runView struct {
	ID          string     `json:"id"`
	SourceID    string     `json:"source_id"`
	State       string     `json:"state"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMS  int64      `json:"duration_ms"`
	Scanned     int        `json:"scanned"`
	New         int        `json:"new"`
	Changed     int        `json:"changed"`
	Deleted     int        `json:"deleted"`
	Skipped     int        `json:"skipped"`
	Errored     int        `json:"errored"`
	Unchanged   int        `json:"unchanged"`
	TimedOut    bool       `json:"timed_out"`
	LastError   string     `json:"last_error,omitempty"`
}

func toRunView(r domain.RunStatus) runView {
	v := runView{
		ID:         r.ID,
		SourceID:   r.SourceID,
		State:      string(r.State),
		StartedAt:  r.StartedAt,
		DurationMS: r.Duration(time.Now()).Milliseconds(),
		Scanned:    r.Scanned,
		New:        r.New,
		Changed:    r.Changed,
		Deleted:    r.Deleted,
		Skipped:    r.Skipped,
		Errored:    r.Errored,
		Unchanged:  r.Unchanged,
		TimedOut:   r.TimedOut,
		LastError:  r.LastError,
	}
	if !r.CompletedAt.IsZero() {
		t := r.CompletedAt
		v.CompletedAt = &t
	}
	return v
}

type statusView struct {
	SourceID    string         `json:"source_id"`
	Running     bool           `json:"running"`
	Counts      map[string]int `json:"counts"`
	LastSuccess *runView       `json:"last_success,omitempty"`
}

type itemView struct {
	Path          string     `json:"path"`
	State         string     `json:"state"`
	LastModified  time.Time  `json:"last_modified"`
	Size          int64      `json:"size"`
	ContentHash   string     `json:"content_hash,omitempty"`
	IndexedAt     *time.Time `json:"indexed_at,omitempty"`
	ChunkCount    int        `json:"chunk_count"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	ErrorCount    int        `json:"error_count,omitempty"`
	SkipReason    string     `json:"skip_reason,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	SchemaVersion int        `json:"schema_version"`
}

func toItemView(s domain.ItemStatus) itemView {
	v := itemView{
		Path:          s.Path,
		State:         string(s.State),
		LastModified:  s.LastModified,
		Size:          s.Size,
		ContentHash:   s.ContentHash,
		ChunkCount:    s.ChunkCount,
		ErrorMessage:  s.ErrorMessage,
		ErrorCount:    s.ErrorCount,
		SkipReason:    s.SkipReason,
		SchemaVersion: s.SchemaVersion,
	}
	if !s.IndexedAt.IsZero() {
		t := s.IndexedAt
		v.IndexedAt = &t
	}
	if !s.DeletedAt.IsZero() {
		t := s.DeletedAt
		v.DeletedAt = &t
	}
	return v
}

type searchView struct {
	SourceID   string  `json:"source_id"`
	Path       string  `json:"path"`
	Title      string  `json:"title"`
	ChunkIndex int     `json:"chunk_index"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

type errorView struct {
	Error string `json:"error"`
}
