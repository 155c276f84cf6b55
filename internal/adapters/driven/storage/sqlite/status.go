package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
)

// statusStore implements driven.StatusStore.
type statusStore struct {
	store *Store
}

var _ driven.StatusStore = (*statusStore)(nil)

const itemColumns = `source_id, path, state, last_modified, size, content_hash, indexed_at,
	schema_version, parser_version, chunk_count, error_message, skip_reason, error_count, deleted_at`

const runColumns = `id, source_id, started_at, completed_at, state, scanned, new_items, changed,
	deleted, skipped, errored, unchanged, timed_out, last_error`

// LoadItemStatuses returns all item statuses of a source keyed by path.
func (s *statusStore) LoadItemStatuses(ctx context.Context, sourceID string) (map[string]*domain.ItemStatus, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM item_statuses WHERE source_id = ?", sourceID)
	if err != nil {
		return nil, fmt.Errorf("querying item statuses: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*domain.ItemStatus)
	for rows.Next() {
		st, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out[st.Path] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating item statuses: %w", err)
	}
	return out, nil
}

// SaveItemStatuses replaces the stored statuses of a source in one transaction.
func (s *statusStore) SaveItemStatuses(ctx context.Context, sourceID string, statuses map[string]*domain.ItemStatus) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM item_statuses WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("clearing item statuses: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO item_statuses ("+itemColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for path, st := range statuses {
		if st == nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx, sourceID, path, string(st.State),
			toUnix(st.LastModified), st.Size, st.ContentHash, toUnix(st.IndexedAt),
			st.SchemaVersion, st.ParserVersion, st.ChunkCount, st.ErrorMessage,
			st.SkipReason, st.ErrorCount, toUnix(st.DeletedAt)); err != nil {
			return fmt.Errorf("saving item status %s: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetItemStatus returns one item status.
func (s *statusStore) GetItemStatus(ctx context.Context, sourceID, path string) (*domain.ItemStatus, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM item_statuses WHERE source_id = ? AND path = ?", sourceID, path)
	st, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return st, err
}

// SaveRun upserts a run and prunes history beyond the configured limit.
func (s *statusStore) SaveRun(ctx context.Context, run domain.RunStatus) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			completed_at = excluded.completed_at,
			state = excluded.state,
			scanned = excluded.scanned,
			new_items = excluded.new_items,
			changed = excluded.changed,
			deleted = excluded.deleted,
			skipped = excluded.skipped,
			errored = excluded.errored,
			unchanged = excluded.unchanged,
			timed_out = excluded.timed_out,
			last_error = excluded.last_error
	`, run.ID, run.SourceID, toUnix(run.StartedAt), toUnix(run.CompletedAt), string(run.State),
		run.Scanned, run.New, run.Changed, run.Deleted, run.Skipped, run.Errored, run.Unchanged,
		boolToInt(run.TimedOut), run.LastError)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	if s.store.historyLimit > 0 {
		_, err = s.store.db.ExecContext(ctx, `
			DELETE FROM runs WHERE source_id = ? AND id NOT IN (
				SELECT id FROM runs WHERE source_id = ? ORDER BY started_at DESC LIMIT ?
			)
		`, run.SourceID, run.SourceID, s.store.historyLimit)
		if err != nil {
			return fmt.Errorf("pruning runs: %w", err)
		}
	}
	return nil
}

// CountByState returns item counts with every state present.
func (s *statusStore) CountByState(ctx context.Context, sourceID string) (domain.ItemCounts, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT state, COUNT(*) FROM item_statuses WHERE source_id = ? GROUP BY state", sourceID)
	if err != nil {
		return nil, fmt.Errorf("counting item statuses: %w", err)
	}
	defer rows.Close()

	counts := domain.NewItemCounts()
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[domain.ItemState(state)] = n
	}
	return counts, rows.Err()
}

// LoadRuns returns up to limit runs of a source, newest first.
func (s *statusStore) LoadRuns(ctx context.Context, sourceID string, limit int) ([]domain.RunStatus, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE source_id = ? ORDER BY started_at DESC LIMIT ?",
		sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := []domain.RunStatus{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// LastSuccessfulRun returns the most recent completed run or nil.
func (s *statusStore) LastSuccessfulRun(ctx context.Context, sourceID string) (*domain.RunStatus, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE source_id = ? AND state = ? ORDER BY started_at DESC LIMIT 1",
		sourceID, string(domain.RunCompleted))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// PurgeTombstones removes deleted items whose DeletedAt is before olderThan.
func (s *statusStore) PurgeTombstones(ctx context.Context, sourceID string, olderThan time.Time) (int, error) {
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM item_statuses WHERE source_id = ? AND state = ? AND deleted_at < ?",
		sourceID, string(domain.ItemDeleted), toUnix(olderThan))
	if err != nil {
		return 0, fmt.Errorf("purging tombstones: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// DeleteSource removes every item and run record of a source.
func (s *statusStore) DeleteSource(ctx context.Context, sourceID string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM item_statuses WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("deleting item statuses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("deleting runs: %w", err)
	}
	return tx.Commit()
}

func scanItem(row rowScanner) (*domain.ItemStatus, error) {
	var (
		st                                 domain.ItemStatus
		state                              string
		lastModified, indexedAt, deletedAt sql.NullInt64
	)
	err := row.Scan(&st.SourceID, &st.Path, &state, &lastModified, &st.Size, &st.ContentHash,
		&indexedAt, &st.SchemaVersion, &st.ParserVersion, &st.ChunkCount, &st.ErrorMessage,
		&st.SkipReason, &st.ErrorCount, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning item status: %w", err)
	}
	st.State = domain.ItemState(state)
	st.LastModified = fromUnix(lastModified)
	st.IndexedAt = fromUnix(indexedAt)
	st.DeletedAt = fromUnix(deletedAt)
	return &st, nil
}

func scanRun(row rowScanner) (*domain.RunStatus, error) {
	var (
		run                    domain.RunStatus
		state                  string
		startedAt, completedAt sql.NullInt64
		timedOut               int
	)
	err := row.Scan(&run.ID, &run.SourceID, &startedAt, &completedAt, &state, &run.Scanned,
		&run.New, &run.Changed, &run.Deleted, &run.Skipped, &run.Errored, &run.Unchanged,
		&timedOut, &run.LastError)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	run.State = domain.RunState(state)
	run.StartedAt = fromUnix(startedAt)
	run.CompletedAt = fromUnix(completedAt)
	run.TimedOut = timedOut != 0
	return &run, nil
}
