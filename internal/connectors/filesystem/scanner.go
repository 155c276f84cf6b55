package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexer/internal/logger"
)

// Ensure Scanner implements the interface.
var _ driven.Scanner = (*Scanner)(nil)

// Scanner enumerates regular files below the scope paths of a source.
type Scanner struct{}

// New creates a new filesystem scanner.
func New() *Scanner {
	return &Scanner{}
}

// Kind returns the source kind this scanner handles.
func (s *Scanner) Kind() domain.SourceKind {
	return domain.SourceKindLocal
}

// Scan walks every scope root. Include patterns match file names, exclude
// patterns match paths relative to the scope root. Files deeper than
// MaxDepth directories below a root are ignored; zero means unlimited.
// Oversize files are yielded; the pipeline decides what to do with them.
func (s *Scanner) Scan(ctx context.Context, source domain.Source) iter.Seq2[domain.ScannedItem, error] {
	return func(yield func(domain.ScannedItem, error) bool) {
		w := walker{ctx: ctx, source: source, yield: yield}
		for _, root := range source.ScopePaths {
			abs, err := checkRoot(root)
			if err != nil {
				yield(domain.ScannedItem{}, err)
				return
			}
			logger.Debug("filesystem: scanning %s", abs)
			w.root = abs
			if !w.walk(abs, 1) {
				return
			}
		}
	}
}

// checkRoot resolves a scope path and requires it to be a readable
// directory. A root that vanished must fail the scan, otherwise its items
// would be tombstoned as deleted.
func checkRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: scope path %q: %v", domain.ErrInvalidInput, root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: scope root %s: %v", domain.ErrFetchContent, abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: scope root %s is not a directory", domain.ErrFetchContent, abs)
	}
	return abs, nil
}

// FetchContent reads a file that lies below one of the source's scope paths.
func (s *Scanner) FetchContent(_ context.Context, source domain.Source, path string) ([]byte, error) {
	if !inScope(source, path) {
		return nil, fmt.Errorf("%w: %s is outside the source scope", domain.ErrInvalidInput, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

type walker struct {
	ctx    context.Context
	source domain.Source
	root   string
	yield  func(domain.ScannedItem, error) bool
}

// walk visits one directory. It returns false once the consumer stopped,
// the context ended or a directory could not be read. A directory removed
// while the scan was running is skipped.
func (w *walker) walk(dir string, depth int) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && dir != w.root {
			logger.Debug("filesystem: %s disappeared during scan", dir)
			return true
		}
		w.yield(domain.ScannedItem{}, fmt.Errorf("%w: read directory %s: %v", domain.ErrFetchContent, dir, err))
		return false
	}
	order(entries, w.source.Direction)

	for _, entry := range entries {
		if err := w.ctx.Err(); err != nil {
			w.yield(domain.ScannedItem{}, err)
			return false
		}

		name := entry.Name()
		if isHidden(name) {
			continue
		}
		path := filepath.Join(dir, name)
		rel := filepath.ToSlash(strings.TrimPrefix(path, w.root+string(filepath.Separator)))
		if excluded(w.source.ExcludePatterns, rel, entry.IsDir()) {
			continue
		}

		if entry.IsDir() {
			if w.source.MaxDepth > 0 && depth >= w.source.MaxDepth {
				continue
			}
			if !w.walk(path, depth+1) {
				return false
			}
			continue
		}

		if !entry.Type().IsRegular() || !included(w.source.IncludePatterns, name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			logger.Debug("filesystem: cannot stat %s: %v", path, err)
			continue
		}
		item := domain.ScannedItem{
			Path:         path,
			LastModified: info.ModTime(),
			Size:         info.Size(),
			MIMEType:     detectMIMEType(name),
		}
		if !w.yield(item, nil) {
			return false
		}
	}
	return true
}

// order sorts directory entries for the requested direction. The default
// keeps os.ReadDir's name order.
func order(entries []fs.DirEntry, dir domain.IndexDirection) {
	if dir != domain.IndexDirectionNewestFirst && dir != domain.IndexDirectionOldestFirst {
		return
	}
	mtime := make(map[string]int64, len(entries))
	for _, e := range entries {
		if info, err := e.Info(); err == nil {
			mtime[e.Name()] = info.ModTime().UnixNano()
		}
	}
	slices.SortStableFunc(entries, func(a, b fs.DirEntry) int {
		ta, tb := mtime[a.Name()], mtime[b.Name()]
		switch {
		case ta == tb:
			return 0
		case (ta > tb) == (dir == domain.IndexDirectionNewestFirst):
			return -1
		default:
			return 1
		}
	})
}

func inScope(source domain.Source, path string) bool {
	clean := filepath.Clean(path)
	for _, root := range source.ScopePaths {
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if strings.HasPrefix(clean, abs+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// isHidden returns true for dot files and any path with a dot segment.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}
