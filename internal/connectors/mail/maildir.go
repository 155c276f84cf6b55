package mail

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

// maildir is the root of a Maildir. Maildir++ subfolders are directories
// named ".Folder" or ".Parent.Child" inside the root.
type maildir string

func isMaildir(dir string) bool {
	for _, sub := range []string{"cur", "new"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

// folders returns folder name -> directory.
func (m maildir) folders() (map[string]string, error) {
	out := map[string]string{"": string(m)}
	entries, err := os.ReadDir(string(m))
	if err != nil {
		return nil, fmt.Errorf("%w: read maildir %s: %w", domain.ErrFetchContent, string(m), err)
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || len(name) < 2 || name[0] != '.' {
			continue
		}
		dir := filepath.Join(string(m), name)
		if isMaildir(dir) {
			out[strings.ReplaceAll(name[1:], ".", "/")] = dir
		}
	}
	return out, nil
}

func (m maildir) scan(ctx context.Context, only string, yield func(domain.ScannedItem, error) bool) bool {
	folders, err := m.folders()
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	if err != nil {
		return yield(domain.ScannedItem{}, err)
	}
	names := make([]string, 0, len(folders))
	for name := range folders {
		if only == "" || name == only {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	for _, name := range names {
		for _, sub := range []string{"new", "cur"} {
			dir := filepath.Join(folders[name], sub)
			entries, err := os.ReadDir(dir)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return yield(domain.ScannedItem{}, fmt.Errorf("%w: read directory %s: %v", domain.ErrFetchContent, dir, err))
			}
			for _, e := range entries {
				if err := ctx.Err(); err != nil {
					yield(domain.ScannedItem{}, err)
					return false
				}
				if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
					continue
				}
				info, err := e.Info()
				if err != nil {
					continue
				}
				item := domain.ScannedItem{
					Path:         ItemPath(string(m), name, maildirKey(e.Name())),
					LastModified: info.ModTime(),
					Size:         info.Size(),
					MIMEType:     MIMEType,
				}
				if !yield(item, nil) {
					return false
				}
			}
		}
	}
	return true
}

func (m maildir) fetch(folder, key string) ([]byte, error) {
	folders, err := m.folders()
	if err != nil {
		return nil, err
	}
	dir, ok := folders[folder]
	if !ok {
		return nil, fmt.Errorf("%w: folder %q in %s", domain.ErrNotFound, folder, string(m))
	}
	for _, sub := range []string{"cur", "new"} {
		entries, err := os.ReadDir(filepath.Join(dir, sub))
		if err != nil {
			continue
		}
		for _, e := range entries {
			if maildirKey(e.Name()) == key {
				return os.ReadFile(filepath.Join(dir, sub, e.Name()))
			}
		}
	}
	return nil, fmt.Errorf("%w: message %s", domain.ErrNotFound, key)
}

// maildirKey strips the ":2,FLAGS" info suffix so the key survives flag
// changes and the move from new to cur.
func maildirKey(name string) string {
	if i := strings.IndexAny(name, ":!"); i >= 0 {
		name = name[:i]
	}
	return strings.ReplaceAll(name, sep, "_")
}
