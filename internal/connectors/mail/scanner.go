package mail

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexer/internal/logger"
)

// Ensure Scanner implements the interface.
var _ driven.Scanner = (*Scanner)(nil)

// MIMEType is the content type of every mail item.
const MIMEType = "message/rfc822"

const sep = "#"

// Scanner enumerates the messages of mail stores.
type Scanner struct {
	mu      sync.Mutex
	indexes map[string]*mboxIndex
}

// New creates a new mail scanner.
func New() *Scanner {
	return &Scanner{indexes: make(map[string]*mboxIndex)}
}

// Kind returns the source kind this scanner handles.
func (s *Scanner) Kind() domain.SourceKind {
	return domain.SourceKindMail
}

// Scan yields one item per message. A scope path may name an mbox file, a
// Maildir, or a directory searched for both up to MaxDepth levels. The form
// "path#folder" restricts a scope to one folder.
func (s *Scanner) Scan(ctx context.Context, source domain.Source) iter.Seq2[domain.ScannedItem, error] {
	return func(yield func(domain.ScannedItem, error) bool) {
		for _, scope := range source.ScopePaths {
			root, folder, _ := strings.Cut(scope, sep)
			abs, err := filepath.Abs(root)
			if err != nil {
				yield(domain.ScannedItem{}, fmt.Errorf("%w: scope path %q: %v", domain.ErrInvalidInput, root, err))
				return
			}
			stores, err := discover(abs, source.MaxDepth)
			if err != nil {
				yield(domain.ScannedItem{}, err)
				return
			}
			logger.Debug("mail: %d stores below %s", len(stores), abs)
			for _, st := range stores {
				if !st.scan(ctx, folder, yield) {
					return
				}
			}
		}
	}
}

// FetchContent returns the raw RFC 822 bytes of one message.
func (s *Scanner) FetchContent(ctx context.Context, source domain.Source, path string) ([]byte, error) {
	mailbox, folder, key, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	if !inScope(source, mailbox) {
		return nil, fmt.Errorf("%w: %s is outside the source scope", domain.ErrInvalidInput, mailbox)
	}

	info, err := os.Stat(mailbox)
	if err != nil {
		return nil, fmt.Errorf("open mailbox: %w", err)
	}
	if info.IsDir() {
		return maildir(mailbox).fetch(folder, key)
	}
	return s.fetchMbox(ctx, mbox(mailbox), key)
}

// store is one mbox file or Maildir root.
type store interface {
	scan(ctx context.Context, folder string, yield func(domain.ScannedItem, error) bool) bool
}

// discover finds the mail stores at or below path. A root that cannot be
// read or a directory below it that fails to list is an error, so a missing
// mount never looks like an empty mailbox.
func discover(path string, maxDepth int) ([]store, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: scope root %s: %v", domain.ErrFetchContent, path, err)
	}
	if !info.IsDir() {
		if info.Size() == 0 || isMbox(path) {
			return []store{mbox(path)}, nil
		}
		return nil, fmt.Errorf("%w: %s is not an mbox file", domain.ErrFetchContent, path)
	}
	if isMaildir(path) {
		return []store{maildir(path)}, nil
	}

	var stores []store
	var walk func(dir string, depth int) error
	walk = func(dir string, depth int) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && dir != path {
				return nil
			}
			return fmt.Errorf("%w: read directory %s: %v", domain.ErrFetchContent, dir, err)
		}
		for _, e := range entries {
			p := filepath.Join(dir, e.Name())
			switch {
			case strings.HasPrefix(e.Name(), "."):
			case e.IsDir() && isMaildir(p):
				stores = append(stores, maildir(p))
			case e.IsDir():
				if maxDepth <= 0 || depth < maxDepth {
					if err := walk(p, depth+1); err != nil {
						return err
					}
				}
			case e.Type().IsRegular() && isMbox(p):
				stores = append(stores, mbox(p))
			}
		}
		return nil
	}
	if err := walk(path, 1); err != nil {
		return nil, err
	}
	return stores, nil
}

// ItemPath builds the item path of a message. The folder is escaped so a
// "#" in a folder name cannot be mistaken for a separator.
func ItemPath(mailbox, folder, key string) string {
	return mailbox + sep + folderEscaper.Replace(folder) + sep + key
}

var (
	folderEscaper   = strings.NewReplacer("%", "%25", sep, "%23")
	folderUnescaper = strings.NewReplacer("%23", sep, "%25", "%")
)

func splitPath(path string) (mailbox, folder, key string, err error) {
	i := strings.LastIndex(path, sep)
	if i < 0 {
		return "", "", "", fmt.Errorf("%w: invalid mail item path %q", domain.ErrInvalidInput, path)
	}
	key = path[i+1:]
	rest := path[:i]
	j := strings.LastIndex(rest, sep)
	if j < 0 || key == "" {
		return "", "", "", fmt.Errorf("%w: invalid mail item path %q", domain.ErrInvalidInput, path)
	}
	return rest[:j], folderUnescaper.Replace(rest[j+1:]), key, nil
}

func inScope(source domain.Source, mailbox string) bool {
	for _, scope := range source.ScopePaths {
		root, _, _ := strings.Cut(scope, sep)
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if mailbox == abs || strings.HasPrefix(mailbox, abs+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
