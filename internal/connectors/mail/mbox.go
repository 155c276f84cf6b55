package mail

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/mail"
	"os"
	"strconv"
	"time"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

// mbox is an mbox file. Messages start at lines beginning with "From ".
type mbox string

// maxLine bounds a single line of an mbox file.
const maxLine = 1 << 20

func isMbox(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, 5)
	if _, err := io.ReadFull(f, head); err != nil {
		return false
	}
	return string(head) == "From "
}

// message is one parsed mbox entry.
type message struct {
	key    string
	offset int64
	raw    []byte
}

// each calls fn for every message until fn returns false.
func (m mbox) each(ctx context.Context, fn func(message) bool) error {
	return m.from(ctx, 0, fn)
}

// from is each starting at byte offset from, which must be the start of a
// "From " line. Duplicate Message-IDs are only detected within the pass.
func (m mbox) from(ctx context.Context, from int64, fn func(message) bool) error {
	f, err := os.Open(string(m))
	if err != nil {
		return err
	}
	defer f.Close()
	if from > 0 {
		if _, err := f.Seek(from, io.SeekStart); err != nil {
			return err
		}
	}

	r := bufio.NewReaderSize(f, 64*1024)
	var (
		cur     bytes.Buffer
		start   int64 = -1
		offset        = from
		blank   = true
		stopped bool
		seen    = make(map[string]bool)
	)
	flush := func() {
		if start < 0 || stopped {
			return
		}
		raw := bytes.Clone(cur.Bytes())
		key := messageKey(raw, start)
		if seen[key] {
			key += "-" + strconv.FormatInt(start, 10)
		}
		seen[key] = true
		if !fn(message{key: key, offset: start, raw: raw}) {
			stopped = true
		}
	}

	for !stopped {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := r.ReadBytes('\n')
		if len(line) > maxLine {
			return fmt.Errorf("%s: line longer than %d bytes", string(m), maxLine)
		}
		if len(line) > 0 {
			if blank && bytes.HasPrefix(line, []byte("From ")) {
				flush()
				cur.Reset()
				start = offset
			} else if start >= 0 {
				cur.Write(unquoteFrom(line))
			}
			blank = len(bytes.TrimRight(line, "\r\n")) == 0
			offset += int64(len(line))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	flush()
	return nil
}

func (m mbox) scan(ctx context.Context, only string, yield func(domain.ScannedItem, error) bool) bool {
	if only != "" {
		return true
	}
	info, err := os.Stat(string(m))
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	if err != nil {
		return yield(domain.ScannedItem{}, fmt.Errorf("%w: mailbox %s: %v", domain.ErrFetchContent, string(m), err))
	}

	cont := true
	err = m.each(ctx, func(msg message) bool {
		modified := info.ModTime()
		if h, err := mail.ReadMessage(bytes.NewReader(msg.raw)); err == nil {
			if d, err := h.Header.Date(); err == nil {
				modified = d
			}
		}
		cont = yield(domain.ScannedItem{
			Path:         ItemPath(string(m), "", msg.key),
			LastModified: modified,
			Size:         int64(len(msg.raw)),
			MIMEType:     MIMEType,
		}, nil)
		return cont
	})
	if err != nil && cont {
		return yield(domain.ScannedItem{}, err)
	}
	return cont
}

// mboxIndex maps message keys to their offsets in one version of an mbox.
type mboxIndex struct {
	modTime time.Time
	size    int64
	offsets map[string]int64
}

func (ix *mboxIndex) current(info os.FileInfo) bool {
	return ix != nil && ix.size == info.Size() && ix.modTime.Equal(info.ModTime())
}

func (m mbox) index(ctx context.Context, info os.FileInfo) (*mboxIndex, error) {
	ix := &mboxIndex{modTime: info.ModTime(), size: info.Size(), offsets: make(map[string]int64)}
	err := m.each(ctx, func(msg message) bool {
		ix.offsets[msg.key] = msg.offset
		return true
	})
	if err != nil {
		return nil, err
	}
	return ix, nil
}

// readAt returns the message starting at offset if its key matches.
func (m mbox) readAt(ctx context.Context, offset int64, key string) ([]byte, bool, error) {
	var found []byte
	err := m.from(ctx, offset, func(msg message) bool {
		if msg.key == key || msg.key+"-"+strconv.FormatInt(offset, 10) == key {
			found = msg.raw
		}
		return false
	})
	return found, found != nil, err
}

// fetchMbox reads one message through the cached offset index of the file,
// rebuilding the index when the file changed or the key is unknown.
func (s *Scanner) fetchMbox(ctx context.Context, m mbox, key string) ([]byte, error) {
	info, err := os.Stat(string(m))
	if err != nil {
		return nil, fmt.Errorf("open mailbox: %w", err)
	}

	s.mu.Lock()
	ix := s.indexes[string(m)]
	s.mu.Unlock()
	rebuild := func() error {
		fresh, err := m.index(ctx, info)
		if err != nil {
			return err
		}
		ix = fresh
		s.mu.Lock()
		s.indexes[string(m)] = ix
		s.mu.Unlock()
		return nil
	}

	rebuilt := false
	if !ix.current(info) {
		if err := rebuild(); err != nil {
			return nil, err
		}
		rebuilt = true
	}
	for {
		if offset, ok := ix.offsets[key]; ok {
			raw, ok, err := m.readAt(ctx, offset, key)
			if err != nil {
				return nil, err
			}
			if ok {
				return raw, nil
			}
		}
		if rebuilt {
			break
		}
		if err := rebuild(); err != nil {
			return nil, err
		}
		rebuilt = true
	}
	return nil, fmt.Errorf("%w: message %s", domain.ErrNotFound, key)
}

// messageKey derives the key from the Message-ID so it survives deletions
// earlier in the file. Messages without one fall back to their offset.
func messageKey(raw []byte, offset int64) string {
	if msg, err := mail.ReadMessage(bytes.NewReader(raw)); err == nil {
		if id := msg.Header.Get("Message-Id"); id != "" {
			sum := sha256.Sum256([]byte(id))
			return hex.EncodeToString(sum[:8])
		}
	}
	return "off-" + strconv.FormatInt(offset, 10)
}

// unquoteFrom reverses mboxrd quoting of ">From " lines.
func unquoteFrom(line []byte) []byte {
	trimmed := bytes.TrimLeft(line, ">")
	if len(trimmed) < len(line) && bytes.HasPrefix(trimmed, []byte("From ")) {
		return line[1:]
	}
	return line
}
