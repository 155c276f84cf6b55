// Package chunker provides a fixed-size text chunking processor.
package chunker

import (
	"strings"
	"unicode"
)

// Default chunk geometry, counted in words.
const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 64
	DefaultMaxChunks    = 100
)

// Processor splits text into overlapping windows of words.
type Processor struct {
	chunkSize int
	overlap   int
	maxChunks int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in words.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in words.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithMaxChunks caps the number of chunks per text. Zero means no cap.
func WithMaxChunks(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.maxChunks = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		maxChunks: DefaultMaxChunks,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Split returns the chunks of text. Empty or whitespace-only text yields none.
// Line breaks inside a chunk are kept so snippets stay readable.
func (p *Processor) Split(text string) []string {
	words := fields(text)
	if len(words) == 0 {
		return nil
	}

	step := p.chunkSize - p.overlap
	estimated := len(words)/step + 1
	if p.maxChunks > 0 && estimated > p.maxChunks {
		estimated = p.maxChunks
	}
	chunks := make([]string, 0, estimated)

	for start := 0; start < len(words); start += step {
		end := min(start+p.chunkSize, len(words))
		chunks = append(chunks, join(words[start:end]))
		if end == len(words) {
			break
		}
		if p.maxChunks > 0 && len(chunks) == p.maxChunks {
			break
		}
	}
	return chunks
}

// word is a token plus whether a line break preceded it.
type word struct {
	text    string
	newline bool
}

func fields(text string) []word {
	var (
		out     []word
		start   = -1
		newline bool
	)
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				out = append(out, word{text: text[start:i], newline: newline})
				start, newline = -1, false
			}
			if r == '\n' {
				newline = true
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, word{text: text[start:], newline: newline})
	}
	return out
}

func join(words []word) string {
	var sb strings.Builder
	for i, w := range words {
		if i > 0 {
			if w.newline {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(w.text)
	}
	return sb.String()
}
