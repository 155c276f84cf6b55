package driven

import "context"

// Normaliser extracts text from item bytes.
// Each normaliser handles specific MIME types (e.g., HTML, Markdown).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise extracts the text of one item.
	Normalise(ctx context.Context, in NormaliseInput) (*NormaliseResult, error)
}

// NormaliseInput is the raw item handed to a normaliser.
type NormaliseInput struct {
	SourceID string
	Path     string
	MIMEType string
	Content  []byte
}

// NormaliseResult contains the output of normalisation.
// Chunking is handled by the content processor.
type NormaliseResult struct {
	// Title is a display title for search results.
	Title string

	// Text is the extracted plain text.
	Text string

	// Metadata holds format-specific fields (e.g., mail headers).
	Metadata map[string]string
}
