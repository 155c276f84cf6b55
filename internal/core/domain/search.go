package domain

// SearchOptions narrows a chunk search.
type SearchOptions struct {
	// Limit caps the number of results. Zero uses the default of 10.
	Limit int

	// SourceIDs restricts results to the given sources. Empty searches all.
	SourceIDs []string
}

// SearchResult is one matching chunk.
type SearchResult struct {
	SourceID   string
	Path       string
	Title      string
	ChunkIndex int
	Snippet    string
	Score      float64
}

// Chunk is one indexed slice of an item's extracted text.
type Chunk struct {
	DocumentID string
	SourceID   string
	Path       string
	Title      string
	Index      int
	Text       string
}
