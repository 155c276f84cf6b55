package services

import (
	"slices"
	"sync"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
)

// ScannerRegistry maps source kinds to the scanner that enumerates them.
type ScannerRegistry struct {
	mu       sync.RWMutex
	scanners map[domain.SourceKind]driven.Scanner
}

// NewScannerRegistry creates a registry with the given scanners.
func NewScannerRegistry(scanners ...driven.Scanner) *ScannerRegistry {
	r := &ScannerRegistry{scanners: make(map[domain.SourceKind]driven.Scanner)}
	for _, s := range scanners {
		r.Register(s)
	}
	return r
}

// Register adds or replaces the scanner for its kind.
func (r *ScannerRegistry) Register(s driven.Scanner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanners[s.Kind()] = s
}

// Get returns the scanner for a kind.
func (r *ScannerRegistry) Get(kind domain.SourceKind) (driven.Scanner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scanners[kind]
	return s, ok
}

// Kinds returns the registered kinds in sorted order.
func (r *ScannerRegistry) Kinds() []domain.SourceKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]domain.SourceKind, 0, len(r.scanners))
	for k := range r.scanners {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
