// Package domain defines the core business entities for the Sercha indexer.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Source: A configured index source and its scope, schedule and limits
//   - ItemStatus: The per-item bookkeeping record used for delta detection
//   - RunStatus: The outcome of one pipeline execution
//   - ScannedItem: Transient metadata yielded by a scanner
//   - Settings: Service-wide configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
