// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Scanner: Enumerates the items of a source and reads their bytes
//   - StatusStore: Item and run bookkeeping persistence
//   - SourceStore: Source configuration persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ContentProcessor: Extracts, chunks and indexes item content. Without it,
//     new and changed items are recorded as pending with a skip reason.
//   - Normaliser / NormaliserRegistry: Text extraction used by the bundled
//     chunk index processor.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
