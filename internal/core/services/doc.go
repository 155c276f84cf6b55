// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The indexing core lives here: Pipeline performs one incremental run for a
// source, IndexingService queues runs onto a worker pool and notifies
// listeners, and Scheduler decides when sources are due.
//
// Services are pure Go with no CGO dependencies.
package services
