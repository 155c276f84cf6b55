// Package memory provides in-memory implementations of the storage ports.
// They back tests and one-shot runs where nothing needs to survive the process.
package memory
