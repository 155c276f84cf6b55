// Package connectors holds the Scanner implementations, one package per
// source kind. Each scanner enumerates the items of a source and reads their
// bytes on demand; the indexing pipeline decides what changed.
//
// Scanners are registered with the ScannerRegistry at startup.
package connectors
