// Package filesystem provides the scanner for local and mounted directory
// trees, and a watcher that turns filesystem notifications into run requests.
//
// Item paths are absolute file paths. Hidden files and directories (names
// starting with a dot) are never scanned.
package filesystem
