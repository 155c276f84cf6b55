// Package html provides a Normaliser implementation for HTML documents.
// It walks the token stream with golang.org/x/net/html, dropping scripts,
// styles and markup, and keeps block structure as line breaks.
package html
