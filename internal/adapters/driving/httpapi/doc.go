// Package httpapi provides the admin HTTP API of the indexing service: source
// and run inspection, run triggers, search, health and Prometheus metrics.
package httpapi
