// Package searchindex talks to the full-text search index over its HTTP API:
// newline-delimited bulk ingestion, delete-by-query purges, and a health
// probe for preflight checks.
package searchindex
