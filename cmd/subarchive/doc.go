// Package main hosts the subarchive CLI entrypoint and command graph.
//
// The Cobra-based command tree loads configuration once, builds the caption
// service with its ledger and index collaborators, and renders results as
// tables. Keep this package lean: behavior belongs in the internal packages
// and is surfaced here through dedicated commands or flags.
package main
