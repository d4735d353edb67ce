// Package preflight provides readiness checks for the directories and
// services subarchive depends on.
//
// These checks run in two contexts:
//   - The fetch command calls RunAll before downloading anything and stops
//     when a required check fails.
//   - The "subarchive status" command renders every result as a table.
//
// The search index is only checked when an index URL is configured.
package preflight
