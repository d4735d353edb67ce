// Package ledger records which caption tracks have been persisted for each
// video.
//
// The ledger is a SQLite database under the data directory. It is consulted
// when deleting a video's captions without an explicit track list and powers
// the tracks and status commands.
package ledger
