// Package subtitles acquires caption tracks offered in video metadata and
// normalizes them for the archive.
//
// The pipeline selects tracks according to a language policy, downloads the
// json3 event stream for each, folds overlapping machine-generated events,
// writes a WebVTT file next to the media, and optionally pushes fixed-size
// cue chunks to the search index. Every persisted track is recorded in the
// ledger so it can be listed and deleted later.
package subtitles
