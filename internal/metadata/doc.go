// Package metadata loads the upstream extraction document (an info.json as
// written by yt-dlp) that describes a video and the caption tracks offered
// for it. Documents are schema-checked once when loaded; callers work with
// the typed Video record afterwards.
package metadata
