package ledger

import "time"

// Track is one persisted caption track.
type Track struct {
	ID            int64
	VideoID       string
	Language      string
	Source        string
	Format        string
	URL           string
	MediaPath     string
	CueCount      int
	DocumentCount int
	Indexed       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// VideoSummary aggregates the tracks recorded for one video.
type VideoSummary struct {
	VideoID    string
	TrackCount int
	Indexed    int
	Languages  []string
	UpdatedAt  time.Time
}
