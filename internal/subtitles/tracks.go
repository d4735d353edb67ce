package subtitles

import (
	"path"
	"strings"

	"subarchive/internal/metadata"
)

const (
	trackFormat      = "json3"
	liveChatLanguage = "live_chat"
)

// TrackDescriptor identifies one downloadable caption track. Identity is the
// (Language, Source) pair.
type TrackDescriptor struct {
	Language  string
	Source    Source
	Format    string
	URL       string
	MediaPath string
}

// TrackSet is an ordered language -> track mapping.
type TrackSet struct {
	order  []string
	tracks map[string]TrackDescriptor
}

func newTrackSet() *TrackSet {
	return &TrackSet{tracks: make(map[string]TrackDescriptor)}
}

// Add stores track unless its language is already present. It reports
// whether the track was added.
func (s *TrackSet) Add(track TrackDescriptor) bool {
	if s.tracks == nil {
		s.tracks = make(map[string]TrackDescriptor)
	}
	if _, ok := s.tracks[track.Language]; ok {
		return false
	}
	s.order = append(s.order, track.Language)
	s.tracks[track.Language] = track
	return true
}

// Get returns the track for language.
func (s *TrackSet) Get(language string) (TrackDescriptor, bool) {
	if s == nil {
		return TrackDescriptor{}, false
	}
	track, ok := s.tracks[language]
	return track, ok
}

// Languages returns the stored language codes in insertion order.
func (s *TrackSet) Languages() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Tracks returns the stored tracks in insertion order.
func (s *TrackSet) Tracks() []TrackDescriptor {
	if s == nil {
		return nil
	}
	out := make([]TrackDescriptor, 0, len(s.order))
	for _, lang := range s.order {
		out = append(out, s.tracks[lang])
	}
	return out
}

// Len returns the number of stored tracks.
func (s *TrackSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// CandidateTracks collects the downloadable tracks of one source from video
// metadata. live_chat and languages without a json3 format are skipped; the
// first json3 format of a language wins.
func CandidateTracks(video *metadata.Video, source Source) (*TrackSet, error) {
	var entries metadata.TrackSet
	switch source {
	case SourceUser:
		entries = video.Subtitles
	case SourceAuto:
		entries = video.AutomaticCaptions
	default:
		return nil, &UnknownSourceError{Source: string(source)}
	}

	set := newTrackSet()
	for _, entry := range entries {
		if entry.Language == liveChatLanguage || len(entry.Formats) == 0 {
			continue
		}
		for _, format := range entry.Formats {
			if format.Ext != trackFormat {
				continue
			}
			set.Add(TrackDescriptor{
				Language:  entry.Language,
				Source:    source,
				Format:    format.Ext,
				URL:       format.URL,
				MediaPath: CaptionPath(video.MediaURL, entry.Language),
			})
			break
		}
	}
	return set, nil
}

// CaptionPath replaces the container extension of a media-relative path with
// ".<language>.vtt".
func CaptionPath(mediaURL, language string) string {
	base := strings.TrimSuffix(mediaURL, path.Ext(mediaURL))
	return base + "." + language + ".vtt"
}

// Select resolves policy against the available tracks. User tracks always
// win over auto tracks for the same language; auto tracks only take part
// when the policy prefers them. The result is ordered by first request and
// holds each language once. Requested languages that are not available are
// skipped.
func Select(policy Policy, user, auto *TrackSet) []TrackDescriptor {
	if policy.Empty() {
		return nil
	}

	available := newTrackSet()
	for _, track := range user.Tracks() {
		available.Add(track)
	}
	if policy.PreferAuto {
		for _, track := range auto.Tracks() {
			available.Add(track)
		}
	}

	codes := available.Languages()
	var requested []string
	for _, pattern := range policy.Languages {
		matched := pattern.Expand(codes)
		if !pattern.Discard {
			requested = append(requested, matched...)
			continue
		}
		drop := make(map[string]struct{}, len(matched))
		for _, code := range matched {
			drop[code] = struct{}{}
		}
		kept := requested[:0]
		for _, code := range requested {
			if _, ok := drop[code]; !ok {
				kept = append(kept, code)
			}
		}
		requested = kept
	}

	seen := make(map[string]struct{}, len(requested))
	selected := make([]TrackDescriptor, 0, len(requested))
	for _, code := range requested {
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		if track, ok := available.Get(code); ok {
			selected = append(selected, track)
		}
	}
	return selected
}
