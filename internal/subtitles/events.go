package subtitles

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// json3Document is the caption event stream served for the json3 format.
type json3Document struct {
	WireMagic string       `json:"wireMagic,omitempty"`
	Events    []json3Event `json:"events"`
}

// json3Event is one timed caption event. Optional fields are pointers so a
// missing key can be told apart from a zero value.
type json3Event struct {
	StartMs    *int64         `json:"tStartMs,omitempty"`
	DurationMs *int64         `json:"dDurationMs,omitempty"`
	Segments   []json3Segment `json:"segs,omitempty"`
}

type json3Segment struct {
	UTF8 string `json:"utf8"`
}

func (e json3Event) text() string {
	var b strings.Builder
	for _, seg := range e.Segments {
		b.WriteString(seg.UTF8)
	}
	return b.String()
}

func (e json3Event) start() int64 {
	if e.StartMs == nil {
		return 0
	}
	return *e.StartMs
}

func (e json3Event) timed() bool {
	return e.DurationMs != nil && len(e.Segments) > 0
}

// Cue is one normalized caption entry.
type Cue struct {
	Index int
	Start string
	End   string
	Text  string
}

// ParseEvents decodes a json3 body into cues. Auto tracks first have
// overlapping events folded together. Events without a duration or segments
// are dropped; cue indices follow input positions, so drops leave gaps.
// A body without events yields no cues and no error.
func ParseEvents(body []byte, source Source) ([]Cue, error) {
	var doc json3Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode json3 events: %w", err)
	}
	if len(doc.Events) == 0 {
		return nil, nil
	}

	events := doc.Events
	if source == SourceAuto {
		events = mergeAutoEvents(events)
	}

	cues := make([]Cue, 0, len(events))
	for idx, event := range events {
		if !event.timed() {
			continue
		}
		start := event.start()
		cues = append(cues, Cue{
			Index: idx + 1,
			Start: FormatTimestamp(start),
			End:   FormatTimestamp(start + *event.DurationMs),
			Text:  norm.NFC.String(event.text()),
		})
	}
	return cues, nil
}

// mergeAutoEvents folds machine-generated events whose start falls inside the
// previous retained event into that event's text. Each retained event carries
// its concatenated text as a single segment; timing of the retained event is
// never changed. Once the last retained event has no duration nothing after
// it can be placed, so later events are dropped.
func mergeAutoEvents(events []json3Event) []json3Event {
	out := make([]json3Event, 0, len(events))
	for _, event := range events {
		if event.Segments == nil {
			continue
		}
		text := event.text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		if n := len(out); n > 0 {
			last := out[n-1]
			if !last.timed() {
				continue
			}
			if event.start() < last.start()+*last.DurationMs {
				out[n-1] = json3Event{
					StartMs:    last.StartMs,
					DurationMs: last.DurationMs,
					Segments:   []json3Segment{{UTF8: last.Segments[0].UTF8 + "\n" + text}},
				}
				continue
			}
		}

		out = append(out, json3Event{
			StartMs:    event.StartMs,
			DurationMs: event.DurationMs,
			Segments:   []json3Segment{{UTF8: text}},
		})
	}
	return out
}
