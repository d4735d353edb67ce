package subtitles

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
)

func numberedCues(n int) []Cue {
	cues := make([]Cue, 0, n)
	for i := 1; i <= n; i++ {
		cues = append(cues, Cue{
			Index: i,
			Start: FormatTimestamp(int64(i-1) * 1000),
			End:   FormatTimestamp(int64(i) * 1000),
			Text:  fmt.Sprintf("t%d", i),
		})
	}
	return cues
}

var testRef = VideoRef{ID: "abc123", Title: "Title", ChannelName: "Channel", ChannelID: "chan"}

func TestBuildDocumentsGroupsByFive(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	docs := BuildDocuments(numberedCues(12), testRef, "en", SourceUser, now)
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	first := docs[0]
	if first.Line != "t1 t2\n t3\n t4\n t5\n" {
		t.Fatalf("first line = %q", first.Line)
	}
	if first.Start != "00:00:00.000" || first.End != "00:00:05.000" {
		t.Fatalf("first span = %s-%s", first.Start, first.End)
	}
	if first.FragmentID != "abc123-en-1" || first.Index != 1 {
		t.Fatalf("first id = %s/%d", first.FragmentID, first.Index)
	}

	second := docs[1]
	if second.Line != "t6 t7\n t8\n t9\n t10\n" || second.FragmentID != "abc123-en-2" {
		t.Fatalf("second = %+v", second)
	}
	if second.Start != "00:00:05.000" || second.End != "00:00:10.000" {
		t.Fatalf("second span = %s-%s", second.Start, second.End)
	}

	for _, doc := range docs {
		if doc.VideoID != "abc123" || doc.Title != "Title" || doc.Channel != "Channel" || doc.ChannelID != "chan" {
			t.Fatalf("metadata not merged: %+v", doc)
		}
		if doc.Language != "en" || doc.Source != SourceUser || doc.LastRefresh != now.Unix() {
			t.Fatalf("track fields not merged: %+v", doc)
		}
	}
}

func TestBuildDocumentsFollowsIndexGaps(t *testing.T) {
	cues := []Cue{
		{Index: 1, Start: "00:00:00.000", End: "00:00:01.000", Text: "a"},
		{Index: 5, Start: "00:00:04.000", End: "00:00:05.000", Text: "b"},
		{Index: 7, Start: "00:00:06.000", End: "00:00:07.000", Text: "c"},
	}
	docs := BuildDocuments(cues, testRef, "en", SourceAuto, time.Now())
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].Line != "a b\n" || docs[0].End != "00:00:05.000" {
		t.Fatalf("doc = %+v", docs[0])
	}
}

func TestBuildDocumentsShortTrack(t *testing.T) {
	if docs := BuildDocuments(numberedCues(4), testRef, "en", SourceUser, time.Now()); len(docs) != 0 {
		t.Fatalf("expected no documents, got %d", len(docs))
	}
}

func TestBulkPayload(t *testing.T) {
	docs := BuildDocuments(numberedCues(5), testRef, "en", SourceUser, time.Unix(10, 0))
	payload, err := BulkPayload("ta_subtitle", docs)
	if err != nil {
		t.Fatalf("BulkPayload returned error: %v", err)
	}
	text := string(payload)
	if !strings.HasSuffix(text, "}\n\n") {
		t.Fatalf("payload must end with a blank line: %q", text)
	}
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), text)
	}
	if lines[0] != `{"index":{"_index":"ta_subtitle","_id":"abc123-en-1"}}` {
		t.Fatalf("action line = %s", lines[0])
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &body); err != nil {
		t.Fatalf("document line is not JSON: %v", err)
	}
	if body["youtube_id"] != "abc123" || body["subtitle_fragment_id"] != "abc123-en-1" || body["subtitle_source"] != "user" {
		t.Fatalf("unexpected document %v", body)
	}
	if body["subtitle_last_refresh"] != float64(10) {
		t.Fatalf("last refresh = %v", body["subtitle_last_refresh"])
	}
}

func TestBulkPayloadNoDocuments(t *testing.T) {
	payload, err := BulkPayload("ta_subtitle", nil)
	if err != nil {
		t.Fatalf("BulkPayload returned error: %v", err)
	}
	if string(payload) != "\n" {
		t.Fatalf("payload = %q", payload)
	}
}
