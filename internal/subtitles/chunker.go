package subtitles

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"subarchive/internal/metadata"
)

// CuesPerDocument is the number of consecutive cues packed into one index
// document.
const CuesPerDocument = 5

// VideoRef carries the video fields denormalized onto every index document.
type VideoRef struct {
	ID          string
	Title       string
	ChannelName string
	ChannelID   string
}

// RefFromMetadata builds a VideoRef from loaded metadata.
func RefFromMetadata(video *metadata.Video) VideoRef {
	return VideoRef{
		ID:          video.ID,
		Title:       video.Title,
		ChannelName: video.Channel,
		ChannelID:   video.ChannelID,
	}
}

// IndexDocument is one searchable chunk of cues.
type IndexDocument struct {
	Index       int    `json:"subtitle_index"`
	Line        string `json:"subtitle_line"`
	Start       string `json:"subtitle_start"`
	End         string `json:"subtitle_end"`
	FragmentID  string `json:"subtitle_fragment_id"`
	VideoID     string `json:"youtube_id"`
	Title       string `json:"title"`
	Channel     string `json:"subtitle_channel"`
	ChannelID   string `json:"subtitle_channel_id"`
	LastRefresh int64  `json:"subtitle_last_refresh"`
	Language    string `json:"subtitle_lang"`
	Source      Source `json:"subtitle_source"`
}

// BuildDocuments groups cues into index documents. A document opens on the
// first cue after the previous one closed and closes on a cue whose index is
// a multiple of CuesPerDocument. A trailing document that never reaches a
// closing cue is dropped.
func BuildDocuments(cues []Cue, video VideoRef, language string, source Source, now time.Time) []IndexDocument {
	var (
		docs []IndexDocument
		open *IndexDocument
	)
	for _, cue := range cues {
		if open == nil {
			idx := len(docs) + 1
			open = &IndexDocument{
				Index:      idx,
				Line:       cue.Text,
				Start:      cue.Start,
				FragmentID: fmt.Sprintf("%s-%s-%d", video.ID, language, idx),
			}
		} else {
			open.Line = open.Line + " " + cue.Text + "\n"
		}

		if cue.Index%CuesPerDocument == 0 {
			open.End = cue.End
			docs = append(docs, *open)
			open = nil
		}
	}

	refreshed := now.Unix()
	for i := range docs {
		docs[i].VideoID = video.ID
		docs[i].Title = video.Title
		docs[i].Channel = video.ChannelName
		docs[i].ChannelID = video.ChannelID
		docs[i].LastRefresh = refreshed
		docs[i].Language = language
		docs[i].Source = source
	}
	return docs
}

type bulkAction struct {
	Index bulkTarget `json:"index"`
}

type bulkTarget struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

// BulkPayload renders documents as a newline-delimited bulk request: an
// action line and a document line per document, closed by a blank line.
func BulkPayload(index string, docs []IndexDocument) ([]byte, error) {
	lines := make([][]byte, 0, len(docs)*2+1)
	for _, doc := range docs {
		action, err := json.Marshal(bulkAction{Index: bulkTarget{Index: index, ID: doc.FragmentID}})
		if err != nil {
			return nil, fmt.Errorf("encode bulk action: %w", err)
		}
		body, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode bulk document: %w", err)
		}
		lines = append(lines, action, body)
	}
	lines = append(lines, []byte("\n"))
	return bytes.Join(lines, []byte("\n")), nil
}
