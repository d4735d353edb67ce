package metadata

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"subarchive/internal/services"
)

//go:embed info_schema.json
var infoSchema string

var schemaLoader = gojsonschema.NewStringLoader(infoSchema)

// Format is one downloadable rendition of a caption track.
type Format struct {
	Ext  string `json:"ext"`
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// LanguageFormats lists the formats offered for one language code.
type LanguageFormats struct {
	Language string
	Formats  []Format
}

// TrackSet holds caption formats keyed by language in document order.
type TrackSet []LanguageFormats

// UnmarshalJSON decodes a JSON object of language -> formats while keeping the
// key order of the source document.
func (s *TrackSet) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*s = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("track set: expected object, got %v", tok)
	}
	out := TrackSet{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("track set: unexpected key %v", keyTok)
		}
		var formats []Format
		if err := dec.Decode(&formats); err != nil {
			return fmt.Errorf("track set %q: %w", key, err)
		}
		out = append(out, LanguageFormats{Language: key, Formats: formats})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// MarshalJSON writes the set back as an object in stored order.
func (s TrackSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Language)
		if err != nil {
			return nil, err
		}
		formats, err := json.Marshal(entry.Formats)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(formats)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Languages returns the language codes in document order.
func (s TrackSet) Languages() []string {
	out := make([]string, 0, len(s))
	for _, entry := range s {
		out = append(out, entry.Language)
	}
	return out
}

// Video is the subset of the extraction document the caption pipeline reads.
type Video struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Channel           string   `json:"channel"`
	ChannelID         string   `json:"channel_id"`
	MediaURL          string   `json:"media_url"`
	Ext               string   `json:"ext"`
	Subtitles         TrackSet `json:"subtitles"`
	AutomaticCaptions TrackSet `json:"automatic_captions"`
}

// Load reads and validates the document at path.
func Load(filePath string) (*Video, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, "metadata", "load", "metadata file not found", err)
		}
		return nil, fmt.Errorf("read metadata %s: %w", filePath, err)
	}
	return Parse(data)
}

// Parse validates data against the extraction schema and decodes it. When
// the document carries no media_url, one is derived as
// "<channel_id>/<id>.<ext>" (ext defaults to mp4).
func Parse(data []byte) (*Video, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "metadata", "parse", "metadata is not valid JSON", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return nil, services.Wrap(services.ErrValidation, "metadata", "parse",
			"metadata failed schema validation: "+strings.Join(problems, "; "), nil)
	}

	var video Video
	if err := json.Unmarshal(data, &video); err != nil {
		return nil, services.Wrap(services.ErrValidation, "metadata", "parse", "decode metadata", err)
	}
	video.ID = strings.TrimSpace(video.ID)
	if strings.TrimSpace(video.MediaURL) == "" {
		ext := strings.TrimPrefix(strings.TrimSpace(video.Ext), ".")
		if ext == "" {
			ext = "mp4"
		}
		video.MediaURL = path.Join(video.ChannelID, video.ID+"."+ext)
	}
	return &video, nil
}
