package subtitles

import (
	"reflect"
	"strings"
	"testing"
)

func TestRenderVTT(t *testing.T) {
	cues := []Cue{
		{Index: 1, Start: "00:00:00.000", End: "00:00:01.000", Text: "hello"},
		{Index: 3, Start: "00:00:02.000", End: "00:00:03.500", Text: "two\nlines"},
	}
	want := "WEBVTT\nKind: captions\nLanguage: en" +
		"\n\n1\n00:00:00.000 --> 00:00:01.000\nhello" +
		"\n\n3\n00:00:02.000 --> 00:00:03.500\ntwo\nlines"
	if got := RenderVTT("en", cues); got != want {
		t.Fatalf("RenderVTT =\n%q\nwant\n%q", got, want)
	}
}

func TestRenderVTTNoCues(t *testing.T) {
	if got := RenderVTT("de", nil); got != "WEBVTT\nKind: captions\nLanguage: de" {
		t.Fatalf("unexpected header-only output %q", got)
	}
}

func TestParseVTTRoundTrip(t *testing.T) {
	cues := []Cue{
		{Index: 1, Start: "00:00:00.000", End: "00:00:01.000", Text: "hello"},
		{Index: 2, Start: "00:00:01.000", End: "00:00:02.000", Text: "first\nsecond"},
		{Index: 5, Start: "01:00:00.000", End: "01:00:02.000", Text: "later"},
	}
	lang, parsed, err := ParseVTT(RenderVTT("pt-BR", cues))
	if err != nil {
		t.Fatalf("ParseVTT returned error: %v", err)
	}
	if lang != "pt-BR" {
		t.Fatalf("language = %q", lang)
	}
	if !reflect.DeepEqual(parsed, cues) {
		t.Fatalf("cues = %#v, want %#v", parsed, cues)
	}
}

func TestParseVTTRequiresHeader(t *testing.T) {
	if _, _, err := ParseVTT(strings.TrimPrefix(RenderVTT("en", nil), "WEBVTT")); err == nil {
		t.Fatal("expected missing header error")
	}
}
