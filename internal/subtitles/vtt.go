package subtitles

import (
	"fmt"
	"strconv"
	"strings"
)

const vttTimingSeparator = " --> "

// RenderVTT serializes cues as a WebVTT caption file.
func RenderVTT(language string, cues []Cue) string {
	var b strings.Builder
	b.WriteString("WEBVTT\nKind: captions\nLanguage: ")
	b.WriteString(language)
	for _, cue := range cues {
		b.WriteString("\n\n")
		b.WriteString(strconv.Itoa(cue.Index))
		b.WriteByte('\n')
		b.WriteString(cue.Start)
		b.WriteString(vttTimingSeparator)
		b.WriteString(cue.End)
		b.WriteByte('\n')
		b.WriteString(cue.Text)
	}
	return b.String()
}

// ParseVTT reads a caption file written by RenderVTT back into its language
// and cues. A cue block starts with its index line followed by a timing
// line; every following line up to the next block is cue text.
func ParseVTT(content string) (string, []Cue, error) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "WEBVTT" {
		return "", nil, fmt.Errorf("vtt: missing WEBVTT header")
	}

	var language string
	i := 1
	for ; i < len(lines) && lines[i] != ""; i++ {
		if value, ok := strings.CutPrefix(lines[i], "Language: "); ok {
			language = strings.TrimSpace(value)
		}
	}

	var cues []Cue
	for i < len(lines) {
		if !isCueStart(lines, i) {
			i++
			continue
		}
		index, _ := strconv.Atoi(lines[i+1])
		start, end, _ := strings.Cut(lines[i+2], vttTimingSeparator)
		j := i + 3
		var text []string
		for j < len(lines) && !isCueStart(lines, j) {
			text = append(text, lines[j])
			j++
		}
		cues = append(cues, Cue{
			Index: index,
			Start: strings.TrimSpace(start),
			End:   strings.TrimSpace(end),
			Text:  strings.Join(text, "\n"),
		})
		i = j
	}
	return language, cues, nil
}

// isCueStart reports whether lines[i] is the blank separator of a cue block.
func isCueStart(lines []string, i int) bool {
	if lines[i] != "" || i+2 >= len(lines) {
		return false
	}
	if _, err := strconv.Atoi(lines[i+1]); err != nil {
		return false
	}
	return strings.Contains(lines[i+2], vttTimingSeparator)
}
