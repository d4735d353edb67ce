package subtitles

import (
	"fmt"
	"strings"

	"subarchive/internal/services"
)

// Source identifies who produced a caption track.
type Source string

const (
	// SourceUser marks human-submitted captions.
	SourceUser Source = "user"
	// SourceAuto marks machine-generated captions.
	SourceAuto Source = "auto"
)

// ParseSource maps a source identifier to a Source.
func ParseSource(value string) (Source, error) {
	switch s := Source(strings.ToLower(strings.TrimSpace(value))); s {
	case SourceUser, SourceAuto:
		return s, nil
	default:
		return "", &UnknownSourceError{Source: value}
	}
}

// UnknownSourceError reports a track source other than user or auto.
type UnknownSourceError struct {
	Source string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown subtitles source: %q", e.Source)
}

func (e *UnknownSourceError) Unwrap() error { return services.ErrValidation }
