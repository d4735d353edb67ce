package subtitles

import (
	"fmt"
	"regexp"
	"strings"

	"subarchive/internal/services"
)

// PatternKind distinguishes the forms a language policy entry can take.
type PatternKind int

const (
	// PatternLiteral is an exact language code.
	PatternLiteral PatternKind = iota
	// PatternWildcard is the "all" alias.
	PatternWildcard
	// PatternRegexp matches codes with a case-insensitive full-match regexp.
	PatternRegexp
)

const wildcardToken = "all"

// LanguagePattern is one parsed entry of a language policy. Discard entries
// (written with a leading "-") remove what they match from the languages
// requested before them.
type LanguagePattern struct {
	Kind    PatternKind
	Raw     string
	Discard bool
	re      *regexp.Regexp
}

// Expand returns the codes from available that the pattern names, in the
// order of available. Literal codes are returned verbatim even when absent.
func (p LanguagePattern) Expand(available []string) []string {
	switch p.Kind {
	case PatternWildcard:
		return append([]string(nil), available...)
	case PatternRegexp:
		var out []string
		for _, code := range available {
			if p.re.MatchString(code) {
				out = append(out, code)
			}
		}
		return out
	default:
		return []string{p.Raw}
	}
}

func (p LanguagePattern) String() string {
	if p.Discard {
		return "-" + p.Raw
	}
	return p.Raw
}

// Policy is the parsed language preference used for one selection run.
type Policy struct {
	Languages  []LanguagePattern
	PreferAuto bool
}

// Empty reports whether the policy requests no captions at all.
func (p Policy) Empty() bool {
	return len(p.Languages) == 0
}

// ParsePolicy parses a comma-separated language list. Blank entries are
// ignored; an empty list yields an empty policy.
func ParsePolicy(raw string, preferAuto bool) (Policy, error) {
	policy := Policy{PreferAuto: preferAuto}
	for _, part := range strings.Split(raw, ",") {
		entry := strings.TrimSpace(part)
		if entry == "" {
			continue
		}
		pattern, err := parsePattern(entry)
		if err != nil {
			return Policy{}, err
		}
		policy.Languages = append(policy.Languages, pattern)
	}
	return policy, nil
}

func parsePattern(entry string) (LanguagePattern, error) {
	pattern := LanguagePattern{Raw: entry}
	if strings.HasPrefix(entry, "-") {
		pattern.Discard = true
		pattern.Raw = entry[1:]
	}
	switch {
	case pattern.Raw == wildcardToken:
		pattern.Kind = PatternWildcard
	case regexp.QuoteMeta(pattern.Raw) == pattern.Raw:
		pattern.Kind = PatternLiteral
	default:
		re, err := regexp.Compile("(?i)^(?:" + pattern.Raw + ")$")
		if err != nil {
			return LanguagePattern{}, &InvalidSelectionError{Pattern: entry, Err: err}
		}
		pattern.Kind = PatternRegexp
		pattern.re = re
	}
	return pattern, nil
}

// InvalidSelectionError reports a language policy entry that is not a valid
// regular expression.
type InvalidSelectionError struct {
	Pattern string
	Err     error
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("wrong regex in subtitle config: %q: %v", e.Pattern, e.Err)
}

func (e *InvalidSelectionError) Unwrap() []error {
	return []error{services.ErrConfiguration, e.Err}
}
