package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Parse returns the BCP 47 tag for a caption language code. Trailing subtags
// the parser rejects (for example the "orig" in "en-orig") are dropped one at
// a time until the remainder parses. ok is false when nothing parses.
func Parse(code string) (xlanguage.Tag, bool) {
	code = strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	for code != "" {
		if tag, err := xlanguage.Parse(code); err == nil {
			return tag, true
		}
		idx := strings.LastIndex(code, "-")
		if idx <= 0 {
			break
		}
		code = code[:idx]
	}
	return xlanguage.Und, false
}

// Canonical returns the canonical string form of code, or the trimmed input
// when it cannot be parsed.
func Canonical(code string) string {
	if tag, ok := Parse(code); ok {
		return tag.String()
	}
	return strings.TrimSpace(code)
}

// ToISO2 returns the two letter ISO 639-1 base language for code, or "" when
// the base has no two letter form.
func ToISO2(code string) string {
	tag, ok := Parse(code)
	if !ok {
		return ""
	}
	base, _ := tag.Base()
	if s := base.String(); len(s) == 2 {
		return s
	}
	return ""
}

// ToISO3 returns the three letter ISO 639-2 code for the base language.
// Unknown input yields "und".
func ToISO3(code string) string {
	tag, ok := Parse(code)
	if !ok {
		return "und"
	}
	base, _ := tag.Base()
	return base.ISO3()
}

// DisplayName returns the English name for a caption language code, such as
// "English" or "Portuguese (Brazil)". It returns "Unknown" for empty input
// and the uppercased code for anything it cannot resolve.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	tag, ok := Parse(trimmed)
	if !ok {
		return strings.ToUpper(trimmed)
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(trimmed)
}
