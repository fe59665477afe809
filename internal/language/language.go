package language

import (
	"fmt"
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Full word forms accepted in place of a tag.
var words = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
	"turkish":    "tr",
	"ukrainian":  "uk",
}

var englishNames = display.English.Tags()

func parse(code string) (xlang.Tag, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return xlang.Und, fmt.Errorf("empty language tag")
	}
	if mapped, ok := words[strings.ToLower(code)]; ok {
		code = mapped
	}
	tag, err := xlang.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return xlang.Und, fmt.Errorf("parse language %q: %w", code, err)
	}
	return tag, nil
}

// Normalize returns the canonical BCP-47 form of code ("de_de" -> "de-DE").
func Normalize(code string) (string, error) {
	tag, err := parse(code)
	if err != nil {
		return "", err
	}
	return tag.String(), nil
}

// ToISO2 returns the ISO 639-1 base of code, or "" when it cannot be parsed
// or the language has no two-letter code.
func ToISO2(code string) string {
	tag, err := parse(code)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	iso := base.String()
	if len(iso) != 2 {
		return ""
	}
	return iso
}

// ToISO3 returns the ISO 639-2 base of code, or "und".
func ToISO3(code string) string {
	tag, err := parse(code)
	if err != nil {
		return "und"
	}
	base, _ := tag.Base()
	return base.ISO3()
}

// DisplayName returns the English name for code ("de-AT" -> "Austrian
// German"). Unparseable input is returned upper-cased; empty input yields
// "Unknown".
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	tag, err := parse(code)
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	if name := englishNames.Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeList deduplicates codes by their ISO 639-1 base, dropping
// anything unparseable.
func NormalizeList(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		iso := ToISO2(code)
		if iso == "" {
			continue
		}
		if _, ok := seen[iso]; ok {
			continue
		}
		seen[iso] = struct{}{}
		out = append(out, iso)
	}
	return out
}
