// Package textparse holds the pure text cleanup and parsing functions
// applied to raw OCR output. No I/O here.
package textparse

import (
	"regexp"
	"strconv"
	"strings"
)

// ParseMode tags how a collector number was extracted. Slash parses
// ("123/350") are far more reliable than standalone digit tokens.
type ParseMode string

const (
	ModeSlash      ParseMode = "slash"
	ModeStandalone ParseMode = "standalone"
)

// Collector is a parsed collector number with its parse mode.
type Collector struct {
	Value string
	Mode  ParseMode
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	leadingJunk   = regexp.MustCompile(`^[^A-Za-z0-9]+`)
	leadingBars   = regexp.MustCompile(`^[|lI]+\s+`)
	disallowed    = regexp.MustCompile(`[^A-Za-z0-9 ',\-/]`)
	strayCapital  = regexp.MustCompile(`^[A-Z] [A-Za-z]{3,}`)

	collectorNoise = regexp.MustCompile(`[^0-9/ ]`)
	slashPattern   = regexp.MustCompile(`(\d{1,4})\s*/\s*(\d{1,4})`)
	bareNumber     = regexp.MustCompile(`\b(\d{1,4})\b`)
)

// CleanCardName normalizes raw name-bar OCR text: collapses whitespace,
// strips leading border and glare artifacts, restricts the alphabet to
// characters that appear on real card names (the slash preserves split
// cards like "Fire // Ice"), and drops a stray single capital glitch
// ahead of the actual name.
func CleanCardName(text string) string {
	s := strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	s = leadingJunk.ReplaceAllString(s, "")
	s = stripRepeatedCapitalRun(s)
	s = leadingBars.ReplaceAllString(s, "")
	s = strings.TrimSpace(disallowed.ReplaceAllString(s, ""))
	if strayCapital.MatchString(s) {
		s = strings.TrimSpace(s[1:])
	}
	return s
}

// stripRepeatedCapitalRun drops a leading run of three or more
// identical capital letters followed by whitespace. Scanner borders and
// glare read as runs like "III" or "WWW", never as a real name prefix.
func stripRepeatedCapitalRun(s string) string {
	if len(s) < 4 || s[0] < 'A' || s[0] > 'Z' {
		return s
	}
	run := 1
	for run < len(s) && s[run] == s[0] {
		run++
	}
	if run < 3 || run >= len(s) || s[run] != ' ' {
		return s
	}
	return strings.TrimLeft(s[run:], " ")
}

// CleanBottomText collapses whitespace in collector-strip OCR output
// without touching its characters; the raw text is kept for diagnostics.
func CleanBottomText(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// ParseCollectorNumber extracts a collector number from bottom-strip
// text. The slash form ("123/350") is tried first and returns the
// numerator; a bare 1 to 4 digit token is the riskier fallback. Values
// are integer normalized so leading zeros never leak downstream.
func ParseCollectorNumber(text string) (Collector, bool) {
	s := whitespaceRun.ReplaceAllString(text, " ")
	s = strings.ReplaceAll(s, "|", "/")
	s = strings.TrimSpace(collectorNoise.ReplaceAllString(s, ""))

	if m := slashPattern.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return Collector{Value: strconv.Itoa(n), Mode: ModeSlash}, true
		}
	}
	if m := bareNumber.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return Collector{Value: strconv.Itoa(n), Mode: ModeStandalone}, true
		}
	}
	return Collector{}, false
}
