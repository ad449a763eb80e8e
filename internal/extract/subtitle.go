package extract

import (
	"regexp"
	"strings"
)

var subtitleTagPattern = regexp.MustCompile(`<[^>]+>`)

// ParseSubtitles converts timed-caption markup (VTT or SRT, treated
// uniformly) into plain text. Timing cues, numeric cue indexes, header and
// positioning lines are dropped, markup tags stripped, and consecutive
// duplicate lines collapsed; auto-captions repeat almost every line.
func ParseSubtitles(raw string) string {
	var textLines []string

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}
		if strings.Contains(line, "-->") {
			continue
		}
		if strings.HasPrefix(line, "WEBVTT") || strings.HasPrefix(line, "NOTE") {
			continue
		}
		if isDigits(line) {
			continue
		}
		// Positioning and cue-settings lines
		if strings.HasPrefix(line, "<") || strings.Contains(line, "::") {
			continue
		}

		line = strings.TrimSpace(subtitleTagPattern.ReplaceAllString(line, ""))
		if line != "" {
			textLines = append(textLines, line)
		}
	}

	// Collapse consecutive duplicates
	var deduped []string
	prev := ""
	for _, line := range textLines {
		if line != prev {
			deduped = append(deduped, line)
			prev = line
		}
	}

	return strings.Join(deduped, " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
