// Package sanitize cleans up the list-style answers the NL-to-SQL engine
// tends to produce before they leave the system.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	finalAnswerRe = regexp.MustCompile(`(?i)^final answer:\s*`)
	enumMarkerRe  = regexp.MustCompile(`^\d+[).\-\s]+`)
)

// headerPhrases are boilerplate lead-ins dropped wholesale. Matching is
// case-insensitive substring; the pair form requires both substrings on the
// same line.
var headerPhrases = [][]string{
	{"the patients and their conditions are as follows"},
	{"here are", "patients"},
}

// Clean strips the "Final Answer:" label, boilerplate header lines, and
// per-line enumeration markers, keeping the answer lines themselves. If
// nothing survives, the original trimmed text is returned unchanged. The
// transform is idempotent: Clean(Clean(x)) == Clean(x).
func Clean(text string) string {
	if text == "" {
		return text
	}

	stripped := finalAnswerRe.ReplaceAllString(strings.TrimSpace(text), "")

	var cleaned []string
	for _, line := range strings.Split(stripped, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isHeaderLine(line) {
			continue
		}

		// Strip stacked markers ("1. 2) x") to a fixed point so a second
		// pass has nothing left to remove.
		for {
			next := strings.TrimSpace(enumMarkerRe.ReplaceAllString(line, ""))
			if next == line {
				break
			}
			line = next
		}
		if line == "" {
			continue
		}

		cleaned = append(cleaned, line)
	}

	if len(cleaned) == 0 {
		return strings.TrimSpace(stripped)
	}
	return strings.Join(cleaned, "\n")
}

func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	for _, phrases := range headerPhrases {
		all := true
		for _, p := range phrases {
			if !strings.Contains(lower, p) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}
