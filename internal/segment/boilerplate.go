package segment

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// headerFooterLines is how many lines from the top and bottom of each
	// page feed the boilerplate frequency statistics.
	headerFooterLines = 3
	// repeatThreshold is the fraction of pages a line must appear on to be
	// treated as boilerplate.
	repeatThreshold = 0.6
)

var figureOrTableRe = regexp.MustCompile(`(?i)^(Figure|Table)\s+\d+`)

// DetectBoilerplate collects the first and last headerFooterLines non-empty
// trimmed lines of every page, counts each distinct line across the whole
// document, and returns the lines whose frequency divided by the page count
// reaches repeatThreshold. It must run over the full page set before
// segmentation begins.
func DetectBoilerplate(pages []string) map[string]struct{} {
	counts := make(map[string]int)

	for _, page := range pages {
		lines := nonEmptyLines(page)
		if len(lines) == 0 {
			continue
		}

		head := headerFooterLines
		if head > len(lines) {
			head = len(lines)
		}
		for _, l := range lines[:head] {
			counts[l]++
		}

		tail := len(lines) - headerFooterLines
		if tail < 0 {
			tail = 0
		}
		for _, l := range lines[tail:] {
			counts[l]++
		}
	}

	boilerplate := make(map[string]struct{})
	total := len(pages)
	if total == 0 {
		return boilerplate
	}
	for line, freq := range counts {
		if float64(freq)/float64(total) >= repeatThreshold {
			boilerplate[line] = struct{}{}
		}
	}
	return boilerplate
}

// NormalizeBullet applies NFKC normalization, then strips a leading run of
// bullet glyphs and surrounding whitespace.
func NormalizeBullet(line string) string {
	line = norm.NFKC.String(line)
	return strings.TrimSpace(strings.TrimLeft(line, "•▪–—◦"))
}

// IsFigureOrTable reports whether a line is a figure or table caption
// ("Figure <n>" / "Table <n>", case-insensitive). Such lines are dropped
// entirely, never merged into a block.
func IsFigureOrTable(line string) bool {
	return figureOrTableRe.MatchString(line)
}

// nonEmptyLines splits page text into trimmed, non-empty lines.
func nonEmptyLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
