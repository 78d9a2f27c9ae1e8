package segment

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/contextforge/contextforge/internal/domain"
)

// Config bounds the structural scan and the fallback strategies.
// The defaults are dataset-tuned; changing MaxStructuralPages or the window
// sizes changes which fallback strategy fires for a given document.
type Config struct {
	MaxStructuralPages int // pages scanned for heading detection
	MinParagraphChars  int // minimum span length for a paragraph block
	WindowWords        int // words per fixed window
	WindowOverlap      int // words shared between consecutive windows
}

// DefaultConfig returns the calibrated segmentation bounds.
func DefaultConfig() Config {
	return Config{
		MaxStructuralPages: 6,
		MinParagraphChars:  40,
		WindowWords:        180,
		WindowOverlap:      30,
	}
}

// State is the heading context threaded through page-by-page structural
// segmentation of one document. It is a value: each ProcessPage call takes
// the state in and returns the updated state, which keeps per-document
// parallelism safe.
type State struct {
	Chapter      int    // -1 until a chapter heading is seen
	Section      string // empty until a section heading is seen
	FoundSection bool
}

// NewState returns the initial per-document state.
func NewState() State {
	return State{Chapter: -1}
}

var (
	chapterRe = regexp.MustCompile(`(?i)^CHAPTER\s+(\d+)`)
	sectionRe = regexp.MustCompile(`^(\d+(\.\d+)+)\s*(.+)`)
)

// matchSection returns the section label ("<numbering> <title>") if the line
// is a numbered section heading, or "" otherwise.
func matchSection(line string) string {
	m := sectionRe.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1] + " " + strings.TrimSpace(m[3])
}

// matchChapter returns the chapter number if the line is a chapter heading,
// or -1 otherwise.
func matchChapter(line string) int {
	m := chapterRe.FindStringSubmatch(line)
	if m == nil {
		return -1
	}
	n := 0
	for _, r := range m[1] {
		n = n*10 + int(r-'0')
	}
	return n
}

// shouldMerge reports whether curr is a soft continuation of prev across a
// line wrap: prev does not end a sentence and curr starts lowercase.
func shouldMerge(prev, curr string) bool {
	if strings.HasSuffix(prev, ".") || strings.HasSuffix(prev, "?") || strings.HasSuffix(prev, "!") {
		return false
	}
	if curr == "" {
		return false
	}
	r := []rune(curr)[0]
	return unicode.IsLower(r)
}

// ProcessPage segments one page into structural blocks, carrying heading
// state from previous pages. Chapter and section heading lines update the
// state and are discarded; a section heading also flushes the open buffer as
// a block tagged with the previous section.
func ProcessPage(text string, pageNumber int, source string, boilerplate map[string]struct{}, st State) ([]domain.Block, State) {
	lines := nonEmptyLines(text)
	if len(lines) == 0 {
		return nil, st
	}

	var blocks []domain.Block
	var buffer []string
	currentSection := st.Section

	flush := func(section string) {
		if len(buffer) == 0 {
			return
		}
		blocks = append(blocks, domain.Block{
			Text:    strings.Join(buffer, "\n\n"),
			Source:  source,
			Page:    pageNumber,
			Chapter: st.Chapter,
			Section: sectionLabel(section),
		})
		buffer = nil
	}

	for _, line := range lines {
		if _, skip := boilerplate[line]; skip {
			continue
		}
		if IsFigureOrTable(line) {
			continue
		}

		if chapter := matchChapter(line); chapter >= 0 {
			st.Chapter = chapter
			continue
		}

		if section := matchSection(line); section != "" {
			flush(currentSection)
			currentSection = section
			st.Section = section
			st.FoundSection = true
			continue
		}

		line = NormalizeBullet(line)
		if line == "" {
			continue
		}

		if len(buffer) > 0 && shouldMerge(buffer[len(buffer)-1], line) {
			buffer[len(buffer)-1] += " " + line
		} else {
			buffer = append(buffer, line)
		}
	}

	flush(currentSection)
	return blocks, st
}

// Segment runs the fallback chain over a document's pages and returns the
// single winning block set: structural when any section heading was found in
// the scanned pages, otherwise paragraph blocks, otherwise fixed windows.
func Segment(pages []string, source string, cfg Config) domain.BlockSet {
	boilerplate := DetectBoilerplate(pages)

	st := NewState()
	var structural []domain.Block

	limit := cfg.MaxStructuralPages
	if limit > len(pages) {
		limit = len(pages)
	}
	for i := 0; i < limit; i++ {
		var pageBlocks []domain.Block
		pageBlocks, st = ProcessPage(pages[i], i+1, source, boilerplate, st)
		structural = append(structural, pageBlocks...)
	}

	if st.FoundSection {
		return domain.BlockSet{Kind: domain.BlockKindStructural, Blocks: structural}
	}

	if paragraphs := paragraphBlocks(pages, source, cfg.MinParagraphChars); len(paragraphs) > 0 {
		return domain.BlockSet{Kind: domain.BlockKindParagraph, Blocks: paragraphs}
	}

	return domain.BlockSet{
		Kind:   domain.BlockKindFixedWindow,
		Blocks: fixedWindowBlocks(pages, source, cfg.WindowWords, cfg.WindowOverlap),
	}
}

// paragraphBlocks splits every page on blank-line boundaries, keeping spans
// longer than minChars.
func paragraphBlocks(pages []string, source string, minChars int) []domain.Block {
	var blocks []domain.Block
	for i, page := range pages {
		for _, p := range strings.Split(page, "\n\n") {
			p = strings.TrimSpace(p)
			if len(p) <= minChars {
				continue
			}
			blocks = append(blocks, domain.Block{
				Text:    p,
				Source:  source,
				Page:    i + 1,
				Chapter: -1,
				Section: "unknown",
			})
		}
	}
	return blocks
}

// fixedWindowBlocks concatenates all page text and emits overlapping windows
// of windowWords words.
func fixedWindowBlocks(pages []string, source string, windowWords, overlap int) []domain.Block {
	var nonEmpty []string
	for _, page := range pages {
		if strings.TrimSpace(page) != "" {
			nonEmpty = append(nonEmpty, page)
		}
	}
	words := strings.Fields(strings.Join(nonEmpty, "\n"))

	stride := windowWords - overlap
	if stride <= 0 {
		stride = windowWords
	}

	var blocks []domain.Block
	for start := 0; start < len(words); start += stride {
		end := start + windowWords
		if end > len(words) {
			end = len(words)
		}
		blocks = append(blocks, domain.Block{
			Text:    strings.Join(words[start:end], " "),
			Source:  source,
			Page:    -1,
			Chapter: -1,
			Section: "unknown",
		})
	}
	return blocks
}

// sectionLabel normalizes an empty section to the typed default.
func sectionLabel(section string) string {
	if section == "" {
		return "unknown"
	}
	return section
}
