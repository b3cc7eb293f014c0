package pdf

import (
	"strconv"
	"strings"

	types "github.com/yungbote/textbook-backend/internal/domain"
)

// BoundaryFunc reports whether line marks the start of page nextPage.
// The line itself belongs to neither page.
type BoundaryFunc func(line string, nextPage int) bool

// DefaultBoundary treats "Page N+1" (any case) or a bare number as a break.
func DefaultBoundary(line string, nextPage int) bool {
	l := strings.TrimSpace(line)
	if l == "" {
		return false
	}
	if strings.EqualFold(l, "page "+strconv.Itoa(nextPage)) {
		return true
	}
	for _, r := range l {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type segmenter struct {
	pages []types.Page
	buf   strings.Builder
	split bool
}

func (s *segmenter) flush(marker string) {
	text := strings.TrimSpace(s.buf.String())
	s.buf.Reset()
	if text == "" {
		return
	}
	p := types.Page{PageNumber: len(s.pages) + 1, Text: text}
	if marker != "" {
		p.Metadata = map[string]any{"endMarker": marker}
	}
	s.pages = append(s.pages, p)
}

// Segment folds the lines of text into pages. An empty buffer at a boundary
// produces no page, so numbering stays contiguous from 1. Text without any
// boundary becomes a single page holding the whole trimmed text.
func Segment(text string, isBoundary BoundaryFunc) []types.Page {
	if isBoundary == nil {
		isBoundary = DefaultBoundary
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	s := &segmenter{}
	for _, line := range strings.Split(text, "\n") {
		if isBoundary(line, len(s.pages)+2) {
			s.split = true
			s.flush(strings.TrimSpace(line))
			continue
		}
		s.buf.WriteString(line)
		s.buf.WriteString("\n")
	}
	if !s.split {
		return []types.Page{{PageNumber: 1, Text: strings.TrimSpace(text)}}
	}
	s.flush("")
	return s.pages
}
