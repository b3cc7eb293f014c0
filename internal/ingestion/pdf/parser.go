package pdf

import (
	"fmt"
	"strings"

	types "github.com/yungbote/textbook-backend/internal/domain"
)

type Result struct {
	Pages []types.Page
	// SourcePageCount is what the PDF declares; it can differ from len(Pages)
	// because segmentation follows printed markers, not physical pages.
	SourcePageCount int
}

type Parser struct {
	Boundary BoundaryFunc
}

func NewParser() *Parser { return &Parser{Boundary: DefaultBoundary} }

func (p *Parser) Parse(data []byte) (Result, error) {
	ex, err := Extract(data)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(ex.Text) == "" {
		return Result{}, fmt.Errorf("pdf has no extractable text (%d pages)", ex.PageCount)
	}
	pages := Segment(ex.Text, p.Boundary)
	if len(pages) == 0 {
		return Result{}, fmt.Errorf("pdf text holds only page markers (%d pages)", ex.PageCount)
	}
	return Result{Pages: pages, SourcePageCount: ex.PageCount}, nil
}
