package pdf

import (
	"bytes"
	"fmt"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
)

// Extraction is the raw text pulled out of a PDF plus the page count the
// file itself declares.
type Extraction struct {
	Text      string
	PageCount int
}

// Extract reads every page's plain text and joins them with newlines.
// Pages whose text cannot be decoded are skipped; a file that cannot be
// opened at all is an error.
func Extract(data []byte) (out Extraction, err error) {
	if len(data) == 0 {
		return Extraction{}, fmt.Errorf("empty pdf")
	}
	// The reader panics on some malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Extraction{}, fmt.Errorf("pdf reader: %w", err)
	}

	n := r.NumPage()
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		txt, perr := p.GetPlainText(nil)
		if perr != nil {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(txt)
	}
	return Extraction{Text: sb.String(), PageCount: n}, nil
}
