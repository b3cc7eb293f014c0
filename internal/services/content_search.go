package services

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/yungbote/textbook-backend/internal/data/repos/materials"
	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
)

const snippetContext = 50

type SearchResult struct {
	PageNumber int    `json:"pageNumber"`
	Snippet    string `json:"snippet"`
}

type ContentSearch interface {
	Search(ctx context.Context, documentID uuid.UUID, query string) ([]SearchResult, error)
}

type contentSearch struct {
	log       *logger.Logger
	textbooks materials.TextbookRepo
}

func NewContentSearch(baseLog *logger.Logger, textbooks materials.TextbookRepo) ContentSearch {
	return &contentSearch{
		log:       baseLog.With("service", "ContentSearch"),
		textbooks: textbooks,
	}
}

func (s *contentSearch) Search(ctx context.Context, documentID uuid.UUID, query string) ([]SearchResult, error) {
	const op = "ContentSearch.Search"
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation(op, "query required")
	}
	doc, err := s.textbooks.GetByID(dbctx.Context{Ctx: ctx}, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperr.NotFound(op, "textbook")
	}
	out := []SearchResult{}
	if doc.Status != types.TextbookStatusCompleted {
		return out, nil
	}
	pages, err := doc.Pages()
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		if snippet, ok := matchSnippet(p.Text, query); ok {
			out = append(out, SearchResult{PageNumber: p.PageNumber, Snippet: snippet})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PageNumber < out[j].PageNumber })
	return out, nil
}

// matchSnippet finds the first case-insensitive occurrence of query in text and
// returns it with up to snippetContext runes either side. Offsets are runes so
// multi-byte scripts are never cut mid-character.
func matchSnippet(text, query string) (string, bool) {
	runes := []rune(text)
	needle := foldRunes([]rune(query))
	idx := runeIndex(foldRunes(runes), needle)
	if idx < 0 {
		return "", false
	}
	start := idx - snippetContext
	if start < 0 {
		start = 0
	}
	end := idx + len(needle) + snippetContext
	if end > len(runes) {
		end = len(runes)
	}
	return "..." + string(runes[start:end]) + "...", true
}

func foldRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func runeIndex(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
