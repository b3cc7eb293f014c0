package services

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/textbook-backend/internal/data/repos/testutil"
	types "github.com/yungbote/textbook-backend/internal/domain"
	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
)

func TestContentSearch(t *testing.T) {
	h := newHarness(t)
	doc := testutil.SeedTextbook(t, h.ctx, h.db, types.TextbookStatusCompleted, []types.Page{
		{PageNumber: 1, Text: "Plants need sunlight and water."},
		{PageNumber: 2, Text: "The water cycle moves water around."},
		{PageNumber: 3, Text: "식물은 광합성을 통해 에너지를 만든다."},
	})
	s := NewContentSearch(h.log, h.textbooks)

	res, err := s.Search(h.ctx, doc.ID, "광합성")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].PageNumber != 3 || !strings.Contains(res[0].Snippet, "광합성") {
		t.Fatalf("unexpected results %+v", res)
	}

	res, err = s.Search(h.ctx, doc.ID, "  WATER ")
	if err != nil || len(res) != 2 || res[0].PageNumber != 1 || res[1].PageNumber != 2 {
		t.Fatalf("case-insensitive search: %+v %v", res, err)
	}

	if _, err := s.Search(h.ctx, doc.ID, "   "); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("empty query: %v", err)
	}
	if _, err := s.Search(h.ctx, uuid.New(), "x"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("missing doc: %v", err)
	}
}

func TestContentSearchIncompleteDocument(t *testing.T) {
	h := newHarness(t)
	doc := testutil.SeedTextbook(t, h.ctx, h.db, types.TextbookStatusProcessing, nil)
	res, err := NewContentSearch(h.log, h.textbooks).Search(h.ctx, doc.ID, "anything")
	if err != nil || res == nil || len(res) != 0 {
		t.Fatalf("expected empty results, got %+v %v", res, err)
	}
}

func TestMatchSnippetClampsByRunes(t *testing.T) {
	text := strings.Repeat("가", 80) + "needle" + strings.Repeat("b", 80)
	got, ok := matchSnippet(text, "NEEDLE")
	if !ok {
		t.Fatal("expected match")
	}
	want := "..." + strings.Repeat("가", 50) + "needle" + strings.Repeat("b", 50) + "..."
	if got != want {
		t.Fatalf("snippet\n got %q\nwant %q", got, want)
	}

	got, _ = matchSnippet("needle at start", "needle")
	if got != "...needle at start..." {
		t.Fatalf("short snippet %q", got)
	}
	if _, ok := matchSnippet("nothing here", "absent"); ok {
		t.Fatal("unexpected match")
	}
}
