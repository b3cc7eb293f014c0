package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/textbook-backend/internal/data/repos/testutil"
	types "github.com/yungbote/textbook-backend/internal/domain"
	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
	"github.com/yungbote/textbook-backend/internal/platform/cache"
)

func TestPageCacheReadThrough(t *testing.T) {
	h := newHarness(t)
	doc := testutil.SeedTextbook(t, h.ctx, h.db, types.TextbookStatusCompleted, []types.Page{
		{PageNumber: 1, Text: "first"},
		{PageNumber: 2, Text: "second"},
	})

	p, err := h.pages.Get(h.ctx, doc.ID, 2)
	if err != nil || p.Text != "second" {
		t.Fatalf("Get: %+v %v", p, err)
	}
	if _, err := h.store.Get(h.ctx, cache.PageKey(doc.ID, 2)); err != nil {
		t.Fatalf("miss should repopulate: %v", err)
	}

	h.store.Expire(cache.PageKey(doc.ID, 2))
	p, err = h.pages.Get(h.ctx, doc.ID, 2)
	if err != nil || p.Text != "second" {
		t.Fatalf("Get after expiry: %+v %v", p, err)
	}
	if _, err := h.store.Get(h.ctx, cache.PageKey(doc.ID, 2)); err != nil {
		t.Fatalf("expired entry should be repopulated: %v", err)
	}

	// cache wins over the row once populated
	h.pages.Put(h.ctx, doc.ID, types.Page{PageNumber: 1, Text: "cached"})
	if p, _ := h.pages.Get(h.ctx, doc.ID, 1); p == nil || p.Text != "cached" {
		t.Fatalf("expected cached page, got %+v", p)
	}
}

func TestPageCacheErrors(t *testing.T) {
	h := newHarness(t)
	doc := testutil.SeedTextbook(t, h.ctx, h.db, types.TextbookStatusCompleted, []types.Page{{PageNumber: 1, Text: "only"}})

	if _, err := h.pages.Get(h.ctx, doc.ID, 9); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("missing page: %v", err)
	}
	if _, err := h.pages.Get(h.ctx, uuid.New(), 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing doc: %v", err)
	}
	if _, err := h.pages.Get(h.ctx, doc.ID, 0); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("page 0: %v", err)
	}
}

func TestPageCacheBypassesBrokenStore(t *testing.T) {
	h := newHarness(t)
	doc := testutil.SeedTextbook(t, h.ctx, h.db, types.TextbookStatusCompleted, []types.Page{{PageNumber: 1, Text: "durable"}})
	pc := NewPageCache(h.log, brokenStore{}, h.textbooks)

	p, err := pc.Get(h.ctx, doc.ID, 1)
	if err != nil || p.Text != "durable" {
		t.Fatalf("Get with broken cache: %+v %v", p, err)
	}
	pc.Put(h.ctx, doc.ID, types.Page{PageNumber: 1, Text: "x"})
	pc.PutInsight(h.ctx, doc.ID, 1, "x")
	if _, ok := pc.GetInsight(h.ctx, doc.ID, 1); ok {
		t.Fatal("broken store cannot hold insights")
	}
	pc.Invalidate(h.ctx, doc.ID)
}

func TestPageCacheInvalidate(t *testing.T) {
	h := newHarness(t)
	doc, other := uuid.New(), uuid.New()
	for _, k := range []string{
		cache.PageKey(doc, 1),
		cache.PageKey(doc, 2),
		cache.InsightsKey(doc, 1),
		cache.ActivitiesKey(doc, 1),
		cache.PageKey(other, 1),
	} {
		if err := h.store.Set(h.ctx, k, []byte("v"), cache.ContentTTL); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}
	if err := h.store.HSetExpire(h.ctx, cache.TrackingKey(doc), uuid.NewString(), "3", cache.TrackingTTL); err != nil {
		t.Fatalf("seed tracking: %v", err)
	}

	h.pages.Invalidate(h.ctx, doc)

	for _, k := range []string{cache.PageKey(doc, 1), cache.InsightsKey(doc, 1), cache.ActivitiesKey(doc, 1)} {
		if _, err := h.store.Get(h.ctx, k); !errors.Is(err, cache.ErrMiss) {
			t.Fatalf("%s should be gone: %v", k, err)
		}
	}
	if m, _ := h.store.HGetAll(h.ctx, cache.TrackingKey(doc)); len(m) != 0 {
		t.Fatalf("tracking should be gone: %v", m)
	}
	if _, err := h.store.Get(h.ctx, cache.PageKey(other, 1)); err != nil {
		t.Fatalf("other document must survive: %v", err)
	}
}
