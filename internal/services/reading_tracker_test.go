package services

import (
	"testing"
	"time"

	"github.com/google/uuid"

	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
	"github.com/yungbote/textbook-backend/internal/platform/cache"
)

func steppingClock(start time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Second)
	}
}

func TestReadingTrackerLatestPageWins(t *testing.T) {
	h := newHarness(t)
	tr := NewReadingTracker(h.log, h.store, h.views).(*readingTracker)
	tr.now = steppingClock(time.Now().UTC().Add(-time.Minute))

	doc, s1, s2 := uuid.New(), uuid.New(), uuid.New()
	for _, v := range []struct {
		student uuid.UUID
		page    int
	}{{s1, 1}, {s2, 4}, {s1, 2}} {
		if err := tr.RecordView(h.ctx, v.student, doc, v.page); err != nil {
			t.Fatalf("RecordView: %v", err)
		}
	}

	cur, err := tr.Current(h.ctx, doc)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if len(cur) != 2 || cur[s1] != 2 || cur[s2] != 4 {
		t.Fatalf("unexpected current map %v", cur)
	}

	hist, err := tr.History(h.ctx, doc, s1)
	if err != nil || len(hist) != 2 || hist[0].PageNumber != 1 || hist[1].PageNumber != 2 {
		t.Fatalf("History: %v %+v", err, hist)
	}

	h.store.Expire(cache.TrackingKey(doc))
	cur, err = tr.Current(h.ctx, doc)
	if err != nil || len(cur) != 0 {
		t.Fatalf("expected empty map after expiry, got %v %v", cur, err)
	}
}

func TestReadingTrackerBrokenCacheFallsBackToLog(t *testing.T) {
	h := newHarness(t)
	tr := NewReadingTracker(h.log, brokenStore{}, h.views).(*readingTracker)
	tr.now = steppingClock(time.Now().UTC().Add(-time.Minute))

	doc, s := uuid.New(), uuid.New()
	if err := tr.RecordView(h.ctx, s, doc, 1); err != nil {
		t.Fatalf("RecordView must survive cache failure: %v", err)
	}
	if err := tr.RecordView(h.ctx, s, doc, 5); err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	cur, err := tr.Current(h.ctx, doc)
	if err != nil || cur[s] != 5 {
		t.Fatalf("fallback Current: %v %v", cur, err)
	}
}

func TestReadingTrackerValidation(t *testing.T) {
	h := newHarness(t)
	tr := NewReadingTracker(h.log, h.store, h.views)
	if err := tr.RecordView(h.ctx, uuid.New(), uuid.New(), 0); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("page 0: %v", err)
	}
	if err := tr.RecordView(h.ctx, uuid.Nil, uuid.New(), 1); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("nil student: %v", err)
	}
}

func TestReadingTrackerSlidingInactivityWindow(t *testing.T) {
	h := newHarness(t)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	h.store.Now = clock
	tr := NewReadingTracker(h.log, h.store, h.views).(*readingTracker)
	tr.now = clock

	doc, s1, s2 := uuid.New(), uuid.New(), uuid.New()
	if err := tr.RecordView(h.ctx, s1, doc, 3); err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	now = now.Add(30 * time.Minute)
	if err := tr.RecordView(h.ctx, s2, doc, 7); err != nil {
		t.Fatalf("RecordView: %v", err)
	}

	// each write pushes the whole map's expiry out again
	now = now.Add(50 * time.Minute)
	cur, err := tr.Current(h.ctx, doc)
	if err != nil || len(cur) != 2 || cur[s1] != 3 || cur[s2] != 7 {
		t.Fatalf("readers within the window: %v %v", cur, err)
	}

	now = now.Add(11 * time.Minute)
	cur, err = tr.Current(h.ctx, doc)
	if err != nil || len(cur) != 0 {
		t.Fatalf("expected empty map after an idle hour, got %v %v", cur, err)
	}
}
