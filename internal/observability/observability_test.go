package observability

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yungbote/textbook-backend/internal/data/repos/jobs"
	repotest "github.com/yungbote/textbook-backend/internal/data/repos/testutil"
	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
)

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("GET", "/api/textbooks/:id", 200, 20*time.Millisecond)
	m.ObserveJob(types.JobTypeTextbookProcess, types.JobStatusSucceeded, time.Second)
	m.IncGeneration("fill_in_blank", true)
	m.IncCache("hit")

	if got := testutil.ToFloat64(m.jobRuns.WithLabelValues(types.JobTypeTextbookProcess, types.JobStatusSucceeded)); got != 1 {
		t.Fatalf("job counter=%v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`textbook_api_requests_total{method="GET",route="/api/textbooks/:id",status="200"} 1`,
		`textbook_activity_generation_total{category="fill_in_blank",source="fallback"} 1`,
		`textbook_cache_operations_total{result="hit"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("exposition missing %q", want)
		}
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", 200, time.Millisecond)
	m.ObserveJob("x", "y", time.Millisecond)
	m.ApiInflightInc()
	m.ApiInflightDec()
	m.IncGeneration("c", false)
	m.IncCache("miss")
	if err := m.SampleJobQueue(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
}

func TestSampleJobQueue(t *testing.T) {
	db := repotest.DB(t)
	repo := jobs.NewJobRunRepo(db, repotest.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	for _, st := range []string{types.JobStatusQueued, types.JobStatusQueued, types.JobStatusDead} {
		if _, err := repo.Create(dbc, []*types.JobRun{{JobType: types.JobTypeTextbookProcess, Status: st}}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	m := NewMetrics()
	if err := m.SampleJobQueue(context.Background(), db); err != nil {
		t.Fatalf("SampleJobQueue: %v", err)
	}
	if got := testutil.ToFloat64(m.jobQueue.WithLabelValues(types.JobStatusQueued)); got != 2 {
		t.Fatalf("queued=%v", got)
	}
	if got := testutil.ToFloat64(m.jobQueue.WithLabelValues(types.JobStatusRunning)); got != 0 {
		t.Fatalf("running=%v", got)
	}
}

func TestParseHeaders(t *testing.T) {
	h := ParseHeaders(" api-key = abc , bad, =x, team=ml ")
	if len(h) != 2 || h["api-key"] != "abc" || h["team"] != "ml" {
		t.Fatalf("ParseHeaders=%v", h)
	}
	if ParseHeaders("") != nil {
		t.Fatal("empty should be nil")
	}
}

func TestInitOTelNoneExporter(t *testing.T) {
	shutdown := InitOTel(context.Background(), nil, OtelConfig{Exporter: ExporterNone})
	if shutdown == nil {
		t.Fatal("shutdown func required")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if clampRatio(0) != 1 || clampRatio(0.25) != 0.25 || clampRatio(7) != 1 {
		t.Fatal("clampRatio")
	}
}
