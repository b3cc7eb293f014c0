package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/textbook-backend/internal/data/repos/jobs"
	"github.com/yungbote/textbook-backend/internal/data/repos/learning"
	"github.com/yungbote/textbook-backend/internal/data/repos/materials"
	"github.com/yungbote/textbook-backend/internal/data/repos/testutil"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
	"github.com/yungbote/textbook-backend/internal/platform/cache"
	"github.com/yungbote/textbook-backend/internal/platform/openai"
	"github.com/yungbote/textbook-backend/internal/platform/storage"
)

type harness struct {
	ctx        context.Context
	db         *gorm.DB
	log        *logger.Logger
	store      *cache.MemoryStore
	textbooks  materials.TextbookRepo
	views      materials.PageViewRepo
	activities learning.ActivityRepo
	responses  learning.ActivityResponseRepo
	jobRuns    jobs.JobRunRepo
	jobs       JobService
	pages      PageCache
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	store := cache.NewMemoryStore()
	h := &harness{
		ctx:        context.Background(),
		db:         db,
		log:        log,
		store:      store,
		textbooks:  materials.NewTextbookRepo(db, log),
		views:      materials.NewPageViewRepo(db, log),
		activities: learning.NewActivityRepo(db, log),
		responses:  learning.NewActivityResponseRepo(db, log),
		jobRuns:    jobs.NewJobRunRepo(db, log),
	}
	h.jobs = NewJobService(log, h.jobRuns)
	h.pages = NewPageCache(log, store, h.textbooks)
	return h
}

func dbcOf(h *harness) dbctx.Context { return dbctx.Context{Ctx: h.ctx} }

func (h *harness) generator(ai openai.Client) ActivityGenerator {
	return NewActivityGenerator(h.log, ai, h.textbooks, h.activities, h.store)
}

func (h *harness) scoring() ScoringEngine {
	return NewScoringEngine(h.log, h.activities, h.responses, h.store)
}

var errBroken = errors.New("cache unavailable")

// brokenStore fails every call, standing in for an unreachable Redis.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, errBroken }

func (brokenStore) Set(context.Context, string, []byte, time.Duration) error { return errBroken }

func (brokenStore) Delete(context.Context, ...string) error { return errBroken }

func (brokenStore) DeletePrefix(context.Context, string) (int, error) { return 0, errBroken }

func (brokenStore) HSetExpire(context.Context, string, string, string, time.Duration) error {
	return errBroken
}

func (brokenStore) HGetAll(context.Context, string) (map[string]string, error) {
	return nil, errBroken
}

func (brokenStore) Ping(context.Context) error { return errBroken }

func (brokenStore) Close() error { return nil }

// stubAI answers Generate by prompt content and records calls.
type stubAI struct {
	mu          sync.Mutex
	generate    func(req openai.GenerateRequest) (openai.GenerateResponse, error)
	insights    func(req openai.InsightRequest) (string, error)
	generateHit int
}

func (s *stubAI) Generate(ctx context.Context, req openai.GenerateRequest) (openai.GenerateResponse, error) {
	s.mu.Lock()
	s.generateHit++
	s.mu.Unlock()
	return s.generate(req)
}

func (s *stubAI) Insights(ctx context.Context, req openai.InsightRequest) (string, error) {
	if s.insights == nil {
		return "insight", nil
	}
	return s.insights(req)
}

// memFiles is a path-keyed in-memory upload store.
type memFiles struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemFiles(files map[string][]byte) *memFiles {
	if files == nil {
		files = map[string][]byte{}
	}
	return &memFiles{files: files}
}

func (m *memFiles) Read(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[path]
	if !ok {
		return nil, storage.ErrNotExist
	}
	return b, nil
}

func (m *memFiles) Write(ctx context.Context, path string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = b
	return nil
}

func (m *memFiles) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok {
		return storage.ErrNotExist
	}
	delete(m.files, path)
	return nil
}
