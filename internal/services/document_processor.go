package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/yungbote/textbook-backend/internal/data/repos/materials"
	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/ingestion/pdf"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
	"github.com/yungbote/textbook-backend/internal/platform/openai"
	"github.com/yungbote/textbook-backend/internal/platform/storage"
)

const defaultInsightConcurrency = 4

// ProcessOptions carries the class context an uploader supplied. It only
// shapes page insights; segmentation ignores it.
type ProcessOptions struct {
	Grade   string `json:"grade,omitempty"`
	Subject string `json:"subject,omitempty"`
}

// DocumentProcessor turns an uploaded PDF into stored pages. Read, parse and
// save failures leave the document failed and come back as processing errors,
// which the job queue does not retry. Lookup errors are returned as is.
type DocumentProcessor interface {
	Process(ctx context.Context, documentID uuid.UUID, filePath string, opts ProcessOptions) error
	// Abandon marks a still-processing document failed after its last
	// attempt and returns the processing error recorded for it.
	Abandon(ctx context.Context, documentID uuid.UUID, cause error) error
	// Wait blocks until every in-flight insight task has finished.
	Wait()
}

type documentProcessor struct {
	log       *logger.Logger
	storage   storage.Storage
	parser    *pdf.Parser
	textbooks materials.TextbookRepo
	pages     PageCache
	ai        openai.Client

	insightSem *semaphore.Weighted
	insightWG  sync.WaitGroup
}

func NewDocumentProcessor(
	baseLog *logger.Logger,
	store storage.Storage,
	parser *pdf.Parser,
	textbooks materials.TextbookRepo,
	pages PageCache,
	ai openai.Client,
	insightConcurrency int,
) DocumentProcessor {
	if parser == nil {
		parser = pdf.NewParser()
	}
	if insightConcurrency <= 0 {
		insightConcurrency = defaultInsightConcurrency
	}
	return &documentProcessor{
		log:        baseLog.With("service", "DocumentProcessor"),
		storage:    store,
		parser:     parser,
		textbooks:  textbooks,
		pages:      pages,
		ai:         ai,
		insightSem: semaphore.NewWeighted(int64(insightConcurrency)),
	}
}

func (p *documentProcessor) Process(ctx context.Context, documentID uuid.UUID, filePath string, opts ProcessOptions) error {
	const op = "DocumentProcessor.Process"
	if documentID == uuid.Nil || strings.TrimSpace(filePath) == "" {
		return apperr.Validation(op, "document id and file path required")
	}
	dbc := dbctx.Context{Ctx: ctx}
	doc, err := p.textbooks.GetByID(dbc, documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return apperr.NotFound(op, "textbook")
	}
	if doc.Status == types.TextbookStatusFailed {
		p.log.Info("textbook already failed, skipping", "document_id", documentID)
		return nil
	}

	data, err := p.storage.Read(ctx, filePath)
	if err != nil {
		return p.fail(ctx, documentID, fmt.Errorf("read upload %q: %w", filePath, err))
	}

	res, err := p.parser.Parse(data)
	if err != nil {
		return p.fail(ctx, documentID, fmt.Errorf("parse pdf: %w", err))
	}

	for _, page := range res.Pages {
		p.pages.Put(ctx, documentID, page)
	}

	saved, err := p.textbooks.SavePages(dbc, documentID, res.Pages, res.SourcePageCount)
	if err != nil {
		return p.fail(ctx, documentID, fmt.Errorf("save pages: %w", err))
	}
	if !saved {
		p.log.Warn("textbook left processing before pages were saved", "document_id", documentID)
		return nil
	}
	p.log.Info("textbook processed",
		"document_id", documentID,
		"pages", len(res.Pages),
		"source_pages", res.SourcePageCount,
	)

	p.spawnInsights(ctx, documentID, res.Pages, opts)
	return nil
}

func (p *documentProcessor) Wait() { p.insightWG.Wait() }

func (p *documentProcessor) Abandon(ctx context.Context, documentID uuid.UUID, cause error) error {
	if cause == nil {
		cause = fmt.Errorf("processing attempts exhausted")
	}
	return p.fail(ctx, documentID, fmt.Errorf("attempts exhausted: %w", cause))
}

func (p *documentProcessor) fail(ctx context.Context, documentID uuid.UUID, cause error) error {
	bg := context.WithoutCancel(ctx)
	if _, err := p.textbooks.MarkFailed(dbctx.Context{Ctx: bg}, documentID, cause.Error()); err != nil {
		p.log.Error("mark textbook failed", "document_id", documentID, "error", err)
	}
	p.log.Warn("textbook processing failed", "document_id", documentID, "error", cause)
	return apperr.Processing("DocumentProcessor.Process", cause)
}

// spawnInsights runs one bounded, detached insight task per page. Results
// only land in the cache; errors and panics stay inside the task.
func (p *documentProcessor) spawnInsights(ctx context.Context, documentID uuid.UUID, pages []types.Page, opts ProcessOptions) {
	bg := context.WithoutCancel(ctx)
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		page := page
		p.insightWG.Add(1)
		go func() {
			defer p.insightWG.Done()
			defer func() {
				if r := recover(); r != nil {
					p.log.Error("insight task panic", "document_id", documentID, "page", page.PageNumber, "panic", r)
				}
			}()
			if err := p.insightSem.Acquire(bg, 1); err != nil {
				return
			}
			defer p.insightSem.Release(1)

			text, err := p.ai.Insights(bg, openai.InsightRequest{
				PageText: page.Text,
				Grade:    opts.Grade,
				Subject:  opts.Subject,
			})
			if err != nil {
				p.log.Warn("insight generation failed", "document_id", documentID, "page", page.PageNumber, "error", apperr.Collaborator("DocumentProcessor.insights", err))
				return
			}
			p.pages.PutInsight(bg, documentID, page.PageNumber, text)
		}()
	}
}
