package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/yungbote/textbook-backend/internal/data/repos/materials"
	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/observability"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
	"github.com/yungbote/textbook-backend/internal/platform/cache"
)

// PageCache serves page text cache-first and falls back to the document's
// parsed content. Every cache failure is logged and bypassed.
type PageCache interface {
	Put(ctx context.Context, documentID uuid.UUID, page types.Page)
	Get(ctx context.Context, documentID uuid.UUID, pageNumber int) (*types.Page, error)
	PutInsight(ctx context.Context, documentID uuid.UUID, pageNumber int, insight string)
	GetInsight(ctx context.Context, documentID uuid.UUID, pageNumber int) (string, bool)
	// Invalidate drops every key the document owns: pages, insights,
	// activity bundles and the live tracking map.
	Invalidate(ctx context.Context, documentID uuid.UUID)
}

type pageCache struct {
	log       *logger.Logger
	store     cache.Store
	textbooks materials.TextbookRepo
}

func NewPageCache(baseLog *logger.Logger, store cache.Store, textbooks materials.TextbookRepo) PageCache {
	return &pageCache{
		log:       baseLog.With("service", "PageCache"),
		store:     store,
		textbooks: textbooks,
	}
}

func (c *pageCache) Put(ctx context.Context, documentID uuid.UUID, page types.Page) {
	b, err := json.Marshal(page)
	if err != nil {
		c.log.Warn("page encode failed", "document_id", documentID, "page", page.PageNumber, "error", err)
		return
	}
	if err := c.store.Set(ctx, cache.PageKey(documentID, page.PageNumber), b, cache.ContentTTL); err != nil {
		c.log.Warn("page cache write failed", "document_id", documentID, "page", page.PageNumber, "error", apperr.Cache("PageCache.Put", err))
	}
}

func (c *pageCache) Get(ctx context.Context, documentID uuid.UUID, pageNumber int) (*types.Page, error) {
	const op = "PageCache.Get"
	if documentID == uuid.Nil {
		return nil, apperr.Validation(op, "document id required")
	}
	if pageNumber < 1 {
		return nil, apperr.Validation(op, "page number must be >= 1, got %d", pageNumber)
	}

	key := cache.PageKey(documentID, pageNumber)
	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var p types.Page
		if uerr := json.Unmarshal(raw, &p); uerr == nil {
			observability.Current().IncCache("hit")
			return &p, nil
		}
		c.log.Warn("page cache entry undecodable, reloading", "key", key)
		observability.Current().IncCache("miss")
	case errors.Is(err, cache.ErrMiss):
		observability.Current().IncCache("miss")
	default:
		c.log.Warn("page cache read failed", "key", key, "error", apperr.Cache(op, err))
		observability.Current().IncCache("error")
	}

	doc, err := c.textbooks.GetByID(dbctx.Context{Ctx: ctx}, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperr.NotFound(op, "textbook")
	}
	pages, err := doc.Pages()
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		if p.PageNumber == pageNumber {
			page := p
			c.Put(ctx, documentID, page)
			return &page, nil
		}
	}
	return nil, apperr.NotFound(op, "page")
}

func (c *pageCache) PutInsight(ctx context.Context, documentID uuid.UUID, pageNumber int, insight string) {
	if err := c.store.Set(ctx, cache.InsightsKey(documentID, pageNumber), []byte(insight), cache.ContentTTL); err != nil {
		c.log.Warn("insight cache write failed", "document_id", documentID, "page", pageNumber, "error", apperr.Cache("PageCache.PutInsight", err))
	}
}

func (c *pageCache) GetInsight(ctx context.Context, documentID uuid.UUID, pageNumber int) (string, bool) {
	raw, err := c.store.Get(ctx, cache.InsightsKey(documentID, pageNumber))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			c.log.Warn("insight cache read failed", "document_id", documentID, "page", pageNumber, "error", err)
		}
		return "", false
	}
	return string(raw), true
}

func (c *pageCache) Invalidate(ctx context.Context, documentID uuid.UUID) {
	for _, prefix := range []string{cache.PagePrefix(documentID), cache.ActivitiesPrefix(documentID)} {
		n, err := c.store.DeletePrefix(ctx, prefix)
		if err != nil {
			c.log.Warn("cache invalidation failed", "prefix", prefix, "error", apperr.Cache("PageCache.Invalidate", err))
			continue
		}
		c.log.Debug("cache invalidated", "prefix", prefix, "keys", n)
	}
	if err := c.store.Delete(ctx, cache.TrackingKey(documentID)); err != nil {
		c.log.Warn("tracking invalidation failed", "document_id", documentID, "error", err)
	}
}
