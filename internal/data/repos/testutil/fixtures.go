package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/textbook-backend/internal/domain"
)

func SeedTextbook(tb testing.TB, ctx context.Context, db *gorm.DB, status string, pages []types.Page) *types.TextbookDocument {
	tb.Helper()
	doc := &types.TextbookDocument{
		ID:          uuid.New(),
		ClassID:     uuid.New(),
		Filename:    "biology.pdf",
		StoragePath: "uploads/biology.pdf",
		UploadedBy:  uuid.New(),
		Size:        1024,
		Status:      status,
	}
	if pages != nil {
		raw, err := types.EncodePages(pages)
		if err != nil {
			tb.Fatalf("encode pages: %v", err)
		}
		doc.ParsedContent = raw
		doc.TotalPages = len(pages)
	}
	if err := db.WithContext(ctx).Create(doc).Error; err != nil {
		tb.Fatalf("seed textbook: %v", err)
	}
	return doc
}

func SeedActivity(tb testing.TB, ctx context.Context, db *gorm.DB, textbookID uuid.UUID, questions []types.Question) *types.Activity {
	tb.Helper()
	raw, err := types.EncodeQuestions(questions)
	if err != nil {
		tb.Fatalf("encode questions: %v", err)
	}
	a := &types.Activity{
		ID:         uuid.New(),
		ClassID:    uuid.New(),
		TextbookID: textbookID,
		PageNumber: 1,
		Title:      "seeded",
		Type:       types.ActivityFillInBlank,
		Questions:  raw,
		Modifiable: true,
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed activity: %v", err)
	}
	return a
}
