package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yungbote/textbook-backend/internal/data/repos/learning"
	"github.com/yungbote/textbook-backend/internal/data/repos/materials"
	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/observability"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
	"github.com/yungbote/textbook-backend/internal/platform/cache"
	"github.com/yungbote/textbook-backend/internal/platform/openai"
)

const (
	minGenerationRunes = 100
	promptExcerptRunes = 1500
	maxQuestionsPerSet = 3
)

type GenerateOptions struct {
	Grade   string `json:"grade,omitempty"`
	Subject string `json:"subject,omitempty"`
	Length  string `json:"length,omitempty"`
}

type category struct {
	name         string
	activityType types.ActivityType
	questionType types.QuestionType
	title        string
	description  string
	instruction  string
}

var categories = []category{
	{
		name:         "fill_in_blank",
		activityType: types.ActivityFillInBlank,
		questionType: types.QuestionFillInBlank,
		title:        "Page %d: Fill in the Blank",
		description:  "Complete the sentences from page %d.",
		instruction:  "Write fill-in-the-blank questions. Replace one key word with ____ and put it in \"answer\".",
	},
	{
		name:         "comprehension",
		activityType: types.ActivityMultipleChoice,
		questionType: types.QuestionMultipleChoice,
		title:        "Page %d: Reading Comprehension",
		description:  "Check your understanding of page %d.",
		instruction:  "Write multiple-choice comprehension questions with exactly four \"options\" and the zero-based index of the right one in \"correctOption\".",
	},
	{
		name:         "vocabulary",
		activityType: types.ActivityVocabulary,
		questionType: types.QuestionShortAnswer,
		title:        "Page %d: Vocabulary",
		description:  "Key terms from page %d.",
		instruction:  "Write short-answer vocabulary questions. Ask for the term that matches a definition and put the term in \"answer\".",
	},
}

// ActivityGenerator turns page text into question sets. Collaborator output
// that cannot be used is replaced by heuristic questions, so generation only
// fails on storage errors.
type ActivityGenerator interface {
	GenerateForPage(ctx context.Context, doc *types.TextbookDocument, page types.Page, teacherID uuid.UUID, opts GenerateOptions) ([]*types.Activity, error)
	GenerateForDocument(ctx context.Context, documentID, teacherID uuid.UUID, opts GenerateOptions) ([]*types.Activity, error)
	CachedBundle(ctx context.Context, documentID uuid.UUID, pageNumber int) ([]*types.Activity, bool)
}

type activityGenerator struct {
	log        *logger.Logger
	ai         openai.Client
	textbooks  materials.TextbookRepo
	activities learning.ActivityRepo
	store      cache.Store
}

func NewActivityGenerator(baseLog *logger.Logger, ai openai.Client, textbooks materials.TextbookRepo, activities learning.ActivityRepo, store cache.Store) ActivityGenerator {
	return &activityGenerator{
		log:        baseLog.With("service", "ActivityGenerator"),
		ai:         ai,
		textbooks:  textbooks,
		activities: activities,
		store:      store,
	}
}

func (g *activityGenerator) GenerateForDocument(ctx context.Context, documentID, teacherID uuid.UUID, opts GenerateOptions) ([]*types.Activity, error) {
	const op = "ActivityGenerator.GenerateForDocument"
	doc, err := g.textbooks.GetByID(dbctx.Context{Ctx: ctx}, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperr.NotFound(op, "textbook")
	}
	if doc.Status != types.TextbookStatusCompleted {
		return nil, apperr.Validation(op, "textbook is %s, not completed", doc.Status)
	}
	pages, err := doc.Pages()
	if err != nil {
		return nil, fmt.Errorf("%s: decode pages: %w", op, err)
	}
	var out []*types.Activity
	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		acts, err := g.GenerateForPage(ctx, doc, p, teacherID, opts)
		if err != nil {
			return out, err
		}
		out = append(out, acts...)
	}
	g.log.Info("activities generated", "document_id", documentID, "pages", len(pages), "activities", len(out))
	return out, nil
}

func (g *activityGenerator) GenerateForPage(ctx context.Context, doc *types.TextbookDocument, page types.Page, teacherID uuid.UUID, opts GenerateOptions) ([]*types.Activity, error) {
	if doc == nil || utf8.RuneCountInString(strings.TrimSpace(page.Text)) < minGenerationRunes {
		return nil, nil
	}
	var rows []*types.Activity
	for _, c := range categories {
		qs := g.questionsFor(ctx, c, page, opts)
		if len(qs) == 0 {
			continue
		}
		raw, err := types.EncodeQuestions(qs)
		if err != nil {
			return nil, err
		}
		rows = append(rows, &types.Activity{
			ID:          uuid.New(),
			ClassID:     doc.ClassID,
			TextbookID:  doc.ID,
			PageNumber:  page.PageNumber,
			Title:       fmt.Sprintf(c.title, page.PageNumber),
			Description: fmt.Sprintf(c.description, page.PageNumber),
			Type:        c.activityType,
			Questions:   raw,
			CreatedBy:   teacherID,
			Modifiable:  true,
		})
	}
	if len(rows) == 0 {
		return nil, nil
	}
	created, err := g.activities.Create(dbctx.Context{Ctx: ctx}, rows)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(created); err == nil {
		if err := g.store.Set(ctx, cache.ActivitiesKey(doc.ID, page.PageNumber), b, cache.ContentTTL); err != nil {
			g.log.Warn("activity bundle cache write failed", "document_id", doc.ID, "page", page.PageNumber, "error", err)
		}
	}
	return created, nil
}

func (g *activityGenerator) CachedBundle(ctx context.Context, documentID uuid.UUID, pageNumber int) ([]*types.Activity, bool) {
	raw, err := g.store.Get(ctx, cache.ActivitiesKey(documentID, pageNumber))
	if err != nil {
		return nil, false
	}
	var out []*types.Activity
	if json.Unmarshal(raw, &out) != nil {
		return nil, false
	}
	return out, true
}

func (g *activityGenerator) questionsFor(ctx context.Context, c category, page types.Page, opts GenerateOptions) []types.Question {
	resp, err := g.ai.Generate(ctx, openai.GenerateRequest{
		Prompt:  buildPrompt(c, page.Text),
		Grade:   opts.Grade,
		Subject: opts.Subject,
		Length:  opts.Length,
	})
	if err == nil && resp.Model == openai.MockModel {
		err = apperr.ErrMockContent
	}
	if err == nil {
		var qs []types.Question
		if qs, err = parseQuestions(resp.Content, c.questionType); err == nil {
			observability.Current().IncGeneration(c.name, false)
			return qs
		}
	}
	if !errors.Is(err, apperr.ErrMockContent) {
		g.log.Warn("generation unusable, using fallback", "category", c.name, "page", page.PageNumber, "error", apperr.Collaborator("ActivityGenerator", err))
	}
	observability.Current().IncGeneration(c.name, true)
	return fallbackQuestions(c.name, page.Text)
}

func buildPrompt(c category, text string) string {
	excerpt := text
	if utf8.RuneCountInString(excerpt) > promptExcerptRunes {
		excerpt = string([]rune(excerpt)[:promptExcerptRunes])
	}
	var b strings.Builder
	b.WriteString("You write classroom exercises from textbook pages.\n")
	b.WriteString(c.instruction)
	fmt.Fprintf(&b, " Write at most %d questions.\n", maxQuestionsPerSet)
	b.WriteString("Respond ONLY with a JSON array. Each element: ")
	b.WriteString(`{"type": string, "question": string, "answer": string, "options": [string], "correctOption": number, "hint": string, "points": number}`)
	b.WriteString("\n\nPage text:\n")
	b.WriteString(excerpt)
	return b.String()
}

// parseQuestions pulls the outermost JSON array out of free-form model output.
func parseQuestions(content string, defaultType types.QuestionType) ([]types.Question, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no json array in response")
	}
	var raw []types.Question
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	out := make([]types.Question, 0, maxQuestionsPerSet)
	for _, q := range raw {
		if q.Type == "" {
			q.Type = defaultType
		}
		q.Prompt = strings.TrimSpace(q.Prompt)
		if q.Prompt == "" {
			continue
		}
		if _, err := q.Body(); err != nil {
			continue
		}
		if q.Points <= 0 {
			q.Points = types.DefaultQuestionPoints
		}
		out = append(out, q)
		if len(out) == maxQuestionsPerSet {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable questions in response")
	}
	return out, nil
}
