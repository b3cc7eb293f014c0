package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/textbook-backend/internal/data/repos/testutil"
	types "github.com/yungbote/textbook-backend/internal/domain"
	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
	"github.com/yungbote/textbook-backend/internal/platform/openai"
)

const longPage = "Photosynthesis is the process plants use to turn light into food. " +
	"Chlorophyll in the leaves absorbs most of the red and blue light. " +
	"Oxygen is released into the air as a by-product of the reaction."

func activityTypes(acts []*types.Activity) []types.ActivityType {
	out := make([]types.ActivityType, len(acts))
	for i, a := range acts {
		out[i] = a.Type
	}
	return out
}

func TestGenerateMockUsesFallbackWithoutParsing(t *testing.T) {
	h := newHarness(t)
	doc := testutil.SeedTextbook(t, h.ctx, h.db, types.TextbookStatusCompleted, []types.Page{
		{PageNumber: 1, Text: longPage},
		{PageNumber: 2, Text: "too short"},
	})
	// Parseable content under the mock model must still be ignored.
	ai := &stubAI{generate: func(req openai.GenerateRequest) (openai.GenerateResponse, error) {
		return openai.GenerateResponse{
			Model:   openai.MockModel,
			Content: `[{"type":"short_answer","question":"from model","answer":"x"}]`,
		}, nil
	}}
	teacher := uuid.New()

	acts, err := h.generator(ai).GenerateForDocument(h.ctx, doc.ID, teacher, GenerateOptions{})
	if err != nil {
		t.Fatalf("GenerateForDocument: %v", err)
	}
	got := activityTypes(acts)
	if len(got) != 2 || got[0] != types.ActivityFillInBlank || got[1] != types.ActivityMultipleChoice {
		t.Fatalf("expected fill_in_blank + multiple_choice, got %v", got)
	}
	for _, a := range acts {
		if a.PageNumber != 1 || !a.Modifiable || a.CreatedBy != teacher || !strings.Contains(a.Title, "Page 1") {
			t.Fatalf("unexpected activity %+v", a)
		}
		qs, _ := a.DecodeQuestions()
		for _, q := range qs {
			if q.Prompt == "from model" {
				t.Fatal("mock content must not be parsed")
			}
		}
	}

	fillQs, _ := acts[0].DecodeQuestions()
	if len(fillQs) != 3 {
		t.Fatalf("expected 3 fill-in-blank questions, got %d", len(fillQs))
	}
	for _, q := range fillQs {
		if !strings.Contains(q.Prompt, blankToken) || q.Answer == "" || !strings.HasSuffix(q.Hint, "characters") {
			t.Fatalf("bad fallback question %+v", q)
		}
	}
	mcQs, _ := acts[1].DecodeQuestions()
	if len(mcQs) != 1 || mcQs[0].CorrectOption == nil || *mcQs[0].CorrectOption != 0 || len(mcQs[0].Options) != 4 {
		t.Fatalf("bad comprehension fallback %+v", mcQs)
	}

	bundle, ok := h.generator(ai).CachedBundle(h.ctx, doc.ID, 1)
	if !ok || len(bundle) != 2 {
		t.Fatalf("bundle cache: ok=%v len=%d", ok, len(bundle))
	}
}

func TestGenerateParsesCollaboratorOutput(t *testing.T) {
	h := newHarness(t)
	doc := testutil.SeedTextbook(t, h.ctx, h.db, types.TextbookStatusCompleted, []types.Page{{PageNumber: 1, Text: longPage}})
	ai := &stubAI{generate: func(req openai.GenerateRequest) (openai.GenerateResponse, error) {
		switch {
		case strings.Contains(req.Prompt, "multiple-choice"):
			return openai.GenerateResponse{Model: "gpt", Content: `Sure! [{"question":"Which gas?","options":["O2","N2","CO2","H2"],"correctOption":0}] Done.`}, nil
		case strings.Contains(req.Prompt, "vocabulary"):
			return openai.GenerateResponse{Model: "gpt", Content: `[{"question":"Green pigment?","answer":"chlorophyll"},{"question":"","answer":"dropped"}]`}, nil
		default:
			return openai.GenerateResponse{Model: "gpt", Content: `[
				{"question":"a ____","answer":"1"},{"question":"b ____","answer":"2"},
				{"question":"c ____","answer":"3"},{"question":"d ____","answer":"4"}]`}, nil
		}
	}}

	acts, err := h.generator(ai).GenerateForDocument(h.ctx, doc.ID, uuid.New(), GenerateOptions{Grade: "5"})
	if err != nil {
		t.Fatalf("GenerateForDocument: %v", err)
	}
	if len(acts) != 3 {
		t.Fatalf("expected one activity per category, got %v", activityTypes(acts))
	}
	fillQs, _ := acts[0].DecodeQuestions()
	if len(fillQs) != maxQuestionsPerSet || fillQs[0].Type != types.QuestionFillInBlank || fillQs[0].Points != types.DefaultQuestionPoints {
		t.Fatalf("fill questions %+v", fillQs)
	}
	mcQs, _ := acts[1].DecodeQuestions()
	if len(mcQs) != 1 || mcQs[0].Options[0] != "O2" {
		t.Fatalf("mc questions %+v", mcQs)
	}
	vocab := acts[2]
	vqs, _ := vocab.DecodeQuestions()
	if vocab.Type != types.ActivityVocabulary || len(vqs) != 1 || vqs[0].Type != types.QuestionShortAnswer {
		t.Fatalf("vocabulary activity %+v %+v", vocab, vqs)
	}
}

func TestGenerateCollaboratorErrorFallsBack(t *testing.T) {
	h := newHarness(t)
	doc := testutil.SeedTextbook(t, h.ctx, h.db, types.TextbookStatusCompleted, []types.Page{{PageNumber: 1, Text: longPage}})
	ai := &stubAI{generate: func(req openai.GenerateRequest) (openai.GenerateResponse, error) {
		return openai.GenerateResponse{}, errors.New("upstream 503")
	}}
	acts, err := h.generator(ai).GenerateForDocument(h.ctx, doc.ID, uuid.New(), GenerateOptions{})
	if err != nil || len(acts) != 2 {
		t.Fatalf("expected fallback activities, got %d %v", len(acts), err)
	}
	if ai.generateHit != len(categories) {
		t.Fatalf("expected one call per category, got %d", ai.generateHit)
	}
}

func TestGenerateRequiresCompletedDocument(t *testing.T) {
	h := newHarness(t)
	doc := testutil.SeedTextbook(t, h.ctx, h.db, types.TextbookStatusProcessing, nil)
	_, err := h.generator(openai.NewMockClient()).GenerateForDocument(h.ctx, doc.ID, uuid.New(), GenerateOptions{})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = h.generator(openai.NewMockClient()).GenerateForDocument(h.ctx, uuid.New(), uuid.New(), GenerateOptions{})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBuildPromptTruncatesExcerpt(t *testing.T) {
	text := strings.Repeat("가", promptExcerptRunes+10)
	p := buildPrompt(categories[0], text)
	if strings.Count(p, "가") != promptExcerptRunes {
		t.Fatalf("excerpt not truncated to %d runes", promptExcerptRunes)
	}
	if !strings.Contains(p, "JSON array") {
		t.Fatal("prompt must ask for a JSON array")
	}
}

func TestParseQuestionsRejectsProse(t *testing.T) {
	if _, err := parseQuestions("I cannot help with that.", types.QuestionFillInBlank); err == nil {
		t.Fatal("expected error without an array")
	}
	if _, err := parseQuestions("[not json]", types.QuestionFillInBlank); err == nil {
		t.Fatal("expected decode error")
	}
}
