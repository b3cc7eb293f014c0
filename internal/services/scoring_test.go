package services

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/textbook-backend/internal/data/repos/testutil"
	types "github.com/yungbote/textbook-backend/internal/domain"
	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
	"github.com/yungbote/textbook-backend/internal/pkg/pointers"
	"github.com/yungbote/textbook-backend/internal/platform/cache"
)

func fill(answer string) types.Question {
	return types.Question{Type: types.QuestionFillInBlank, Prompt: "q", Answer: answer, Points: 10}
}

func TestScoreAnswers(t *testing.T) {
	mc := types.Question{
		Type:          types.QuestionMultipleChoice,
		Prompt:        "pick",
		Options:       []string{"a", "b", "c", "d"},
		CorrectOption: pointers.Int(1),
	}
	essay := types.Question{Type: types.QuestionEssay, Prompt: "discuss"}
	vocab := types.Question{Type: types.QuestionVocabulary, Prompt: "term", Answer: "Osmosis"}

	cases := []struct {
		name      string
		questions []types.Question
		answers   types.Answers
		want      int
	}{
		{"trimmed exact match", []types.Question{fill("나무")}, types.Answers{"0": "  나무 "}, 100},
		{"no partial credit", []types.Question{fill("나무")}, types.Answers{"0": "나무들"}, 0},
		{"two of three", []types.Question{fill("a"), fill("b"), fill("c")}, types.Answers{"0": "a", "1": "B", "2": "x"}, 67},
		{"unanswered earns nothing", []types.Question{fill("a"), fill("b")}, types.Answers{"0": "a"}, 50},
		{"mc json number", []types.Question{mc}, types.Answers{"0": float64(1)}, 100},
		{"mc integer string rejected", []types.Question{mc}, types.Answers{"0": "1"}, 0},
		{"mc decoded json number", []types.Question{mc}, types.Answers{"0": json.Number("1")}, 100},
		{"mc wrong", []types.Question{mc}, types.Answers{"0": float64(2)}, 0},
		{"mc fractional", []types.Question{mc}, types.Answers{"0": 1.5}, 0},
		{"essay counts in total", []types.Question{essay, fill("a")}, types.Answers{"0": "long text", "1": "a"}, 50},
		{"vocabulary case fold", []types.Question{vocab}, types.Answers{"0": "osmosis"}, 100},
		{"non-string text answer", []types.Question{fill("3")}, types.Answers{"0": float64(3)}, 0},
		{"no questions", nil, types.Answers{"0": "a"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ScoreAnswers(tc.questions, tc.answers)
			if err != nil {
				t.Fatalf("ScoreAnswers: %v", err)
			}
			if got != tc.want {
				t.Fatalf("score=%d want %d", got, tc.want)
			}
		})
	}
}

func TestScoreAnswersMalformedQuestion(t *testing.T) {
	bad := []types.Question{{Type: types.QuestionMultipleChoice, Prompt: "no key", Options: []string{"a"}}}
	if _, err := ScoreAnswers(bad, types.Answers{}); err == nil {
		t.Fatal("expected error for multiple choice without a correct option")
	}
	if _, err := ScoreAnswers([]types.Question{{Type: "matching", Prompt: "?"}}, types.Answers{}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestSubmitOncePerStudent(t *testing.T) {
	h := newHarness(t)
	doc := testutil.SeedTextbook(t, h.ctx, h.db, types.TextbookStatusCompleted, nil)
	act := testutil.SeedActivity(t, h.ctx, h.db, doc.ID, []types.Question{fill("a"), fill("b")})
	eng := h.scoring()
	student := uuid.New()

	resp, err := eng.Submit(h.ctx, act.ID, student, types.Answers{"0": "a", "1": "b"})
	if err != nil || resp.Score != 100 {
		t.Fatalf("Submit: %+v %v", resp, err)
	}
	if _, err := h.store.Get(h.ctx, cache.ResponseKey(act.ID, student)); err != nil {
		t.Fatalf("response mirror missing: %v", err)
	}

	_, err = eng.Submit(h.ctx, act.ID, student, types.Answers{"0": "x"})
	if !apperr.Is(err, apperr.KindConflict) || !errors.Is(err, apperr.ErrDuplicateSubmission) {
		t.Fatalf("expected duplicate conflict, got %v", err)
	}

	got, err := eng.GetResponse(h.ctx, act.ID, student)
	if err != nil || got.Score != 100 {
		t.Fatalf("GetResponse: %+v %v", got, err)
	}
	h.store.Expire(cache.ResponseKey(act.ID, student))
	got, err = eng.GetResponse(h.ctx, act.ID, student)
	if err != nil || got.Score != 100 {
		t.Fatalf("GetResponse from db: %+v %v", got, err)
	}
	if _, err := eng.GetResponse(h.ctx, act.ID, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("missing response: %v", err)
	}
}

func TestSubmitUnknownActivity(t *testing.T) {
	h := newHarness(t)
	if _, err := h.scoring().Submit(h.ctx, uuid.New(), uuid.New(), nil); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
