package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/textbook-backend/internal/data/repos/learning"
	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
	"github.com/yungbote/textbook-backend/internal/platform/cache"
)

type ScoringEngine interface {
	Submit(ctx context.Context, activityID, studentID uuid.UUID, answers types.Answers) (*types.ActivityResponse, error)
	GetResponse(ctx context.Context, activityID, studentID uuid.UUID) (*types.ActivityResponse, error)
}

type scoringEngine struct {
	log        *logger.Logger
	activities learning.ActivityRepo
	responses  learning.ActivityResponseRepo
	store      cache.Store
}

func NewScoringEngine(baseLog *logger.Logger, activities learning.ActivityRepo, responses learning.ActivityResponseRepo, store cache.Store) ScoringEngine {
	return &scoringEngine{
		log:        baseLog.With("service", "ScoringEngine"),
		activities: activities,
		responses:  responses,
		store:      store,
	}
}

func (s *scoringEngine) Submit(ctx context.Context, activityID, studentID uuid.UUID, answers types.Answers) (*types.ActivityResponse, error) {
	const op = "ScoringEngine.Submit"
	if activityID == uuid.Nil || studentID == uuid.Nil {
		return nil, apperr.Validation(op, "activity and student ids required")
	}
	if answers == nil {
		answers = types.Answers{}
	}
	dbc := dbctx.Context{Ctx: ctx}
	act, err := s.activities.GetByID(dbc, activityID)
	if err != nil {
		return nil, err
	}
	if act == nil {
		return nil, apperr.NotFound(op, "activity")
	}
	questions, err := act.DecodeQuestions()
	if err != nil {
		return nil, fmt.Errorf("%s: decode questions: %w", op, err)
	}
	score, err := ScoreAnswers(questions, answers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, apperr.Validation(op, "answers not encodable: %v", err)
	}
	row := &types.ActivityResponse{
		ID:          uuid.New(),
		ActivityID:  activityID,
		StudentID:   studentID,
		Answers:     raw,
		Score:       score,
		SubmittedAt: time.Now().UTC(),
	}
	created, err := s.responses.CreateUnique(dbc, row)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, apperr.Conflict(op, apperr.ErrDuplicateSubmission)
	}

	if b, err := json.Marshal(row); err == nil {
		if err := s.store.Set(ctx, cache.ResponseKey(activityID, studentID), b, cache.ContentTTL); err != nil {
			s.log.Warn("response mirror write failed", "activity_id", activityID, "error", apperr.Cache(op, err))
		}
	}
	s.log.Info("response scored", "activity_id", activityID, "student_id", studentID, "score", score)
	return row, nil
}

func (s *scoringEngine) GetResponse(ctx context.Context, activityID, studentID uuid.UUID) (*types.ActivityResponse, error) {
	const op = "ScoringEngine.GetResponse"
	if raw, err := s.store.Get(ctx, cache.ResponseKey(activityID, studentID)); err == nil {
		var row types.ActivityResponse
		if json.Unmarshal(raw, &row) == nil {
			return &row, nil
		}
	}
	row, err := s.responses.Get(dbctx.Context{Ctx: ctx}, activityID, studentID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperr.NotFound(op, "response")
	}
	return row, nil
}

// ScoreAnswers grades answers against questions by position and returns a
// 0-100 score. Unanswered questions earn nothing; essays earn nothing but
// still count toward the total.
func ScoreAnswers(questions []types.Question, answers types.Answers) (int, error) {
	total, earned := 0, 0
	for i, q := range questions {
		body, err := q.Body()
		if err != nil {
			return 0, fmt.Errorf("question %d: %w", i, err)
		}
		points := q.PointsOrDefault()
		total += points
		submitted, ok := answers[strconv.Itoa(i)]
		if !ok {
			continue
		}
		if answerCorrect(body, submitted) {
			earned += points
		}
	}
	if total == 0 {
		return 0, nil
	}
	return int(math.Round(100 * float64(earned) / float64(total))), nil
}

func answerCorrect(body types.QuestionBody, submitted any) bool {
	switch b := body.(type) {
	case types.FillInBlank:
		return textMatches(b.Answer, submitted)
	case types.ShortAnswer:
		return textMatches(b.Answer, submitted)
	case types.Vocabulary:
		return textMatches(b.Answer, submitted)
	case types.MultipleChoice:
		idx, ok := optionIndex(submitted)
		return ok && idx == b.Correct
	case types.Essay:
		return false
	default:
		panic(fmt.Sprintf("unhandled question body %T", body))
	}
}

func textMatches(expected string, submitted any) bool {
	s, ok := submitted.(string)
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(expected))
}

func optionIndex(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}
