package domain

import "fmt"

type QuestionType string

const (
	QuestionFillInBlank    QuestionType = "fill_in_blank"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionEssay          QuestionType = "essay"
	QuestionVocabulary     QuestionType = "vocabulary"
)

const DefaultQuestionPoints = 10

// Question is the stored shape, shared with the content-generation schema.
// Body resolves it into one of the typed variants below.
type Question struct {
	Type          QuestionType `json:"type"`
	Prompt        string       `json:"question"`
	Answer        string       `json:"answer,omitempty"`
	Options       []string     `json:"options,omitempty"`
	CorrectOption *int         `json:"correctOption,omitempty"`
	Hint          string       `json:"hint,omitempty"`
	Points        int          `json:"points,omitempty"`
}

// PointsOrDefault treats a non-positive value as unset.
func (q Question) PointsOrDefault() int {
	if q.Points <= 0 {
		return DefaultQuestionPoints
	}
	return q.Points
}

type QuestionBody interface {
	Kind() QuestionType
}

type FillInBlank struct{ Answer string }
type MultipleChoice struct {
	Options []string
	Correct int
}
type ShortAnswer struct{ Answer string }
type Vocabulary struct{ Answer string }
type Essay struct{}

func (FillInBlank) Kind() QuestionType    { return QuestionFillInBlank }
func (MultipleChoice) Kind() QuestionType { return QuestionMultipleChoice }
func (ShortAnswer) Kind() QuestionType    { return QuestionShortAnswer }
func (Vocabulary) Kind() QuestionType     { return QuestionVocabulary }
func (Essay) Kind() QuestionType          { return QuestionEssay }

// Body returns the typed variant for q. An unknown tag or a multiple-choice
// question without a usable correct index is reported as malformed.
func (q Question) Body() (QuestionBody, error) {
	switch q.Type {
	case QuestionFillInBlank:
		return FillInBlank{Answer: q.Answer}, nil
	case QuestionShortAnswer:
		return ShortAnswer{Answer: q.Answer}, nil
	case QuestionVocabulary:
		return Vocabulary{Answer: q.Answer}, nil
	case QuestionEssay:
		return Essay{}, nil
	case QuestionMultipleChoice:
		idx := -1
		if q.CorrectOption != nil {
			idx = *q.CorrectOption
		}
		if idx < 0 || idx >= len(q.Options) {
			return nil, fmt.Errorf("multiple_choice question %q has no valid correct option", q.Prompt)
		}
		return MultipleChoice{Options: q.Options, Correct: idx}, nil
	default:
		return nil, fmt.Errorf("unknown question type %q", q.Type)
	}
}
