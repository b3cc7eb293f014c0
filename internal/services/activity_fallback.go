package services

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/pkg/pointers"
)

const (
	blankToken          = "____"
	minFallbackWords    = 6
	maxOptionRunes      = 120
	comprehensionPrompt = "Which statement is supported by this page?"
)

var fillerDistractors = []string{
	"The page does not discuss this topic.",
	"The page argues the opposite of this.",
	"None of the statements above.",
}

func fallbackQuestions(categoryName string, text string) []types.Question {
	switch categoryName {
	case "fill_in_blank":
		return fallbackFillInBlank(text)
	case "comprehension":
		return fallbackComprehension(text)
	default:
		return nil
	}
}

func fallbackFillInBlank(text string) []types.Question {
	var out []types.Question
	for _, sentence := range splitSentences(text) {
		words := strings.Fields(sentence)
		if len(words) < minFallbackWords {
			continue
		}
		mid := len(words) / 2
		answer := strings.TrimFunc(words[mid], func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if answer == "" {
			continue
		}
		blanked := append([]string(nil), words...)
		blanked[mid] = strings.Replace(words[mid], answer, blankToken, 1)
		out = append(out, types.Question{
			Type:   types.QuestionFillInBlank,
			Prompt: strings.Join(blanked, " "),
			Answer: answer,
			Hint:   fmt.Sprintf("%d characters", utf8.RuneCountInString(answer)),
			Points: types.DefaultQuestionPoints,
		})
		if len(out) == maxQuestionsPerSet {
			break
		}
	}
	return out
}

func fallbackComprehension(text string) []types.Question {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}
	correct := sentences[0]
	if utf8.RuneCountInString(correct) > maxOptionRunes {
		correct = string([]rune(correct)[:maxOptionRunes]) + "..."
	}
	options := append([]string{correct}, fillerDistractors...)
	return []types.Question{{
		Type:          types.QuestionMultipleChoice,
		Prompt:        comprehensionPrompt,
		Options:       options,
		CorrectOption: pointers.Int(0),
		Points:        types.DefaultQuestionPoints,
	}}
}

func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '.', '!', '?', '。':
			return true
		}
		return false
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
