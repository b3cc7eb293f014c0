package openai

import (
	"context"
	"strings"
	"unicode/utf8"
)

type mockClient struct{}

// NewMockClient returns a collaborator that never calls out. Every response
// reports MockModel so callers fall back to their heuristics.
func NewMockClient() Client { return mockClient{} }

func (mockClient) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	return GenerateResponse{Content: "[mock content]", Model: MockModel}, nil
}

func (mockClient) Insights(ctx context.Context, req InsightRequest) (string, error) {
	text := strings.Join(strings.Fields(req.PageText), " ")
	if utf8.RuneCountInString(text) > 200 {
		text = string([]rune(text)[:200]) + "..."
	}
	return "Key passage: " + text, nil
}
