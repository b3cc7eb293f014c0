package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/textbook-backend/internal/pkg/httpx"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
)

// MockModel is the model name reported by non-authoritative responses.
// Callers must not try to parse content that carries it.
const MockModel = "mock"

type GenerateRequest struct {
	Prompt  string
	Grade   string
	Subject string
	Length  string
}

type GenerateResponse struct {
	Content string
	Model   string
}

type InsightRequest struct {
	PageText string
	Grade    string
	Subject  string
}

// Client is the content-generation collaborator.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	Insights(ctx context.Context, req InsightRequest) (string, error)
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
	temp       float64
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &client{
		log:        log.With("client", "OpenAIClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		temp:       cfg.Temperature,
	}, nil
}

type responsesRequest struct {
	Model string `json:"model"`
	Input []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"input"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Model  string `json:"model"`
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					out.WriteString(c.Text)
				}
			}
		}
	}
	return out.String()
}

func (c *client) newRequest(system, user string) *responsesRequest {
	req := &responsesRequest{Model: c.model}
	req.Input = append(req.Input,
		struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{Role: "system", Content: system},
		struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{Role: "user", Content: user},
	)
	if c.temp > 0 {
		t := c.temp
		req.Temperature = &t
	}
	return req
}

func (c *client) doOnce(ctx context.Context, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/responses", &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpx.StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) respond(ctx context.Context, op, system, user string) (responsesResponse, error) {
	ctx, span := otel.Tracer("textbook-backend/openai").Start(ctx, "openai."+op)
	defer span.End()
	span.SetAttributes(attribute.String("openai.model", c.model), attribute.Int("prompt.chars", len(user)))

	req := c.newRequest(system, user)
	var out responsesResponse
	err := httpx.Retry(ctx, httpx.RetryPolicy{
		MaxRetries: c.maxRetries,
		OnRetry: func(attempt int, sleep time.Duration, err error) {
			c.log.Warn("OpenAI request retrying",
				"op", op,
				"attempt", attempt,
				"max_retries", c.maxRetries,
				"sleep", sleep.String(),
				"error", err.Error(),
			)
		},
	}, func(ctx context.Context) (*http.Response, error) {
		resp, raw, err := c.doOnce(ctx, req)
		if err != nil {
			return resp, err
		}
		if uErr := json.Unmarshal(raw, &out); uErr != nil {
			return resp, fmt.Errorf("openai decode error: %w", uErr)
		}
		return resp, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return responsesResponse{}, err
	}
	if out.Refusal != "" {
		return responsesResponse{}, fmt.Errorf("model refused: %s", out.Refusal)
	}
	return out, nil
}

func (c *client) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	system := "You write classroom learning activities."
	if req.Grade != "" {
		system += " Audience grade: " + req.Grade + "."
	}
	if req.Subject != "" {
		system += " Subject: " + req.Subject + "."
	}
	if req.Length != "" {
		system += " Length: " + req.Length + "."
	}
	resp, err := c.respond(ctx, "generate", system, req.Prompt)
	if err != nil {
		return GenerateResponse{}, err
	}
	text := extractOutputText(resp)
	if strings.TrimSpace(text) == "" {
		return GenerateResponse{}, fmt.Errorf("no output_text found in response")
	}
	model := resp.Model
	if model == "" {
		model = c.model
	}
	return GenerateResponse{Content: text, Model: model}, nil
}

func (c *client) Insights(ctx context.Context, req InsightRequest) (string, error) {
	system := "You summarize a textbook page for a teacher: key concepts, likely misconceptions, and one discussion prompt."
	if req.Grade != "" {
		system += " Grade: " + req.Grade + "."
	}
	if req.Subject != "" {
		system += " Subject: " + req.Subject + "."
	}
	resp, err := c.respond(ctx, "insights", system, req.PageText)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(extractOutputText(resp))
	if text == "" {
		return "", fmt.Errorf("no output_text found in response")
	}
	return text, nil
}
