package summary

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/nao1215/seoaudit/internal/config"
)

// OpenAI calls the chat completions endpoint in JSON mode.
type OpenAI struct {
	baseURL string
	model   string
	apiKey  string
	opts    options
}

// NewOpenAI returns an OpenAI client. Empty BaseURL and Model fall back to
// config.DefaultOpenAIBaseURL and config.DefaultOpenAIModel.
func NewOpenAI(cfg config.SummaryConfig, opts ...Option) *OpenAI {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultOpenAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultOpenAIModel
	}
	return &OpenAI{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  cfg.APIKey,
		opts:    newOptions(cfg.Timeout, opts),
	}
}

// Name implements Summarizer.
func (o *OpenAI) Name() string { return "OpenAI (" + o.model + ")" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize implements Summarizer.
func (o *OpenAI) Summarize(ctx context.Context, in Input) (Result, error) {
	if o.apiKey == "" {
		return Result{}, ErrMissingAPIKey
	}
	prompt, err := BuildPrompt(in)
	if err != nil {
		return Result{}, err
	}

	o.opts.logger.Debug("requesting summary", "provider", "openai", "model", o.model, "prompt_bytes", len(prompt))

	header := http.Header{}
	header.Set("Authorization", "Bearer "+o.apiKey)
	req := chatRequest{
		Model:          o.model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	var resp chatResponse
	if err := postJSON(ctx, o.opts.client, o.baseURL+"/v1/chat/completions", header, req, &resp); err != nil {
		return Result{}, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Result{}, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	return ParseResponse(resp.Choices[0].Message.Content)
}
