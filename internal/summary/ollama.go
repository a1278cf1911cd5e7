package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nao1215/seoaudit/internal/config"
)

// Ollama calls the /api/generate endpoint of an Ollama server.
type Ollama struct {
	baseURL string
	model   string
	opts    options
}

// NewOllama returns an Ollama client. Empty BaseURL and Model fall back to
// config.DefaultOllamaBaseURL and config.DefaultOllamaModel.
func NewOllama(cfg config.SummaryConfig, opts ...Option) *Ollama {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultOllamaBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultOllamaModel
	}
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		opts:    newOptions(cfg.Timeout, opts),
	}
}

// Name implements Summarizer.
func (o *Ollama) Name() string { return "Ollama (" + o.model + ")" }

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

type ollamaResponse struct {
	Response json.RawMessage `json:"response"`
}

// Summarize implements Summarizer.
func (o *Ollama) Summarize(ctx context.Context, in Input) (Result, error) {
	prompt, err := BuildPrompt(in)
	if err != nil {
		return Result{}, err
	}

	o.opts.logger.Debug("requesting summary", "provider", "ollama", "model", o.model, "prompt_bytes", len(prompt))

	var resp ollamaResponse
	req := ollamaRequest{Model: o.model, Prompt: prompt, Stream: false, Format: "json"}
	if err := postJSON(ctx, o.opts.client, o.baseURL+"/api/generate", nil, req, &resp); err != nil {
		return Result{}, fmt.Errorf("ollama at %s: %w", o.baseURL, err)
	}

	text, err := ollamaText(resp.Response)
	if err != nil {
		return Result{}, fmt.Errorf("ollama: %w", err)
	}
	return ParseResponse(text)
}

// ollamaText accepts the response field either as a string or as an
// already decoded JSON object.
func ollamaText(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", ErrEmptyResponse
	}
	if strings.HasPrefix(trimmed, "{") {
		return trimmed, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("unexpected response field: %w", err)
	}
	if strings.TrimSpace(s) == "" {
		return "", ErrEmptyResponse
	}
	return s, nil
}
