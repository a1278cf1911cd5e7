package summary

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/nao1215/seoaudit/internal/config"
)

// Google calls the Gemini generateContent endpoint with JSON output.
type Google struct {
	baseURL string
	model   string
	apiKey  string
	opts    options
}

// NewGoogle returns a Gemini client. Empty BaseURL and Model fall back to
// config.DefaultGoogleBaseURL and config.DefaultGoogleModel.
func NewGoogle(cfg config.SummaryConfig, opts ...Option) *Google {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultGoogleBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultGoogleModel
	}
	return &Google{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  cfg.APIKey,
		opts:    newOptions(cfg.Timeout, opts),
	}
}

// Name implements Summarizer.
func (g *Google) Name() string { return "Google (" + g.model + ")" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMIMEType string `json:"response_mime_type"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// text returns the first part of the first candidate.
func (r geminiResponse) text() string {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Parts[0].Text
}

// Summarize implements Summarizer.
func (g *Google) Summarize(ctx context.Context, in Input) (Result, error) {
	if g.apiKey == "" {
		return Result{}, ErrMissingAPIKey
	}
	prompt, err := BuildPrompt(in)
	if err != nil {
		return Result{}, err
	}

	g.opts.logger.Debug("requesting summary", "provider", "google", "model", g.model, "prompt_bytes", len(prompt))

	// The key travels in a header so it never shows up in logged URLs.
	header := http.Header{}
	header.Set("x-goog-api-key", g.apiKey)
	req := geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{ResponseMIMEType: "application/json"},
	}
	endpoint := g.baseURL + "/v1beta/models/" + url.PathEscape(g.model) + ":generateContent"

	var resp geminiResponse
	if err := postJSON(ctx, g.opts.client, endpoint, header, req, &resp); err != nil {
		return Result{}, fmt.Errorf("google: %w", err)
	}
	text := resp.text()
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("google: %w", ErrEmptyResponse)
	}
	return ParseResponse(text)
}
