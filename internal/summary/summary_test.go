package summary

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/model"
)

func testInput() Input {
	return Input{
		Report:       &model.SiteReport{URL: "https://example.com/", TotalPagesCrawled: 3},
		Scores:       model.Scores{Overall: 72, Categories: model.CategoryScores{Metadata: 80, Content: 70, Technical: 65}},
		HomepageHTML: "<html><title>Example</title></html>",
	}
}

func mockClient() (*http.Client, *httpmock.MockTransport) {
	mock := httpmock.NewMockTransport()
	return &http.Client{Transport: mock}, mock
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      config.SummaryConfig
		wantNil  bool
		wantName string
		wantErr  error
	}{
		{name: "none", cfg: config.SummaryConfig{Provider: config.ProviderNone}, wantNil: true},
		{name: "empty", cfg: config.SummaryConfig{}, wantNil: true},
		{name: "ollama defaults", cfg: config.SummaryConfig{Provider: config.ProviderOllama}, wantName: "Ollama (" + config.DefaultOllamaModel + ")"},
		{name: "openai", cfg: config.SummaryConfig{Provider: config.ProviderOpenAI, APIKey: "k", Model: "m"}, wantName: "OpenAI (m)"},
		{name: "openai without key", cfg: config.SummaryConfig{Provider: config.ProviderOpenAI}, wantErr: ErrMissingAPIKey},
		{name: "google defaults", cfg: config.SummaryConfig{Provider: config.ProviderGoogle, APIKey: "k"}, wantName: "Google (" + config.DefaultGoogleModel + ")"},
		{name: "google without key", cfg: config.SummaryConfig{Provider: config.ProviderGoogle}, wantErr: ErrMissingAPIKey},
		{name: "unknown", cfg: config.SummaryConfig{Provider: "gemini"}, wantErr: config.ErrUnknownProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := New(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if tt.wantNil {
				if s != nil {
					t.Errorf("New() = %v, want nil", s)
				}
				return
			}
			if s.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", s.Name(), tt.wantName)
			}
		})
	}
}

func TestOllamaSummarize(t *testing.T) {
	t.Parallel()

	t.Run("string response", func(t *testing.T) {
		t.Parallel()

		client, mock := mockClient()
		var got ollamaRequest
		mock.RegisterResponder(http.MethodPost, "http://ollama.test/api/generate",
			func(req *http.Request) (*http.Response, error) {
				if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
					return nil, err
				}
				return httpmock.NewJsonResponse(http.StatusOK, map[string]any{"response": validResponse})
			})

		o := NewOllama(config.SummaryConfig{BaseURL: "http://ollama.test/", Model: "llama3:8b"}, WithHTTPClient(client))
		res, err := o.Summarize(context.Background(), testInput())
		if err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}
		if res.Kind() != KindParsed {
			t.Errorf("Kind() = %v, want parsed", res.Kind())
		}
		if got.Model != "llama3:8b" || got.Stream || got.Format != "json" {
			t.Errorf("request = %+v", got)
		}
		if !strings.Contains(got.Prompt, `"total_pages_crawled": 3`) {
			t.Error("prompt does not contain the site report")
		}
	})

	t.Run("object response", func(t *testing.T) {
		t.Parallel()

		client, mock := mockClient()
		mock.RegisterResponder(http.MethodPost, "http://ollama.test/api/generate",
			httpmock.NewStringResponder(http.StatusOK, `{"response": `+validResponse+`}`))

		o := NewOllama(config.SummaryConfig{BaseURL: "http://ollama.test"}, WithHTTPClient(client))
		res, err := o.Summarize(context.Background(), testInput())
		if err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}
		if res.Kind() != KindParsed {
			t.Errorf("Kind() = %v, want parsed", res.Kind())
		}
	})

	t.Run("empty response", func(t *testing.T) {
		t.Parallel()

		client, mock := mockClient()
		mock.RegisterResponder(http.MethodPost, "http://ollama.test/api/generate",
			httpmock.NewStringResponder(http.StatusOK, `{"response": ""}`))

		o := NewOllama(config.SummaryConfig{BaseURL: "http://ollama.test"}, WithHTTPClient(client))
		_, err := o.Summarize(context.Background(), testInput())
		if !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("error = %v, want ErrEmptyResponse", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		t.Parallel()

		client, mock := mockClient()
		mock.RegisterResponder(http.MethodPost, "http://ollama.test/api/generate",
			httpmock.NewStringResponder(http.StatusInternalServerError, "model not found"))

		o := NewOllama(config.SummaryConfig{BaseURL: "http://ollama.test"}, WithHTTPClient(client))
		_, err := o.Summarize(context.Background(), testInput())
		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("error = %v, want *StatusError", err)
		}
		if se.StatusCode != http.StatusInternalServerError || se.Body != "model not found" {
			t.Errorf("StatusError = %+v", se)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		t.Parallel()

		client, mock := mockClient()
		mock.RegisterResponder(http.MethodPost, "http://ollama.test/api/generate",
			httpmock.NewErrorResponder(errors.New("connection refused")))

		o := NewOllama(config.SummaryConfig{BaseURL: "http://ollama.test"}, WithHTTPClient(client))
		_, err := o.Summarize(context.Background(), testInput())
		if err == nil || !strings.Contains(err.Error(), "http://ollama.test") {
			t.Errorf("error = %v, want mention of base URL", err)
		}
	})
}

func TestOpenAISummarize(t *testing.T) {
	t.Parallel()

	t.Run("json mode with bearer key", func(t *testing.T) {
		t.Parallel()

		client, mock := mockClient()
		var (
			auth string
			got  chatRequest
		)
		mock.RegisterResponder(http.MethodPost, "https://openai.test/v1/chat/completions",
			func(req *http.Request) (*http.Response, error) {
				auth = req.Header.Get("Authorization")
				if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
					return nil, err
				}
				return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
					"choices": []any{
						map[string]any{"message": map[string]any{"role": "assistant", "content": validResponse}},
					},
				})
			})

		o := NewOpenAI(config.SummaryConfig{BaseURL: "https://openai.test", APIKey: "sk-test"}, WithHTTPClient(client))
		res, err := o.Summarize(context.Background(), testInput())
		if err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}
		if res.Kind() != KindParsed {
			t.Errorf("Kind() = %v, want parsed", res.Kind())
		}
		if auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if got.Model != config.DefaultOpenAIModel || got.ResponseFormat.Type != "json_object" {
			t.Errorf("request = %+v", got)
		}
		if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
			t.Errorf("messages = %+v", got.Messages)
		}
	})

	t.Run("no choices", func(t *testing.T) {
		t.Parallel()

		client, mock := mockClient()
		mock.RegisterResponder(http.MethodPost, "https://openai.test/v1/chat/completions",
			httpmock.NewStringResponder(http.StatusOK, `{"choices": []}`))

		o := NewOpenAI(config.SummaryConfig{BaseURL: "https://openai.test", APIKey: "k"}, WithHTTPClient(client))
		_, err := o.Summarize(context.Background(), testInput())
		if !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("error = %v, want ErrEmptyResponse", err)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()

		o := NewOpenAI(config.SummaryConfig{})
		_, err := o.Summarize(context.Background(), testInput())
		if !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("error = %v, want ErrMissingAPIKey", err)
		}
	})
}

func TestGoogleSummarize(t *testing.T) {
	t.Parallel()

	endpoint := "https://gemini.test/v1beta/models/" + config.DefaultGoogleModel + ":generateContent"

	t.Run("json mime type with header key", func(t *testing.T) {
		t.Parallel()

		client, mock := mockClient()
		var (
			key   string
			query string
			got   geminiRequest
		)
		mock.RegisterResponder(http.MethodPost, endpoint,
			func(req *http.Request) (*http.Response, error) {
				key = req.Header.Get("x-goog-api-key")
				query = req.URL.RawQuery
				if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
					return nil, err
				}
				return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
					"candidates": []any{
						map[string]any{"content": map[string]any{
							"parts": []any{map[string]any{"text": "```json\n" + validResponse + "\n```"}},
						}},
					},
				})
			})

		g := NewGoogle(config.SummaryConfig{BaseURL: "https://gemini.test/", APIKey: "g-test"}, WithHTTPClient(client))
		res, err := g.Summarize(context.Background(), testInput())
		if err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}
		if res.Kind() != KindParsed {
			t.Errorf("Kind() = %v, want parsed", res.Kind())
		}
		if key != "g-test" {
			t.Errorf("x-goog-api-key = %q", key)
		}
		if strings.Contains(query, "g-test") {
			t.Errorf("API key leaked into the query string: %q", query)
		}
		if got.GenerationConfig.ResponseMIMEType != "application/json" {
			t.Errorf("generationConfig = %+v", got.GenerationConfig)
		}
		if len(got.Contents) != 1 || len(got.Contents[0].Parts) != 1 || got.Contents[0].Parts[0].Text == "" {
			t.Errorf("contents = %+v", got.Contents)
		}
	})

	t.Run("no candidates", func(t *testing.T) {
		t.Parallel()

		client, mock := mockClient()
		mock.RegisterResponder(http.MethodPost, endpoint,
			httpmock.NewStringResponder(http.StatusOK, `{"candidates": []}`))

		g := NewGoogle(config.SummaryConfig{BaseURL: "https://gemini.test", APIKey: "k"}, WithHTTPClient(client))
		_, err := g.Summarize(context.Background(), testInput())
		if !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("error = %v, want ErrEmptyResponse", err)
		}
	})

	t.Run("error status", func(t *testing.T) {
		t.Parallel()

		client, mock := mockClient()
		mock.RegisterResponder(http.MethodPost, endpoint,
			httpmock.NewStringResponder(http.StatusForbidden, `{"error": {"message": "API key not valid"}}`))

		g := NewGoogle(config.SummaryConfig{BaseURL: "https://gemini.test", APIKey: "bad"}, WithHTTPClient(client))
		_, err := g.Summarize(context.Background(), testInput())
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusForbidden {
			t.Errorf("error = %v, want StatusError 403", err)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()

		g := NewGoogle(config.SummaryConfig{})
		_, err := g.Summarize(context.Background(), testInput())
		if !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("error = %v, want ErrMissingAPIKey", err)
		}
	})
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	in := testInput()
	in.HomepageHTML = strings.Repeat("a", MaxHomepageHTML+100)
	prompt, err := BuildPrompt(in)
	if err != nil {
		t.Fatalf("BuildPrompt() error = %v", err)
	}
	if !strings.Contains(prompt, strings.Repeat("a", MaxHomepageHTML)+"...") {
		t.Error("homepage HTML was not truncated with an ellipsis")
	}
	if strings.Contains(prompt, strings.Repeat("a", MaxHomepageHTML+1)) {
		t.Error("prompt contains more HTML than the limit")
	}
	for _, want := range []string{`"overall": 72`, "Unused CSS %:", "competitorKeywords"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestTruncateHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{name: "short", in: "abc", limit: 5, want: "abc"},
		{name: "exact", in: "abcde", limit: 5, want: "abcde"},
		{name: "long", in: "abcdef", limit: 5, want: "abcde..."},
		{name: "rune boundary", in: "ab日本", limit: 4, want: "ab..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := TruncateHTML(tt.in, tt.limit); got != tt.want {
				t.Errorf("TruncateHTML(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
			}
		})
	}
}
