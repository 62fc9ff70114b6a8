package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

func TestParseProvider(t *testing.T) {
	cases := map[string]Provider{
		"anthropic": ProviderAnthropic,
		"OpenAI":    ProviderOpenAI,
		" gemini ":  ProviderGemini,
	}
	for in, want := range cases {
		got, err := ParseProvider(in)
		if err != nil {
			t.Errorf("ParseProvider(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseProvider(%q) = %q", in, got)
		}
	}
	if _, err := ParseProvider("bedrock"); err == nil {
		t.Error("unknown provider must error")
	}
}

func TestAnthropicComplete(t *testing.T) {
	var gotReq anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing version header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": `{"action":"clickElement","selector":"#a"}`}},
			"usage":   map[string]int{"input_tokens": 321, "output_tokens": 45},
		})
	}))
	defer srv.Close()

	c := NewAnthropicClient(Config{APIKey: "test-key", Model: "m", Temperature: 0.1})
	c.baseURL = srv.URL

	out, err := c.Complete(context.Background(), "system text", "user text")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out.Text != `{"action":"clickElement","selector":"#a"}` {
		t.Errorf("text = %q", out.Text)
	}
	if out.InputTokens != 321 || out.OutputTokens != 45 {
		t.Errorf("usage = %d/%d", out.InputTokens, out.OutputTokens)
	}
	if gotReq.System != "system text" || len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "user text" {
		t.Errorf("request = %+v", gotReq)
	}
	if gotReq.Temperature != 0.1 {
		t.Errorf("temperature = %v", gotReq.Temperature)
	}
}

func TestAnthropicAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"type": "rate_limit_error", "message": "slow down"},
		})
	}))
	defer srv.Close()

	c := NewAnthropicClient(Config{APIKey: "test-key"})
	c.baseURL = srv.URL

	if _, err := c.Complete(context.Background(), "", "hi"); err == nil {
		t.Error("non-200 must surface as error")
	}
}

func TestNewOpenAIClient(t *testing.T) {
	c := NewOpenAIClient(Config{APIKey: "sk-test", Timeout: 5 * time.Second, Temperature: 0.1})
	if c.client == nil {
		t.Fatal("client not built")
	}
	if c.model != openai.GPT4o {
		t.Errorf("default model = %q", c.model)
	}
	c = NewOpenAIClient(Config{APIKey: "sk-test", Model: "gpt-4.1-mini"})
	if c.model != "gpt-4.1-mini" {
		t.Errorf("model = %q", c.model)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.MaxTokens != defaultMaxTokens {
		t.Errorf("max tokens = %d", cfg.MaxTokens)
	}
	if cfg.Timeout != defaultTimeout {
		t.Errorf("timeout = %v", cfg.Timeout)
	}
}
