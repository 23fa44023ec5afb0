package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIProviderGenerate(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		fmt.Fprint(w, `{
			"choices":[{"message":{"content":"generated text"}}],
			"usage":{"total_tokens":321}
		}`)
	}))
	defer server.Close()

	p := NewOpenAIProvider("mistral/mistral-small-latest", server.URL, "key", "mistral-small-latest")

	text, tokens, err := p.Generate(context.Background(), Request{
		SystemPrompt: "be terse",
		UserPrompt:   "hello",
		MaxTokens:    100,
		Temperature:  0.3,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "generated text" || tokens != 321 {
		t.Fatalf("unexpected output: %q %d", text, tokens)
	}

	if gotReq.Model != "mistral-small-latest" {
		t.Errorf("unexpected model: %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Content != "hello" {
		t.Errorf("unexpected messages: %+v", gotReq.Messages)
	}
	if gotReq.MaxTokens != 100 || gotReq.Temperature != 0.3 {
		t.Errorf("unexpected limits: %d %v", gotReq.MaxTokens, gotReq.Temperature)
	}
}

func TestOpenAIProviderHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "upstream down")
	}))
	defer server.Close()

	p := NewOpenAIProvider("groq/llama-3.1-8b-instant", server.URL, "key", "llama-3.1-8b-instant")

	_, _, err := p.Generate(context.Background(), Request{UserPrompt: "hello"})
	if err == nil {
		t.Fatal("expected an error on 503")
	}
	if !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("expected body snippet in error, got %v", err)
	}
}

func TestOpenAIProviderAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error":{"message":"model overloaded","type":"overloaded_error"}}`)
	}))
	defer server.Close()

	p := NewOpenAIProvider("mistral/mistral-small-latest", server.URL, "key", "mistral-small-latest")

	_, _, err := p.Generate(context.Background(), Request{UserPrompt: "hello"})
	if err == nil || !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("expected the provider error surfaced, got %v", err)
	}
}

func TestOpenAIProviderConfigured(t *testing.T) {
	if NewOpenAIProvider("n", "url", "", "m").Configured() {
		t.Error("empty key must not count as configured")
	}
	if NewOpenAIProvider("n", "url", "  ", "m").Configured() {
		t.Error("blank key must not count as configured")
	}
	if !NewOpenAIProvider("n", "url", "key", "m").Configured() {
		t.Error("non-empty key must count as configured")
	}
}
