package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClient(t *testing.T) {
	for _, p := range []string{ProviderOpenAI, ProviderAnthropic, ProviderGoogle} {
		if !ValidProvider(p) {
			t.Errorf("ValidProvider(%q) = false", p)
		}
		if _, err := NewClient(p, "key"); err != nil {
			t.Errorf("NewClient(%q): %v", p, err)
		}
	}
	if ValidProvider("mistral") {
		t.Error("ValidProvider(mistral) = true")
	}
	if _, err := NewClient("mistral", "key"); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestUserPrompt(t *testing.T) {
	got, err := userPrompt(map[string]int{"total_builds": 3})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, `"total_builds": 3`) {
		t.Errorf("prompt does not embed the data: %s", got)
	}
	if _, err := userPrompt(func() {}); err == nil {
		t.Error("expected marshal error")
	}
}

func TestAnthropicGenerate(t *testing.T) {
	var gotReq anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" || r.Header.Get("x-api-key") != "secret" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(`{"content":[{"type":"text","text":"Sting wins."},{"type":"text","text":" Legion loses."}]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("secret")
	c.baseURL = srv.URL

	out, err := c.GenerateBuildAnalysis(context.Background(), "claude-test", map[string]string{"a": "b"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "Sting wins. Legion loses." {
		t.Errorf("output = %q", out)
	}
	if gotReq.Model != "claude-test" || gotReq.System != systemPrompt || len(gotReq.Messages) != 1 {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestAnthropicErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		empty  bool
	}{
		{"http error", http.StatusUnauthorized, `{"error":"bad key"}`, false},
		{"no text", http.StatusOK, `{"content":[]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewAnthropicClient("k")
			c.baseURL = srv.URL
			_, err := c.GenerateBuildAnalysis(context.Background(), "m", nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrEmptyResponse) != tt.empty {
				t.Errorf("err = %v, empty response = %v", err, tt.empty)
			}
		})
	}
}

func TestOpenAIClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/models":
			w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4o"},{"id":"gpt-3.5-turbo-instruct"},{"id":"whisper-1"}]}`))
		case "/v1/chat/completions":
			w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Bring a Heavy Laser Cannon."}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newOpenAIClientWithBaseURL("k", srv.URL+"/v1")
	ctx := context.Background()

	if err := c.TestConnection(ctx); err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	models, err := c.ListModels(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(models) != 1 || models[0].ID != "gpt-4o" {
		t.Errorf("models = %+v", models)
	}
	out, err := c.GenerateBuildAnalysis(ctx, "gpt-4o", map[string]int{"n": 1})
	if err != nil {
		t.Fatal(err)
	}
	if out != "Bring a Heavy Laser Cannon." {
		t.Errorf("output = %q", out)
	}
}
