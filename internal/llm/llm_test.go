package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"object in prose", `Sure! {"amount": 50, "category": "Gym"} done`, `{"amount": 50, "category": "Gym"}`, true},
		{"fenced array", "```json\n[{\"a\":1},{\"a\":2}]\n```", `[{"a":1},{"a":2}]`, true},
		{"nested braces", `x {"a": {"b": 1}} y`, `{"a": {"b": 1}}`, true},
		{"no json", "I cannot help with that", "", false},
		{"unclosed", `{"amount": 5`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ExtractJSON() = %q, %v, want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Amount float64 `json:"amount"`
	}
	if err := DecodeJSON("result: {\"amount\": 12.5}", &v); err != nil || v.Amount != 12.5 {
		t.Fatalf("DecodeJSON() = %v, %+v", err, v)
	}
	if err := DecodeJSON("nothing", &v); err == nil {
		t.Fatal("expected error without JSON")
	}
}

func TestDisabled(t *testing.T) {
	if _, err := (Disabled{}).Generate(context.Background(), "hi"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestGemini_Generate(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello "},{"text":"there"}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), "test-key", "", time.Second, nil,
		WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewGemini: %v", err)
	}
	if g.Model() != DefaultModel {
		t.Errorf("model = %s, want default", g.Model())
	}

	out, err := g.Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "Hello there" {
		t.Errorf("Generate() = %q", out)
	}
	if !strings.HasSuffix(gotPath, "models/"+DefaultModel+":generateContent") {
		t.Errorf("unexpected path %s", gotPath)
	}
}

func TestGemini_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":503,"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g, _ := NewGemini(context.Background(), "k", "gemini-test", time.Second, nil,
		WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()))
	if _, err := g.Generate(context.Background(), "hi"); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestNewGemini_RequiresKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), " ", "", 0, nil); err == nil {
		t.Fatal("expected error without API key")
	}
}
