package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/mixzter/duel/internal/mixzter"
)

func candidate(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
	return string(b)
}

func setupGemini(t *testing.T, status int, body string) (*Gemini, *[]byte) {
	t.Helper()
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/test-model:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "secret" {
			t.Errorf("missing api key header")
		}
		captured, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewGemini("secret", "test-model", WithEndpoint(srv.URL)), &captured
}

func TestGeminiFact(t *testing.T) {
	g, captured := setupGemini(t, http.StatusOK,
		candidate(`{"artist":"ABBA","title":"Waterloo","year":1974,"spotifyUrl":"https://open.spotify.com/track/x"}`))

	f, err := g.Fact(context.Background(), mixzter.CategoryEurovision, []string{"lordi - hard rock hallelujah"})
	if err != nil {
		t.Fatalf("fact: %v", err)
	}
	want := mixzter.Fact{Artist: "ABBA", Title: "Waterloo", Year: 1974, MediaURL: "https://open.spotify.com/track/x"}
	if f != want {
		t.Errorf("fact = %+v, want %+v", f, want)
	}

	prompt := gjson.GetBytes(*captured, "contents.0.parts.0.text").String()
	if !strings.Contains(prompt, "Eurovision") {
		t.Errorf("prompt does not mention the category: %q", prompt)
	}
	if !strings.Contains(prompt, "lordi - hard rock hallelujah") {
		t.Errorf("prompt does not carry the exclusion hint: %q", prompt)
	}
	if got := gjson.GetBytes(*captured, "generationConfig.responseMimeType").String(); got != "application/json" {
		t.Errorf("responseMimeType = %q", got)
	}
}

func TestGeminiRejectsBadResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"api error", http.StatusTooManyRequests, `{"error":{"message":"quota exceeded"}}`, "quota exceeded"},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, "no candidate text"},
		{"text not json", http.StatusOK, candidate("Waterloo by ABBA"), "not json"},
		{"year as string", http.StatusOK, candidate(`{"artist":"a","title":"t","year":"1974","spotifyUrl":"u"}`), "not a number"},
		{"missing title", http.StatusOK, candidate(`{"artist":"a","year":1974,"spotifyUrl":"u"}`), "missing title"},
		{"missing media", http.StatusOK, candidate(`{"artist":"a","title":"t","year":1974}`), "missing media url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := setupGemini(t, tt.status, tt.body)
			_, err := g.Fact(context.Background(), mixzter.CategoryDefault, nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestPromptWithoutExclusions(t *testing.T) {
	p := Prompt(mixzter.CategoryRock, nil)
	if strings.Contains(p, "Do not pick") {
		t.Errorf("prompt has an empty exclusion clause: %q", p)
	}
	if !strings.Contains(p, mixzter.CategoryRock.Config().Prompt) {
		t.Errorf("prompt lacks category instruction: %q", p)
	}
}
