package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/mixzter/duel/internal/mixzter"
)

const defaultGeminiEndpoint = "https://generativelanguage.googleapis.com"

// Gemini asks the Gemini generateContent API for a song in a category.
type Gemini struct {
	client   *http.Client
	endpoint string
	apiKey   string
	model    string
}

// GeminiOption customizes a Gemini provider.
type GeminiOption func(*Gemini)

// WithEndpoint points the provider at a different API host.
func WithEndpoint(endpoint string) GeminiOption {
	return func(g *Gemini) { g.endpoint = strings.TrimRight(endpoint, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *Gemini) { g.client = c }
}

func NewGemini(apiKey, model string, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		client:   &http.Client{Timeout: 30 * time.Second},
		endpoint: defaultGeminiEndpoint,
		apiKey:   apiKey,
		model:    model,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig map[string]any  `json:"generationConfig"`
}

var factSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"artist":     map[string]any{"type": "STRING"},
		"title":      map[string]any{"type": "STRING"},
		"year":       map[string]any{"type": "INTEGER"},
		"spotifyUrl": map[string]any{"type": "STRING"},
	},
	"required": []string{"artist", "title", "year", "spotifyUrl"},
}

// Prompt builds the instruction sent for category, listing the songs the
// model should avoid.
func Prompt(category mixzter.Category, exclude []string) string {
	var b strings.Builder
	b.WriteString("Generate one music track for a song year guessing game. ")
	b.WriteString(category.Config().Prompt)
	b.WriteString(" The year must be the original release year.")
	if len(exclude) > 0 {
		b.WriteString(" Do not pick any of these songs: ")
		b.WriteString(strings.Join(exclude, "; "))
		b.WriteString(".")
	}
	return b.String()
}

func (g *Gemini) Fact(ctx context.Context, category mixzter.Category, exclude []string) (mixzter.Fact, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: Prompt(category, exclude)}}}},
		GenerationConfig: map[string]any{
			"responseMimeType": "application/json",
			"responseSchema":   factSchema,
		},
	})
	if err != nil {
		return mixzter.Fact{}, fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.endpoint, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return mixzter.Fact{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return mixzter.Fact{}, fmt.Errorf("calling gemini: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return mixzter.Fact{}, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(data, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return mixzter.Fact{}, fmt.Errorf("gemini returned %d: %s", resp.StatusCode, msg)
	}

	text := gjson.GetBytes(data, "candidates.0.content.parts.0.text")
	if !text.Exists() {
		return mixzter.Fact{}, fmt.Errorf("gemini response has no candidate text")
	}
	return parseFact(text.String())
}

func parseFact(text string) (mixzter.Fact, error) {
	if !gjson.Valid(text) {
		return mixzter.Fact{}, fmt.Errorf("candidate text is not json")
	}
	year := gjson.Get(text, "year")
	if year.Type != gjson.Number {
		return mixzter.Fact{}, fmt.Errorf("candidate year is not a number")
	}

	f := mixzter.Fact{
		Artist:   strings.TrimSpace(gjson.Get(text, "artist").String()),
		Title:    strings.TrimSpace(gjson.Get(text, "title").String()),
		Year:     int(year.Int()),
		MediaURL: strings.TrimSpace(gjson.Get(text, "spotifyUrl").String()),
	}
	if err := f.Validate(); err != nil {
		return mixzter.Fact{}, err
	}
	return f, nil
}
