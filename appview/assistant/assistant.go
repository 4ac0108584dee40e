// Package assistant wraps the Gemini text-generation API for captions,
// summaries and memory ideas. It never surfaces an error to the user:
// every failure path degrades to a static fallback string. Responses
// are cached by prompt since the same capsule description gets
// captioned over and over.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
)

type Action string

const (
	ActionCaption Action = "caption"
	ActionSummary Action = "summary"
	ActionEnhance Action = "enhance"
	ActionIdeas   Action = "ideas"
)

func ParseAction(raw string) (Action, bool) {
	switch Action(raw) {
	case ActionCaption, ActionSummary, ActionEnhance, ActionIdeas:
		return Action(raw), true
	}
	return "", false
}

var fallbacks = []string{
	"✨ This memory holds emotions too deep for words right now.",
	"✨ A meaningful moment worth preserving forever.",
	"✨ A beautiful memory that deserves to be remembered.",
}

type Assistant struct {
	apiKey   string
	endpoint string
	client   *http.Client
	cache    *ristretto.Cache
	logger   *slog.Logger
}

const defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"

func New(apiKey, endpoint string, logger *slog.Logger) (*Assistant, error) {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 22,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Assistant{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 20 * time.Second},
		cache:    cache,
		logger:   logger,
	}, nil
}

// Generate produces text for the given action. It always returns a
// usable string.
func (a *Assistant) Generate(ctx context.Context, action Action, input string) string {
	var prompt string
	switch action {
	case ActionCaption:
		prompt = "Generate a short emotional caption under 100 chars:\n" + input
	case ActionSummary:
		prompt = "Summarize this memory in under 30 words:\n" + input
	case ActionEnhance:
		prompt = "Rewrite this vividly and emotionally (max 120 words):\n" + input
	case ActionIdeas:
		prompt = fmt.Sprintf(`Give exactly 5 heartfelt memory ideas for theme %q, one per line, starting with "-"`, input)
	default:
		return fallbacks[1]
	}

	if cached, ok := a.cache.Get(prompt); ok {
		if text, ok := cached.(string); ok {
			return text
		}
	}

	text, err := a.generateContent(ctx, prompt)
	if err != nil {
		a.logger.Error("assistant call failed", "action", action, "err", err)
		return fallbacks[0]
	}
	if text == "" {
		return fallbacks[1]
	}

	a.cache.Set(prompt, text, int64(len(text)))
	return text
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (a *Assistant) generateContent(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 512,
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"?key="+a.apiKey, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("assistant returned %d: %s", resp.StatusCode, body)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text), nil
}
