// Package gemini generates text with the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/jeffrom/tagnotes/ai"
	"github.com/jeffrom/tagnotes/config"
)

type Gemini struct {
	cfg    config.Config
	model  string
	client *genai.Client
}

type Option func(*genai.ClientConfig)

// WithHTTPClient replaces the client used for API requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cc *genai.ClientConfig) { cc.HTTPClient = c }
}

func New(ctx context.Context, cfg config.Config, opts ...Option) (*Gemini, error) {
	if cfg.GeminiToken == "" {
		return nil, errors.New("gemini: api token is required")
	}
	timeout := cfg.GenerateTimeout.D()
	cc := &genai.ClientConfig{
		APIKey:  cfg.GeminiToken,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.GeminiBaseURL,
			Timeout: &timeout,
		},
	}
	for _, opt := range opts {
		opt(cc)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &Gemini{cfg: cfg, model: cfg.Model, client: client}, nil
}

func toGenaiSchema(s *ai.Schema) *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Fields))
	for _, f := range s.Fields {
		props[f] = &genai.Schema{Type: genai.TypeString}
	}
	return &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       props,
		Required:         s.Required,
		PropertyOrdering: s.Fields,
	}
}

func (g *Gemini) Generate(ctx context.Context, prompt string, schema *ai.Schema) (string, error) {
	gc := &genai.GenerateContentConfig{}
	if schema != nil {
		gc.ResponseMIMEType = "application/json"
		gc.ResponseSchema = toGenaiSchema(schema)
	}

	g.cfg.Debugf("+ gemini %s: %d byte prompt", g.model, len(prompt))
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), gc)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}

// Verify only checks configuration; the API has no cheap liveness call.
func (g *Gemini) Verify(ctx context.Context) error {
	if g.model == "" {
		return errors.New("gemini: model is required")
	}
	return nil
}

var _ ai.Generator = (*Gemini)(nil)
var _ ai.Verifier = (*Gemini)(nil)
