// Package llm is a small client for a Gemini-style generateContent endpoint.
// Callers pass a system prompt plus conversation turns and get back the text
// of the first candidate.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	RoleUser  = "user"
	RoleModel = "model"

	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-1.5-flash"
)

var (
	// ErrDisabled is returned when no API key is configured.
	ErrDisabled = errors.New("llm: model is not configured")
	// ErrEmptyResponse means the endpoint answered 2xx without any text,
	// usually because the prompt was blocked.
	ErrEmptyResponse = errors.New("llm: response contained no text")
)

type Turn struct {
	Role string
	Text string
}

// Generator is what the domain services depend on.
type Generator interface {
	Generate(ctx context.Context, systemPrompt string, turns []Turn) (string, error)
}

type Config struct {
	BaseURL     string
	Model       string
	APIKey      string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.4
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg}
}

func (c *Client) Enabled() bool {
	return c.cfg.APIKey != ""
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

// Generate sends one generateContent call and returns the first candidate's
// text unmodified.
func (c *Client) Generate(ctx context.Context, systemPrompt string, turns []Turn) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	if len(turns) == 0 {
		return "", fmt.Errorf("llm: at least one turn is required")
	}

	body := generateRequest{
		GenerationConfig: generationConfig{
			Temperature:     c.cfg.Temperature,
			MaxOutputTokens: c.cfg.MaxTokens,
		},
	}
	if strings.TrimSpace(systemPrompt) != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: systemPrompt}}}
	}
	for _, t := range turns {
		role := t.Role
		if role != RoleModel {
			role = RoleUser
		}
		body.Contents = append(body.Contents, content{Role: role, Parts: []part{{Text: t.Text}}})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("llm: status %d: %s", resp.StatusCode, strings.TrimSpace(gjson.GetBytes(msg, "error.message").String()))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}
	text := gjson.GetBytes(raw, "candidates.0.content.parts.0.text")
	if !text.Exists() || strings.TrimSpace(text.String()) == "" {
		if reason := gjson.GetBytes(raw, "promptFeedback.blockReason").String(); reason != "" {
			return "", fmt.Errorf("%w: blocked (%s)", ErrEmptyResponse, reason)
		}
		return "", ErrEmptyResponse
	}
	return text.String(), nil
}
