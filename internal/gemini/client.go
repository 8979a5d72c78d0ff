// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package gemini wraps the Gemini structured-generation API for filename
// metadata extraction and search-grounded title suggestions.
package gemini

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

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"

	"github.com/autobrr/cinedex/internal/buildinfo"
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com"
	defaultModel       = "gemini-2.5-flash"
	defaultHTTPTimeout = 60 * time.Second

	retryAttempts  = 3
	retryBaseDelay = time.Second
)

// ErrExtractionFailed wraps every terminal extraction failure: exhausted
// retries, missing candidate text, or an unparseable payload. No partial
// result is ever returned.
var ErrExtractionFailed = errors.New("gemini extraction failed")

// Extraction is the normalized metadata derived from a raw filename.
type Extraction struct {
	GroupName string `json:"groupName"`
	Language  string `json:"lang"`
	Quality   string `json:"quality"`
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
	logger     zerolog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *Client) {
		model = strings.TrimSpace(model)
		if model != "" {
			c.model = model
		}
	}
}

// WithRetryBaseDelay shortens the backoff base delay in tests.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(c *Client) {
		if delay > 0 {
			c.retryDelay = delay
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		retryDelay: retryBaseDelay,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// request/response shapes for generateContent.

type generateRequest struct {
	Contents          []content       `json:"contents"`
	SystemInstruction *content        `json:"systemInstruction,omitempty"`
	GenerationConfig  *generateConfig `json:"generationConfig,omitempty"`
	Tools             []tool          `json:"tools,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateConfig struct {
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type tool struct {
	GoogleSearch struct{} `json:"google_search"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// extractionSchema constrains the structured response to exactly the three
// required string fields.
var extractionSchema = json.RawMessage(`{
	"type": "OBJECT",
	"properties": {
		"groupName": {"type": "STRING"},
		"lang": {"type": "STRING"},
		"quality": {"type": "STRING"}
	},
	"required": ["groupName", "lang", "quality"]
}`)

// Extract derives {groupName, lang, quality} from a raw filename. Up to 3
// attempts with exponential backoff (1s, 2s); all-or-nothing.
func (c *Client) Extract(ctx context.Context, fileName string) (*Extraction, error) {
	prompt := fmt.Sprintf(`Analyze: %q. Extract: "groupName" (canonical title), "lang" (full language name or "Unknown"), "quality" (e.g., "720p" or "SD").`, fileName)

	req := generateRequest{
		Contents:          []content{{Parts: []part{{Text: prompt}}}},
		SystemInstruction: &content{Parts: []part{{Text: "You are a helpful assistant."}}},
		GenerationConfig: &generateConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   extractionSchema,
		},
	}

	text, err := c.generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtractionFailed, fileName, err)
	}

	var extraction Extraction
	if err := json.Unmarshal([]byte(text), &extraction); err != nil {
		return nil, fmt.Errorf("%w: parse payload for %s: %v", ErrExtractionFailed, fileName, err)
	}

	extraction.GroupName = strings.TrimSpace(extraction.GroupName)
	extraction.Language = strings.TrimSpace(extraction.Language)
	extraction.Quality = strings.TrimSpace(extraction.Quality)
	if extraction.GroupName == "" || extraction.Language == "" || extraction.Quality == "" {
		return nil, fmt.Errorf("%w: incomplete fields for %s", ErrExtractionFailed, fileName)
	}

	return &extraction, nil
}

// SuggestTitle asks for the likely intended title behind a failed search,
// grounded with the search tool. Freeform text; never feeds the catalog
// directly.
func (c *Client) SuggestTitle(ctx context.Context, failedQuery string) (string, error) {
	prompt := fmt.Sprintf("A user's search for %q failed. What movie title were they likely looking for? Respond with *only* the movie title.", failedQuery)

	req := generateRequest{
		Contents:          []content{{Parts: []part{{Text: prompt}}}},
		SystemInstruction: &content{Parts: []part{{Text: "You are a helpful assistant."}}},
		Tools:             []tool{{}},
	}

	text, err := c.generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("suggest title: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// generate performs one generateContent call with the shared retry policy
// and returns the first candidate's text.
func (c *Client) generate(ctx context.Context, payload generateRequest) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("api key required")
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)

	var text string
	err = retry.Do(
		func() error {
			attemptText, attemptErr := c.doRequest(ctx, endpoint, encoded)
			if attemptErr != nil {
				return attemptErr
			}
			text = attemptText
			return nil
		},
		retry.Attempts(retryAttempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn().Err(err).Uint("attempt", n+1).Msg("gemini call failed, retrying")
		}),
	)
	if err != nil {
		return "", err
	}

	return text, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent)
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("api error: %s", decoded.Error.Message)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("invalid response structure")
	}

	text := decoded.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty candidate text")
	}
	return text, nil
}
