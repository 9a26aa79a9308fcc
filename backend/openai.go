package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// contentPath is where OpenAI-style responses carry the reply text.
const contentPath = "choices.0.message.content"

// maxErrorBody caps how much of a failed response is quoted in the error.
const maxErrorBody = 4 << 10

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// ErrorRewrite may replace the error for a non-2xx response. Returning nil
// keeps the generic "<name> API error <status>: <body>" error.
type ErrorRewrite func(status int, body []byte) error

// Option configures an OpenAICompatible backend.
type Option func(*OpenAICompatible)

// WithHeader adds a request header sent on every call.
func WithHeader(key, value string) Option {
	return func(o *OpenAICompatible) { o.headers[key] = value }
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(o *OpenAICompatible) {
		if c != nil {
			o.client = c
		}
	}
}

// WithErrorRewrite installs a service-specific error translation.
func WithErrorRewrite(f ErrorRewrite) Option {
	return func(o *OpenAICompatible) { o.rewrite = f }
}

// WithResponsePaths sets the gjson paths tried in order for the reply text.
func WithResponsePaths(paths ...string) Option {
	return func(o *OpenAICompatible) { o.paths = paths }
}

// OpenAICompatible talks to any service accepting
// {model, messages: [system, user]} and answering with choices[0].message.
type OpenAICompatible struct {
	name    string
	url     string
	apiKey  string // empty: no Authorization header
	model   string
	headers map[string]string
	client  *http.Client
	rewrite ErrorRewrite
	paths   []string

	modelsURL   string // empty: ListModels is unsupported
	modelsPaths []string
}

// NewOpenAICompatible creates a backend posting to url.
func NewOpenAICompatible(name, url, apiKey, model string, opts ...Option) *OpenAICompatible {
	o := &OpenAICompatible{
		name:    name,
		url:     url,
		apiKey:  apiKey,
		model:   model,
		headers: make(map[string]string),
		client:  http.DefaultClient,
		paths:   []string{contentPath},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *OpenAICompatible) Name() string  { return o.name }
func (o *OpenAICompatible) Model() string { return o.model }

// URL returns the endpoint requests are posted to.
func (o *OpenAICompatible) URL() string { return o.url }

// Generate sends one chat-completions request.
func (o *OpenAICompatible) Generate(ctx context.Context, system, user string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding %s request: %w", o.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building %s request: %w", o.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", o.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s response: %w", o.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if o.rewrite != nil {
			if err := o.rewrite(resp.StatusCode, body); err != nil {
				return "", err
			}
		}
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return "", fmt.Errorf("%s API error %d: %s", o.name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	for _, path := range o.paths {
		if text := strings.TrimSpace(gjson.GetBytes(body, path).String()); text != "" {
			return text, nil
		}
	}
	return "", fmt.Errorf("empty result from %s", o.name)
}
