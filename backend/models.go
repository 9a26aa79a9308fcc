package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrListUnsupported is wrapped when a backend cannot enumerate its models.
var ErrListUnsupported = errors.New("listing models is not supported")

// ModelLister is implemented by backends whose service can enumerate the
// model ids it serves.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Default gjson paths for model id arrays.
const (
	openAIModelsPath = "data.#.id"
	namedModelsPath  = "models.#.name"
)

// WithModelsEndpoint sets where ListModels reads model ids from. paths are
// gjson paths to an array of ids, tried in order; the first non-empty wins.
func WithModelsEndpoint(url string, paths ...string) Option {
	return func(o *OpenAICompatible) {
		o.modelsURL = url
		o.modelsPaths = paths
		if len(paths) == 0 {
			o.modelsPaths = []string{openAIModelsPath}
		}
	}
}

// ListModels fetches the service's model ids, deduplicated in service order.
func (o *OpenAICompatible) ListModels(ctx context.Context) ([]string, error) {
	if o.modelsURL == "" {
		return nil, fmt.Errorf("%s: %w", o.name, ErrListUnsupported)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.modelsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building %s models request: %w", o.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s models request failed: %w", o.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s models response: %w", o.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("%s API error %d: %s", o.name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	for _, path := range o.modelsPaths {
		if ids := collectIDs(gjson.GetBytes(body, path)); len(ids) > 0 {
			return ids, nil
		}
	}
	return nil, fmt.Errorf("no models in %s response", o.name)
}

func collectIDs(r gjson.Result) []string {
	var ids []string
	for _, v := range r.Array() {
		if id := strings.TrimSpace(v.String()); id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// generateAction is the Gemini API action a chat-capable model supports.
const generateAction = "generateContent"

// ListModels returns the Gemini models that can generate content, without
// the "models/" resource prefix.
func (g *Gemini) ListModels(ctx context.Context) ([]string, error) {
	var ids []string
	for m, err := range g.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("gemini API error: %w", err)
		}
		if len(m.SupportedActions) > 0 && !slices.Contains(m.SupportedActions, generateAction) {
			continue
		}
		ids = append(ids, strings.TrimPrefix(m.Name, "models/"))
	}
	if len(ids) == 0 {
		return nil, errors.New("no models in gemini response")
	}
	return ids, nil
}

// Lister builds backend name with its default model and returns its model
// lister.
func (r *Registry) Lister(ctx context.Context, name string) (ModelLister, error) {
	b, err := r.New(ctx, name, "")
	if err != nil {
		return nil, err
	}
	l, ok := b.(ModelLister)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrListUnsupported)
	}
	return l, nil
}
