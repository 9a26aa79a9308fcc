package backend

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Spec describes one registered backend.
type Spec struct {
	Name         string
	EnvKey       string // credential variable; empty when none is needed
	DefaultModel string
	// RequiresKey is false for local services that are never counted as
	// configured, however the environment looks.
	RequiresKey  bool
	build        func(ctx context.Context, env Env, key, model string) (Backend, error)
}

// Env reads environment variables. os.Getenv satisfies it.
type Env func(key string) string

// Registry resolves backend ids to backends.
type Registry struct {
	env    Env
	client *http.Client
	specs  []Spec
	byName map[string]int
}

// NewRegistry creates the registry of every built-in backend. env defaults
// to os.Getenv and client to http.DefaultClient.
func NewRegistry(env Env, client *http.Client) *Registry {
	if env == nil {
		env = os.Getenv
	}
	if client == nil {
		client = http.DefaultClient
	}
	r := &Registry{env: env, client: client, byName: make(map[string]int)}
	for _, s := range r.builtins() {
		r.byName[s.Name] = len(r.specs)
		r.specs = append(r.specs, s)
	}
	return r
}

// Names returns every backend id in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.specs))
	for i, s := range r.specs {
		names[i] = s.Name
	}
	return names
}

// Spec returns the registration of a backend id.
func (r *Registry) Spec(name string) (Spec, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Spec{}, false
	}
	return r.specs[i], true
}

// DefaultModels maps every backend id to its built-in default model.
func (r *Registry) DefaultModels() map[string]string {
	out := make(map[string]string, len(r.specs))
	for _, s := range r.specs {
		out[s.Name] = s.DefaultModel
	}
	return out
}

// Configured returns, in registration order, the backends whose credential
// is present in the environment. Backends without a credential are skipped.
func (r *Registry) Configured() []string {
	var names []string
	for _, s := range r.specs {
		if s.RequiresKey && r.env(s.EnvKey) != "" {
			names = append(names, s.Name)
		}
	}
	return names
}

// New constructs a backend. An empty model selects the built-in default.
func (r *Registry) New(ctx context.Context, name, model string) (Backend, error) {
	s, ok := r.Spec(name)
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownBackend, name, strings.Join(r.Names(), ", "))
	}
	if model == "" {
		model = s.DefaultModel
	}
	var key string
	if s.EnvKey != "" {
		key = r.env(s.EnvKey)
	}
	if s.RequiresKey && key == "" {
		return nil, fmt.Errorf("%s %w", s.EnvKey, ErrMissingCredential)
	}
	return s.build(ctx, r.env, key, model)
}

// openAI registers a plain OpenAI-compatible service.
func (r *Registry) openAI(name, url, envKey, model string, opts ...Option) Spec {
	return Spec{
		Name:         name,
		EnvKey:       envKey,
		DefaultModel: model,
		RequiresKey:  true,
		build: func(_ context.Context, _ Env, key, model string) (Backend, error) {
			all := append([]Option{WithHTTPClient(r.client)}, opts...)
			return NewOpenAICompatible(name, url, key, model, all...), nil
		},
	}
}

func (r *Registry) builtins() []Spec {
	return []Spec{
		{
			Name:         "gemini",
			EnvKey:       "COGE_GEMINI_API_KEY",
			DefaultModel: "gemini-2.5-flash",
			RequiresKey:  true,
			build: func(ctx context.Context, env Env, key, model string) (Backend, error) {
				return NewGemini(ctx, key, model, env("COGE_GEMINI_BASE_URL"), r.client)
			},
		},
		r.openAI("openrouter", "https://openrouter.ai/api/v1/chat/completions",
			"COGE_OPENROUTER_API_KEY", "meta-llama/llama-3.3-70b-instruct:free",
			WithErrorRewrite(openRouterRewrite),
			WithModelsEndpoint("https://openrouter.ai/api/v1/models")),
		r.openAI("openai", "https://api.openai.com/v1/chat/completions",
			"COGE_OPENAI_API_KEY", "gpt-4o-mini",
			WithModelsEndpoint("https://api.openai.com/v1/models")),
		{
			Name:         "ollama",
			DefaultModel: "llama3.2",
			build: func(_ context.Context, env Env, _, model string) (Backend, error) {
				base := env("COGE_OLLAMA_BASE_URL")
				if base == "" {
					base = "http://localhost:11434"
				}
				base = strings.TrimRight(base, "/")
				return NewOpenAICompatible("ollama", base+"/v1/chat/completions", "", model,
					WithHTTPClient(r.client),
					WithModelsEndpoint(base+"/api/tags", namedModelsPath)), nil
			},
		},
		r.openAI("cerebras", "https://api.cerebras.ai/v1/chat/completions",
			"COGE_CEREBRAS_API_KEY", "llama3.1-8b",
			WithModelsEndpoint("https://api.cerebras.ai/v1/models")),
		{
			Name:         "cloudflare",
			EnvKey:       "COGE_CLOUDFLARE_API_KEY",
			DefaultModel: "@cf/meta/llama-3.1-8b-instruct",
			RequiresKey:  true,
			build: func(_ context.Context, env Env, key, model string) (Backend, error) {
				account := env("COGE_CLOUDFLARE_ACCOUNT_ID")
				if account == "" {
					return nil, fmt.Errorf("COGE_CLOUDFLARE_ACCOUNT_ID %w", ErrMissingCredential)
				}
				base := "https://api.cloudflare.com/client/v4/accounts/" + account + "/ai"
				return NewOpenAICompatible("cloudflare", base+"/v1/chat/completions", key, model,
					WithHTTPClient(r.client),
					WithModelsEndpoint(base+"/models/search?task=Text%20Generation&per_page=200", "result.#.name")), nil
			},
		},
		r.openAI("cohere", "https://api.cohere.com/v2/chat",
			"COGE_COHERE_API_KEY", "command-r7b-12-2024",
			WithResponsePaths("message.content.0.text", contentPath),
			WithModelsEndpoint("https://api.cohere.com/v1/models", namedModelsPath)),
		r.openAI("github-models", "https://models.github.ai/inference/chat/completions",
			"COGE_GITHUB_MODELS_TOKEN", "openai/gpt-4o-mini",
			WithHeader("X-GitHub-Api-Version", "2022-11-28"),
			WithModelsEndpoint("https://models.github.ai/catalog/models", "#.id", openAIModelsPath)),
		r.openAI("groq", "https://api.groq.com/openai/v1/chat/completions",
			"COGE_GROQ_API_KEY", "llama-3.3-70b-versatile",
			WithModelsEndpoint("https://api.groq.com/openai/v1/models")),
		r.openAI("huggingface", "https://router.huggingface.co/v1/chat/completions",
			"COGE_HUGGINGFACE_API_KEY", "meta-llama/Llama-3.1-8B-Instruct",
			WithModelsEndpoint("https://router.huggingface.co/v1/models")),
		r.openAI("codestral", "https://codestral.mistral.ai/v1/chat/completions",
			"COGE_CODESTRAL_API_KEY", "codestral-latest"),
		r.openAI("mistral", "https://api.mistral.ai/v1/chat/completions",
			"COGE_MISTRAL_API_KEY", "mistral-small-latest",
			WithModelsEndpoint("https://api.mistral.ai/v1/models")),
		r.openAI("vercel-ai", "https://api.vercel.ai/v1/chat/completions",
			"COGE_VERCEL_API_KEY", "openai/gpt-4o-mini",
			WithModelsEndpoint("https://api.vercel.ai/v1/models")),
	}
}
