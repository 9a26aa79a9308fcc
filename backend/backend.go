// Package backend implements the text-generation services a race can enter.
//
// Most services speak the OpenAI chat-completions wire format and share
// OpenAICompatible; Gemini goes through the genai SDK. Registry maps backend
// ids to constructors, credentials and built-in default models.
package backend

import (
	"context"
	"errors"
	"regexp"
)

// Backend generates a shell command for a system instruction and a user
// prompt. Implementations return the trimmed reply text.
type Backend interface {
	Name() string
	Model() string
	Generate(ctx context.Context, system, user string) (string, error)
}

// ErrMissingCredential is wrapped when a backend's environment variable is
// unset, e.g. "COGE_GROQ_API_KEY not set".
var ErrMissingCredential = errors.New("not set")

// ErrUnknownBackend is wrapped when a backend id is not registered.
var ErrUnknownBackend = errors.New("unknown backend")

var modelUnavailable = regexp.MustCompile(`(?i)unknown_model|unavailable_model`)

// IsModelUnavailable reports whether an error message says the requested
// model does not exist or is not served.
func IsModelUnavailable(msg string) bool {
	return modelUnavailable.MatchString(msg)
}
