package backend

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrZeroDataRetention replaces OpenRouter's 404 for models that are not
// available under the account's zero-data-retention policy.
var ErrZeroDataRetention = errors.New(
	"openrouter: this model is not available with Zero data retention enabled. " +
		"To use this model, disable the Zero data retention policy at https://openrouter.ai/settings/privacy " +
		"or set a different model in config (see https://openrouter.ai/models)")

func openRouterRewrite(status int, body []byte) error {
	if status != http.StatusNotFound {
		return nil
	}
	msg := gjson.GetBytes(body, "error.message").String()
	if strings.Contains(msg, "data policy") || strings.Contains(msg, "Zero data retention") {
		return ErrZeroDataRetention
	}
	return nil
}
