package auth

import (
	"crypto/subtle"
	"strings"

	apperrors "github.com/falkordb/falkordb-mcp/core/shared/errors"
)

// BootstrapKey is accepted in development mode alongside the configured key so
// that older clients shipped with it keep working locally.
const BootstrapKey = "falkordb_mcp_server_key_2024"

// Gate decides whether a request may proceed based on its Authorization
// header. It holds no mutable state.
type Gate struct {
	apiKey      string
	development bool
}

// NewGate creates a gate for apiKey. development enables the local bypass
// rules: no key configured means everything is allowed, a configured key
// additionally admits BootstrapKey.
func NewGate(apiKey string, development bool) *Gate {
	return &Gate{apiKey: apiKey, development: development}
}

// Open reports whether the gate lets every request through.
func (g *Gate) Open() bool {
	return g.development && g.apiKey == ""
}

// Authenticate returns nil when the request is allowed, otherwise an
// *apperrors.AppError describing the rejection.
func (g *Gate) Authenticate(header string, exempt bool) error {
	if exempt || g.Open() {
		return nil
	}

	if strings.TrimSpace(header) == "" {
		return apperrors.NewAppError(apperrors.ErrCodeMissingAuthHeader, "No authorization header provided", nil)
	}

	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return apperrors.NewAppError(apperrors.ErrCodeMalformedAuthHeader, "Authorization header must be 'Bearer <token>'", nil)
	}

	if g.apiKey != "" && equal(token, g.apiKey) {
		return nil
	}
	if g.development && g.apiKey != "" && equal(token, BootstrapKey) {
		return nil
	}
	return apperrors.NewAppError(apperrors.ErrCodeInvalidCredential, "Invalid API key", nil)
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
