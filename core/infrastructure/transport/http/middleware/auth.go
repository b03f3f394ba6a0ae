package middleware

import (
	"net/http"

	"github.com/falkordb/falkordb-mcp/core/infrastructure/transport/http/handlers"
)

// Authenticator decides whether a request may proceed.
type Authenticator interface {
	Authenticate(header string, exempt bool) error
}

// Authenticate rejects requests the authenticator refuses. Paths in exempt
// pass without a header.
func Authenticate(auth Authenticator, exempt ...string) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(exempt))
	for _, path := range exempt {
		skip[path] = struct{}{}
	}
	base := handlers.NewBaseHandler("auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, isExempt := skip[r.URL.Path]
			if err := auth.Authenticate(r.Header.Get("Authorization"), isExempt); err != nil {
				base.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
