package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	dErrors "screener/pkg/domain-errors"
	"screener/pkg/platform/httputil"
	"screener/pkg/requestcontext"
)

// RequireAdminToken guards operator endpoints with a static bearer secret.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok || expectedToken == "" || !secretEqual(token, expectedToken) {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Valid admin token required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// APIKeyConfig configures RequireAPIKey.
type APIKeyConfig struct {
	Enabled bool
	Header  string
	Keys    []string
}

// RequireAPIKey accepts a key from the configured header, the api_key query
// parameter, or an Authorization bearer token. Disabled configs pass through.
func RequireAPIKey(cfg APIKeyConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	header := cfg.Header
	if header == "" {
		header = "X-API-Key"
	}
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(header)
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key == "" {
				key, _ = bearerToken(r)
			}

			ctx := r.Context()
			if key == "" {
				logger.WarnContext(ctx, "api key missing", "request_id", requestcontext.RequestID(ctx))
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "API key required"))
				return
			}
			if !anyEqual(key, cfg.Keys) {
				logger.WarnContext(ctx, "api key rejected", "request_id", requestcontext.RequestID(ctx))
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid API key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

func secretEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// anyEqual compares against every key so timing does not reveal which one
// matched.
func anyEqual(got string, keys []string) bool {
	matched := 0
	for _, k := range keys {
		if k != "" && secretEqual(got, k) {
			matched = 1
		}
	}
	return matched == 1
}
