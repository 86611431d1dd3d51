package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/carrel-labs/pebble/internal/logger"
)

// publicPaths skip authentication so health checks and scrapers need no key.
var publicPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

const bearerPrefix = "Bearer "

// BearerAuthMiddleware guards the search API with static API keys sent as
// "Authorization: Bearer <key>". Blank keys are ignored; with no keys left
// every request passes. Rejections are logged with the request logger.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := publicPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			if reason := checkBearer(r.Header.Get("Authorization"), keys); reason != "" {
				logger.FromContext(r.Context()).Warn("request rejected",
					zap.String("reason", reason),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, reason)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checkBearer returns an empty string for an accepted header, otherwise
// the rejection reason sent to the client.
func checkBearer(header string, keys [][]byte) string {
	switch {
	case header == "":
		return "missing authorization header"
	case !strings.HasPrefix(header, bearerPrefix):
		return "authorization header must use Bearer scheme"
	}
	token := []byte(strings.TrimPrefix(header, bearerPrefix))
	for _, k := range keys {
		if subtle.ConstantTimeCompare(token, k) == 1 {
			return ""
		}
	}
	return "invalid api key"
}
