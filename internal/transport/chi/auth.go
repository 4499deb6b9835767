package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// publicPaths serve probes and scrapers without an API key.
var publicPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuth guards the search API with static API keys sent as
// "Authorization: Bearer <key>". The scheme is case-insensitive.
// With no non-empty key the API is open.
func BearerAuth(apiKeys []string) func(http.Handler) http.Handler {
	var keys [][]byte
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
			if reason := authorize(r.Header.Get("Authorization"), keys); reason != "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="gally"`)
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, reason)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authorize returns why header is rejected, or "" when it carries a known key.
func authorize(header string, keys [][]byte) string {
	if header == "" {
		return "missing authorization header"
	}
	scheme, token, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "authorization header must use Bearer scheme"
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "missing api key"
	}
	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare([]byte(token), k)
	}
	if match == 0 {
		return "invalid api key"
	}
	return ""
}
