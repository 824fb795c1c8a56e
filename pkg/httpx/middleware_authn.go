package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/webauth/pkg/cryptox"
	"github.com/aussiebroadwan/webauth/pkg/slogx"
)

// BearerTokenMiddleware requires "Authorization: Bearer <token>" matching
// the shared bridge token. An empty token disables the check.
func BearerTokenMiddleware(token string) Middleware {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}

			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
			if !cryptox.EqualTokens(raw, token) {
				slogx.FromContext(r.Context()).Warn("bridge token rejected",
					"fingerprint", cryptox.FingerprintToken(raw))
				writeBearerError(w, "invalid bridge token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "invalid_token", desc)
}
