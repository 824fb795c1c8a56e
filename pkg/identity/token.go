package identity

import (
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/webauth/pkg/jwtx"
)

// ComputeExpires returns the absolute expiry in epoch milliseconds for a
// token minted at now with the given lifetime in seconds.
func ComputeExpires(expiresIn int64, now time.Time) int64 {
	return now.UnixMilli() + expiresIn*1000
}

// IsExpired reports whether token is absent, has no expiry, or is past its
// expiry.
func IsExpired(token *TokenInfo) bool {
	return token.Expired(time.Now())
}

// IsTokenAuthorized reports whether token covers every requested scope.
// Nothing requested, or no granted scopes recorded, counts as authorized.
// Comparison is case-sensitive on trimmed values.
func IsTokenAuthorized(token *TokenInfo, requested []string) bool {
	if len(requested) == 0 {
		return true
	}
	if token == nil || len(token.Scopes) == 0 {
		return true
	}

	granted := make(map[string]struct{}, len(token.Scopes))
	for _, s := range token.Scopes {
		granted[strings.TrimSpace(s)] = struct{}{}
	}

	for _, s := range requested {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := granted[s]; !ok {
			return false
		}
	}
	return true
}

// mergeScopes concatenates the requested scopes with the space-delimited
// scopes returned by the provider. Duplicates are kept.
func mergeScopes(requested []string, returned string) []string {
	merged := make([]string, 0, len(requested))
	merged = append(merged, requested...)
	merged = append(merged, strings.Fields(returned)...)
	if len(merged) == 0 {
		return nil
	}
	return merged
}

// idTokenLeeway absorbs clock skew when checking id_token expiry.
const idTokenLeeway = 5 * time.Minute

// tokenFromParams builds a TokenInfo from response parameters using the
// declared field table, then derives scopes and expiry. Subject is taken
// from an id_token addressed to clientID that has not expired.
func tokenFromParams(params url.Values, requested []string, clientID string, now time.Time) *TokenInfo {
	token := &TokenInfo{
		ExpiresIn: DefaultExpiresIn,
		Raw:       make(map[string]string, len(params)),
	}

	for key := range params {
		token.Raw[key] = params.Get(key)
	}

	for _, f := range tokenFields {
		if v, ok := token.Raw[f.wire]; ok {
			f.assign(token, v)
		}
	}

	token.Scopes = mergeScopes(requested, params.Get("scope"))
	token.ExpiresAt = ComputeExpires(token.ExpiresIn, now)

	if token.IDToken != "" {
		token.Subject = idTokenSubject(token.IDToken, clientID, now)
	}

	return token
}

func idTokenSubject(raw, clientID string, now time.Time) string {
	claims, err := jwtx.ParseUnverified(raw)
	if err != nil {
		return ""
	}
	if claims.ValidateAudience([]string{clientID}) != nil {
		return ""
	}
	if claims.ValidateExpiryWithLeeway(now, idTokenLeeway) != nil {
		return ""
	}
	return claims.Subject
}
