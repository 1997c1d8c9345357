package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"otp-auth-service/internal/service"
)

type contextKey string

const subjectContextKey contextKey = "auth_subject"

// SubjectFromContext returns the authenticated subject set by SessionGuard.
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectContextKey).(string)
	return sub, ok && sub != ""
}

// SessionGuard rejects requests that do not carry a valid session token
// in the auth_token cookie. Missing and invalid tokens are treated the
// same so callers cannot probe which case they hit.
func SessionGuard(sessions *service.SessionTokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := parseCookieHeader(r.Header.Get("Cookie"))[sessionCookieName]
			if !ok || token == "" {
				respondWithError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			sub, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			ctx := context.WithValue(r.Context(), subjectContextKey, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseCookieHeader splits a raw Cookie header into name/value pairs.
// Values are URL-decoded; undecodable values are kept verbatim. Later
// duplicates win.
func parseCookieHeader(header string) map[string]string {
	cookies := make(map[string]string)
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, found := strings.Cut(part, "=")
		if !found || name == "" {
			continue
		}
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		cookies[name] = value
	}
	return cookies
}
