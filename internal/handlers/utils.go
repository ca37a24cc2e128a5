package handlers

import (
	"net/http"
	"strings"

	"github.com/jason-s-yu/ludo/internal/auth"
)

// authCookie is the cookie browser clients carry the session token in, since they cannot set headers on an upgrade.
const authCookie = "auth_token"

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	for _, part := range strings.Split(cookieHeader, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name == cookieName {
			return value
		}
	}
	return ""
}

// credential returns the bearer token from the Authorization header, falling back to the auth cookie.
func credential(r *http.Request) (string, error) {
	token, err := auth.BearerToken(r.Header.Get("Authorization"))
	if err == nil {
		return token, nil
	}
	if c := extractCookieToken(r.Header.Get("Cookie"), authCookie); c != "" {
		return c, nil
	}
	return "", err
}
