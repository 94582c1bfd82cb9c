package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/mw"
)

const (
	// FlowCookie carries the signed OAuth flow token between sign-in and callback.
	FlowCookie = "smartmarks_oauth_flow"
	flowPath   = "/auth"
)

// origin is the public scheme://host the browser reached us on.
func origin(d deps.Deps, r *http.Request) string {
	if d.SiteURL != "" {
		return d.SiteURL
	}
	scheme := "http"
	if isSecure(d, r) {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func isSecure(d deps.Deps, r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if d.TrustProxy && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.HasPrefix(d.SiteURL, "https://")
}

func setCookie(w http.ResponseWriter, r *http.Request, d deps.Deps, name, value, path string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   isSecure(d, r),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter, r *http.Request, d deps.Deps, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecure(d, r),
		SameSite: http.SameSiteLaxMode,
	})
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, d deps.Deps, token string) {
	setCookie(w, r, d, mw.SessionCookie, token, "/", d.SessionTTL)
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request, d deps.Deps) {
	clearCookie(w, r, d, mw.SessionCookie, "/")
}
