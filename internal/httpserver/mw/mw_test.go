package mw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/session"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestMatchHost(t *testing.T) {
	tests := []struct {
		host    string
		pattern string
		want    bool
	}{
		{"marks.domain.ext", "marks.domain.ext", true},
		{"a.domain.ext", "*.domain.ext", true},
		{"domain.ext", "*.domain.ext", false},
		{"evil-domain.ext", "*.domain.ext", false},
		{"other.ext", "marks.domain.ext", false},
	}

	for _, tt := range tests {
		t.Run(tt.host+"_"+tt.pattern, func(t *testing.T) {
			if got := matchHost(tt.host, tt.pattern); got != tt.want {
				t.Errorf("matchHost(%q, %q) = %v, want %v", tt.host, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"Marks.Domain.Ext"}, logger.NewNop())(okHandler)

	tests := []struct {
		host string
		want int
	}{
		{"marks.domain.ext", http.StatusOK},
		{"marks.domain.ext:8080", http.StatusOK},
		{"MARKS.domain.ext", http.StatusOK},
		{"other.ext", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Host = tt.host
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8"}, false, logger.NewNop())(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("allowed ip status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	req.RemoteAddr = "192.168.1.1:5555"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("rejected ip status = %d", rec.Code)
	}
}

func TestRateLimitPerSession(t *testing.T) {
	h := RateLimit(RateLimitConfig{Burst: 2, RefillPerMin: 1, Key: SessionOrIP(false)})(okHandler)

	do := func(token string) int {
		req := httptest.NewRequest(http.MethodPost, "/views/v/bookmarks", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if token != "" {
			req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if do("a") != http.StatusOK || do("a") != http.StatusOK {
		t.Fatal("burst should allow two requests")
	}
	if got := do("a"); got != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", got)
	}
	if got := do("b"); got != http.StatusOK {
		t.Errorf("other session status = %d, want 200", got)
	}
	if got := do(""); got != http.StatusOK {
		t.Errorf("anonymous status = %d, want 200", got)
	}
}

type stubAuth struct {
	session *domain.Session
}

func (s stubAuth) GetSession(_ context.Context, token string) (*domain.Session, error) {
	if s.session != nil && s.session.Token == token {
		return s.session, nil
	}
	return nil, nil
}

func (stubAuth) OnAuthStateChange(context.Context, string, func(domain.AuthEvent)) (domain.Subscription, error) {
	return nil, nil
}

func (stubAuth) SignInWithOAuth(context.Context, string) (domain.OAuthStart, error) {
	return domain.OAuthStart{}, nil
}

func (stubAuth) SignOut(context.Context, string) error { return nil }

func TestRequireUser(t *testing.T) {
	auth := stubAuth{session: &domain.Session{Token: "tok", User: domain.User{ID: "u1"}}}
	h := Session(auth, logger.NewNop())(RequireUser(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := session.FromContext(r.Context()).User(); u == nil || u.ID != "u1" {
			t.Errorf("handler reached without user: %+v", u)
		}
		w.WriteHeader(http.StatusOK)
	})))

	tests := []struct {
		name     string
		method   string
		token    string
		accept   string
		want     int
		location string
	}{
		{name: "signed in", method: http.MethodGet, token: "tok", want: http.StatusOK},
		{name: "anonymous page load", method: http.MethodGet, want: http.StatusFound, location: "/login"},
		{name: "unknown token", method: http.MethodGet, token: "stale", want: http.StatusFound, location: "/login"},
		{name: "anonymous stream", method: http.MethodGet, accept: "text/event-stream", want: http.StatusUnauthorized},
		{name: "anonymous mutation", method: http.MethodPost, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.token != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.token})
			}
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.location != "" && rec.Header().Get("Location") != tt.location {
				t.Errorf("Location = %q, want %q", rec.Header().Get("Location"), tt.location)
			}
		})
	}
}
