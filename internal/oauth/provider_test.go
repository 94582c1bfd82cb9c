package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

type fakeIdP struct {
	srv          *httptest.Server
	lastVerifier string
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	f := &fakeIdP{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		f.lastVerifier = r.PostForm.Get("code_verifier")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"g-123","email":"ada@example.com","name":"Ada"}`))
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func newTestProvider(t *testing.T, idp *fakeIdP) *Provider {
	t.Helper()
	p, err := New(Config{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		AuthURL:      idp.srv.URL + "/auth",
		TokenURL:     idp.srv.URL + "/token",
		UserInfoURL:  idp.srv.URL + "/userinfo",
		Scopes:       []string{"openid", "email"},
		FlowSecret:   []byte("0123456789abcdef0123456789abcdef"),
		HTTPClient:   idp.srv.Client(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestNewRequiresFlowSecret(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New() should fail without a flow secret")
	}
}

func TestNewDefaults(t *testing.T) {
	p, err := New(Config{FlowSecret: []byte("k")})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.Name() != "google" {
		t.Errorf("Name() = %q, want google", p.Name())
	}
	if p.FlowTTL() != defaultFlowTTL {
		t.Errorf("FlowTTL() = %v, want %v", p.FlowTTL(), defaultFlowTTL)
	}
}

func TestStartBuildsPKCEAuthorizeURL(t *testing.T) {
	idp := newFakeIdP(t)
	p := newTestProvider(t, idp)

	start, err := p.Start("https://marks.example/auth/callback")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if start.Flow == "" {
		t.Fatal("Start() returned an empty flow token")
	}

	u, err := url.Parse(start.URL)
	if err != nil {
		t.Fatalf("parse authorize url: %v", err)
	}
	q := u.Query()

	checks := map[string]string{
		"client_id":             "client-1",
		"redirect_uri":          "https://marks.example/auth/callback",
		"response_type":         "code",
		"code_challenge_method": "S256",
		"scope":                 "openid email",
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if q.Get("state") == "" || q.Get("code_challenge") == "" {
		t.Errorf("state and code_challenge must be set: %v", q)
	}

	claims, err := p.parseFlow(start.Flow)
	if err != nil {
		t.Fatalf("parseFlow() error = %v", err)
	}
	if claims.State != q.Get("state") {
		t.Errorf("flow state %q does not match url state %q", claims.State, q.Get("state"))
	}
}

func TestExchangeResolvesIdentity(t *testing.T) {
	idp := newFakeIdP(t)
	p := newTestProvider(t, idp)

	start, err := p.Start("https://marks.example/auth/callback")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	state := mustState(t, start.URL)

	id, err := p.Exchange(context.Background(), "good-code", state, start.Flow)
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}

	if id.Provider != "google" || id.ProviderUserID != "g-123" {
		t.Errorf("identity = %+v", id)
	}
	if id.Email != "ada@example.com" || id.Name != "Ada" {
		t.Errorf("identity = %+v", id)
	}
	if idp.lastVerifier == "" {
		t.Error("token request carried no code_verifier")
	}
}

func TestExchangeErrors(t *testing.T) {
	idp := newFakeIdP(t)
	p := newTestProvider(t, idp)

	start, err := p.Start("https://marks.example/auth/callback")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	state := mustState(t, start.URL)

	tests := []struct {
		name    string
		code    string
		state   string
		flow    string
		wantErr error
	}{
		{name: "missing code", code: "", state: state, flow: start.Flow, wantErr: ErrMissingCode},
		{name: "missing flow", code: "good-code", state: state, flow: "", wantErr: ErrInvalidFlow},
		{name: "tampered flow", code: "good-code", state: state, flow: start.Flow + "x", wantErr: ErrInvalidFlow},
		{name: "state mismatch", code: "good-code", state: "other", flow: start.Flow, wantErr: ErrStateMismatch},
		{name: "rejected code", code: "bad-code", state: state, flow: start.Flow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Exchange(context.Background(), tt.code, tt.state, tt.flow)
			if err == nil {
				t.Fatal("Exchange() should fail")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Exchange() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExchangeRejectsExpiredFlow(t *testing.T) {
	idp := newFakeIdP(t)
	p := newTestProvider(t, idp)

	start, err := p.Start("https://marks.example/auth/callback")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	state := mustState(t, start.URL)

	p.now = func() time.Time { return time.Now().Add(p.FlowTTL() + time.Minute) }

	_, err = p.Exchange(context.Background(), "good-code", state, start.Flow)
	if !errors.Is(err, ErrInvalidFlow) {
		t.Fatalf("Exchange() error = %v, want ErrInvalidFlow", err)
	}
}

func TestFlowSignedWithOtherKeyIsRejected(t *testing.T) {
	idp := newFakeIdP(t)
	p := newTestProvider(t, idp)

	other, err := New(Config{FlowSecret: []byte("another-key")})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	start, err := other.Start("https://marks.example/auth/callback")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, err := p.parseFlow(start.Flow); !errors.Is(err, ErrInvalidFlow) {
		t.Fatalf("parseFlow() error = %v, want ErrInvalidFlow", err)
	}
}

func mustState(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	state := u.Query().Get("state")
	if strings.TrimSpace(state) == "" {
		t.Fatal("authorize url has no state")
	}
	return state
}
