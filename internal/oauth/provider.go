// Package oauth runs the authorization-code handshake with the single
// configured identity provider (Google unless overridden).
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/utils"
)

const defaultFlowTTL = 10 * time.Minute

var (
	// ErrStateMismatch is returned when the callback state does not match the flow.
	ErrStateMismatch = errors.New("oauth state mismatch")
	// ErrMissingCode is returned when the callback carries no authorization code.
	ErrMissingCode = errors.New("authorization code is required")
)

type Config struct {
	Provider     string // provider name recorded on users, ex: "google"
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
	FlowSecret   []byte        // HS256 key for flow tokens
	FlowTTL      time.Duration // how long a started sign-in stays valid
	HTTPClient   *http.Client  // optional, used for token and userinfo calls
}

// Provider starts sign-ins and exchanges authorization codes.
type Provider struct {
	cfg Config
	now func() time.Time
}

// New builds a provider. The client id is not checked here: a missing one
// surfaces as the identity provider's own error.
func New(cfg Config) (*Provider, error) {
	if len(cfg.FlowSecret) == 0 {
		return nil, fmt.Errorf("flow secret is required")
	}
	if cfg.FlowTTL <= 0 {
		cfg.FlowTTL = defaultFlowTTL
	}
	if cfg.Provider == "" {
		cfg.Provider = "google"
	}
	return &Provider{cfg: cfg, now: time.Now}, nil
}

// Name returns the provider name recorded on identities.
func (p *Provider) Name() string { return p.cfg.Provider }

func (p *Provider) oauth2Config(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.cfg.AuthURL,
			TokenURL:  p.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURL,
		Scopes:      p.cfg.Scopes,
	}
}

// Start prepares a PKCE sign-in returning to redirectURL.
func (p *Provider) Start(redirectURL string) (domain.OAuthStart, error) {
	state, err := randomToken(24)
	if err != nil {
		return domain.OAuthStart{}, fmt.Errorf("generate state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	flow, err := p.signFlow(state, verifier, redirectURL)
	if err != nil {
		return domain.OAuthStart{}, err
	}

	authURL := p.oauth2Config(redirectURL).AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(verifier),
	)

	return domain.OAuthStart{URL: authURL, Flow: flow}, nil
}

type userInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Exchange trades the authorization code for tokens and resolves the
// signed-in identity from the userinfo endpoint.
func (p *Provider) Exchange(ctx context.Context, code, state, flow string) (domain.Identity, error) {
	if strings.TrimSpace(code) == "" {
		return domain.Identity{}, ErrMissingCode
	}

	claims, err := p.parseFlow(flow)
	if err != nil {
		return domain.Identity{}, err
	}
	if claims.State != state {
		return domain.Identity{}, ErrStateMismatch
	}

	if p.cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.cfg.HTTPClient)
	}

	conf := p.oauth2Config(claims.RedirectURL)
	token, err := conf.Exchange(ctx, code, oauth2.VerifierOption(claims.Verifier))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("exchange code: %w", err)
	}

	info, err := p.fetchUserInfo(ctx, conf.Client(ctx, token))
	if err != nil {
		return domain.Identity{}, err
	}

	return domain.Identity{
		Provider:       p.cfg.Provider,
		ProviderUserID: info.Sub,
		Email:          info.Email,
		Name:           info.Name,
	}, nil
}

func (p *Provider) fetchUserInfo(ctx context.Context, client *http.Client) (userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.UserInfoURL, http.NoBody)
	if err != nil {
		return userInfo{}, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return userInfo{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return userInfo{}, fmt.Errorf("fetch userinfo: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info userInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return userInfo{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Sub == "" {
		return userInfo{}, fmt.Errorf("userinfo has no subject")
	}
	return info, nil
}
