package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const flowIssuer = "smartmarks/oauth-flow"

// ErrInvalidFlow is returned for a missing, tampered or expired flow token.
var ErrInvalidFlow = errors.New("invalid oauth flow")

// flowClaims carry the PKCE verifier between sign-in start and callback.
// The token lives in an HttpOnly cookie and never reaches the provider.
type flowClaims struct {
	State       string `json:"state"`
	Verifier    string `json:"cv"`
	RedirectURL string `json:"redirect_uri"`
	jwt.RegisteredClaims
}

func (p *Provider) signFlow(state, verifier, redirectURL string) (string, error) {
	now := p.now()
	claims := flowClaims{
		State:       state,
		Verifier:    verifier,
		RedirectURL: redirectURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    flowIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.cfg.FlowTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.cfg.FlowSecret)
	if err != nil {
		return "", fmt.Errorf("sign flow token: %w", err)
	}
	return signed, nil
}

func (p *Provider) parseFlow(raw string) (*flowClaims, error) {
	if raw == "" {
		return nil, ErrInvalidFlow
	}

	claims := &flowClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return p.cfg.FlowSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(flowIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFlow, err)
	}
	if claims.State == "" || claims.Verifier == "" {
		return nil, ErrInvalidFlow
	}
	return claims, nil
}

// randomToken returns n random bytes, base64url encoded.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewSecret returns a random 32-byte key for signing flow tokens.
func NewSecret() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// FlowTTL is how long a started sign-in stays valid. The flow cookie uses it as max-age.
func (p *Provider) FlowTTL() time.Duration { return p.cfg.FlowTTL }
