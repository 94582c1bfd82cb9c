package domain

import "time"

// User is an account created on first sign-in with the identity provider.
type User struct {
	ID             string    `json:"id"`
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"provider_user_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Identity is what the identity provider tells us about the person signing in.
type Identity struct {
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
}

// Session is an authenticated browser session. It is owned by the platform;
// the application only caches it.
type Session struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OAuthStart is the result of initiating a sign-in: the provider URL to send
// the browser to and the signed flow token it must bring back.
type OAuthStart struct {
	URL  string
	Flow string
}

type AuthEventType string

const (
	AuthSignedIn       AuthEventType = "SIGNED_IN"
	AuthSignedOut      AuthEventType = "SIGNED_OUT"
	AuthTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is a session state transition. Session is nil after sign-out.
type AuthEvent struct {
	Type    AuthEventType `json:"type"`
	Session *Session      `json:"session,omitempty"`
}
