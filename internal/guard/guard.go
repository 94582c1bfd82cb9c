// Package guard decides where a visitor without a session is sent.
package guard

import "github.com/MrSnakeDoc/smartmarks/internal/session"

// LoginPath is the login view.
const LoginPath = "/login"

// Check returns LoginPath and true once loading has finished with no user.
// While loading it never redirects.
func Check(s session.State) (string, bool) {
	if s.Loading || s.User != nil {
		return "", false
	}
	return LoginPath, true
}
