// Package session binds an HTTP request to a signed-in Zoom user id via an
// HMAC-signed JWT stored in an HttpOnly cookie. The token carries nothing but
// the user id and expiry; there is no server-side session state.
package session

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	cookieName = "zoomrelay_session"
	// ttl matches a typical express-session default order of magnitude;
	// a stale session simply forces a fresh OAuth round trip.
	ttl = 7 * 24 * time.Hour
)

// Manager signs and verifies session cookies.
type Manager struct {
	secret []byte
	now    func() time.Time
}

// NewManager creates a Manager signing with secret.
func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret), now: time.Now}
}

// SignIn issues a session cookie for userID on the response.
func (m *Manager) SignIn(w http.ResponseWriter, userID string) error {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// CurrentUser returns the signed-in user id carried by the request, if any.
// A missing, malformed, tampered, or expired cookie is simply "not signed in".
func (m *Manager) CurrentUser(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(cookie.Value, &claims,
		func(t *jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// SignOut clears the session cookie on the response.
func (m *Manager) SignOut(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
