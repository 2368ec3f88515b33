// Package session issues anonymous cart session tokens and captures the
// prior anonymous token when a request arrives authenticated, so the merge
// endpoint knows which cart to fold in.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/anbanon/verdana/internal/domain"
)

const (
	// CookieName carries the anonymous cart session token.
	CookieName = "cart_session"

	// PriorCookieName preserves the anonymous token across login so the
	// merge can still find the anonymous cart.
	PriorCookieName = "cart_session_prior"

	// UserHeader is set by the authentication edge for logged-in requests.
	UserHeader = "X-User-ID"

	identityKey = "session.identity"
	cookieAge   = 30 * 24 * time.Hour
)

// GenerateToken generates a cryptographically secure cart session token.
// Uses 32 bytes of random data encoded as a base64 URL-safe string.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Manager is the echo middleware that resolves a request identity.
type Manager struct {
	secure bool
}

// NewManager creates a session manager. secure controls the cookie Secure
// flag and should be true everywhere TLS terminates in front of the app.
func NewManager(secure bool) *Manager {
	return &Manager{secure: secure}
}

// Middleware attaches a domain.Identity to every request.
//
// Anonymous requests get a cart session cookie on first contact. When a
// request arrives authenticated while an anonymous cookie is still present,
// the anonymous token is moved into the prior-token cookie; the merge
// endpoint consumes it from there.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var token string
			if cookie, err := c.Cookie(CookieName); err == nil {
				token = cookie.Value
			}

			if userID, err := uuid.Parse(c.Request().Header.Get(UserHeader)); err == nil {
				if token != "" {
					m.setCookie(c, PriorCookieName, token, cookieAge)
					m.setCookie(c, CookieName, "", -time.Hour)
				}
				c.Set(identityKey, domain.UserIdentity(userID))
				return next(c)
			}

			if token == "" {
				var err error
				token, err = GenerateToken()
				if err != nil {
					return err
				}
				m.setCookie(c, CookieName, token, cookieAge)
			}
			c.Set(identityKey, domain.SessionIdentity(token))
			return next(c)
		}
	}
}

func (m *Manager) setCookie(c echo.Context, name, value string, maxAge time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Identity returns the identity the middleware attached to the request.
func Identity(c echo.Context) domain.Identity {
	if id, ok := c.Get(identityKey).(domain.Identity); ok {
		return id
	}
	return domain.Identity{}
}

// PriorToken returns the preserved anonymous token, if any.
func PriorToken(c echo.Context) string {
	if cookie, err := c.Cookie(PriorCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// ClearPriorToken expires the prior-token cookie once the merge has run.
func (m *Manager) ClearPriorToken(c echo.Context) {
	m.setCookie(c, PriorCookieName, "", -time.Hour)
}
