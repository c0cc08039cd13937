package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

// sessionCookieName is the cookie carrying the session token for browser
// clients. API clients may send the same token as a Bearer header instead.
const sessionCookieName = "eventribe_session"

// contextKeyClaims stores the verified session claims in the Echo context.
// Other plugins read them through GetClaims.
const contextKeyClaims = "auth_claims"

// publicPaths are reachable without a session (exact match).
var publicPaths = map[string]bool{
	"/":                true,
	"/healthz":         true,
	"/login":           true,
	"/register":        true,
	"/forgot-password": true,
	"/reset-password":  true,
	"/verify-email":    true,
}

// publicPrefixes are reachable without a session (prefix match).
var publicPrefixes = []string{
	"/api/auth/",
	"/static/",
	"/media/",
}

// Gate returns the global authorization middleware. Every request passes
// through it: a valid token puts claims in the context, authenticated
// users are bounced off the login and register pages, and anonymous
// requests are allowed only onto the public surface.
func Gate(codec *TokenCodec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractToken(c)
			if token != "" {
				claims, err := codec.Verify(token)
				if err == nil {
					c.Set(contextKeyClaims, claims)

					// An authenticated user has no business on the
					// entry pages; send them to their landing page.
					path := c.Request().URL.Path
					if path == "/login" || path == "/register" {
						if claims.IsAdmin {
							return c.Redirect(http.StatusSeeOther, "/admin")
						}
						return c.Redirect(http.StatusSeeOther, "/events")
					}
					return next(c)
				}
				// Stale or tampered token: clear it and fall through to
				// the anonymous rules.
				clearSessionCookie(c)
			}

			if isPublic(c) {
				return next(c)
			}
			return handleUnauthenticated(c)
		}
	}
}

// RequireSession returns middleware that rejects requests without verified
// claims in the context. Use on routes the Gate lets through as public but
// that still need an identity, or as a second layer behind the Gate.
func RequireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if GetClaims(c) == nil {
				return handleUnauthenticated(c)
			}
			return next(c)
		}
	}
}

// RequireAdmin returns middleware that restricts a route to admin users.
// Must run after the Gate. Non-admins get 403, not a redirect: they are
// authenticated, just not allowed.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := GetClaims(c)
			if claims == nil {
				return handleUnauthenticated(c)
			}
			if !claims.IsAdmin {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error":   "forbidden",
					"message": "admin access required",
				})
			}
			return next(c)
		}
	}
}

// GetClaims retrieves the verified session claims from the Echo context.
// Returns nil for anonymous requests.
func GetClaims(c echo.Context) *Claims {
	claims, ok := c.Get(contextKeyClaims).(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// --- Helpers ---

// extractToken pulls the session token from the cookie or, failing that,
// from a Bearer authorization header.
func extractToken(c echo.Context) string {
	if cookie, err := c.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// isPublic reports whether the request may proceed without a session.
func isPublic(c echo.Context) bool {
	path := c.Request().URL.Path

	if publicPaths[path] {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	// Event browsing is public read-only; registering for one is not.
	if c.Request().Method == http.MethodGet {
		if path == "/events" || strings.HasPrefix(path, "/events/") {
			return true
		}
		if path == "/api/events" || strings.HasPrefix(path, "/api/events/") {
			return true
		}
	}

	return false
}

// handleUnauthenticated returns 401 JSON for API clients and a redirect to
// the login page for browsers, preserving the requested path.
func handleUnauthenticated(c echo.Context) error {
	path := c.Request().URL.Path
	if strings.HasPrefix(path, "/api/") {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error":   "unauthorized",
			"message": "authentication required",
		})
	}
	return c.Redirect(http.StatusSeeOther, "/login?next="+url.QueryEscape(path))
}

// setSessionCookie writes the session token cookie.
func setSessionCookie(c echo.Context, token string, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session token cookie.
func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
