package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/labstack/echo/v4"
)

// csrfTokenLength is the number of random bytes in a CSRF token (32 bytes = 64 hex chars).
const csrfTokenLength = 32

// csrfCookieName is the name of the cookie that stores the CSRF token.
const csrfCookieName = "promptvault_csrf"

// csrfHeaderName is the header that clients send the CSRF token in.
const csrfHeaderName = "X-CSRF-Token"

// csrfFormField is the form field name for traditional form submissions.
const csrfFormField = "csrf_token"

// CSRF returns middleware that implements the double-submit cookie pattern
// for CSRF protection on all state-changing requests (POST, PUT, PATCH, DELETE).
//
// How it works:
//  1. On every request, if no CSRF cookie exists, generate one and set it.
//     The cookie is deliberately NOT HttpOnly so frontend JS can read it.
//  2. On mutating requests, compare the cookie value with either:
//     - The X-CSRF-Token header (for fetch/AJAX requests)
//     - The csrf_token form field (for traditional form submissions)
//  3. If they don't match, reject with 403 Forbidden.
//
// A cross-site attacker can make the browser SEND the cookie but cannot READ
// it, so it cannot reproduce the value in a header or field.
func CSRF() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := ensureCSRFCookie(c)

			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				// Safe methods never mutate state; no check needed.
				return next(c)
			}

			submitted := c.Request().Header.Get(csrfHeaderName)
			if submitted == "" {
				submitted = c.FormValue(csrfFormField)
			}

			if submitted == "" ||
				subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1 {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error":   "forbidden",
					"message": "invalid or missing CSRF token",
				})
			}

			return next(c)
		}
	}
}

// GetCSRFToken returns the CSRF token for the current request, generating
// and setting the cookie if it doesn't exist yet. Handlers expose this to
// clients that need to echo it back on mutations.
func GetCSRFToken(c echo.Context) string {
	return ensureCSRFCookie(c)
}

// ensureCSRFCookie returns the existing CSRF cookie value or generates a
// new token and sets the cookie on the response.
func ensureCSRFCookie(c echo.Context) string {
	if cookie, err := c.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	token := generateCSRFToken()
	c.SetCookie(&http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false, // must be readable by frontend JS
		SameSite: http.SameSiteLaxMode,
		Secure:   c.Scheme() == "https",
	})
	return token
}

// generateCSRFToken creates a cryptographically random hex-encoded token.
func generateCSRFToken() string {
	b := make([]byte, csrfTokenLength)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
