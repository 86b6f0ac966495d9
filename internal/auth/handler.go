package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/promptvault/promptvault/internal/apperror"
	"github.com/promptvault/promptvault/internal/middleware"
)

// sessionCookieName is the HTTP cookie used to store the session token.
const sessionCookieName = "promptvault_session"

// Handler handles HTTP requests for authentication (register, login, logout).
// Handlers are thin: they bind the request, call the service, and write the
// response. No business logic lives here.
type Handler struct {
	service AuthService
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service AuthService) *Handler {
	return &Handler{service: service}
}

// userResponse is the JSON shape returned for the authenticated user.
type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

func newUserResponse(u *User) userResponse {
	resp := userResponse{ID: u.ID, Email: u.Email}
	if u.DisplayName != nil {
		resp.DisplayName = *u.DisplayName
	}
	return resp
}

// Register creates a new account and logs it in (POST /api/auth/register).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	input := RegisterInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	}

	user, err := h.service.Register(c.Request().Context(), input)
	if err != nil {
		return err
	}

	// Auto-login after successful registration so the client doesn't need
	// a second round trip.
	token, _, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		// Registration succeeded but session creation failed. The client
		// can still log in normally.
		return c.JSON(http.StatusCreated, map[string]any{
			"user": newUserResponse(user),
		})
	}

	setSessionCookie(c, token)

	return c.JSON(http.StatusCreated, map[string]any{
		"user":       newUserResponse(user),
		"csrf_token": middleware.GetCSRFToken(c),
	})
}

// Login authenticates a user and sets the session cookie (POST /api/auth/login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	token, user, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	setSessionCookie(c, token)

	return c.JSON(http.StatusOK, map[string]any{
		"user":       newUserResponse(user),
		"csrf_token": middleware.GetCSRFToken(c),
	})
}

// Logout destroys the session and clears the cookie (POST /api/auth/logout).
// Always succeeds, even without a valid session.
func (h *Handler) Logout(c echo.Context) error {
	token := getSessionToken(c)
	if token != "" {
		// Destroy the session in Redis. Ignore errors -- the cookie
		// will be cleared regardless.
		_ = h.service.DestroySession(c.Request().Context(), token)
	}

	clearSessionCookie(c)

	return c.NoContent(http.StatusNoContent)
}

// Me returns the currently authenticated user (GET /api/auth/me).
// Requires the RequireAuth middleware.
func (h *Handler) Me(c echo.Context) error {
	session := GetSession(c)
	if session == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	user, err := h.service.FindUser(c.Request().Context(), session.UserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"user": newUserResponse(user),
	})
}

// --- Cookie helpers ---

// getSessionToken reads the session token from the cookie.
func getSessionToken(c echo.Context) string {
	cookie, err := c.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// setSessionCookie sets the session cookie on the response. The cookie is
// HttpOnly (JS can't read it), Secure if behind TLS, and SameSite=Lax.
func setSessionCookie(c echo.Context, token string) {
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   30 * 24 * 60 * 60, // 30 days in seconds
	})
}

// clearSessionCookie removes the session cookie by setting MaxAge to -1.
func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
