package prompts

import (
	"github.com/labstack/echo/v4"

	"github.com/promptvault/promptvault/internal/auth"
)

// RegisterRoutes sets up the prompt routes on the given Echo instance.
// Listing is open to anonymous callers; every mutation requires a session.
func RegisterRoutes(e *echo.Echo, h *Handler, authService auth.AuthService) {
	g := e.Group("/api/prompts")

	g.GET("", h.List, auth.OptionalAuth(authService))

	g.POST("", h.Create, auth.RequireAuth(authService))
	g.PUT("/:id", h.Update, auth.RequireAuth(authService))
	g.DELETE("/:id", h.Delete, auth.RequireAuth(authService))
}
