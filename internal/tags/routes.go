package tags

import (
	"github.com/labstack/echo/v4"

	"github.com/promptvault/promptvault/internal/auth"
)

// RegisterRoutes sets up the tag catalog routes on the given Echo instance.
// Listing is open to anonymous callers (they see only public tags); creation
// requires a session.
func RegisterRoutes(e *echo.Echo, h *Handler, authService auth.AuthService) {
	g := e.Group("/api/tags")

	g.GET("", h.List, auth.OptionalAuth(authService))
	g.POST("", h.Create, auth.RequireAuth(authService))
}
