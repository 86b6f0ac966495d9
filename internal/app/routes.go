package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/promptvault/promptvault/internal/auth"
	"github.com/promptvault/promptvault/internal/prompts"
	"github.com/promptvault/promptvault/internal/tags"
)

// RegisterRoutes constructs every repository, service, and handler and sets
// up all application routes. This is the single place where the dependency
// graph is assembled.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Health check endpoint for container orchestration. Verifies both
	// backing stores so a wedged pool fails the probe.
	e.GET("/healthz", a.healthz)

	// --- Auth ---
	userRepo := auth.NewUserRepository(a.DB)
	authService := auth.NewAuthService(userRepo, a.Redis, a.Config.Auth.SessionTTL)
	auth.RegisterRoutes(e, auth.NewHandler(authService), authService)

	// --- Tags ---
	tagRepo := tags.NewTagRepository(a.DB)
	tagService := tags.NewTagService(tagRepo)
	tags.RegisterRoutes(e, tags.NewHandler(tagService), authService)

	// --- Prompts ---
	promptRepo := prompts.NewPromptRepository(a.DB)
	promptService := prompts.NewPromptService(promptRepo, tagRepo)
	prompts.RegisterRoutes(e, prompts.NewHandler(promptService), authService)
}

// healthz reports whether the server and its backing stores are reachable.
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := a.DB.PingContext(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "degraded", "database": "unreachable",
		})
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "degraded", "redis": "unreachable",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
