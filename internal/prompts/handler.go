package prompts

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/promptvault/promptvault/internal/apperror"
	"github.com/promptvault/promptvault/internal/auth"
)

// Handler handles HTTP requests for prompts. Handlers are thin: they bind
// the request, call the service, and write the response.
type Handler struct {
	service PromptService
}

// NewHandler creates a new prompts handler with the given service.
func NewHandler(service PromptService) *Handler {
	return &Handler{service: service}
}

// List returns a page of prompts visible to the caller (GET /api/prompts).
// Works for anonymous callers, who see only public prompts.
func (h *Handler) List(c echo.Context) error {
	opts := ListOptions{
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
		Search: c.QueryParam("search"),
	}

	result, err := h.service.List(c.Request().Context(), auth.GetUserID(c), opts)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Create adds a new prompt owned by the caller (POST /api/prompts).
func (h *Handler) Create(c echo.Context) error {
	var req CreatePromptRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	prompt, err := h.service.Create(c.Request().Context(), auth.GetUserID(c), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, prompt)
}

// Update rewrites a prompt the caller owns (PUT /api/prompts/:id).
func (h *Handler) Update(c echo.Context) error {
	var req UpdatePromptRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	prompt, err := h.service.Update(c.Request().Context(), auth.GetUserID(c), c.Param("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, prompt)
}

// Delete removes a prompt the caller owns (DELETE /api/prompts/:id).
func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), auth.GetUserID(c), c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// queryInt parses an integer query parameter, returning 0 when absent or
// malformed. The service coerces 0 to its defaults.
func queryInt(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return v
}
