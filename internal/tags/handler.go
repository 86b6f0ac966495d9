package tags

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/promptvault/promptvault/internal/apperror"
	"github.com/promptvault/promptvault/internal/auth"
)

// Handler handles HTTP requests for the tag catalog. Handlers are thin:
// they bind the request, call the service, and write the response.
type Handler struct {
	service TagService
}

// NewHandler creates a new tags handler with the given service.
func NewHandler(service TagService) *Handler {
	return &Handler{service: service}
}

// List returns the tags visible to the caller (GET /api/tags).
// Works for anonymous callers, who see only public tags.
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

// Create adds a new tag owned by the caller (POST /api/tags).
// Requires authentication.
func (h *Handler) Create(c echo.Context) error {
	var req CreateTagRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	tag, err := h.service.Create(c.Request().Context(), auth.GetUserID(c), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, tag)
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
