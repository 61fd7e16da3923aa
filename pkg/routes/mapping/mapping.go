package mapping

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/tendril/internal/repositories/mapping"
	"github.com/Ramsey-B/tendril/pkg/normalizers"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// Handler serves read access to the identifier mapping
type Handler struct {
	repo *mapping.Repository
}

// NewHandler creates a mapping handler
func NewHandler(repo *mapping.Repository) *Handler {
	return &Handler{repo: repo}
}

// Register registers mapping routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:name", h.Get)
}

// List returns identifier mappings
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "mapping_handler.List")
	defer span.End()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 100
	}

	mappings, err := h.repo.List(ctx, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, mappings)
}

// Get looks up the mapping for a product name. The name is normalized the
// same way the resolver normalizes it, so callers can pass raw names.
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "mapping_handler.Get")
	defer span.End()

	normalized := normalizers.NormalizeProductName(c.Param("name"))

	m, err := h.repo.Get(ctx, normalized)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, m)
}
