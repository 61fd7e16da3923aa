package ledger

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/tendril/internal/repositories/ledger"
	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// Handler serves read access to the product ledger
type Handler struct {
	repo *ledger.Repository
}

// NewHandler creates a ledger handler
func NewHandler(repo *ledger.Repository) *Handler {
	return &Handler{repo: repo}
}

// Register registers ledger routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/prices", h.PriceHistory)
}

// List returns ledger entries, optionally filtered by status
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "ledger_handler.List")
	defer span.End()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 100
	}

	statusParam := c.QueryParam("status")
	if statusParam == "" {
		entries, err := h.repo.GetAll(ctx)
		if err != nil {
			return err
		}
		if len(entries) > limit {
			entries = entries[:limit]
		}
		return c.JSON(http.StatusOK, entries)
	}

	status := models.LedgerStatus(statusParam)
	switch status {
	case models.LedgerStatusNew, models.LedgerStatusActive, models.LedgerStatusMissing:
	default:
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	entries, err := h.repo.ListByStatus(ctx, status, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entries)
}

// Get returns one ledger entry by canonical id
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "ledger_handler.Get")
	defer span.End()

	entry, err := h.repo.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entry)
}

// PriceHistory returns recorded price points for a ledger entry
func (h *Handler) PriceHistory(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "ledger_handler.PriceHistory")
	defer span.End()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 100
	}

	points, err := h.repo.ListPriceHistory(ctx, c.Param("id"), limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, points)
}
