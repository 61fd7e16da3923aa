package match

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/tendril/internal/repositories/matchresult"
	"github.com/Ramsey-B/tendril/internal/repositories/runerror"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// Handler serves read access to match results and run errors
type Handler struct {
	results   *matchresult.Repository
	runErrors *runerror.Repository
}

// NewHandler creates a match handler
func NewHandler(results *matchresult.Repository, runErrors *runerror.Repository) *Handler {
	return &Handler{
		results:   results,
		runErrors: runErrors,
	}
}

// Register registers match routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("/runs/:runID", h.ListByRun)
	g.GET("/runs/:runID/errors", h.ListErrors)
	g.GET("/review", h.ListNeedingReview)
}

// ListByRun returns all match results recorded by one run
func (h *Handler) ListByRun(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "match_handler.ListByRun")
	defer span.End()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 500
	}

	results, err := h.results.ListByRun(ctx, c.Param("runID"), limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, results)
}

// ListErrors returns per-item failures recorded by one run
func (h *Handler) ListErrors(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "match_handler.ListErrors")
	defer span.End()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 500
	}

	errs, err := h.runErrors.ListByRun(ctx, c.Param("runID"), limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, errs)
}

// ListNeedingReview returns the manual review queue
func (h *Handler) ListNeedingReview(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "match_handler.ListNeedingReview")
	defer span.End()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 100
	}

	results, err := h.results.ListNeedingReview(ctx, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, results)
}
