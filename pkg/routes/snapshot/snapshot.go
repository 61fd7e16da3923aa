package snapshot

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/tendril/pkg/reconcile"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

var validate = validator.New()

// Handler accepts marketplace snapshots and reconciles them into the ledger
type Handler struct {
	reconciler *reconcile.Reconciler
}

// NewHandler creates a snapshot handler
func NewHandler(reconciler *reconcile.Reconciler) *Handler {
	return &Handler{reconciler: reconciler}
}

// Register registers snapshot routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("/reconcile", h.Reconcile)
}

// ReconcileRequest is one full marketplace snapshot
type ReconcileRequest struct {
	Items []SnapshotItemRequest `json:"items" validate:"required,min=1,dive"`
}

// SnapshotItemRequest is one observed product in the snapshot
type SnapshotItemRequest struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Price int64  `json:"price" validate:"gte=0"`
}

// Reconcile applies a snapshot to the ledger and returns the diff report
func (h *Handler) Reconcile(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "snapshot_handler.Reconcile")
	defer span.End()

	var req ReconcileRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	items := make([]reconcile.SnapshotItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = reconcile.SnapshotItem{
			ID:    item.ID,
			Name:  item.Name,
			Price: item.Price,
		}
	}

	report, err := h.reconciler.Reconcile(ctx, items)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, report)
}
