package stock

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/platform/httpx"
)

// Handler exposes stock queries over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountRoutes attaches stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/onhand/{sku}", h.OnHand)
	r.Get("/movements/{id}", h.GetMovement)
}

// OnHand returns the derived on-hand row for one sku.
func (h *Handler) OnHand(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")
	row, err := h.service.OnHand(r.Context(), sku)
	if err != nil {
		h.logger.Error("onhand query", slog.String("sku", sku), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}

// GetMovement returns one movement by id.
func (h *Handler) GetMovement(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid movement id")
		return
	}
	mv, err := h.service.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("get movement", slog.Int64("id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, toMovementResponse(mv))
}
