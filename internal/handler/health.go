package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SergeyBogomolovv/storefront-orders/pkg/utils"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type healthHandler struct {
	logger  *slog.Logger
	db      Pinger
	timeout time.Duration
}

func NewHealthHandler(logger *slog.Logger, db Pinger) *healthHandler {
	return &healthHandler{
		logger:  logger.With(slog.String("handler", "health")),
		db:      db,
		timeout: time.Second,
	}
}

func (h *healthHandler) Init(r chi.Router) {
	r.Get("/healthz", h.Health)
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// Health reports whether the order store is reachable.
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  HealthResponse
// @Router       /healthz [get]
func (h *healthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("store ping failed", slog.Any("error", err))
		utils.WriteJSON(w, HealthResponse{Status: "unavailable"}, http.StatusServiceUnavailable)
		return
	}
	utils.WriteJSON(w, HealthResponse{Status: "ok"}, http.StatusOK)
}
