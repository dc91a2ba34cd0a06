// Package api exposes tracking management over HTTP. Authentication is
// out of scope; callers identify themselves with the X-User-ID header set
// by the gateway in front of this service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efsitax/alertify/internal/models"
	"github.com/efsitax/alertify/internal/tracking"
)

// TrackingService is the slice of the tracking service the handlers use.
type TrackingService interface {
	CreateTracking(ctx context.Context, userID uuid.UUID, url string, targetPrice decimal.Decimal) (*models.TrackedProduct, error)
	ListTrackings(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.TrackedProduct, error)
	UpdateTargetPrice(ctx context.Context, userID, productID uuid.UUID, targetPrice decimal.Decimal) (*models.TrackedProduct, error)
	DeleteTracking(ctx context.Context, userID, productID uuid.UUID) error
	GetPriceHistory(ctx context.Context, userID, productID uuid.UUID, limit int) ([]models.PriceHistory, error)
}

type Handlers struct {
	service TrackingService
	logger  *slog.Logger
}

func NewHandlers(service TrackingService, logger *slog.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  logger.With("component", "api"),
	}
}

// Routes mounts the tracking endpoints on a chi router.
func (h *Handlers) Routes(r chi.Router) {
	r.Route("/api/v1/tracking", func(r chi.Router) {
		r.Post("/", h.CreateTracking)
		r.Get("/", h.ListTrackings)
		r.Patch("/{trackingID}", h.UpdateTracking)
		r.Delete("/{trackingID}", h.DeleteTracking)
		r.Get("/{trackingID}/history", h.GetPriceHistory)
	})
}

type CreateTrackingRequest struct {
	URL         string          `json:"url"`
	TargetPrice decimal.Decimal `json:"target_price"`
}

type UpdateTrackingRequest struct {
	TargetPrice decimal.Decimal `json:"target_price"`
}

func (h *Handlers) CreateTracking(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req CreateTrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	product, err := h.service.CreateTracking(r.Context(), userID, req.URL, req.TargetPrice)
	if err != nil {
		h.respondServiceError(w, err, "failed to create tracking")
		return
	}

	h.respondJSON(w, http.StatusCreated, product)
}

func (h *Handlers) ListTrackings(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	products, err := h.service.ListTrackings(r.Context(), userID, limit, offset)
	if err != nil {
		h.respondServiceError(w, err, "failed to list trackings")
		return
	}
	if products == nil {
		products = []*models.TrackedProduct{}
	}

	h.respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) UpdateTracking(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	trackingID, ok := h.trackingID(w, r)
	if !ok {
		return
	}

	var req UpdateTrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.service.UpdateTargetPrice(r.Context(), userID, trackingID, req.TargetPrice)
	if err != nil {
		h.respondServiceError(w, err, "failed to update tracking")
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) DeleteTracking(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	trackingID, ok := h.trackingID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteTracking(r.Context(), userID, trackingID); err != nil {
		h.respondServiceError(w, err, "failed to delete tracking")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	trackingID, ok := h.trackingID(w, r)
	if !ok {
		return
	}

	history, err := h.service.GetPriceHistory(r.Context(), userID, trackingID, queryInt(r, "limit", 100))
	if err != nil {
		h.respondServiceError(w, err, "failed to get price history")
		return
	}
	if history == nil {
		history = []models.PriceHistory{}
	}

	h.respondJSON(w, http.StatusOK, history)
}

func (h *Handlers) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		h.respondError(w, http.StatusUnauthorized, "X-User-ID header is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "X-User-ID must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handlers) trackingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "trackingID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "tracking ID must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handlers) respondServiceError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, tracking.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "tracking not found")
	case errors.Is(err, tracking.ErrForbidden):
		h.respondError(w, http.StatusForbidden, "tracking belongs to another user")
	case errors.Is(err, tracking.ErrDuplicate):
		h.respondError(w, http.StatusConflict, "url is already tracked")
	default:
		h.logger.Error(logMsg, "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return n
}
