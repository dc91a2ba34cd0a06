package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efsitax/alertify/internal/models"
	"github.com/efsitax/alertify/internal/tracking"
)

type stubService struct {
	created    *models.TrackedProduct
	createErr  error
	listed     []*models.TrackedProduct
	updated    *models.TrackedProduct
	updateErr  error
	deleteErr  error
	history    []models.PriceHistory
	historyErr error

	lastUserID uuid.UUID
	lastURL    string
}

func (s *stubService) CreateTracking(ctx context.Context, userID uuid.UUID, url string, targetPrice decimal.Decimal) (*models.TrackedProduct, error) {
	s.lastUserID = userID
	s.lastURL = url
	return s.created, s.createErr
}

func (s *stubService) ListTrackings(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.TrackedProduct, error) {
	s.lastUserID = userID
	return s.listed, nil
}

func (s *stubService) UpdateTargetPrice(ctx context.Context, userID, productID uuid.UUID, targetPrice decimal.Decimal) (*models.TrackedProduct, error) {
	return s.updated, s.updateErr
}

func (s *stubService) DeleteTracking(ctx context.Context, userID, productID uuid.UUID) error {
	return s.deleteErr
}

func (s *stubService) GetPriceHistory(ctx context.Context, userID, productID uuid.UUID, limit int) ([]models.PriceHistory, error) {
	return s.history, s.historyErr
}

func newTestRouter(service TrackingService) *chi.Mux {
	handlers := NewHandlers(service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	handlers.Routes(r)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateTracking(t *testing.T) {
	product := &models.TrackedProduct{ID: uuid.New(), URL: "https://www.trendyol.com/urun-p-1", Active: true}
	service := &stubService{created: product}
	router := newTestRouter(service)

	userID := uuid.New()
	rec := doRequest(t, router, http.MethodPost, "/api/v1/tracking/", userID.String(), CreateTrackingRequest{
		URL:         "https://www.trendyol.com/urun-p-1",
		TargetPrice: decimal.RequireFromString("500"),
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, userID, service.lastUserID)
	assert.Equal(t, "https://www.trendyol.com/urun-p-1", service.lastURL)

	var got models.TrackedProduct
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, product.ID, got.ID)
}

func TestCreateTrackingValidation(t *testing.T) {
	router := newTestRouter(&stubService{})

	t.Run("missing user header", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/v1/tracking/", "", CreateTrackingRequest{URL: "x"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed user header", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/v1/tracking/", "not-a-uuid", CreateTrackingRequest{URL: "x"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing url", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/v1/tracking/", uuid.NewString(), CreateTrackingRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCreateTrackingDuplicate(t *testing.T) {
	router := newTestRouter(&stubService{createErr: tracking.ErrDuplicate})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/tracking/", uuid.NewString(), CreateTrackingRequest{
		URL: "https://www.trendyol.com/urun-p-1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListTrackings(t *testing.T) {
	t.Run("returns products", func(t *testing.T) {
		router := newTestRouter(&stubService{listed: []*models.TrackedProduct{
			{ID: uuid.New(), Active: true},
			{ID: uuid.New(), Active: true},
		}})

		rec := doRequest(t, router, http.MethodGet, "/api/v1/tracking/", uuid.NewString(), nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var got []models.TrackedProduct
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Len(t, got, 2)
	})

	t.Run("empty list is a json array, not null", func(t *testing.T) {
		router := newTestRouter(&stubService{})

		rec := doRequest(t, router, http.MethodGet, "/api/v1/tracking/", uuid.NewString(), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})
}

func TestUpdateTracking(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, http.StatusOK},
		{"not found", tracking.ErrNotFound, http.StatusNotFound},
		{"wrong owner", tracking.ErrForbidden, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &stubService{updated: &models.TrackedProduct{ID: uuid.New()}, updateErr: tt.err}
			router := newTestRouter(service)

			rec := doRequest(t, router, http.MethodPatch,
				"/api/v1/tracking/"+uuid.NewString(), uuid.NewString(),
				UpdateTrackingRequest{TargetPrice: decimal.RequireFromString("99")})
			assert.Equal(t, tt.expected, rec.Code)
		})
	}

	t.Run("malformed tracking id", func(t *testing.T) {
		router := newTestRouter(&stubService{})
		rec := doRequest(t, router, http.MethodPatch,
			"/api/v1/tracking/not-a-uuid", uuid.NewString(), UpdateTrackingRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDeleteTracking(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router := newTestRouter(&stubService{})
		rec := doRequest(t, router, http.MethodDelete,
			"/api/v1/tracking/"+uuid.NewString(), uuid.NewString(), nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		router := newTestRouter(&stubService{deleteErr: tracking.ErrNotFound})
		rec := doRequest(t, router, http.MethodDelete,
			"/api/v1/tracking/"+uuid.NewString(), uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetPriceHistory(t *testing.T) {
	history := []models.PriceHistory{
		{ID: uuid.New(), Price: decimal.RequireFromString("100")},
		{ID: uuid.New(), Price: decimal.RequireFromString("90")},
	}
	router := newTestRouter(&stubService{history: history})

	rec := doRequest(t, router, http.MethodGet,
		"/api/v1/tracking/"+uuid.NewString()+"/history", uuid.NewString(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var got []models.PriceHistory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}
