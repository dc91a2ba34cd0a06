// Package tracking owns the lifecycle of tracked products: creating and
// managing trackings, requesting scans on a schedule and applying scrape
// results as they come back.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efsitax/alertify/internal/events"
	"github.com/efsitax/alertify/internal/models"
)

var (
	ErrNotFound  = errors.New("tracking not found")
	ErrForbidden = errors.New("tracking belongs to another user")
	ErrDuplicate = errors.New("url is already tracked by this user")
)

// Store is the persistence port the service needs.
type Store interface {
	Save(ctx context.Context, p *models.TrackedProduct) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.TrackedProduct, error)
	FindAllByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.TrackedProduct, error)
	FindDueForScan(ctx context.Context, threshold time.Time, limit int) ([]*models.TrackedProduct, error)
	ExistsActiveByUserAndURL(ctx context.Context, userID uuid.UUID, url string) (bool, error)
	FindPriceHistory(ctx context.Context, productID uuid.UUID, limit int) ([]models.PriceHistory, error)
}

// Publisher emits scrape requests toward the worker side.
type Publisher interface {
	Publish(ctx context.Context, stream, eventType string, payload any) error
}

type Service struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

func NewService(store Store, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger.With("component", "tracking_service"),
	}
}

// CreateTracking registers a new tracked product and requests an initial
// scrape. The initial request is best effort: the scheduler will pick the
// product up anyway since its last check is unset.
func (s *Service) CreateTracking(ctx context.Context, userID uuid.UUID, url string, targetPrice decimal.Decimal) (*models.TrackedProduct, error) {
	exists, err := s.store.ExistsActiveByUserAndURL(ctx, userID, url)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate tracking: %w", err)
	}
	if exists {
		return nil, ErrDuplicate
	}

	product := &models.TrackedProduct{
		ID:          uuid.New(),
		UserID:      userID,
		URL:         url,
		TargetPrice: targetPrice,
		Currency:    "TRY",
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.Save(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to save tracking: %w", err)
	}

	request := events.ScrapeRequest{ProductID: product.ID, URL: product.URL}
	if err := s.publisher.Publish(ctx, events.StreamScrapeRequests, events.TypeScrapeRequested, request); err != nil {
		s.logger.Warn("failed to request initial scrape, scheduler will retry",
			"product_id", product.ID, "error", err)
	}

	s.logger.Info("tracking created", "product_id", product.ID, "user_id", userID, "url", url)
	return product, nil
}

func (s *Service) ListTrackings(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.TrackedProduct, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.FindAllByUser(ctx, userID, limit, offset)
}

// UpdateTargetPrice changes the alert threshold on an existing tracking.
func (s *Service) UpdateTargetPrice(ctx context.Context, userID, productID uuid.UUID, targetPrice decimal.Decimal) (*models.TrackedProduct, error) {
	product, err := s.ownedProduct(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	product.TargetPrice = targetPrice
	if err := s.store.Save(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update tracking: %w", err)
	}

	return product, nil
}

// DeleteTracking deactivates a tracking. History is kept.
func (s *Service) DeleteTracking(ctx context.Context, userID, productID uuid.UUID) error {
	product, err := s.ownedProduct(ctx, userID, productID)
	if err != nil {
		return err
	}

	product.Active = false
	if err := s.store.Save(ctx, product); err != nil {
		return fmt.Errorf("failed to deactivate tracking: %w", err)
	}

	s.logger.Info("tracking deactivated", "product_id", productID, "user_id", userID)
	return nil
}

func (s *Service) GetPriceHistory(ctx context.Context, userID, productID uuid.UUID, limit int) ([]models.PriceHistory, error) {
	if _, err := s.ownedProduct(ctx, userID, productID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.FindPriceHistory(ctx, productID, limit)
}

// HandleScrapeResult applies one completed scrape to the tracked product.
// Results for unknown or deactivated products are skipped, not failed:
// the tracking may have been deleted while the scrape was in flight.
func (s *Service) HandleScrapeResult(ctx context.Context, result events.PriceScrapeCompleted) (bool, error) {
	product, err := s.store.FindByID(ctx, result.ProductID)
	if err != nil {
		return false, fmt.Errorf("failed to load product for result: %w", err)
	}
	if product == nil || !product.Active {
		s.logger.Warn("discarding result for unknown or inactive product",
			"product_id", result.ProductID)
		return false, nil
	}

	updated := product.WithObservation(
		result.ProductName, result.Price, result.InStock, result.Currency, result.CheckedAt,
	)
	if err := s.store.Save(ctx, &updated); err != nil {
		return false, fmt.Errorf("failed to apply scrape result: %w", err)
	}

	s.logger.Info("scrape result applied",
		"product_id", product.ID,
		"price", result.Price,
		"in_stock", result.InStock)

	return true, nil
}

func (s *Service) ownedProduct(ctx context.Context, userID, productID uuid.UUID) (*models.TrackedProduct, error) {
	product, err := s.store.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracking: %w", err)
	}
	if product == nil || !product.Active {
		return nil, ErrNotFound
	}
	if product.UserID != userID {
		return nil, ErrForbidden
	}
	return product, nil
}
