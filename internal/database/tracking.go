package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/efsitax/alertify/internal/models"
)

// TrackingRepository persists tracked products and their price history.
type TrackingRepository struct {
	db *DB
}

func NewTrackingRepository(db *DB) *TrackingRepository {
	return &TrackingRepository{db: db}
}

// Save upserts the product row and appends any history entries in a
// single transaction. History inserts use ON CONFLICT DO NOTHING on the
// entry id, so re-saving a product with already-persisted entries is a
// no-op for those rows.
func (r *TrackingRepository) Save(ctx context.Context, p *models.TrackedProduct) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO tracked_product (
				id, user_id, url, product_name, current_price, in_stock,
				currency, target_price, is_active, last_checked_at, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE SET
				product_name    = EXCLUDED.product_name,
				current_price   = EXCLUDED.current_price,
				in_stock        = EXCLUDED.in_stock,
				currency        = EXCLUDED.currency,
				target_price    = EXCLUDED.target_price,
				is_active       = EXCLUDED.is_active,
				last_checked_at = EXCLUDED.last_checked_at`

		_, err := tx.Exec(ctx, query,
			p.ID, p.UserID, p.URL, p.ProductName, p.CurrentPrice, p.InStock,
			p.Currency, p.TargetPrice, p.Active, p.LastCheckedAt, p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert tracked product: %w", err)
		}

		for _, h := range p.PriceHistory {
			_, err := tx.Exec(ctx, `
				INSERT INTO price_history (id, product_id, price, detected_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO NOTHING`,
				h.ID, p.ID, h.Price, h.DetectedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert price history: %w", err)
			}
		}

		return nil
	})
}

// FindDueForScan returns up to limit active products whose last check is
// missing or older than threshold. No ordering guarantee.
func (r *TrackingRepository) FindDueForScan(ctx context.Context, threshold time.Time, limit int) ([]*models.TrackedProduct, error) {
	query := `
		SELECT id, user_id, url, product_name, current_price, in_stock,
		       currency, target_price, is_active, last_checked_at, created_at
		FROM tracked_product
		WHERE is_active
		  AND (last_checked_at IS NULL OR last_checked_at < $1)
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *TrackingRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.TrackedProduct, error) {
	query := `
		SELECT id, user_id, url, product_name, current_price, in_stock,
		       currency, target_price, is_active, last_checked_at, created_at
		FROM tracked_product
		WHERE id = $1`

	p := &models.TrackedProduct{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.UserID, &p.URL, &p.ProductName, &p.CurrentPrice, &p.InStock,
		&p.Currency, &p.TargetPrice, &p.Active, &p.LastCheckedAt, &p.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tracked product: %w", err)
	}

	return p, nil
}

func (r *TrackingRepository) FindAllByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.TrackedProduct, error) {
	query := `
		SELECT id, user_id, url, product_name, current_price, in_stock,
		       currency, target_price, is_active, last_checked_at, created_at
		FROM tracked_product
		WHERE user_id = $1 AND is_active
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query user products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// ExistsActiveByUserAndURL backs the duplicate-tracking check on create.
func (r *TrackingRepository) ExistsActiveByUserAndURL(ctx context.Context, userID uuid.UUID, url string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM tracked_product
			WHERE user_id = $1 AND url = $2 AND is_active
		)`, userID, url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existing tracking: %w", err)
	}
	return exists, nil
}

func (r *TrackingRepository) FindPriceHistory(ctx context.Context, productID uuid.UUID, limit int) ([]models.PriceHistory, error) {
	query := `
		SELECT id, product_id, price, detected_at
		FROM price_history
		WHERE product_id = $1
		ORDER BY detected_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var history []models.PriceHistory
	for rows.Next() {
		var h models.PriceHistory
		if err := rows.Scan(&h.ID, &h.ProductID, &h.Price, &h.DetectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price history: %w", err)
		}
		history = append(history, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return history, nil
}

func scanProducts(rows pgx.Rows) ([]*models.TrackedProduct, error) {
	var products []*models.TrackedProduct
	for rows.Next() {
		p := &models.TrackedProduct{}
		err := rows.Scan(
			&p.ID, &p.UserID, &p.URL, &p.ProductName, &p.CurrentPrice, &p.InStock,
			&p.Currency, &p.TargetPrice, &p.Active, &p.LastCheckedAt, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, nil
}
