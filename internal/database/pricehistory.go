package database

import (
	"context"
	"fmt"

	"github.com/dealradar/deal-aggregator/internal/models"
)

// AppendPriceHistory records one observed price point for a product.
// Every successful scrape appends, so the series carries one entry per
// observation rather than per price change.
func (db *DB) AppendPriceHistory(ctx context.Context, deal *models.Deal) error {
	_, err := db.Exec(ctx, `
		INSERT INTO price_history (product_id, title, url, price)
		VALUES ($1, $2, $3, $4)`, deal.ProductID, deal.Title, deal.URL, deal.Price)
	if err != nil {
		return fmt.Errorf("failed to append price history: %w", err)
	}
	return nil
}

// PriceHistoryFor returns the most recent price points for a product,
// newest first, capped at limit.
func (db *DB) PriceHistoryFor(ctx context.Context, productID string, limit int) ([]models.PricePoint, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := db.Query(ctx, `
		SELECT product_id, title, url, price, recorded_at
		FROM price_history
		WHERE product_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2`, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var points []models.PricePoint
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.ProductID, &p.Title, &p.URL, &p.Price, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
