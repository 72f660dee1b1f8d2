package database

import (
	"database/sql"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/trogers1052/crop-price-monitor/internal/daterange"
	"github.com/trogers1052/crop-price-monitor/internal/models"
)

const upsertPriceQuery = `
	INSERT INTO commodity_prices (commodity, location, date, price, source, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (commodity, location, date) DO UPDATE SET
		price = EXCLUDED.price,
		source = EXCLUDED.source
`

// UpsertPrice inserts a price or replaces the stored price for the same day
func (db *DB) UpsertPrice(p *models.StoredPrice) error {
	p.Commodity = normalizeKey(p.Commodity)
	p.Location = normalizeKey(p.Location)

	err := db.conn.QueryRow(upsertPriceQuery+" RETURNING id",
		p.Commodity, p.Location, dateValue(p.Date), p.Price, p.Source, time.Now(),
	).Scan(&p.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert price: %w", err)
	}
	return nil
}

// UpsertPrices writes a batch of prices in one transaction
func (db *DB) UpsertPrices(prices []*models.StoredPrice) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertPriceQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range prices {
		_, err := stmt.Exec(normalizeKey(p.Commodity), normalizeKey(p.Location), dateValue(p.Date), p.Price, p.Source, now)
		if err != nil {
			return fmt.Errorf("failed to upsert price for %s/%s on %s: %w", p.Commodity, p.Location, p.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SavePricePoints stores a fetched series for commodity at location
func (db *DB) SavePricePoints(commodity, location, source string, points []models.PricePoint) error {
	prices := make([]*models.StoredPrice, 0, len(points))
	for _, p := range points {
		prices = append(prices, &models.StoredPrice{
			Commodity: commodity,
			Location:  location,
			Date:      p.Date,
			Price:     p.Price,
			Source:    source,
		})
	}
	return db.UpsertPrices(prices)
}

// GetPriceRange retrieves the stored series within r, ordered by date ascending
func (db *DB) GetPriceRange(commodity, location string, r daterange.Range) ([]models.PricePoint, error) {
	query := `
		SELECT date, price
		FROM commodity_prices
		WHERE commodity = $1 AND location = $2 AND date >= $3 AND date <= $4
		ORDER BY date ASC
	`
	rows, err := db.conn.Query(query, normalizeKey(commodity), normalizeKey(location), dateValue(r.Start), dateValue(r.End))
	if err != nil {
		return nil, fmt.Errorf("failed to get price range: %w", err)
	}
	defer rows.Close()

	var points []models.PricePoint
	for rows.Next() {
		var p models.PricePoint
		var date time.Time
		if err := rows.Scan(&date, &p.Price); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		p.Date = civil.DateOf(date)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prices: %w", err)
	}

	return points, nil
}

// GetLatestPrice retrieves the most recent stored price
func (db *DB) GetLatestPrice(commodity, location string) (*models.StoredPrice, error) {
	query := `
		SELECT id, commodity, location, date, price, source
		FROM commodity_prices
		WHERE commodity = $1 AND location = $2
		ORDER BY date DESC
		LIMIT 1
	`
	var p models.StoredPrice
	var date time.Time

	err := db.conn.QueryRow(query, normalizeKey(commodity), normalizeKey(location)).Scan(
		&p.ID, &p.Commodity, &p.Location, &date, &p.Price, &p.Source,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no price for %s/%s", ErrNotFound, commodity, location)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}

	p.Date = civil.DateOf(date)
	return &p, nil
}

// DeletePricesOlderThan removes prices dated before the given day
func (db *DB) DeletePricesOlderThan(date civil.Date) (int64, error) {
	query := `DELETE FROM commodity_prices WHERE date < $1`
	result, err := db.conn.Exec(query, dateValue(date))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old prices: %w", err)
	}
	return result.RowsAffected()
}

func dateValue(d civil.Date) time.Time {
	return d.In(time.UTC)
}
