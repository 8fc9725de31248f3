package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agrimarket/internal/domain"
	"agrimarket/internal/storage"
)

// PriceChangeStore implements storage.PriceChangeStore using ClickHouse.
// The table is a ReplacingMergeTree, so reads use FINAL.
type PriceChangeStore struct {
	conn *Conn
}

// NewPriceChangeStore creates a new PriceChangeStore.
func NewPriceChangeStore(conn *Conn) *PriceChangeStore {
	return &PriceChangeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceChangeStore = (*PriceChangeStore)(nil)

const priceChangeColumns = `
	id, commodity, category, market, market_type, location,
	yesterday_price, today_price, change_amount, change_percentage,
	trend, significant_change, change_date
`

// InsertBulk adds multiple records. Fails entire batch on duplicate ID.
func (s *PriceChangeStore) InsertBulk(ctx context.Context, records []*domain.PriceChangeRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.ID == "" || r.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[r.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[r.ID] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, r := range records {
		exists, err := s.exists(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO price_changes (`+priceChangeColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			r.ID, r.Commodity, r.Category, r.Market, r.MarketType, r.Location,
			r.YesterdayPrice, r.TodayPrice, r.ChangeAmount, r.ChangePercentage,
			string(r.Trend), r.SignificantChange, domain.TruncateDay(r.Date),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByFilter retrieves matching records ordered by date DESC, commodity ASC, market ASC.
func (s *PriceChangeStore) GetByFilter(ctx context.Context, filter storage.PriceChangeFilter) ([]*domain.PriceChangeRecord, error) {
	var (
		conds []string
		args  []any
	)
	if !filter.Date.IsZero() {
		conds = append(conds, "change_date = ?")
		args = append(args, domain.TruncateDay(filter.Date))
	}
	if filter.Category != "" {
		conds = append(conds, "lower(category) = lower(?)")
		args = append(args, filter.Category)
	}
	if filter.MarketType != "" {
		conds = append(conds, "lower(market_type) = lower(?)")
		args = append(args, filter.MarketType)
	}

	query := `SELECT ` + priceChangeColumns + ` FROM price_changes FINAL`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY change_date DESC, commodity ASC, market ASC, id ASC"

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query price changes: %w", err)
	}
	defer rows.Close()

	return scanPriceChanges(rows)
}

// LatestDate returns the most recent record date. Returns ErrNotFound if empty.
func (s *PriceChangeStore) LatestDate(ctx context.Context) (time.Time, error) {
	var (
		count  uint64
		latest time.Time
	)
	err := s.conn.QueryRow(ctx, `
		SELECT count(), max(change_date) FROM price_changes
	`).Scan(&count, &latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("query latest date: %w", err)
	}
	if count == 0 {
		return time.Time{}, storage.ErrNotFound
	}
	return domain.TruncateDay(latest), nil
}

// DistinctDates returns up to limit distinct dates, most recent first.
func (s *PriceChangeStore) DistinctDates(ctx context.Context, limit int) ([]time.Time, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	rows, err := s.conn.Query(ctx, `
		SELECT DISTINCT change_date FROM price_changes
		ORDER BY change_date DESC
		LIMIT ?
	`, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query distinct dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, domain.TruncateDay(d))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dates: %w", err)
	}
	return dates, nil
}

// DistinctCategories returns distinct non-blank categories in ascending order.
func (s *PriceChangeStore) DistinctCategories(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT DISTINCT trim(BOTH ' ' FROM category) AS c FROM price_changes
		WHERE c != ''
		ORDER BY c ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query distinct categories: %w", err)
	}
	defer rows.Close()

	cats := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return cats, nil
}

// exists checks if a record with the given ID exists.
func (s *PriceChangeStore) exists(ctx context.Context, id string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count() FROM price_changes WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows abstracts driver.Rows for scanning.
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanPriceChanges scans multiple rows.
func scanPriceChanges(rows chRows) ([]*domain.PriceChangeRecord, error) {
	var records []*domain.PriceChangeRecord

	for rows.Next() {
		var r domain.PriceChangeRecord
		var trend string

		err := rows.Scan(
			&r.ID, &r.Commodity, &r.Category, &r.Market, &r.MarketType, &r.Location,
			&r.YesterdayPrice, &r.TodayPrice, &r.ChangeAmount, &r.ChangePercentage,
			&trend, &r.SignificantChange, &r.Date,
		)
		if err != nil {
			return nil, fmt.Errorf("scan price change row: %w", err)
		}

		r.Trend = domain.PriceTrend(trend)
		r.Date = domain.TruncateDay(r.Date)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price change rows: %w", err)
	}

	return records, nil
}
