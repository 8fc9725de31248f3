package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"agrimarket/internal/domain"
	"agrimarket/internal/storage"
)

// PriceChangeStore implements storage.PriceChangeStore using PostgreSQL.
type PriceChangeStore struct {
	pool *Pool
}

// NewPriceChangeStore creates a new PriceChangeStore.
func NewPriceChangeStore(pool *Pool) *PriceChangeStore {
	return &PriceChangeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PriceChangeStore = (*PriceChangeStore)(nil)

const priceChangeColumns = `
	id, commodity, category, market, market_type, location,
	yesterday_price, today_price, change_amount, change_percentage,
	trend, significant_change, change_date
`

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *PriceChangeStore) InsertBulk(ctx context.Context, records []*domain.PriceChangeRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if r == nil || r.ID == "" || r.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO price_changes (` + priceChangeColumns + `) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13
		)
	`

	for _, r := range records {
		_, err := tx.Exec(ctx, query,
			r.ID, r.Commodity, r.Category, r.Market, r.MarketType, r.Location,
			r.YesterdayPrice, r.TodayPrice, r.ChangeAmount, r.ChangePercentage,
			string(r.Trend), r.SignificantChange, domain.TruncateDay(r.Date),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert price change in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
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
		args = append(args, domain.TruncateDay(filter.Date))
		conds = append(conds, fmt.Sprintf("change_date = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("lower(category) = lower($%d)", len(args)))
	}
	if filter.MarketType != "" {
		args = append(args, filter.MarketType)
		conds = append(conds, fmt.Sprintf("lower(market_type) = lower($%d)", len(args)))
	}

	query := `SELECT ` + priceChangeColumns + ` FROM price_changes`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY change_date DESC, commodity ASC, market ASC, id ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query price changes: %w", err)
	}
	defer rows.Close()

	return scanPriceChanges(rows)
}

// LatestDate returns the most recent record date. Returns ErrNotFound if empty.
func (s *PriceChangeStore) LatestDate(ctx context.Context) (time.Time, error) {
	var latest time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT change_date FROM price_changes
		ORDER BY change_date DESC
		LIMIT 1
	`).Scan(&latest)
	if err != nil {
		if isNotFoundError(err) {
			return time.Time{}, storage.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("query latest date: %w", err)
	}
	return domain.TruncateDay(latest), nil
}

// DistinctDates returns up to limit distinct dates, most recent first.
func (s *PriceChangeStore) DistinctDates(ctx context.Context, limit int) ([]time.Time, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT change_date FROM price_changes
		ORDER BY change_date DESC
		LIMIT $1
	`, limit)
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
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT btrim(category) AS c FROM price_changes
		WHERE btrim(category) <> ''
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

// scanPriceChanges scans multiple rows.
func scanPriceChanges(rows pgx.Rows) ([]*domain.PriceChangeRecord, error) {
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
