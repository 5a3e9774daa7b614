package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shortlink-app/shortlink/internal/models"
)

type ClickTotals struct {
	TotalClicks    int64
	UniqueVisitors int64
}

type ClickRepository interface {
	Insert(ctx context.Context, click *models.Click) error
	CountTotals(ctx context.Context, linkID int64) (*ClickTotals, error)
	CountByDay(ctx context.Context, linkID int64, until time.Time) ([]models.DailyClicks, error)
	CountByDevice(ctx context.Context, linkID int64) (map[string]int64, error)
	TopReferrers(ctx context.Context, linkID int64, limit int) ([]models.ReferrerClicks, error)
	Recent(ctx context.Context, linkID int64, limit int) ([]models.ClickDetail, error)
}

type clickRepository struct {
	db *PostgresDB
}

func NewClickRepository(db *PostgresDB) ClickRepository {
	return &clickRepository{db: db}
}

func (r *clickRepository) Insert(ctx context.Context, click *models.Click) error {
	query := `
		INSERT INTO clicks (link_id, clicked_at, referrer, user_agent_raw, client_address, device_type, browser, os)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		click.LinkID,
		click.Timestamp,
		click.Referrer,
		click.UserAgentRaw,
		click.ClientAddress,
		click.DeviceType,
		click.Browser,
		click.OS,
	)

	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}

	return nil
}

func (r *clickRepository) CountTotals(ctx context.Context, linkID int64) (*ClickTotals, error) {
	// Empty client addresses count towards totals but not towards the
	// unique-visitor approximation.
	query := `
		SELECT
			COUNT(*),
			COUNT(DISTINCT NULLIF(client_address, ''))
		FROM clicks
		WHERE link_id = $1
	`

	totals := &ClickTotals{}
	err := r.db.Pool.QueryRow(ctx, query, linkID).Scan(
		&totals.TotalClicks,
		&totals.UniqueVisitors,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get click totals: %w", err)
	}

	return totals, nil
}

func (r *clickRepository) CountByDay(ctx context.Context, linkID int64, until time.Time) ([]models.DailyClicks, error) {
	query := `
		SELECT
			to_char(clicked_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
			COUNT(*)
		FROM clicks
		WHERE link_id = $1 AND clicked_at <= $2
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, linkID, until)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily clicks: %w", err)
	}
	defer rows.Close()

	var daily []models.DailyClicks
	for rows.Next() {
		var d models.DailyClicks
		if err := rows.Scan(&d.Day, &d.Clicks); err != nil {
			return nil, fmt.Errorf("failed to scan daily clicks: %w", err)
		}
		daily = append(daily, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily clicks: %w", err)
	}

	return daily, nil
}

func (r *clickRepository) CountByDevice(ctx context.Context, linkID int64) (map[string]int64, error) {
	query := `
		SELECT device_type, COUNT(*)
		FROM clicks
		WHERE link_id = $1
		GROUP BY device_type
	`

	rows, err := r.db.Pool.Query(ctx, query, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device breakdown: %w", err)
	}
	defer rows.Close()

	breakdown := make(map[string]int64)
	for rows.Next() {
		var device string
		var count int64
		if err := rows.Scan(&device, &count); err != nil {
			return nil, fmt.Errorf("failed to scan device breakdown: %w", err)
		}
		breakdown[device] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device breakdown: %w", err)
	}

	return breakdown, nil
}

func (r *clickRepository) TopReferrers(ctx context.Context, linkID int64, limit int) ([]models.ReferrerClicks, error) {
	// Ties are broken by first-seen order: MIN(id) is insertion order
	// under the single click id sequence.
	query := `
		SELECT
			COALESCE(NULLIF(referrer, ''), 'direct') AS ref,
			COUNT(*) AS clicks,
			MIN(id) AS first_seen
		FROM clicks
		WHERE link_id = $1
		GROUP BY ref
		ORDER BY clicks DESC, first_seen ASC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, linkID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top referrers: %w", err)
	}
	defer rows.Close()

	var referrers []models.ReferrerClicks
	for rows.Next() {
		var ref models.ReferrerClicks
		var firstSeen int64
		if err := rows.Scan(&ref.Referrer, &ref.Clicks, &firstSeen); err != nil {
			return nil, fmt.Errorf("failed to scan referrer: %w", err)
		}
		referrers = append(referrers, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating referrers: %w", err)
	}

	return referrers, nil
}

func (r *clickRepository) Recent(ctx context.Context, linkID int64, limit int) ([]models.ClickDetail, error) {
	query := `
		SELECT clicked_at, referrer, browser, os, device_type
		FROM clicks
		WHERE link_id = $1
		ORDER BY clicked_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, linkID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent clicks: %w", err)
	}
	defer rows.Close()

	var recent []models.ClickDetail
	for rows.Next() {
		var c models.ClickDetail
		if err := rows.Scan(&c.Timestamp, &c.Referrer, &c.Browser, &c.OS, &c.DeviceType); err != nil {
			return nil, fmt.Errorf("failed to scan recent click: %w", err)
		}
		recent = append(recent, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recent clicks: %w", err)
	}

	return recent, nil
}
