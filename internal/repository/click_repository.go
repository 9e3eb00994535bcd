package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SergeiKhy/shortlinks/internal/models"
)

type ClickRepository interface {
	RecordClick(ctx context.Context, click *models.Click) error
	ListByLinkSince(ctx context.Context, linkID int64, since time.Time) ([]models.Click, error)
}

type clickRepository struct {
	db *PostgresDB
}

func NewClickRepository(db *PostgresDB) ClickRepository {
	return &clickRepository{db: db}
}

func (r *clickRepository) RecordClick(ctx context.Context, click *models.Click) error {
	query := `
		INSERT INTO clicks (link_id, clicked_at, ip_address, user_agent, referer,
			device_type, browser, os, country, city)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		click.LinkID,
		click.ClickedAt,
		click.IPAddress,
		click.UserAgent,
		click.Referer,
		click.DeviceType,
		click.Browser,
		click.OS,
		click.Country,
		click.City,
	)

	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}

	return nil
}

// ListByLinkSince возвращает клики по ссылке начиная с отметки since.
// Нулевое значение since означает отсутствие нижней границы.
func (r *clickRepository) ListByLinkSince(ctx context.Context, linkID int64, since time.Time) ([]models.Click, error) {
	query := `
		SELECT id, link_id, clicked_at, ip_address, user_agent, referer,
			device_type, browser, os, country, city
		FROM clicks
		WHERE link_id = $1 AND clicked_at >= $2
		ORDER BY clicked_at
	`

	rows, err := r.db.Pool.Query(ctx, query, linkID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}
	defer rows.Close()

	var clicks []models.Click
	for rows.Next() {
		var click models.Click
		if err := rows.Scan(
			&click.ID,
			&click.LinkID,
			&click.ClickedAt,
			&click.IPAddress,
			&click.UserAgent,
			&click.Referer,
			&click.DeviceType,
			&click.Browser,
			&click.OS,
			&click.Country,
			&click.City,
		); err != nil {
			return nil, fmt.Errorf("failed to scan click: %w", err)
		}
		clicks = append(clicks, click)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clicks: %w", err)
	}

	return clicks, nil
}
