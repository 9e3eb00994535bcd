package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/shortlinks/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrCodeExists   = errors.New("short code already exists")
)

type LinkRepository interface {
	Create(ctx context.Context, link *models.Link) error
	GetByShortCode(ctx context.Context, code string) (*models.Link, error)
	GetByID(ctx context.Context, id int64) (*models.Link, error)
	ListByOwner(ctx context.Context, userID int64) ([]models.Link, error)
	IncrementClicks(ctx context.Context, linkID int64) error
	DeleteOwned(ctx context.Context, userID, linkID int64) error
	DeleteExpired(ctx context.Context) ([]string, error)
}

type linkRepository struct {
	db *PostgresDB
}

func NewLinkRepository(db *PostgresDB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (short_code, original_url, user_id, clicks, created_at, expires_at)
		VALUES ($1, $2, $3, 0, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(
		ctx,
		query,
		link.ShortCode,
		link.OriginalURL,
		link.UserID,
		link.CreatedAt,
		link.ExpiresAt,
	).Scan(&link.ID, &link.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

// GetByShortCode ищет ссылку по коду. Сравнение точное, с учётом регистра.
// Истёкшие ссылки не возвращаются.
func (r *linkRepository) GetByShortCode(ctx context.Context, code string) (*models.Link, error) {
	query := `
		SELECT id, short_code, original_url, user_id, clicks, created_at, expires_at
		FROM links
		WHERE short_code = $1 AND expires_at > NOW()
	`

	link := &models.Link{}
	err := r.db.Pool.QueryRow(ctx, query, code).Scan(
		&link.ID,
		&link.ShortCode,
		&link.OriginalURL,
		&link.UserID,
		&link.Clicks,
		&link.CreatedAt,
		&link.ExpiresAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return link, nil
}

func (r *linkRepository) GetByID(ctx context.Context, id int64) (*models.Link, error) {
	query := `
		SELECT id, short_code, original_url, user_id, clicks, created_at, expires_at
		FROM links
		WHERE id = $1
	`

	link := &models.Link{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&link.ID,
		&link.ShortCode,
		&link.OriginalURL,
		&link.UserID,
		&link.Clicks,
		&link.CreatedAt,
		&link.ExpiresAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link by id: %w", err)
	}

	return link, nil
}

func (r *linkRepository) ListByOwner(ctx context.Context, userID int64) ([]models.Link, error) {
	query := `
		SELECT id, short_code, original_url, user_id, clicks, created_at, expires_at
		FROM links
		WHERE user_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := []models.Link{}
	for rows.Next() {
		var link models.Link
		if err := rows.Scan(
			&link.ID,
			&link.ShortCode,
			&link.OriginalURL,
			&link.UserID,
			&link.Clicks,
			&link.CreatedAt,
			&link.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}

// IncrementClicks увеличивает счётчик атомарно на стороне базы: параллельные
// редиректы по одному коду не теряют обновления.
func (r *linkRepository) IncrementClicks(ctx context.Context, linkID int64) error {
	query := `UPDATE links SET clicks = clicks + 1 WHERE id = $1`

	result, err := r.db.Pool.Exec(ctx, query, linkID)
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

func (r *linkRepository) DeleteOwned(ctx context.Context, userID, linkID int64) error {
	query := `DELETE FROM links WHERE id = $1 AND user_id = $2`

	result, err := r.db.Pool.Exec(ctx, query, linkID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

// DeleteExpired удаляет истёкшие ссылки (клики уходят каскадом) и возвращает
// их коды, чтобы вызывающая сторона могла сбросить кэш.
func (r *linkRepository) DeleteExpired(ctx context.Context) ([]string, error) {
	query := `DELETE FROM links WHERE expires_at <= NOW() RETURNING short_code`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to delete expired links: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan short code: %w", err)
		}
		codes = append(codes, code)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deleted links: %w", err)
	}

	return codes, nil
}

// Нарушение уникального индекса (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
