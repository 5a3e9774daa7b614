package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shortlink-app/shortlink/internal/base62"
	"github.com/shortlink-app/shortlink/internal/models"
)

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrSlugTaken    = errors.New("slug already taken")
)

type LinkRepository interface {
	// CreateAuto assigns the next id and derives the slug from it in a
	// single insert, so no row is ever visible with a mismatched slug.
	CreateAuto(ctx context.Context, link *models.Link, slugLength int) error
	// Create inserts a link with a caller-chosen slug; returns
	// ErrSlugTaken when the slug is already occupied.
	Create(ctx context.Context, link *models.Link) error
	// GetBySlug returns the link regardless of expiry. Soft-expiry is
	// the service's decision; the row stays retrievable here.
	GetBySlug(ctx context.Context, slug string) (*models.Link, error)
	GetIDBySlug(ctx context.Context, slug string) (int64, error)
}

type linkRepository struct {
	db *PostgresDB
}

func NewLinkRepository(db *PostgresDB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) CreateAuto(ctx context.Context, link *models.Link, slugLength int) error {
	// Reserve the id first, then insert id and slug together. An
	// aborted attempt burns a sequence value; ids are still never
	// reused, which is all the codec's injectivity needs.
	var id int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT nextval(pg_get_serial_sequence('links', 'id'))`,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to assign link id: %w", err)
	}

	slug := base62.Encode(uint64(id), slugLength)

	query := `
		INSERT INTO links (id, slug, long_url, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err = r.db.Pool.QueryRow(ctx, query, id, slug, link.LongURL, link.ExpiresAt, link.CreatedAt).
		Scan(&link.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			// Only possible if a custom slug already occupies the
			// encoded value; the shared namespace makes this a
			// collision, not a retryable hiccup.
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	link.ID = id
	link.Slug = slug
	return nil
}

func (r *linkRepository) Create(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (slug, long_url, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(
		ctx,
		query,
		link.Slug,
		link.LongURL,
		link.ExpiresAt,
		link.CreatedAt,
	).Scan(&link.ID, &link.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

func (r *linkRepository) GetBySlug(ctx context.Context, slug string) (*models.Link, error) {
	query := `
		SELECT id, slug, long_url, expires_at, created_at
		FROM links
		WHERE slug = $1
	`

	link := &models.Link{}
	err := r.db.Pool.QueryRow(ctx, query, slug).Scan(
		&link.ID,
		&link.Slug,
		&link.LongURL,
		&link.ExpiresAt,
		&link.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return link, nil
}

func (r *linkRepository) GetIDBySlug(ctx context.Context, slug string) (int64, error) {
	query := `SELECT id FROM links WHERE slug = $1`

	var linkID int64
	err := r.db.Pool.QueryRow(ctx, query, slug).Scan(&linkID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrLinkNotFound
		}
		return 0, fmt.Errorf("failed to get link ID: %w", err)
	}

	return linkID, nil
}

// isUniqueViolation reports whether err is a Postgres unique
// constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
