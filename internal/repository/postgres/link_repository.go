package postgres

import (
	"context"
	"errors"
	"fmt"

	"linkpulse/internal/domain"
	"linkpulse/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type linkRepository struct {
	db *pgxpool.Pool
}

// NewLinkRepository creates the PostgreSQL link repository.
func NewLinkRepository(db *pgxpool.Pool) repository.LinkRepository {
	return &linkRepository{db: db}
}

const linkColumns = `id, user_id, slug, target_url, is_active, created_at, click_count, last_clicked_at`

// Create inserts the link and assigns its slug in one transaction. The slug
// is a pure function of the generated id, so the insert has to happen first.
func (r *linkRepository) Create(ctx context.Context, link *domain.Link, slugFor repository.SlugFunc) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO links (user_id, target_url, is_active, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err = tx.QueryRow(ctx, query,
		link.UserID,
		link.TargetURL,
		link.IsActive,
		link.CreatedAt,
	).Scan(&link.ID, &link.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}

	slug, err := slugFor(link.ID)
	if err != nil {
		return fmt.Errorf("failed to derive slug: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE links SET slug = $1 WHERE id = $2`, slug, link.ID)
	if err != nil {
		return fmt.Errorf("failed to assign slug: %w", err)
	}
	link.Slug = &slug

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit link creation: %w", err)
	}
	return nil
}

// GetActiveBySlug resolves a public code to its active link.
func (r *linkRepository) GetActiveBySlug(ctx context.Context, slug string) (*domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE slug = $1 AND is_active = true`
	return r.scanLink(r.db.QueryRow(ctx, query, slug))
}

// GetByID fetches one of the owner's links. A link owned by someone else is
// reported as not found.
func (r *linkRepository) GetByID(ctx context.Context, userID, linkID int64) (*domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = $1 AND user_id = $2`
	return r.scanLink(r.db.QueryRow(ctx, query, linkID, userID))
}

// ListByOwner returns the owner's links, newest first.
func (r *linkRepository) ListByOwner(ctx context.Context, userID int64, limit, offset int) ([]*domain.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM links
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []*domain.Link
	for rows.Next() {
		link := &domain.Link{}
		err := rows.Scan(
			&link.ID,
			&link.UserID,
			&link.Slug,
			&link.TargetURL,
			&link.IsActive,
			&link.CreatedAt,
			&link.ClickCount,
			&link.LastClickedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}
	return links, nil
}

// UpdateStatus toggles is_active on one of the owner's links.
func (r *linkRepository) UpdateStatus(ctx context.Context, userID, linkID int64, active bool) (*domain.Link, error) {
	query := `
		UPDATE links
		SET is_active = $1
		WHERE id = $2 AND user_id = $3
		RETURNING ` + linkColumns
	return r.scanLink(r.db.QueryRow(ctx, query, active, linkID, userID))
}

func (r *linkRepository) scanLink(row pgx.Row) (*domain.Link, error) {
	link := &domain.Link{}
	err := row.Scan(
		&link.ID,
		&link.UserID,
		&link.Slug,
		&link.TargetURL,
		&link.IsActive,
		&link.CreatedAt,
		&link.ClickCount,
		&link.LastClickedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return link, nil
}
