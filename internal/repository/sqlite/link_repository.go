package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"linkpulse/internal/domain"
	"linkpulse/internal/repository"
)

type linkRepository struct {
	db *sql.DB
}

// NewLinkRepository creates the SQLite link repository.
func NewLinkRepository(d *DB) repository.LinkRepository {
	return &linkRepository{db: d.db}
}

const linkColumns = `id, user_id, slug, target_url, is_active, created_at, click_count, last_clicked_at`

// Create inserts the link and assigns its slug in one transaction.
func (r *linkRepository) Create(ctx context.Context, link *domain.Link, slugFor repository.SlugFunc) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO links (user_id, target_url, is_active, created_at)
		VALUES (?, ?, ?, ?)`,
		link.UserID, link.TargetURL, link.IsActive, fmtTime(link.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get link id: %w", err)
	}
	link.ID = id

	slug, err := slugFor(id)
	if err != nil {
		return fmt.Errorf("failed to derive slug: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE links SET slug = ? WHERE id = ?`, slug, id); err != nil {
		return fmt.Errorf("failed to assign slug: %w", err)
	}
	link.Slug = &slug

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit link creation: %w", err)
	}
	return nil
}

// GetActiveBySlug resolves a public code to its active link.
func (r *linkRepository) GetActiveBySlug(ctx context.Context, slug string) (*domain.Link, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE slug = ? AND is_active = 1`, slug)
	return scanLink(row)
}

// GetByID fetches one of the owner's links.
func (r *linkRepository) GetByID(ctx context.Context, userID, linkID int64) (*domain.Link, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE id = ? AND user_id = ?`, linkID, userID)
	return scanLink(row)
}

// ListByOwner returns the owner's links, newest first.
func (r *linkRepository) ListByOwner(ctx context.Context, userID int64, limit, offset int) ([]*domain.Link, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+linkColumns+`
		FROM links
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []*domain.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
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
	res, err := r.db.ExecContext(ctx,
		`UPDATE links SET is_active = ? WHERE id = ? AND user_id = ?`,
		active, linkID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update link status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, userID, linkID)
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanLink(row scanner) (*domain.Link, error) {
	link := &domain.Link{}
	var created string
	var lastClicked sql.NullString

	err := row.Scan(
		&link.ID,
		&link.UserID,
		&link.Slug,
		&link.TargetURL,
		&link.IsActive,
		&created,
		&link.ClickCount,
		&lastClicked,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	if link.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if link.LastClickedAt, err = parseNullTime(lastClicked); err != nil {
		return nil, err
	}
	return link, nil
}
