package domain

import (
	"errors"
	"time"
)

// Link is a shortened link owned by a user.
//
// Slug is nullable because it is derived from the row id: the insert assigns
// the id, then the slug is computed from it and written back inside the same
// transaction. After that the slug never changes.
type Link struct {
	ID            int64
	UserID        int64
	Slug          *string
	TargetURL     string
	IsActive      bool
	CreatedAt     time.Time
	ClickCount    int64
	LastClickedAt *time.Time
}

// Domain errors. ErrNotFound deliberately covers "does not exist",
// "inactive" and "owned by someone else" so callers cannot distinguish them.
var (
	ErrNotFound     = errors.New("link not found")
	ErrInvalidInput = errors.New("invalid input")
)

// NewLink creates a link ready for insertion. The slug is assigned by the
// repository once the id exists.
func NewLink(userID int64, targetURL string) *Link {
	return &Link{
		UserID:    userID,
		TargetURL: targetURL,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
}

// Status returns the presentation form of the active flag.
func (l *Link) Status() string {
	if l.IsActive {
		return "active"
	}
	return "inactive"
}
