package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

// ListBookmarks returns the owner's bookmarks, newest first.
func (s *Store) ListBookmarks(ctx context.Context, owner string) ([]domain.Bookmark, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, title, url, created_at
FROM bookmarks
WHERE user_id = ?
ORDER BY created_at DESC, rowid DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	bookmarks := make([]domain.Bookmark, 0)
	for rows.Next() {
		var (
			b         domain.Bookmark
			createdAt int64
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.Title, &b.URL, &createdAt); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		b.CreatedAt = fromMillis(createdAt)
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookmarks: %w", err)
	}

	return bookmarks, nil
}

// InsertBookmark stores the draft as-is (callers trim and normalize) and
// returns the row with its server-assigned id and timestamp.
func (s *Store) InsertBookmark(ctx context.Context, draft domain.Draft) (domain.Bookmark, error) {
	b := domain.Bookmark{
		ID:        s.newID(),
		UserID:    draft.UserID,
		Title:     draft.Title,
		URL:       draft.URL,
		CreatedAt: fromMillis(toMillis(s.now())),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bookmarks (id, user_id, title, url, created_at) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Title, b.URL, toMillis(b.CreatedAt))
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("insert bookmark: %w", err)
	}

	return b, nil
}

// DeleteBookmark removes the bookmark id if owner owns it. A miss is not an
// error: ok is false and nothing changed.
func (s *Store) DeleteBookmark(ctx context.Context, owner, id string) (deleted domain.Bookmark, ok bool, err error) {
	var createdAt int64
	err = s.db.QueryRowContext(ctx, `
DELETE FROM bookmarks
WHERE id = ? AND user_id = ?
RETURNING id, user_id, title, url, created_at`, id, owner).
		Scan(&deleted.ID, &deleted.UserID, &deleted.Title, &deleted.URL, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bookmark{}, false, nil
	}
	if err != nil {
		return domain.Bookmark{}, false, fmt.Errorf("delete bookmark: %w", err)
	}
	deleted.CreatedAt = fromMillis(createdAt)
	return deleted, true, nil
}
