package sqlxrepos

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/FARHATREKAYA/quran-app/core/bookmark"
)

var bookmarkColumns = []string{"id", "user_id", "verse_id", "notes", "created_at"}

type bookmarkRow struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	VerseID   int       `db:"verse_id"`
	Notes     string    `db:"notes"`
	CreatedAt time.Time `db:"created_at"`
}

func (r bookmarkRow) bookmark() bookmark.Bookmark {
	return bookmark.Bookmark{
		ID:        r.ID,
		UserID:    r.UserID,
		VerseID:   r.VerseID,
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type bookmarkRepository struct {
	pg *Postgres
}

var _ bookmark.Repository = (*bookmarkRepository)(nil) // interface compliance check

func NewBookmarkRepository(pg *Postgres) bookmark.Repository {
	return &bookmarkRepository{pg: pg}
}

func (repo *bookmarkRepository) CreateBookmark(ctx context.Context, b bookmark.Bookmark) (bookmark.Bookmark, error) {
	var row bookmarkRow
	q := repo.pg.psql.Insert("bookmarks").
		Columns(bookmarkColumns[1:]...).
		Values(b.UserID, b.VerseID, b.Notes, b.CreatedAt.UTC()).
		Suffix(returning(bookmarkColumns))
	if err := repo.pg.get(ctx, &row, q); err != nil {
		if isUniqueViolation(err, "bookmarks_user_id_verse_id_key") {
			return bookmark.Bookmark{}, bookmark.ErrExists
		}
		return bookmark.Bookmark{}, errors.Wrap(err, "inserting bookmark")
	}
	return row.bookmark(), nil
}

func (repo *bookmarkRepository) getOne(ctx context.Context, where squirrel.Eq) (bookmark.Bookmark, error) {
	var row bookmarkRow
	if err := repo.pg.get(ctx, &row, repo.pg.psql.Select(bookmarkColumns...).From("bookmarks").Where(where)); err != nil {
		return bookmark.Bookmark{}, trapNoRowsErr(err, bookmark.ErrNotFound)
	}
	return row.bookmark(), nil
}

func (repo *bookmarkRepository) GetBookmark(ctx context.Context, userID string, id int64) (bookmark.Bookmark, error) {
	return repo.getOne(ctx, squirrel.Eq{"id": id, "user_id": userID})
}

func (repo *bookmarkRepository) FindBookmark(ctx context.Context, userID string, verseID int) (bookmark.Bookmark, error) {
	return repo.getOne(ctx, squirrel.Eq{"verse_id": verseID, "user_id": userID})
}

func (repo *bookmarkRepository) QueryBookmarks(ctx context.Context, userID string) ([]bookmark.Bookmark, error) {
	var rows []bookmarkRow
	q := repo.pg.psql.Select(bookmarkColumns...).From("bookmarks").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC")
	if err := repo.pg.selectAll(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting bookmarks")
	}
	bookmarks := make([]bookmark.Bookmark, 0, len(rows))
	for _, r := range rows {
		bookmarks = append(bookmarks, r.bookmark())
	}
	return bookmarks, nil
}

func (repo *bookmarkRepository) UpdateBookmark(ctx context.Context, b bookmark.Bookmark) (bookmark.Bookmark, error) {
	var row bookmarkRow
	q := repo.pg.psql.Update("bookmarks").
		Set("notes", b.Notes).
		Where(squirrel.Eq{"id": b.ID}).
		Suffix(returning(bookmarkColumns))
	if err := repo.pg.get(ctx, &row, q); err != nil {
		return bookmark.Bookmark{}, trapNoRowsErr(err, bookmark.ErrNotFound)
	}
	return row.bookmark(), nil
}

func (repo *bookmarkRepository) DeleteBookmark(ctx context.Context, id int64) error {
	n, err := repo.pg.execAffected(ctx, repo.pg.psql.Delete("bookmarks").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting bookmark")
	}
	if n == 0 {
		return bookmark.ErrNotFound
	}
	return nil
}
