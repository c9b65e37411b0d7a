package dummydb

import (
	"context"
	"sort"

	"github.com/FARHATREKAYA/quran-app/core/bookmark"
)

type bookmarkRepository struct {
	db *DB
}

var _ bookmark.Repository = (*bookmarkRepository)(nil) // interface compliance check

func NewBookmarkRepository(db *DB) bookmark.Repository {
	return &bookmarkRepository{db: db}
}

func (repo *bookmarkRepository) CreateBookmark(_ context.Context, b bookmark.Bookmark) (bookmark.Bookmark, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, other := range repo.db.bookmarks {
		if other.UserID == b.UserID && other.VerseID == b.VerseID {
			return bookmark.Bookmark{}, bookmark.ErrExists
		}
	}
	b.ID = repo.db.nextPK()
	b.Verse = nil
	repo.db.bookmarks[b.ID] = &b
	return b, nil
}

func (repo *bookmarkRepository) GetBookmark(_ context.Context, userID string, id int64) (bookmark.Bookmark, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if b, ok := repo.db.bookmarks[id]; ok && b.UserID == userID {
		return *b, nil
	}
	return bookmark.Bookmark{}, bookmark.ErrNotFound
}

func (repo *bookmarkRepository) FindBookmark(_ context.Context, userID string, verseID int) (bookmark.Bookmark, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, b := range repo.db.bookmarks {
		if b.UserID == userID && b.VerseID == verseID {
			return *b, nil
		}
	}
	return bookmark.Bookmark{}, bookmark.ErrNotFound
}

func (repo *bookmarkRepository) QueryBookmarks(_ context.Context, userID string) ([]bookmark.Bookmark, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	bookmarks := make([]bookmark.Bookmark, 0)
	for _, b := range repo.db.bookmarks {
		if b.UserID == userID {
			bookmarks = append(bookmarks, *b)
		}
	}
	sort.Slice(bookmarks, func(i, j int) bool {
		if bookmarks[i].CreatedAt.Equal(bookmarks[j].CreatedAt) {
			return bookmarks[i].ID > bookmarks[j].ID
		}
		return bookmarks[i].CreatedAt.After(bookmarks[j].CreatedAt)
	})
	return bookmarks, nil
}

func (repo *bookmarkRepository) UpdateBookmark(_ context.Context, b bookmark.Bookmark) (bookmark.Bookmark, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.bookmarks[b.ID]
	if !ok {
		return bookmark.Bookmark{}, bookmark.ErrNotFound
	}
	orig.Notes = b.Notes
	return *orig, nil
}

func (repo *bookmarkRepository) DeleteBookmark(_ context.Context, id int64) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.bookmarks[id]; !ok {
		return bookmark.ErrNotFound
	}
	delete(repo.db.bookmarks, id)
	return nil
}
