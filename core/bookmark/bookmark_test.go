package bookmark_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/bookmark"
	"github.com/FARHATREKAYA/quran-app/core/quran"
	dummydb "github.com/FARHATREKAYA/quran-app/storage/database/dummy"
	testutil "github.com/FARHATREKAYA/quran-app/tests"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	conf := testutil.Config()
	validate := testutil.Validator()

	db, err := dummydb.Open()
	require.NoError(t, err)
	userRepo := dummydb.NewUserRepository(db)
	quranSvc := quran.NewService(dummydb.NewQuranRepository(db), conf)
	testutil.SeedCorpus(t, quranSvc, 7, 5)
	svc := bookmark.NewService(dummydb.NewBookmarkRepository(db), quranSvc)

	reader := testutil.CreateUser(t, userRepo, "reader")
	other := testutil.CreateUser(t, userRepo, "other")

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	origNow := bookmark.NowFunc
	bookmark.NowFunc = func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
	t.Cleanup(func() { bookmark.NowFunc = origNow })

	create := func(userID string, verseID int, notes string) (bookmark.Bookmark, error) {
		nb := bookmark.NewBookmark{VerseID: verseID, Notes: notes}
		require.NoError(t, nb.Validate(validate))
		return svc.Create(ctx, userID, nb)
	}

	first, err := create(reader.ID, 9, "  patience  ")
	require.NoError(t, err)
	assert.Equal(t, "patience", first.Notes)
	require.NotNil(t, first.Verse)
	assert.Equal(t, 2, first.Verse.VerseNumberInSurah)
	assert.Equal(t, 2, first.Verse.Surah.Number)
	assert.Equal(t, "Surah 2", first.Verse.Surah.NameEnglish)

	second, err := create(reader.ID, 1, "")
	require.NoError(t, err)

	t.Run("duplicate", func(t *testing.T) {
		_, err := create(reader.ID, 9, "again")
		assert.Equal(t, bookmark.ErrExists, err)
		assert.True(t, core.IsConflict(err))

		// another user may bookmark the same verse
		_, err = create(other.ID, 9, "")
		assert.NoError(t, err)
	})

	t.Run("unknown verse", func(t *testing.T) {
		_, err := create(reader.ID, 500, "")
		assert.Equal(t, quran.ErrVerseNotFound, err)
	})

	t.Run("list newest first", func(t *testing.T) {
		list, err := svc.List(ctx, reader.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Equal(t, first.ID, list[1].ID)
		assert.NotNil(t, list[1].Verse)
	})

	t.Run("check", func(t *testing.T) {
		status, err := svc.Check(ctx, reader.ID, 9)
		require.NoError(t, err)
		assert.True(t, status.IsBookmarked)
		require.NotNil(t, status.BookmarkID)
		assert.Equal(t, first.ID, *status.BookmarkID)

		status, err = svc.Check(ctx, reader.ID, 10)
		require.NoError(t, err)
		assert.Equal(t, bookmark.Status{}, status)
	})

	t.Run("update", func(t *testing.T) {
		notes := "sabr"
		updated, err := svc.Update(ctx, reader.ID, first.ID, bookmark.UpdateBookmark{Notes: &notes})
		require.NoError(t, err)
		assert.Equal(t, "sabr", updated.Notes)
		assert.NotNil(t, updated.Verse)

		_, err = svc.Update(ctx, other.ID, first.ID, bookmark.UpdateBookmark{Notes: &notes})
		assert.Equal(t, bookmark.ErrNotFound, err)
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, bookmark.ErrNotFound, svc.Delete(ctx, other.ID, second.ID))
		require.NoError(t, svc.Delete(ctx, reader.ID, second.ID))
		assert.Equal(t, bookmark.ErrNotFound, svc.Delete(ctx, reader.ID, second.ID))

		list, err := svc.List(ctx, reader.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}
