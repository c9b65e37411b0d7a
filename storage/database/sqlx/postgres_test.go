package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/bookmark"
	"github.com/FARHATREKAYA/quran-app/core/khatm"
	"github.com/FARHATREKAYA/quran-app/core/quran"
	"github.com/FARHATREKAYA/quran-app/core/user"
	emailsvc "github.com/FARHATREKAYA/quran-app/services/email"
	sqlxrepos "github.com/FARHATREKAYA/quran-app/storage/database/sqlx"
	testutil "github.com/FARHATREKAYA/quran-app/tests"
)

func TestPostgres_users(t *testing.T) {
	_, db := testutil.PrepareDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewUserRepository(sqlxrepos.New(db))

	usr := testutil.CreateUser(t, repo, "amina", testutil.UserOpts{Email: "amina@example.com", Password: "Tarteel-1447-Nights"})

	got, err := repo.GetUser(ctx, user.GetFilter{UsernameOrEmail: "AMINA@example.com"})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.NoError(t, got.CheckPassword("Tarteel-1447-Nights"))

	dup := usr
	dup.ID = "00000000-0000-4000-8000-999999999999"
	_, err = repo.CreateUser(ctx, dup)
	assert.Error(t, err)

	_, err = repo.GetUser(ctx, user.GetFilter{ID: dup.ID})
	assert.Equal(t, user.ErrNotFound, err)
}

func TestPostgres_khatm(t *testing.T) {
	conf, db := testutil.PrepareDB(t)
	ctx := context.Background()
	logger := testutil.Logger(conf)
	core.ParseEmailTemplates(conf, logger)

	pg := sqlxrepos.New(db)
	owner := testutil.CreateUser(t, sqlxrepos.NewUserRepository(pg), "yusuf", testutil.UserOpts{Email: "yusuf@example.com"})
	quranSvc := quran.NewService(sqlxrepos.NewQuranRepository(pg), conf)
	testutil.SeedCorpus(t, quranSvc, 7, 5, 8)

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	origNow := khatm.NowFunc
	khatm.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { khatm.NowFunc = origNow })

	mail := emailsvc.NewServiceMock(conf, logger)
	svc := khatm.NewService(sqlxrepos.NewKhatmRepository(pg), quranSvc, mail, conf)

	k, err := svc.Create(ctx, owner.ID, khatm.NewKhatm{
		Title:         "Ramadan khatm",
		StartDate:     "2024-03-01",
		EndDate:       "2024-03-05",
		FrequencyType: khatm.FrequencyDaily,
		ReadingTime:   "06:30",
		Timezone:      "UTC",
		ReadingMode:   khatm.ModeReadListen,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, k.TotalSessions)
	assert.Equal(t, 20, k.TotalVerses)

	detail, err := svc.Get(ctx, owner.ID, k.ID)
	require.NoError(t, err)
	require.Len(t, detail.Sessions, 5)
	first := detail.Sessions[0]
	assert.Equal(t, time.Date(2024, 3, 1, 6, 30, 0, 0, time.UTC), first.ScheduledDate.UTC())
	assert.Equal(t, 1, first.StartGlobal)
	assert.Equal(t, 4, first.EndGlobal)

	res, err := svc.CompleteSession(ctx, owner.ID, k.ID, first.ID, khatm.CompleteSession{VersesRead: 4})
	require.NoError(t, err)
	assert.Equal(t, khatm.StatusCompleted, res.Session.Status)
	assert.Equal(t, 1, res.Progress.CompletedSessions)

	_, err = svc.CompleteSession(ctx, owner.ID, k.ID, first.ID, khatm.CompleteSession{})
	assert.True(t, core.IsConflict(err), "got %v", err)

	// sessions 1 and 2 are past the grace period, session 1 is done
	now = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	missed, err := svc.SweepMissed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, missed)

	progress, err := svc.Progress(ctx, owner.ID, k.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.SessionStats[khatm.StatusMissed])
	assert.Equal(t, 1, progress.SessionStats[khatm.StatusCompleted])
	assert.Equal(t, 3, progress.SessionStats[khatm.StatusScheduled])

	notified, err := svc.NotifyMissed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, notified)
	notified, err = svc.NotifyMissed(ctx)
	require.NoError(t, err)
	assert.Zero(t, notified)

	require.NoError(t, svc.Delete(ctx, owner.ID, k.ID))
	_, err = svc.Get(ctx, owner.ID, k.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestPostgres_bookmarks(t *testing.T) {
	conf, db := testutil.PrepareDB(t)
	ctx := context.Background()

	pg := sqlxrepos.New(db)
	owner := testutil.CreateUser(t, sqlxrepos.NewUserRepository(pg), "hasan")
	quranSvc := quran.NewService(sqlxrepos.NewQuranRepository(pg), conf)
	testutil.SeedCorpus(t, quranSvc, 7, 5)
	svc := bookmark.NewService(sqlxrepos.NewBookmarkRepository(pg), quranSvc)

	b, err := svc.Create(ctx, owner.ID, bookmark.NewBookmark{VerseID: 9, Notes: "memorise"})
	require.NoError(t, err)
	require.NotNil(t, b.Verse)
	assert.Equal(t, 2, b.Verse.Surah.Number)

	_, err = svc.Create(ctx, owner.ID, bookmark.NewBookmark{VerseID: 9})
	assert.Equal(t, bookmark.ErrExists, err)

	status, err := svc.Check(ctx, owner.ID, 9)
	require.NoError(t, err)
	assert.True(t, status.IsBookmarked)
	assert.Equal(t, b.ID, *status.BookmarkID)
}
