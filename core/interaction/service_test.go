package interaction_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/interaction"
	"github.com/FARHATREKAYA/quran-app/core/quran"
	"github.com/FARHATREKAYA/quran-app/core/user"
	emailsvc "github.com/FARHATREKAYA/quran-app/services/email"
	dummydb "github.com/FARHATREKAYA/quran-app/storage/database/dummy"
	testutil "github.com/FARHATREKAYA/quran-app/tests"
)

type fixture struct {
	ctx    context.Context
	svc    interaction.Service
	users  user.Service
	author user.User
	reader user.User
	admin  user.User
}

func setup(t *testing.T) *fixture {
	t.Helper()

	conf := testutil.Config()
	db, err := dummydb.Open()
	require.NoError(t, err)
	userRepo := dummydb.NewUserRepository(db)
	quranSvc := quran.NewService(dummydb.NewQuranRepository(db), conf)
	testutil.SeedCorpus(t, quranSvc, 7, 5)
	usersSvc := user.NewService(userRepo, emailsvc.NewServiceMock(conf, testutil.Logger(conf)), conf)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	origNow := interaction.NowFunc
	interaction.NowFunc = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	t.Cleanup(func() { interaction.NowFunc = origNow })

	return &fixture{
		ctx:    context.Background(),
		svc:    interaction.NewService(dummydb.NewInteractionRepository(db), quranSvc, usersSvc),
		users:  usersSvc,
		author: testutil.CreateUser(t, userRepo, "author"),
		reader: testutil.CreateUser(t, userRepo, "reader"),
		admin:  testutil.CreateUser(t, userRepo, "moderator", testutil.UserOpts{IsAdmin: true}),
	}
}

func (f *fixture) comment(t *testing.T, userID string, verseID int, content string, public bool) interaction.Comment {
	t.Helper()

	c, err := f.svc.CreateComment(f.ctx, userID, verseID, interaction.NewComment{Content: content, IsPublic: &public})
	require.NoError(t, err)
	return c
}

func ids(comments []interaction.Comment) []int64 {
	res := make([]int64, 0, len(comments))
	for _, c := range comments {
		res = append(res, c.ID)
	}
	return res
}

func TestService_Comments(t *testing.T) {
	f := setup(t)

	public := f.comment(t, f.author.ID, 3, "beautiful verse", true)
	assert.Equal(t, "author", public.Username)
	assert.True(t, public.IsPublic)
	assert.False(t, public.IsApproved)
	private := f.comment(t, f.author.ID, 3, "note to self", false)
	mine := f.comment(t, f.reader.ID, 3, "my reflection", true)

	_, err := f.svc.CreateComment(f.ctx, f.author.ID, 999, interaction.NewComment{Content: "lost"})
	assert.Equal(t, quran.ErrVerseNotFound, err)

	// nothing approved yet: readers only see their own comments
	visible, err := f.svc.VerseComments(f.ctx, 3, f.reader)
	require.NoError(t, err)
	assert.Equal(t, []int64{mine.ID}, ids(visible))

	msg, err := f.svc.ModerateComment(f.ctx, f.admin.ID, public.ID, interaction.Moderation{Action: interaction.ActionApprove})
	require.NoError(t, err)
	assert.Equal(t, "Comment approved successfully", msg)
	msg, err = f.svc.ModerateComment(f.ctx, f.admin.ID, private.ID, interaction.Moderation{Action: interaction.ActionApprove})
	require.NoError(t, err)

	visible, err = f.svc.VerseComments(f.ctx, 3, f.reader)
	require.NoError(t, err)
	assert.Equal(t, []int64{mine.ID, public.ID}, ids(visible))

	all, err := f.svc.VerseComments(f.ctx, 3, f.admin)
	require.NoError(t, err)
	assert.Equal(t, []int64{mine.ID, private.ID, public.ID}, ids(all))

	t.Run("only the author edits", func(t *testing.T) {
		_, err := f.svc.UpdateComment(f.ctx, f.reader.ID, 3, public.ID, interaction.UpdateComment{Content: "hijacked"})
		assert.Equal(t, interaction.ErrCommentNotFound, err)
		_, err = f.svc.UpdateComment(f.ctx, f.author.ID, 4, public.ID, interaction.UpdateComment{Content: "wrong verse"})
		assert.Equal(t, interaction.ErrCommentNotFound, err)

		updated, err := f.svc.UpdateComment(f.ctx, f.author.ID, 3, public.ID, interaction.UpdateComment{Content: "edited"})
		require.NoError(t, err)
		assert.Equal(t, "edited", updated.Content)
		assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
	})

	t.Run("user comments carry verse info", func(t *testing.T) {
		comments, err := f.svc.UserComments(f.ctx, f.author.ID)
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.Equal(t, "Surah 1", comments[0].SurahName)
		assert.Equal(t, 3, comments[0].VerseNumber)
		assert.Equal(t, "Surah 1 3", comments[0].Label)
	})

	t.Run("moderation", func(t *testing.T) {
		pending, err := f.svc.PendingComments(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{mine.ID}, ids(pending))

		msg, err := f.svc.ModerateComment(f.ctx, f.admin.ID, mine.ID, interaction.Moderation{Action: interaction.ActionDecline})
		require.NoError(t, err)
		assert.Equal(t, "Comment declined", msg)

		approved, err := f.svc.AllComments(f.ctx, true)
		require.NoError(t, err)
		assert.Len(t, approved, 2)

		msg, err = f.svc.ModerateComment(f.ctx, f.admin.ID, private.ID, interaction.Moderation{Action: interaction.ActionDelete})
		require.NoError(t, err)
		assert.Equal(t, "Comment deleted", msg)

		_, err = f.svc.ModerateComment(f.ctx, f.admin.ID, private.ID, interaction.Moderation{Action: interaction.ActionApprove})
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("author deletes", func(t *testing.T) {
		assert.Equal(t, interaction.ErrCommentNotFound, f.svc.DeleteComment(f.ctx, f.reader.ID, 3, public.ID))
		require.NoError(t, f.svc.DeleteComment(f.ctx, f.author.ID, 3, public.ID))
	})
}

func TestService_Reports(t *testing.T) {
	f := setup(t)
	validate := testutil.Validator()

	nr := interaction.NewReport{ReportType: " Translation_Error ", Description: "the translation skips a word"}
	require.NoError(t, nr.Validate(validate))
	report, err := f.svc.CreateReport(f.ctx, f.reader.ID, 8, nr)
	require.NoError(t, err)
	assert.Equal(t, interaction.ReportTranslationError, report.ReportType)
	assert.Equal(t, interaction.StatusPending, report.Status)
	assert.Nil(t, report.ResolvedAt)

	short := interaction.NewReport{ReportType: interaction.ReportOther, Description: "bad"}
	assert.Error(t, short.Validate(validate))

	_, err = f.svc.CreateReport(f.ctx, f.reader.ID, 8, interaction.NewReport{ReportType: interaction.ReportAudioError, Description: "audio cuts off early"})
	require.NoError(t, err)
	_, err = f.svc.CreateReport(f.ctx, f.author.ID, 2, interaction.NewReport{ReportType: interaction.ReportOther, Description: "typo in the tafsir text"})
	require.NoError(t, err)

	onVerse, err := f.svc.UserVerseReports(f.ctx, f.reader.ID, 8)
	require.NoError(t, err)
	assert.Len(t, onVerse, 2)
	assert.Equal(t, "Surah 2", onVerse[0].SurahName)

	mine, err := f.svc.UserReports(f.ctx, f.author.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	reviewed, err := f.svc.UpdateReport(f.ctx, report.ID, interaction.UpdateReport{Status: interaction.StatusReviewed})
	require.NoError(t, err)
	assert.Nil(t, reviewed.ResolvedAt)

	resolved, err := f.svc.UpdateReport(f.ctx, report.ID, interaction.UpdateReport{Status: interaction.StatusResolved, AdminNotes: "fixed"})
	require.NoError(t, err)
	assert.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, "fixed", resolved.AdminNotes)

	pending, err := f.svc.Reports(f.ctx, interaction.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = f.svc.UpdateReport(f.ctx, 424242, interaction.UpdateReport{Status: interaction.StatusRejected})
	assert.Equal(t, interaction.ErrReportNotFound, err)
}

func TestService_Stats(t *testing.T) {
	f := setup(t)

	c := f.comment(t, f.author.ID, 1, "first", true)
	f.comment(t, f.reader.ID, 2, "second", true)
	_, err := f.svc.ModerateComment(f.ctx, f.admin.ID, c.ID, interaction.Moderation{Action: interaction.ActionApprove})
	require.NoError(t, err)
	_, err = f.svc.CreateReport(f.ctx, f.reader.ID, 1, interaction.NewReport{ReportType: interaction.ReportOther, Description: "something is off"})
	require.NoError(t, err)
	_, err = f.users.SetActive(f.ctx, f.reader.ID, false)
	require.NoError(t, err)

	stats, err := f.svc.Stats(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, interaction.Stats{
		PendingComments: 1,
		PendingReports:  1,
		TotalUsers:      3,
		TotalComments:   2,
		TotalReports:    1,
		BlockedUsers:    1,
	}, stats)
}
