package khatm_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/khatm"
	"github.com/FARHATREKAYA/quran-app/core/quran"
	"github.com/FARHATREKAYA/quran-app/core/user"
	emailsvc "github.com/FARHATREKAYA/quran-app/services/email"
	dummydb "github.com/FARHATREKAYA/quran-app/storage/database/dummy"
	testutil "github.com/FARHATREKAYA/quran-app/tests"
)

type fixture struct {
	ctx      context.Context
	svc      khatm.Service
	mail     *emailsvc.ServiceMock
	validate *validator.Validate
	owner    user.User
	other    user.User
	silent   user.User // no email
	now      time.Time
}

// setNow freezes the khatm clock.
func (f *fixture) setNow(t time.Time) {
	f.now = t
}

func setup(t *testing.T) *fixture {
	t.Helper()

	conf := testutil.Config()
	logger := testutil.Logger(conf)
	core.ParseEmailTemplates(conf, logger)

	db, err := dummydb.Open()
	require.NoError(t, err)
	userRepo := dummydb.NewUserRepository(db)
	quranSvc := quran.NewService(dummydb.NewQuranRepository(db), conf)
	// 20 verses over 3 surahs
	testutil.SeedCorpus(t, quranSvc, 7, 5, 8)

	mail := emailsvc.NewServiceMock(conf, logger)
	f := &fixture{
		ctx:      context.Background(),
		svc:      khatm.NewService(dummydb.NewKhatmRepository(db), quranSvc, mail, conf),
		mail:     mail,
		validate: testutil.Validator(),
		owner:    testutil.CreateUser(t, userRepo, "amina", testutil.UserOpts{Email: "amina@example.com"}),
		other:    testutil.CreateUser(t, userRepo, "yusuf", testutil.UserOpts{Email: "yusuf@example.com"}),
		silent:   testutil.CreateUser(t, userRepo, "bilal"),
		now:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	origNow := khatm.NowFunc
	khatm.NowFunc = func() time.Time { return f.now }
	t.Cleanup(func() { khatm.NowFunc = origNow })
	return f
}

func (f *fixture) create(t *testing.T, userID string, nk khatm.NewKhatm) khatm.Khatm {
	t.Helper()

	require.NoError(t, nk.Validate(f.validate))
	k, err := f.svc.Create(f.ctx, userID, nk)
	require.NoError(t, err)
	return k
}

// dailyKhatm plans 5 daily sessions of 4 verses, at 06:30 UTC from 2024-03-01.
func dailyKhatm() khatm.NewKhatm {
	return khatm.NewKhatm{
		Title:         "Ramadan khatm",
		StartDate:     "2024-03-01",
		EndDate:       "2024-03-05",
		FrequencyType: khatm.FrequencyDaily,
		ReadingTime:   "06:30",
	}
}

func TestService_Create(t *testing.T) {
	f := setup(t)

	k := f.create(t, f.owner.ID, dailyKhatm())
	assert.Equal(t, f.owner.ID, k.UserID)
	assert.Equal(t, 5, k.TotalSessions)
	assert.Equal(t, 20, k.TotalVerses)
	assert.Equal(t, "UTC", k.Timezone)
	assert.Equal(t, khatm.ModeReadListen, k.ReadingMode)
	assert.Equal(t, 30, k.ReminderMinutesBefore)
	assert.True(t, k.IsActive)
	assert.False(t, k.IsCompleted)
	assert.True(t, k.EnableAudioBreak)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), k.TargetDate)

	detail, err := f.svc.Get(f.ctx, f.owner.ID, k.ID)
	require.NoError(t, err)
	require.Len(t, detail.Sessions, 5)
	for i, s := range detail.Sessions {
		assert.Equal(t, i+1, s.SessionNumber)
		assert.Equal(t, 4, s.VerseCount)
		assert.Equal(t, khatm.StatusScheduled, s.Status)
		assert.Equal(t, time.Date(2024, 3, 1+i, 6, 30, 0, 0, time.UTC), s.ScheduledDate)
	}
	// surah 1 has 7 verses: session 2 runs from 1:5 to 2:1
	assert.Equal(t, 1, detail.Sessions[1].StartSurahID)
	assert.Equal(t, 5, detail.Sessions[1].StartVerseInSurah)
	assert.Equal(t, 2, detail.Sessions[1].EndSurahID)
	assert.Equal(t, 1, detail.Sessions[1].EndVerseInSurah)

	t.Run("no reading day in range", func(t *testing.T) {
		nk := khatm.NewKhatm{
			Title:         "Weekend",
			StartDate:     "2024-03-04",
			EndDate:       "2024-03-08",
			FrequencyType: khatm.FrequencyWeekly,
			ReadingDays:   []string{"Sat"},
			ReadingTime:   "08:00",
		}
		require.NoError(t, nk.Validate(f.validate))
		_, err := f.svc.Create(f.ctx, f.owner.ID, nk)
		assert.True(t, core.IsValidation(err), "got %v", err)
	})

	t.Run("more sessions than verses", func(t *testing.T) {
		nk := dailyKhatm()
		nk.EndDate = "2024-03-31"
		require.NoError(t, nk.Validate(f.validate))
		_, err := f.svc.Create(f.ctx, f.owner.ID, nk)
		assert.True(t, core.IsValidation(err), "got %v", err)
	})

	t.Run("list", func(t *testing.T) {
		f.create(t, f.other.ID, dailyKhatm())

		summaries, err := f.svc.List(f.ctx, f.owner.ID, false)
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, k.ID, summaries[0].ID)
		assert.Equal(t, 0.0, summaries[0].ProgressPercentage)
	})
}

func TestNewKhatm_Validate(t *testing.T) {
	validate := testutil.Validator()

	tests := []struct {
		name   string
		modify func(nk *khatm.NewKhatm)
		field  string
	}{
		{"valid", func(nk *khatm.NewKhatm) {}, ""},
		{"blank title", func(nk *khatm.NewKhatm) { nk.Title = "   " }, "title"},
		{"bad start date", func(nk *khatm.NewKhatm) { nk.StartDate = "03/01/2024" }, "start_date"},
		{"end before start", func(nk *khatm.NewKhatm) { nk.EndDate = "2024-02-01" }, "end_date"},
		{"bad frequency", func(nk *khatm.NewKhatm) { nk.FrequencyType = "monthly" }, "frequency_type"},
		{"weekly without days", func(nk *khatm.NewKhatm) { nk.FrequencyType = khatm.FrequencyWeekly }, "reading_days"},
		{"bad weekday", func(nk *khatm.NewKhatm) {
			nk.FrequencyType = khatm.FrequencyCustom
			nk.ReadingDays = []string{"mon", "funday"}
		}, "reading_days[1]"},
		{"bad reading time", func(nk *khatm.NewKhatm) { nk.ReadingTime = "24:00" }, "reading_time"},
		{"bad timezone", func(nk *khatm.NewKhatm) { nk.Timezone = "Mars/Olympus" }, "timezone"},
		{"bad reading mode", func(nk *khatm.NewKhatm) { nk.ReadingMode = "listen_only" }, "reading_mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nk := dailyKhatm()
			tt.modify(&nk)
			err := nk.Validate(validate)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			var fields []string
			for _, fe := range verrs {
				fields = append(fields, strings.TrimPrefix(fe.Namespace(), "NewKhatm."))
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestService_CompleteSession(t *testing.T) {
	f := setup(t)
	k := f.create(t, f.owner.ID, dailyKhatm())
	detail, err := f.svc.Get(f.ctx, f.owner.ID, k.ID)
	require.NoError(t, err)
	sessions := detail.Sessions

	f.setNow(time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC))
	res, err := f.svc.CompleteSession(f.ctx, f.owner.ID, k.ID, sessions[0].ID, khatm.CompleteSession{VersesRead: 4})
	require.NoError(t, err)
	assert.Equal(t, khatm.StatusCompleted, res.Session.Status)
	require.NotNil(t, res.Session.CompletedAt)
	assert.Equal(t, f.now, *res.Session.CompletedAt)
	assert.Equal(t, 4, res.Session.VersesReadCount)
	assert.Equal(t, khatm.CompletionProgress{CompletedSessions: 1, TotalSessions: 5, Percentage: 20}, res.Progress)

	t.Run("already completed", func(t *testing.T) {
		_, err := f.svc.CompleteSession(f.ctx, f.owner.ID, k.ID, sessions[0].ID, khatm.CompleteSession{})
		require.True(t, core.IsConflict(err), "got %v", err)
		assert.Equal(t, "session already completed", err.Error())
	})

	t.Run("last verse outside of the session", func(t *testing.T) {
		outside := sessions[1].EndVerseID + 1
		_, err := f.svc.CompleteSession(f.ctx, f.owner.ID, k.ID, sessions[1].ID, khatm.CompleteSession{LastVerseID: &outside})
		assert.True(t, core.IsValidation(err), "got %v", err)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := f.svc.CompleteSession(f.ctx, f.owner.ID, k.ID, 99999, khatm.CompleteSession{})
		assert.True(t, core.IsNotFound(err), "got %v", err)
	})

	t.Run("other user", func(t *testing.T) {
		_, err := f.svc.CompleteSession(f.ctx, f.other.ID, k.ID, sessions[1].ID, khatm.CompleteSession{})
		assert.Equal(t, khatm.ErrForbidden, err)
	})

	t.Run("completing every session completes the khatm", func(t *testing.T) {
		for _, s := range sessions[1:] {
			last := s.EndVerseID
			_, err := f.svc.CompleteSession(f.ctx, f.owner.ID, k.ID, s.ID, khatm.CompleteSession{VersesRead: s.VerseCount, LastVerseID: &last})
			require.NoError(t, err)
		}

		progress, err := f.svc.Progress(f.ctx, f.owner.ID, k.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, progress.CompletedSessions)
		assert.Equal(t, 0, progress.RemainingSessions)
		assert.Equal(t, 20, progress.CompletedVerses)
		assert.Equal(t, 100.0, progress.ProgressPercentage)
		assert.Equal(t, 100.0, progress.VersesPercentage)
		assert.True(t, progress.IsCompleted)
		assert.False(t, progress.IsActive)
		assert.Equal(t, map[string]int{"scheduled": 0, "completed": 5, "skipped": 0, "missed": 0}, progress.SessionStats)

		active := true
		_, err = f.svc.Update(f.ctx, f.owner.ID, k.ID, khatm.UpdateKhatm{IsActive: &active})
		assert.Equal(t, khatm.ErrReactivation, err)
	})
}

func TestService_CompleteSession_concurrent(t *testing.T) {
	f := setup(t)
	k := f.create(t, f.owner.ID, dailyKhatm())
	detail, err := f.svc.Get(f.ctx, f.owner.ID, k.ID)
	require.NoError(t, err)
	target := detail.Sessions[2]

	const workers = 10
	var (
		wg                   sync.WaitGroup
		mu                   sync.Mutex
		successes, conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CompleteSession(f.ctx, f.owner.ID, k.ID, target.ID, khatm.CompleteSession{VersesRead: 4})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case core.IsConflict(err):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)

	progress, err := f.svc.Progress(f.ctx, f.owner.ID, k.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.CompletedSessions)
	assert.Equal(t, 4, progress.CompletedVerses)
}

func TestService_SkipSession(t *testing.T) {
	f := setup(t)
	k := f.create(t, f.owner.ID, dailyKhatm())
	detail, err := f.svc.Get(f.ctx, f.owner.ID, k.ID)
	require.NoError(t, err)
	s := detail.Sessions[1]

	skip := khatm.SkipSession{Reason: "  travelling  "}
	require.NoError(t, skip.Validate(f.validate))
	skipped, err := f.svc.SkipSession(f.ctx, f.owner.ID, k.ID, s.ID, skip)
	require.NoError(t, err)
	assert.Equal(t, khatm.StatusSkipped, skipped.Status)
	assert.Equal(t, "travelling", skipped.SkipReason)
	assert.NotNil(t, skipped.SkippedAt)

	_, err = f.svc.CompleteSession(f.ctx, f.owner.ID, k.ID, s.ID, khatm.CompleteSession{})
	require.True(t, core.IsConflict(err), "got %v", err)
	assert.Equal(t, "session already skipped", err.Error())

	_, err = f.svc.SkipSession(f.ctx, f.owner.ID, k.ID, s.ID, khatm.SkipSession{})
	assert.True(t, core.IsConflict(err), "got %v", err)

	progress, err := f.svc.Progress(f.ctx, f.owner.ID, k.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, progress.CompletedSessions)
	assert.Equal(t, 1, progress.SessionStats[khatm.StatusSkipped])
	assert.Equal(t, 4, progress.SessionStats[khatm.StatusScheduled])
}

func TestService_Ownership(t *testing.T) {
	f := setup(t)
	k := f.create(t, f.owner.ID, dailyKhatm())

	_, err := f.svc.Get(f.ctx, f.other.ID, k.ID)
	assert.Equal(t, khatm.ErrForbidden, err)
	assert.True(t, core.IsAuthorization(err))

	_, err = f.svc.Progress(f.ctx, f.other.ID, k.ID)
	assert.Equal(t, khatm.ErrForbidden, err)

	assert.Equal(t, khatm.ErrForbidden, f.svc.Delete(f.ctx, f.other.ID, k.ID))

	_, err = f.svc.Get(f.ctx, f.owner.ID, k.ID+1000)
	assert.True(t, core.IsNotFound(err), "got %v", err)
}

func TestService_UpdateDelete(t *testing.T) {
	f := setup(t)
	k := f.create(t, f.owner.ID, dailyKhatm())

	title := "Renamed"
	mode := khatm.ModeReadOnly
	minutes := 15
	inactive := false
	uk := khatm.UpdateKhatm{Title: &title, ReadingMode: &mode, ReminderMinutesBefore: &minutes, IsActive: &inactive}
	require.NoError(t, uk.Validate(f.validate))

	f.setNow(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	updated, err := f.svc.Update(f.ctx, f.owner.ID, k.ID, uk)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, khatm.ModeReadOnly, updated.ReadingMode)
	assert.Equal(t, 15, updated.ReminderMinutesBefore)
	assert.False(t, updated.IsActive)
	assert.Equal(t, f.now, updated.UpdatedAt)
	assert.Equal(t, "06:30", updated.ReadingTime)

	active, err := f.svc.List(f.ctx, f.owner.ID, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, f.svc.Delete(f.ctx, f.owner.ID, k.ID))
	_, err = f.svc.Get(f.ctx, f.owner.ID, k.ID)
	assert.True(t, core.IsNotFound(err), "got %v", err)
}

func TestService_TodayAndSession(t *testing.T) {
	f := setup(t)
	nk := dailyKhatm()
	nk.Timezone = "Asia/Tokyo" // UTC+9
	nk.ReadingTime = "07:00"
	k := f.create(t, f.owner.ID, nk)

	// 2024-03-02 20:00 UTC is already March 3rd in Tokyo
	f.setNow(time.Date(2024, 3, 2, 20, 0, 0, 0, time.UTC))
	s, ok, err := f.svc.Today(f.ctx, f.owner.ID, k.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, s.SessionNumber)
	assert.Equal(t, time.Date(2024, 3, 2, 22, 0, 0, 0, time.UTC), s.ScheduledDate)

	f.setNow(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	_, ok, err = f.svc.Today(f.ctx, f.owner.ID, k.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	sd, err := f.svc.GetSession(f.ctx, f.owner.ID, k.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, khatm.ModeReadListen, sd.ReadingMode)
	require.Len(t, sd.Verses, 4)
	assert.Equal(t, 9, sd.Verses[0].VerseNumber)
	assert.Equal(t, 12, sd.Verses[3].VerseNumber)
}

func TestService_SweepAndNotify(t *testing.T) {
	f := setup(t)
	k := f.create(t, f.owner.ID, dailyKhatm())
	f.create(t, f.silent.ID, dailyKhatm())

	optOut := dailyKhatm()
	disabled := false
	optOut.EnableMissedDayNotifications = &disabled
	f.create(t, f.other.ID, optOut)

	paused := f.create(t, f.other.ID, dailyKhatm())
	inactive := false
	_, err := f.svc.Update(f.ctx, f.other.ID, paused.ID, khatm.UpdateKhatm{IsActive: &inactive})
	require.NoError(t, err)

	// the default grace period is 24h: sessions 1 and 2 are overdue
	f.setNow(time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC))
	n, err := f.svc.SweepMissed(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n) // 2 sessions for each of the 3 active khatms

	n, err = f.svc.SweepMissed(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	progress, err := f.svc.Progress(f.ctx, f.owner.ID, k.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.SessionStats[khatm.StatusMissed])
	assert.True(t, progress.IsActive)

	n, err = f.svc.NotifyMissed(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sent := f.mail.SentMessages()
	require.Len(t, sent, 2)
	for _, msg := range sent {
		assert.Equal(t, "amina@example.com", msg.To[0].Address)
		assert.Equal(t, "Missed reading session: Ramadan khatm", msg.Subject)
	}
	assert.Contains(t, sent[0].TextContent, "You missed reading session 1")
	assert.Contains(t, sent[0].TextContent, "2024-03-01 06:30")

	n, err = f.svc.NotifyMissed(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.mail.SentMessages(), 2)
}

func TestService_SendReminders(t *testing.T) {
	f := setup(t)
	nk := dailyKhatm()
	minutes := 20
	nk.ReminderMinutesBefore = &minutes
	f.create(t, f.owner.ID, nk)

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"before the window", time.Date(2024, 3, 2, 6, 0, 0, 0, time.UTC), 0},
		{"window opens", time.Date(2024, 3, 2, 6, 10, 0, 0, time.UTC), 1},
		{"already reminded", time.Date(2024, 3, 2, 6, 20, 0, 0, time.UTC), 0},
		{"session started", time.Date(2024, 3, 3, 6, 30, 0, 0, time.UTC), 0},
		{"next day window", time.Date(2024, 3, 4, 6, 29, 0, 0, time.UTC), 1},
	}
	for _, tt := range tests {
		f.setNow(tt.now)
		n, err := f.svc.SendReminders(f.ctx)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, n, tt.name)
	}

	sent := f.mail.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "Reading session reminder: Ramadan khatm", sent[0].Subject)
	assert.Contains(t, sent[0].TextContent, "Your reading session 2")
	assert.Contains(t, sent[1].TextContent, "Your reading session 4")
}
