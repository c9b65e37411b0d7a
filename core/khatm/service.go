package khatm

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/quran"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("khatm")
	ErrSessionNotFound = core.NewNotFoundError("session")
	ErrForbidden       = core.NewAuthorizationError("not authorized to access this khatm")
	ErrReactivation    = core.NewValidationError(nil, core.FieldError{Field: "is_active", Error: "a completed khatm cannot be reactivated"})

	NowFunc = time.Now // mockable
)

// NewSessionStateError is returned when acting on a session that already left the scheduled state.
func NewSessionStateError(status string) error {
	return core.NewConflictError("session already " + status)
}

type (
	Repository interface {
		// CreateKhatm stores the khatm and all its sessions atomically.
		CreateKhatm(ctx context.Context, k Khatm, sessions []Session) (Khatm, error)
		GetKhatm(ctx context.Context, id int64) (Khatm, error)
		// QueryKhatms returns the khatms of `userID`, newest first.
		QueryKhatms(ctx context.Context, userID string, activeOnly bool) ([]Khatm, error)
		UpdateKhatm(ctx context.Context, k Khatm) (Khatm, error)
		// DeleteKhatm removes the khatm and its sessions.
		DeleteKhatm(ctx context.Context, id int64) error

		// QuerySessions returns the sessions of a khatm, by session number.
		QuerySessions(ctx context.Context, khatmID int64) ([]Session, error)
		GetSession(ctx context.Context, khatmID, sessionID int64) (Session, error)
		CountSessionsByStatus(ctx context.Context, khatmID int64) (map[string]int, error)

		// CompleteSession moves a scheduled session to completed and credits its verse count
		// to the khatm, in a single transaction. The khatm is marked completed (and inactive)
		// when its last session is completed. A session that is no longer scheduled yields
		// NewSessionStateError with its current status.
		CompleteSession(ctx context.Context, khatmID, sessionID int64, data CompleteSession, at time.Time) (Session, Khatm, error)
		// SkipSession moves a scheduled session to skipped, with the same guarantees as CompleteSession.
		SkipSession(ctx context.Context, khatmID, sessionID int64, reason string, at time.Time) (Session, error)

		// MarkMissed moves to missed the scheduled sessions of active khatms planned at or before `cutoff`.
		MarkMissed(ctx context.Context, cutoff, at time.Time) (int, error)
		// PendingMissedNotices returns the missed sessions not notified yet, for owners with an email
		// and khatms with missed day notifications enabled.
		PendingMissedNotices(ctx context.Context) ([]Notice, error)
		MarkMissedNotified(ctx context.Context, sessionIDs []int64, at time.Time) error
		// DueReminders returns the scheduled sessions of active khatms whose reminder window
		// is open at `now`, not reminded yet, for owners with an email.
		DueReminders(ctx context.Context, now time.Time) ([]Notice, error)
		MarkReminded(ctx context.Context, sessionIDs []int64, at time.Time) error
	}

	// Corpus gives access to the ordered verses.
	Corpus interface {
		ListVersesOrdered(ctx context.Context) ([]quran.VerseRef, error)
		VersesInRange(ctx context.Context, fromGlobal, toGlobal int) ([]quran.Verse, error)
	}

	Service interface {
		Create(ctx context.Context, userID string, nk NewKhatm) (Khatm, error)
		List(ctx context.Context, userID string, activeOnly bool) ([]Summary, error)
		Get(ctx context.Context, userID string, id int64) (Detail, error)
		// Today returns the session planned for the current date in the khatm timezone, if any.
		Today(ctx context.Context, userID string, id int64) (Session, bool, error)
		GetSession(ctx context.Context, userID string, id, sessionID int64) (SessionDetail, error)
		CompleteSession(ctx context.Context, userID string, id, sessionID int64, data CompleteSession) (CompleteResult, error)
		SkipSession(ctx context.Context, userID string, id, sessionID int64, data SkipSession) (Session, error)
		Update(ctx context.Context, userID string, id int64, uk UpdateKhatm) (Khatm, error)
		Delete(ctx context.Context, userID string, id int64) error
		Progress(ctx context.Context, userID string, id int64) (Progress, error)

		SweepMissed(ctx context.Context) (int, error)
		NotifyMissed(ctx context.Context) (int, error)
		SendReminders(ctx context.Context) (int, error)
	}

	service struct {
		repo        Repository
		corpus      Corpus
		mailSvc     core.EmailService
		missedAfter time.Duration
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, corpus Corpus, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:        repo,
		corpus:      corpus,
		mailSvc:     mailSvc,
		missedAfter: conf.Khatm.MissedAfter,
	}
}

// Create expects a validated NewKhatm.
func (svc *service) Create(ctx context.Context, userID string, nk NewKhatm) (Khatm, error) {
	plan, err := nk.plan()
	if err != nil {
		return Khatm{}, core.NewValidationError(err)
	}
	refs, err := svc.corpus.ListVersesOrdered(ctx)
	if err != nil {
		return Khatm{}, errors.Wrap(err, "loading corpus")
	}
	sessions, err := Build(plan, refs)
	if err != nil {
		return Khatm{}, err
	}

	now := NowFunc().UTC()
	k := Khatm{
		UserID:                       userID,
		Title:                        nk.Title,
		Description:                  nk.Description,
		StartDate:                    plan.StartDate,
		EndDate:                      plan.EndDate,
		TargetDate:                   plan.EndDate,
		FrequencyType:                nk.FrequencyType,
		ReadingDays:                  nk.ReadingDays,
		ReadingTime:                  nk.ReadingTime,
		Timezone:                     nk.Timezone,
		ReadingMode:                  nk.ReadingMode,
		EnableAudioBreak:             boolOr(nk.EnableAudioBreak, true),
		ReminderMinutesBefore:        defaultReminderMinutes,
		EnableMissedDayNotifications: boolOr(nk.EnableMissedDayNotifications, true),
		TotalSessions:                len(sessions),
		TotalVerses:                  len(refs),
		IsActive:                     true,
		CreatedAt:                    now,
		UpdatedAt:                    now,
	}
	if nk.ReminderMinutesBefore != nil {
		k.ReminderMinutesBefore = *nk.ReminderMinutesBefore
	}
	if k.ReadingDays == nil {
		k.ReadingDays = []string{}
	}
	for i := range sessions {
		sessions[i].CreatedAt = now
	}

	return svc.repo.CreateKhatm(ctx, k, sessions)
}

func (svc *service) List(ctx context.Context, userID string, activeOnly bool) ([]Summary, error) {
	khatms, err := svc.repo.QueryKhatms(ctx, userID, activeOnly)
	if err != nil {
		return nil, errors.Wrap(err, "querying khatms")
	}
	summaries := make([]Summary, 0, len(khatms))
	for _, k := range khatms {
		summaries = append(summaries, NewSummary(k))
	}
	return summaries, nil
}

// owned returns the khatm `id` when it belongs to `userID`.
func (svc *service) owned(ctx context.Context, userID string, id int64) (Khatm, error) {
	k, err := svc.repo.GetKhatm(ctx, id)
	if err != nil {
		return Khatm{}, err
	}
	if k.UserID != userID {
		return Khatm{}, ErrForbidden
	}
	return k, nil
}

func (svc *service) Get(ctx context.Context, userID string, id int64) (Detail, error) {
	k, err := svc.owned(ctx, userID, id)
	if err != nil {
		return Detail{}, err
	}
	sessions, err := svc.repo.QuerySessions(ctx, id)
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying sessions")
	}
	return Detail{Summary: NewSummary(k), Sessions: sessions}, nil
}

func (svc *service) Today(ctx context.Context, userID string, id int64) (Session, bool, error) {
	k, err := svc.owned(ctx, userID, id)
	if err != nil {
		return Session{}, false, err
	}
	sessions, err := svc.repo.QuerySessions(ctx, id)
	if err != nil {
		return Session{}, false, errors.Wrap(err, "querying sessions")
	}

	loc := k.Location()
	ty, tm, td := NowFunc().In(loc).Date()
	for _, s := range sessions {
		if y, m, d := s.ScheduledDate.In(loc).Date(); y == ty && m == tm && d == td {
			return s, true, nil
		}
	}
	return Session{}, false, nil
}

func (svc *service) GetSession(ctx context.Context, userID string, id, sessionID int64) (SessionDetail, error) {
	k, err := svc.owned(ctx, userID, id)
	if err != nil {
		return SessionDetail{}, err
	}
	s, err := svc.repo.GetSession(ctx, id, sessionID)
	if err != nil {
		return SessionDetail{}, err
	}
	verses, err := svc.corpus.VersesInRange(ctx, s.StartGlobal, s.EndGlobal)
	if err != nil {
		return SessionDetail{}, errors.Wrap(err, "querying session verses")
	}
	return SessionDetail{
		Session:          s,
		ReadingMode:      k.ReadingMode,
		EnableAudioBreak: k.EnableAudioBreak,
		Verses:           verses,
	}, nil
}

// CompleteSession expects validated data.
func (svc *service) CompleteSession(ctx context.Context, userID string, id, sessionID int64, data CompleteSession) (CompleteResult, error) {
	if _, err := svc.owned(ctx, userID, id); err != nil {
		return CompleteResult{}, err
	}
	if data.LastVerseID != nil {
		s, err := svc.repo.GetSession(ctx, id, sessionID)
		if err != nil {
			return CompleteResult{}, err
		}
		if *data.LastVerseID < s.StartVerseID || *data.LastVerseID > s.EndVerseID {
			return CompleteResult{}, core.NewValidationError(nil, core.FieldError{
				Field: "last_verse_id",
				Error: "verse is outside of the session range",
			})
		}
	}

	s, k, err := svc.repo.CompleteSession(ctx, id, sessionID, data, NowFunc().UTC())
	if err != nil {
		return CompleteResult{}, err
	}
	return CompleteResult{
		Session: s,
		Progress: CompletionProgress{
			CompletedSessions: k.CompletedSessions,
			TotalSessions:     k.TotalSessions,
			Percentage:        k.ProgressPercentage(),
		},
	}, nil
}

// SkipSession expects validated data.
func (svc *service) SkipSession(ctx context.Context, userID string, id, sessionID int64, data SkipSession) (Session, error) {
	if _, err := svc.owned(ctx, userID, id); err != nil {
		return Session{}, err
	}
	return svc.repo.SkipSession(ctx, id, sessionID, data.Reason, NowFunc().UTC())
}

// Update expects a validated UpdateKhatm.
func (svc *service) Update(ctx context.Context, userID string, id int64, uk UpdateKhatm) (Khatm, error) {
	k, err := svc.owned(ctx, userID, id)
	if err != nil {
		return Khatm{}, err
	}

	if uk.Title != nil {
		k.Title = *uk.Title
	}
	if uk.Description != nil {
		k.Description = *uk.Description
	}
	if uk.ReadingTime != nil {
		k.ReadingTime = *uk.ReadingTime
	}
	if uk.ReadingMode != nil {
		k.ReadingMode = *uk.ReadingMode
	}
	if uk.EnableAudioBreak != nil {
		k.EnableAudioBreak = *uk.EnableAudioBreak
	}
	if uk.ReminderMinutesBefore != nil {
		k.ReminderMinutesBefore = *uk.ReminderMinutesBefore
	}
	if uk.IsActive != nil {
		if *uk.IsActive && k.IsCompleted {
			return Khatm{}, ErrReactivation
		}
		k.IsActive = *uk.IsActive
	}
	k.UpdatedAt = NowFunc().UTC()

	return svc.repo.UpdateKhatm(ctx, k)
}

func (svc *service) Delete(ctx context.Context, userID string, id int64) error {
	if _, err := svc.owned(ctx, userID, id); err != nil {
		return err
	}
	return svc.repo.DeleteKhatm(ctx, id)
}

func (svc *service) Progress(ctx context.Context, userID string, id int64) (Progress, error) {
	k, err := svc.owned(ctx, userID, id)
	if err != nil {
		return Progress{}, err
	}
	counts, err := svc.repo.CountSessionsByStatus(ctx, id)
	if err != nil {
		return Progress{}, errors.Wrap(err, "counting sessions")
	}
	stats := make(map[string]int, len(Statuses))
	for _, status := range Statuses {
		stats[status] = counts[status]
	}

	return Progress{
		KhatmID:            k.ID,
		Title:              k.Title,
		TotalSessions:      k.TotalSessions,
		CompletedSessions:  k.CompletedSessions,
		RemainingSessions:  k.TotalSessions - k.CompletedSessions,
		TotalVerses:        k.TotalVerses,
		CompletedVerses:    k.CompletedVerses,
		RemainingVerses:    k.TotalVerses - k.CompletedVerses,
		ProgressPercentage: k.ProgressPercentage(),
		VersesPercentage:   k.VersesPercentage(),
		SessionStats:       stats,
		IsActive:           k.IsActive,
		IsCompleted:        k.IsCompleted,
	}, nil
}

// SweepMissed marks as missed the scheduled sessions whose time is older than the grace period.
func (svc *service) SweepMissed(ctx context.Context) (int, error) {
	now := NowFunc().UTC()
	n, err := svc.repo.MarkMissed(ctx, now.Add(-svc.missedAfter), now)
	if err != nil {
		return 0, errors.Wrap(err, "marking missed sessions")
	}
	return n, nil
}

// NotifyMissed emails the owners of missed sessions, once per session.
func (svc *service) NotifyMissed(ctx context.Context) (int, error) {
	notices, err := svc.repo.PendingMissedNotices(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "querying missed sessions")
	}
	return svc.notify(ctx, notices, "khatm_missed", "Missed reading session", svc.repo.MarkMissedNotified)
}

// SendReminders emails the owners of sessions starting within their reminder window, once per session.
func (svc *service) SendReminders(ctx context.Context) (int, error) {
	notices, err := svc.repo.DueReminders(ctx, NowFunc().UTC())
	if err != nil {
		return 0, errors.Wrap(err, "querying due reminders")
	}
	return svc.notify(ctx, notices, "khatm_reminder", "Reading session reminder", svc.repo.MarkReminded)
}

type markFunc func(ctx context.Context, sessionIDs []int64, at time.Time) error

func (svc *service) notify(ctx context.Context, notices []Notice, tmpl, subject string, mark markFunc) (int, error) {
	if len(notices) == 0 {
		return 0, nil
	}

	msgs := make([]*core.EmailMessage, 0, len(notices))
	ids := make([]int64, 0, len(notices))
	for _, n := range notices {
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: n.Username, Address: n.Email}},
			Subject:      subject + ": " + n.Khatm.Title,
			TemplateName: tmpl,
			TemplateData: noticeData(n),
		})
		ids = append(ids, n.Session.ID)
	}
	svc.mailSvc.SendMessages(msgs...)

	if err := mark(ctx, ids, NowFunc().UTC()); err != nil {
		return 0, errors.Wrap(err, "flagging notified sessions")
	}
	return len(ids), nil
}

func noticeData(n Notice) map[string]interface{} {
	s := n.Session
	return map[string]interface{}{
		"SessionNumber": s.SessionNumber,
		"Title":         n.Khatm.Title,
		"Time":          s.ScheduledDate.In(n.Khatm.Location()).Format("2006-01-02 15:04"),
		"StartSurah":    s.StartSurahID,
		"StartVerse":    s.StartVerseInSurah,
		"EndSurah":      s.EndSurahID,
		"EndVerse":      s.EndVerseInSurah,
		"VerseCount":    s.VerseCount,
		"KhatmID":       n.Khatm.ID,
	}
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
