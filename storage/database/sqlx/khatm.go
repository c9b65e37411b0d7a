package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/FARHATREKAYA/quran-app/core/khatm"
)

var (
	khatmColumns = []string{
		"id", "user_id", "title", "description", "start_date", "end_date", "target_date", "frequency_type",
		"reading_days", "reading_time", "timezone", "reading_mode", "enable_audio_break", "reminder_minutes_before",
		"enable_missed_day_notifications", "total_sessions", "total_verses", "completed_sessions", "completed_verses",
		"is_active", "is_completed", "created_at", "updated_at",
	}
	sessionColumns = []string{
		"id", "khatm_id", "session_number", "scheduled_date", "start_verse_id", "end_verse_id", "start_global",
		"end_global", "start_surah_id", "start_verse_in_surah", "end_surah_id", "end_verse_in_surah", "verse_count",
		"status", "completed_at", "skipped_at", "skip_reason", "missed_at", "current_verse_id", "verses_read_count",
		"reminder_sent", "reminder_sent_at", "missed_notification_sent", "missed_notification_sent_at", "created_at",
	}
)

func prefixed(prefix string, columns []string) []string {
	res := make([]string, len(columns))
	for i, c := range columns {
		res[i] = prefix + "." + c
	}
	return res
}

type khatmRow struct {
	ID                           int64          `db:"id"`
	UserID                       string         `db:"user_id"`
	Title                        string         `db:"title"`
	Description                  string         `db:"description"`
	StartDate                    time.Time      `db:"start_date"`
	EndDate                      time.Time      `db:"end_date"`
	TargetDate                   time.Time      `db:"target_date"`
	FrequencyType                string         `db:"frequency_type"`
	ReadingDays                  pq.StringArray `db:"reading_days"`
	ReadingTime                  string         `db:"reading_time"`
	Timezone                     string         `db:"timezone"`
	ReadingMode                  string         `db:"reading_mode"`
	EnableAudioBreak             bool           `db:"enable_audio_break"`
	ReminderMinutesBefore        int            `db:"reminder_minutes_before"`
	EnableMissedDayNotifications bool           `db:"enable_missed_day_notifications"`
	TotalSessions                int            `db:"total_sessions"`
	TotalVerses                  int            `db:"total_verses"`
	CompletedSessions            int            `db:"completed_sessions"`
	CompletedVerses              int            `db:"completed_verses"`
	IsActive                     bool           `db:"is_active"`
	IsCompleted                  bool           `db:"is_completed"`
	CreatedAt                    time.Time      `db:"created_at"`
	UpdatedAt                    time.Time      `db:"updated_at"`
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (r khatmRow) khatm() khatm.Khatm {
	days := []string(r.ReadingDays)
	if days == nil {
		days = []string{}
	}
	return khatm.Khatm{
		ID:                           r.ID,
		UserID:                       r.UserID,
		Title:                        r.Title,
		Description:                  r.Description,
		StartDate:                    dateOnly(r.StartDate),
		EndDate:                      dateOnly(r.EndDate),
		TargetDate:                   dateOnly(r.TargetDate),
		FrequencyType:                r.FrequencyType,
		ReadingDays:                  days,
		ReadingTime:                  r.ReadingTime,
		Timezone:                     r.Timezone,
		ReadingMode:                  r.ReadingMode,
		EnableAudioBreak:             r.EnableAudioBreak,
		ReminderMinutesBefore:        r.ReminderMinutesBefore,
		EnableMissedDayNotifications: r.EnableMissedDayNotifications,
		TotalSessions:                r.TotalSessions,
		TotalVerses:                  r.TotalVerses,
		CompletedSessions:            r.CompletedSessions,
		CompletedVerses:              r.CompletedVerses,
		IsActive:                     r.IsActive,
		IsCompleted:                  r.IsCompleted,
		CreatedAt:                    r.CreatedAt.UTC(),
		UpdatedAt:                    r.UpdatedAt.UTC(),
	}
}

type sessionRow struct {
	ID                       int64       `db:"id"`
	KhatmID                  int64       `db:"khatm_id"`
	SessionNumber            int         `db:"session_number"`
	ScheduledDate            time.Time   `db:"scheduled_date"`
	StartVerseID             int         `db:"start_verse_id"`
	EndVerseID               int         `db:"end_verse_id"`
	StartGlobal              int         `db:"start_global"`
	EndGlobal                int         `db:"end_global"`
	StartSurahID             int         `db:"start_surah_id"`
	StartVerseInSurah        int         `db:"start_verse_in_surah"`
	EndSurahID               int         `db:"end_surah_id"`
	EndVerseInSurah          int         `db:"end_verse_in_surah"`
	VerseCount               int         `db:"verse_count"`
	Status                   string      `db:"status"`
	CompletedAt              null.Time   `db:"completed_at"`
	SkippedAt                null.Time   `db:"skipped_at"`
	SkipReason               null.String `db:"skip_reason"`
	MissedAt                 null.Time   `db:"missed_at"`
	CurrentVerseID           null.Int    `db:"current_verse_id"`
	VersesReadCount          int         `db:"verses_read_count"`
	ReminderSent             bool        `db:"reminder_sent"`
	ReminderSentAt           null.Time   `db:"reminder_sent_at"`
	MissedNotificationSent   bool        `db:"missed_notification_sent"`
	MissedNotificationSentAt null.Time   `db:"missed_notification_sent_at"`
	CreatedAt                time.Time   `db:"created_at"`
}

func timePtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func (r sessionRow) session() khatm.Session {
	s := khatm.Session{
		ID:                       r.ID,
		KhatmID:                  r.KhatmID,
		SessionNumber:            r.SessionNumber,
		ScheduledDate:            r.ScheduledDate.UTC(),
		StartVerseID:             r.StartVerseID,
		EndVerseID:               r.EndVerseID,
		StartGlobal:              r.StartGlobal,
		EndGlobal:                r.EndGlobal,
		StartSurahID:             r.StartSurahID,
		StartVerseInSurah:        r.StartVerseInSurah,
		EndSurahID:               r.EndSurahID,
		EndVerseInSurah:          r.EndVerseInSurah,
		VerseCount:               r.VerseCount,
		Status:                   r.Status,
		CompletedAt:              timePtr(r.CompletedAt),
		SkippedAt:                timePtr(r.SkippedAt),
		SkipReason:               r.SkipReason.String,
		MissedAt:                 timePtr(r.MissedAt),
		VersesReadCount:          r.VersesReadCount,
		ReminderSent:             r.ReminderSent,
		ReminderSentAt:           timePtr(r.ReminderSentAt),
		MissedNotificationSent:   r.MissedNotificationSent,
		MissedNotificationSentAt: timePtr(r.MissedNotificationSentAt),
		CreatedAt:                r.CreatedAt.UTC(),
	}
	if r.CurrentVerseID.Valid {
		id := r.CurrentVerseID.Int
		s.CurrentVerseID = &id
	}
	return s
}

type khatmRepository struct {
	pg *Postgres
}

var _ khatm.Repository = (*khatmRepository)(nil) // interface compliance check

func NewKhatmRepository(pg *Postgres) khatm.Repository {
	return &khatmRepository{pg: pg}
}

func returning(columns []string) string {
	return "RETURNING " + strings.Join(columns, ", ")
}

func (repo *khatmRepository) CreateKhatm(ctx context.Context, k khatm.Khatm, sessions []khatm.Session) (khatm.Khatm, error) {
	var created khatm.Khatm
	err := repo.pg.RunInTx(ctx, func(tx *Postgres) error {
		var row khatmRow
		q := tx.psql.Insert("khatms").
			Columns(khatmColumns[1:]...).
			Values(
				k.UserID, k.Title, k.Description, k.StartDate, k.EndDate, k.TargetDate, k.FrequencyType,
				pq.StringArray(k.ReadingDays), k.ReadingTime, k.Timezone, k.ReadingMode, k.EnableAudioBreak,
				k.ReminderMinutesBefore, k.EnableMissedDayNotifications, k.TotalSessions, k.TotalVerses,
				k.CompletedSessions, k.CompletedVerses, k.IsActive, k.IsCompleted, k.CreatedAt.UTC(), k.UpdatedAt.UTC(),
			).
			Suffix(returning(khatmColumns))
		if err := tx.get(ctx, &row, q); err != nil {
			return errors.Wrap(err, "inserting khatm")
		}
		created = row.khatm()

		for start := 0; start < len(sessions); start += insertBatchSize {
			end := start + insertBatchSize
			if end > len(sessions) {
				end = len(sessions)
			}
			q := tx.psql.Insert("khatm_sessions").Columns(
				"khatm_id", "session_number", "scheduled_date", "start_verse_id", "end_verse_id", "start_global",
				"end_global", "start_surah_id", "start_verse_in_surah", "end_surah_id", "end_verse_in_surah",
				"verse_count", "status", "created_at",
			)
			for _, s := range sessions[start:end] {
				q = q.Values(
					created.ID, s.SessionNumber, s.ScheduledDate.UTC(), s.StartVerseID, s.EndVerseID, s.StartGlobal,
					s.EndGlobal, s.StartSurahID, s.StartVerseInSurah, s.EndSurahID, s.EndVerseInSurah,
					s.VerseCount, s.Status, s.CreatedAt.UTC(),
				)
			}
			if _, err := tx.exec(ctx, q); err != nil {
				return errors.Wrap(err, "inserting sessions")
			}
		}
		return nil
	})
	if err != nil {
		return khatm.Khatm{}, err
	}
	return created, nil
}

func (repo *khatmRepository) getKhatm(ctx context.Context, pg *Postgres, id int64) (khatm.Khatm, error) {
	var row khatmRow
	q := pg.psql.Select(khatmColumns...).From("khatms").Where(squirrel.Eq{"id": id})
	if err := pg.get(ctx, &row, q); err != nil {
		return khatm.Khatm{}, trapNoRowsErr(err, khatm.ErrNotFound)
	}
	return row.khatm(), nil
}

func (repo *khatmRepository) GetKhatm(ctx context.Context, id int64) (khatm.Khatm, error) {
	return repo.getKhatm(ctx, repo.pg, id)
}

func (repo *khatmRepository) QueryKhatms(ctx context.Context, userID string, activeOnly bool) ([]khatm.Khatm, error) {
	q := repo.pg.psql.Select(khatmColumns...).From("khatms").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC")
	if activeOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}

	var rows []khatmRow
	if err := repo.pg.selectAll(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting khatms")
	}
	khatms := make([]khatm.Khatm, 0, len(rows))
	for _, r := range rows {
		khatms = append(khatms, r.khatm())
	}
	return khatms, nil
}

func (repo *khatmRepository) UpdateKhatm(ctx context.Context, k khatm.Khatm) (khatm.Khatm, error) {
	var row khatmRow
	q := repo.pg.psql.Update("khatms").
		SetMap(map[string]interface{}{
			"title":                           k.Title,
			"description":                     k.Description,
			"reading_time":                    k.ReadingTime,
			"reading_mode":                    k.ReadingMode,
			"enable_audio_break":              k.EnableAudioBreak,
			"reminder_minutes_before":         k.ReminderMinutesBefore,
			"enable_missed_day_notifications": k.EnableMissedDayNotifications,
			"is_active":                       k.IsActive,
			"updated_at":                      k.UpdatedAt.UTC(),
		}).
		Where(squirrel.Eq{"id": k.ID}).
		Suffix(returning(khatmColumns))
	if err := repo.pg.get(ctx, &row, q); err != nil {
		return khatm.Khatm{}, trapNoRowsErr(err, khatm.ErrNotFound)
	}
	return row.khatm(), nil
}

func (repo *khatmRepository) DeleteKhatm(ctx context.Context, id int64) error {
	n, err := repo.pg.execAffected(ctx, repo.pg.psql.Delete("khatms").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting khatm")
	}
	if n == 0 {
		return khatm.ErrNotFound
	}
	return nil
}

func (repo *khatmRepository) selectSessions(ctx context.Context, q squirrel.SelectBuilder) ([]khatm.Session, error) {
	var rows []sessionRow
	if err := repo.pg.selectAll(ctx, &rows, q); err != nil {
		return nil, err
	}
	sessions := make([]khatm.Session, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, r.session())
	}
	return sessions, nil
}

func (repo *khatmRepository) QuerySessions(ctx context.Context, khatmID int64) ([]khatm.Session, error) {
	q := repo.pg.psql.Select(sessionColumns...).From("khatm_sessions").
		Where(squirrel.Eq{"khatm_id": khatmID}).
		OrderBy("session_number")
	sessions, err := repo.selectSessions(ctx, q)
	return sessions, errors.Wrap(err, "selecting sessions")
}

func (repo *khatmRepository) getSession(ctx context.Context, pg *Postgres, khatmID, sessionID int64) (khatm.Session, error) {
	var row sessionRow
	q := pg.psql.Select(sessionColumns...).From("khatm_sessions").
		Where(squirrel.Eq{"id": sessionID, "khatm_id": khatmID})
	if err := pg.get(ctx, &row, q); err != nil {
		return khatm.Session{}, trapNoRowsErr(err, khatm.ErrSessionNotFound)
	}
	return row.session(), nil
}

func (repo *khatmRepository) GetSession(ctx context.Context, khatmID, sessionID int64) (khatm.Session, error) {
	return repo.getSession(ctx, repo.pg, khatmID, sessionID)
}

func (repo *khatmRepository) CountSessionsByStatus(ctx context.Context, khatmID int64) (map[string]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	q := repo.pg.psql.Select("status", "COUNT(*) AS count").From("khatm_sessions").
		Where(squirrel.Eq{"khatm_id": khatmID}).
		GroupBy("status")
	if err := repo.pg.selectAll(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "counting sessions")
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// transition applies `set` to a session only while it is still scheduled.
// A session in any other state yields khatm.NewSessionStateError.
func (repo *khatmRepository) transition(ctx context.Context, tx *Postgres, khatmID, sessionID int64, set map[string]interface{}) (khatm.Session, error) {
	var row sessionRow
	q := tx.psql.Update("khatm_sessions").
		SetMap(set).
		Where(squirrel.Eq{"id": sessionID, "khatm_id": khatmID, "status": khatm.StatusScheduled}).
		Suffix(returning(sessionColumns))
	err := tx.get(ctx, &row, q)
	if err == nil {
		return row.session(), nil
	}
	if trapNoRowsErr(err, nil) != nil {
		return khatm.Session{}, errors.Wrap(err, "updating session")
	}

	current, err := repo.getSession(ctx, tx, khatmID, sessionID)
	if err != nil {
		return khatm.Session{}, err
	}
	return khatm.Session{}, khatm.NewSessionStateError(current.Status)
}

func (repo *khatmRepository) CompleteSession(ctx context.Context, khatmID, sessionID int64, data khatm.CompleteSession, at time.Time) (khatm.Session, khatm.Khatm, error) {
	var (
		session khatm.Session
		updated khatm.Khatm
	)
	err := repo.pg.RunInTx(ctx, func(tx *Postgres) error {
		var currentVerse null.Int
		if data.LastVerseID != nil {
			currentVerse = null.IntFrom(*data.LastVerseID)
		}

		var err error
		session, err = repo.transition(ctx, tx, khatmID, sessionID, map[string]interface{}{
			"status":            khatm.StatusCompleted,
			"completed_at":      at.UTC(),
			"verses_read_count": data.VersesRead,
			"current_verse_id":  currentVerse,
		})
		if err != nil {
			return err
		}

		var row khatmRow
		q := tx.psql.Update("khatms").
			Set("completed_sessions", squirrel.Expr("completed_sessions + 1")).
			Set("completed_verses", squirrel.Expr("completed_verses + ?", session.VerseCount)).
			Set("is_completed", squirrel.Expr("completed_sessions + 1 >= total_sessions")).
			Set("is_active", squirrel.Expr("CASE WHEN completed_sessions + 1 >= total_sessions THEN FALSE ELSE is_active END")).
			Set("updated_at", at.UTC()).
			Where(squirrel.Eq{"id": khatmID}).
			Suffix(returning(khatmColumns))
		if err = tx.get(ctx, &row, q); err != nil {
			return trapNoRowsErr(err, khatm.ErrNotFound)
		}
		updated = row.khatm()
		return nil
	})
	if err != nil {
		return khatm.Session{}, khatm.Khatm{}, err
	}
	return session, updated, nil
}

func (repo *khatmRepository) SkipSession(ctx context.Context, khatmID, sessionID int64, reason string, at time.Time) (khatm.Session, error) {
	var session khatm.Session
	err := repo.pg.RunInTx(ctx, func(tx *Postgres) error {
		var err error
		session, err = repo.transition(ctx, tx, khatmID, sessionID, map[string]interface{}{
			"status":      khatm.StatusSkipped,
			"skipped_at":  at.UTC(),
			"skip_reason": null.NewString(reason, reason != ""),
		})
		return err
	})
	if err != nil {
		return khatm.Session{}, err
	}
	return session, nil
}

const markMissedQuery = `UPDATE khatm_sessions s SET status = $1, missed_at = $2
	FROM khatms k
	WHERE k.id = s.khatm_id AND k.is_active AND s.status = $3 AND s.scheduled_date <= $4`

func (repo *khatmRepository) MarkMissed(ctx context.Context, cutoff, at time.Time) (int, error) {
	res, err := repo.pg.executor().ExecContext(ctx, markMissedQuery, khatm.StatusMissed, at.UTC(), khatm.StatusScheduled, cutoff.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "marking missed sessions")
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type noticeRow struct {
	sessionRow
	Username string      `db:"username"`
	Email    null.String `db:"email"`
}

// queryNotices loads the sessions selected by `where`, with their khatm and owner.
func (repo *khatmRepository) queryNotices(ctx context.Context, where squirrel.Sqlizer) ([]khatm.Notice, error) {
	q := repo.pg.psql.Select(prefixed("s", sessionColumns)...).
		Columns("u.username", "u.email").
		From("khatm_sessions s").
		Join("khatms k ON k.id = s.khatm_id").
		Join("users u ON u.id = k.user_id").
		Where(where).
		Where("u.email IS NOT NULL AND u.email <> ''").
		OrderBy("s.id")

	var rows []noticeRow
	if err := repo.pg.selectAll(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting notices")
	}
	if len(rows) == 0 {
		return []khatm.Notice{}, nil
	}

	ids := make([]int64, 0, len(rows))
	seen := make(map[int64]bool)
	for _, r := range rows {
		if !seen[r.KhatmID] {
			seen[r.KhatmID] = true
			ids = append(ids, r.KhatmID)
		}
	}
	var khatmRows []khatmRow
	if err := repo.pg.selectAll(ctx, &khatmRows, repo.pg.psql.Select(khatmColumns...).From("khatms").Where(squirrel.Eq{"id": ids})); err != nil {
		return nil, errors.Wrap(err, "selecting notice khatms")
	}
	khatms := make(map[int64]khatm.Khatm, len(khatmRows))
	for _, r := range khatmRows {
		khatms[r.ID] = r.khatm()
	}

	notices := make([]khatm.Notice, 0, len(rows))
	for _, r := range rows {
		notices = append(notices, khatm.Notice{
			Session:  r.session(),
			Khatm:    khatms[r.KhatmID],
			Username: r.Username,
			Email:    r.Email.String,
		})
	}
	return notices, nil
}

func (repo *khatmRepository) PendingMissedNotices(ctx context.Context) ([]khatm.Notice, error) {
	return repo.queryNotices(ctx, squirrel.Eq{
		"s.status":                          khatm.StatusMissed,
		"s.missed_notification_sent":        false,
		"k.enable_missed_day_notifications": true,
	})
}

func (repo *khatmRepository) MarkMissedNotified(ctx context.Context, sessionIDs []int64, at time.Time) error {
	if len(sessionIDs) == 0 {
		return nil
	}
	q := repo.pg.psql.Update("khatm_sessions").
		Set("missed_notification_sent", true).
		Set("missed_notification_sent_at", at.UTC()).
		Where(squirrel.Eq{"id": sessionIDs})
	_, err := repo.pg.exec(ctx, q)
	return errors.Wrap(err, "flagging missed notifications")
}

func (repo *khatmRepository) DueReminders(ctx context.Context, now time.Time) ([]khatm.Notice, error) {
	now = now.UTC()
	return repo.queryNotices(ctx, squirrel.And{
		squirrel.Eq{"s.status": khatm.StatusScheduled, "s.reminder_sent": false, "k.is_active": true},
		squirrel.Gt{"s.scheduled_date": now},
		squirrel.Expr("s.scheduled_date - make_interval(mins => k.reminder_minutes_before) <= ?", now),
	})
}

func (repo *khatmRepository) MarkReminded(ctx context.Context, sessionIDs []int64, at time.Time) error {
	if len(sessionIDs) == 0 {
		return nil
	}
	q := repo.pg.psql.Update("khatm_sessions").
		Set("reminder_sent", true).
		Set("reminder_sent_at", at.UTC()).
		Where(squirrel.Eq{"id": sessionIDs})
	_, err := repo.pg.exec(ctx, q)
	return errors.Wrap(err, "flagging reminders")
}
