package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/FARHATREKAYA/quran-app/core/khatm"
)

type khatmRepository struct {
	db *DB
}

var _ khatm.Repository = (*khatmRepository)(nil) // interface compliance check

func NewKhatmRepository(db *DB) khatm.Repository {
	return &khatmRepository{db: db}
}

func copyKhatm(k *khatm.Khatm) khatm.Khatm {
	c := *k
	c.ReadingDays = append([]string{}, k.ReadingDays...)
	return c
}

func (repo *khatmRepository) CreateKhatm(_ context.Context, k khatm.Khatm, sessions []khatm.Session) (khatm.Khatm, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	k.ID = repo.db.nextPK()
	stored := copyKhatm(&k)
	repo.db.khatms[k.ID] = &stored
	for i := range sessions {
		s := sessions[i]
		s.ID = repo.db.nextPK()
		s.KhatmID = k.ID
		repo.db.sessions[s.ID] = &s
	}
	return copyKhatm(&stored), nil
}

func (repo *khatmRepository) GetKhatm(_ context.Context, id int64) (khatm.Khatm, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if k, ok := repo.db.khatms[id]; ok {
		return copyKhatm(k), nil
	}
	return khatm.Khatm{}, khatm.ErrNotFound
}

func (repo *khatmRepository) QueryKhatms(_ context.Context, userID string, activeOnly bool) ([]khatm.Khatm, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	khatms := make([]khatm.Khatm, 0)
	for _, k := range repo.db.khatms {
		if k.UserID != userID || (activeOnly && !k.IsActive) {
			continue
		}
		khatms = append(khatms, copyKhatm(k))
	}
	sort.Slice(khatms, func(i, j int) bool {
		if khatms[i].CreatedAt.Equal(khatms[j].CreatedAt) {
			return khatms[i].ID > khatms[j].ID
		}
		return khatms[i].CreatedAt.After(khatms[j].CreatedAt)
	})
	return khatms, nil
}

func (repo *khatmRepository) UpdateKhatm(_ context.Context, k khatm.Khatm) (khatm.Khatm, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.khatms[k.ID]
	if !ok {
		return khatm.Khatm{}, khatm.ErrNotFound
	}
	// progress counters are owned by CompleteSession
	orig.Title = k.Title
	orig.Description = k.Description
	orig.ReadingTime = k.ReadingTime
	orig.ReadingMode = k.ReadingMode
	orig.EnableAudioBreak = k.EnableAudioBreak
	orig.ReminderMinutesBefore = k.ReminderMinutesBefore
	orig.EnableMissedDayNotifications = k.EnableMissedDayNotifications
	orig.IsActive = k.IsActive
	orig.UpdatedAt = k.UpdatedAt
	return copyKhatm(orig), nil
}

func (repo *khatmRepository) DeleteKhatm(_ context.Context, id int64) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.khatms[id]; !ok {
		return khatm.ErrNotFound
	}
	repo.db.deleteKhatm(id)
	return nil
}

func (repo *khatmRepository) QuerySessions(_ context.Context, khatmID int64) ([]khatm.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sessions := make([]khatm.Session, 0)
	for _, s := range repo.db.sessions {
		if s.KhatmID == khatmID {
			sessions = append(sessions, *s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].SessionNumber < sessions[j].SessionNumber })
	return sessions, nil
}

// session must be called with the lock held.
func (repo *khatmRepository) session(khatmID, sessionID int64) (*khatm.Session, error) {
	if s, ok := repo.db.sessions[sessionID]; ok && s.KhatmID == khatmID {
		return s, nil
	}
	return nil, khatm.ErrSessionNotFound
}

func (repo *khatmRepository) GetSession(_ context.Context, khatmID, sessionID int64) (khatm.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	s, err := repo.session(khatmID, sessionID)
	if err != nil {
		return khatm.Session{}, err
	}
	return *s, nil
}

func (repo *khatmRepository) CountSessionsByStatus(_ context.Context, khatmID int64) (map[string]int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	counts := make(map[string]int)
	for _, s := range repo.db.sessions {
		if s.KhatmID == khatmID {
			counts[s.Status]++
		}
	}
	return counts, nil
}

func (repo *khatmRepository) CompleteSession(_ context.Context, khatmID, sessionID int64, data khatm.CompleteSession, at time.Time) (khatm.Session, khatm.Khatm, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	k, ok := repo.db.khatms[khatmID]
	if !ok {
		return khatm.Session{}, khatm.Khatm{}, khatm.ErrNotFound
	}
	s, err := repo.session(khatmID, sessionID)
	if err != nil {
		return khatm.Session{}, khatm.Khatm{}, err
	}
	if s.Status != khatm.StatusScheduled {
		return khatm.Session{}, khatm.Khatm{}, khatm.NewSessionStateError(s.Status)
	}

	s.Status = khatm.StatusCompleted
	s.CompletedAt = &at
	s.VersesReadCount = data.VersesRead
	if data.LastVerseID != nil {
		last := *data.LastVerseID
		s.CurrentVerseID = &last
	}

	k.CompletedSessions++
	k.CompletedVerses += s.VerseCount
	if k.CompletedSessions >= k.TotalSessions {
		k.IsCompleted = true
		k.IsActive = false
	}
	k.UpdatedAt = at
	return *s, copyKhatm(k), nil
}

func (repo *khatmRepository) SkipSession(_ context.Context, khatmID, sessionID int64, reason string, at time.Time) (khatm.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s, err := repo.session(khatmID, sessionID)
	if err != nil {
		return khatm.Session{}, err
	}
	if s.Status != khatm.StatusScheduled {
		return khatm.Session{}, khatm.NewSessionStateError(s.Status)
	}
	s.Status = khatm.StatusSkipped
	s.SkippedAt = &at
	s.SkipReason = reason
	return *s, nil
}

func (repo *khatmRepository) MarkMissed(_ context.Context, cutoff, at time.Time) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for _, s := range repo.db.sessions {
		k, ok := repo.db.khatms[s.KhatmID]
		if !ok || !k.IsActive || s.Status != khatm.StatusScheduled || s.ScheduledDate.After(cutoff) {
			continue
		}
		missedAt := at
		s.Status = khatm.StatusMissed
		s.MissedAt = &missedAt
		n++
	}
	return n, nil
}

// notices must be called with the read lock held.
func (repo *khatmRepository) notices(keep func(s *khatm.Session, k *khatm.Khatm) bool) []khatm.Notice {
	notices := make([]khatm.Notice, 0)
	for _, s := range repo.db.sessions {
		k, ok := repo.db.khatms[s.KhatmID]
		if !ok || !keep(s, k) {
			continue
		}
		owner, ok := repo.db.users[k.UserID]
		if !ok || owner.Email == "" {
			continue
		}
		notices = append(notices, khatm.Notice{
			Session:  *s,
			Khatm:    copyKhatm(k),
			Username: owner.Username,
			Email:    owner.Email,
		})
	}
	sort.Slice(notices, func(i, j int) bool { return notices[i].Session.ID < notices[j].Session.ID })
	return notices
}

func (repo *khatmRepository) PendingMissedNotices(_ context.Context) ([]khatm.Notice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.notices(func(s *khatm.Session, k *khatm.Khatm) bool {
		return s.Status == khatm.StatusMissed && !s.MissedNotificationSent && k.EnableMissedDayNotifications
	}), nil
}

func (repo *khatmRepository) MarkMissedNotified(_ context.Context, sessionIDs []int64, at time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range sessionIDs {
		if s, ok := repo.db.sessions[id]; ok {
			sentAt := at
			s.MissedNotificationSent = true
			s.MissedNotificationSentAt = &sentAt
		}
	}
	return nil
}

func (repo *khatmRepository) DueReminders(_ context.Context, now time.Time) ([]khatm.Notice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.notices(func(s *khatm.Session, k *khatm.Khatm) bool {
		if s.Status != khatm.StatusScheduled || s.ReminderSent || !k.IsActive {
			return false
		}
		opens := s.ScheduledDate.Add(-time.Duration(k.ReminderMinutesBefore) * time.Minute)
		return !now.Before(opens) && now.Before(s.ScheduledDate)
	}), nil
}

func (repo *khatmRepository) MarkReminded(_ context.Context, sessionIDs []int64, at time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range sessionIDs {
		if s, ok := repo.db.sessions[id]; ok {
			sentAt := at
			s.ReminderSent = true
			s.ReminderSentAt = &sentAt
		}
	}
	return nil
}
