package khatm

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/quran"
)

// Frequencies
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
	FrequencyCustom = "custom"
)

// Reading modes
const (
	ModeReadOnly   = "read_only"
	ModeReadListen = "read_listen"
)

// Session statuses. Every status but StatusScheduled is terminal.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusMissed    = "missed"
)

var Statuses = []string{StatusScheduled, StatusCompleted, StatusSkipped, StatusMissed}

const (
	defaultTimezone        = "UTC"
	defaultReminderMinutes = 30
)

type Khatm struct {
	ID                           int64     `json:"id"`
	UserID                       string    `json:"user_id"`
	Title                        string    `json:"title"`
	Description                  string    `json:"description"`
	StartDate                    time.Time `json:"start_date"`
	EndDate                      time.Time `json:"end_date"`
	TargetDate                   time.Time `json:"target_date"`
	FrequencyType                string    `json:"frequency_type"`
	ReadingDays                  []string  `json:"reading_days"`
	ReadingTime                  string    `json:"reading_time"`
	Timezone                     string    `json:"timezone"`
	ReadingMode                  string    `json:"reading_mode"`
	EnableAudioBreak             bool      `json:"enable_audio_break"`
	ReminderMinutesBefore        int       `json:"reminder_minutes_before"`
	EnableMissedDayNotifications bool      `json:"enable_missed_day_notifications"`
	TotalSessions                int       `json:"total_sessions"`
	TotalVerses                  int       `json:"total_verses"`
	CompletedSessions            int       `json:"completed_sessions"`
	CompletedVerses              int       `json:"completed_verses"`
	IsActive                     bool      `json:"is_active"`
	IsCompleted                  bool      `json:"is_completed"`
	CreatedAt                    time.Time `json:"created_at"` // UTC
	UpdatedAt                    time.Time `json:"updated_at"` // UTC
}

func (k Khatm) ProgressPercentage() float64 { return core.Percentage(k.CompletedSessions, k.TotalSessions) }
func (k Khatm) VersesPercentage() float64   { return core.Percentage(k.CompletedVerses, k.TotalVerses) }

// Location returns the schedule timezone, UTC when it cannot be loaded.
func (k Khatm) Location() *time.Location {
	if loc, err := time.LoadLocation(k.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

type Session struct {
	ID                       int64      `json:"id"`
	KhatmID                  int64      `json:"khatm_id"`
	SessionNumber            int        `json:"session_number"`
	ScheduledDate            time.Time  `json:"scheduled_date"` // UTC
	StartVerseID             int        `json:"start_verse_id"`
	EndVerseID               int        `json:"end_verse_id"`
	StartGlobal              int        `json:"start_global"`
	EndGlobal                int        `json:"end_global"`
	StartSurahID             int        `json:"start_surah_id"`
	StartVerseInSurah        int        `json:"start_verse_in_surah"`
	EndSurahID               int        `json:"end_surah_id"`
	EndVerseInSurah          int        `json:"end_verse_in_surah"`
	VerseCount               int        `json:"verse_count"`
	Status                   string     `json:"status"`
	CompletedAt              *time.Time `json:"completed_at"`
	SkippedAt                *time.Time `json:"skipped_at"`
	SkipReason               string     `json:"skip_reason,omitempty"`
	MissedAt                 *time.Time `json:"missed_at"`
	CurrentVerseID           *int       `json:"current_verse_id"`
	VersesReadCount          int        `json:"verses_read_count"`
	ReminderSent             bool       `json:"-"`
	ReminderSentAt           *time.Time `json:"-"`
	MissedNotificationSent   bool       `json:"-"`
	MissedNotificationSentAt *time.Time `json:"-"`
	CreatedAt                time.Time  `json:"created_at"`
}

func (s Session) IsTerminal() bool { return s.Status != StatusScheduled }

// Summary is a Khatm with its computed percentages.
type Summary struct {
	Khatm
	ProgressPercentage float64 `json:"progress_percentage"`
	VersesPercentage   float64 `json:"verses_percentage"`
}

func NewSummary(k Khatm) Summary {
	return Summary{Khatm: k, ProgressPercentage: k.ProgressPercentage(), VersesPercentage: k.VersesPercentage()}
}

type Detail struct {
	Summary
	Sessions []Session `json:"sessions"`
}

type SessionDetail struct {
	Session
	ReadingMode      string        `json:"reading_mode"`
	EnableAudioBreak bool          `json:"enable_audio_break"`
	Verses           []quran.Verse `json:"verses"`
}

type Progress struct {
	KhatmID            int64          `json:"khatm_id"`
	Title              string         `json:"title"`
	TotalSessions      int            `json:"total_sessions"`
	CompletedSessions  int            `json:"completed_sessions"`
	RemainingSessions  int            `json:"remaining_sessions"`
	TotalVerses        int            `json:"total_verses"`
	CompletedVerses    int            `json:"completed_verses"`
	RemainingVerses    int            `json:"remaining_verses"`
	ProgressPercentage float64        `json:"progress_percentage"`
	VersesPercentage   float64        `json:"verses_percentage"`
	SessionStats       map[string]int `json:"session_stats"`
	IsActive           bool           `json:"is_active"`
	IsCompleted        bool           `json:"is_completed"`
}

type CompletionProgress struct {
	CompletedSessions int     `json:"completed_sessions"`
	TotalSessions     int     `json:"total_sessions"`
	Percentage        float64 `json:"percentage"`
}

type CompleteResult struct {
	Session  Session            `json:"session"`
	Progress CompletionProgress `json:"progress"`
}

// Notice is a session to notify its owner about.
type Notice struct {
	Session  Session
	Khatm    Khatm
	Username string
	Email    string
}

// NewKhatm contains the information needed to create a Khatm.
type NewKhatm struct {
	Title                        string   `json:"title" validate:"required,notblank,max=200"`
	Description                  string   `json:"description"`
	StartDate                    string   `json:"start_date" validate:"required,khatmdate"`
	EndDate                      string   `json:"end_date" validate:"required,khatmdate"`
	FrequencyType                string   `json:"frequency_type" validate:"required,oneof=daily weekly custom"`
	ReadingDays                  []string `json:"reading_days" validate:"omitempty,dive,weekday"`
	ReadingTime                  string   `json:"reading_time" validate:"required,hhmm"`
	Timezone                     string   `json:"timezone" validate:"tz"`
	ReadingMode                  string   `json:"reading_mode" validate:"oneof=read_only read_listen"`
	EnableAudioBreak             *bool    `json:"enable_audio_break"`
	ReminderMinutesBefore        *int     `json:"reminder_minutes_before" validate:"omitempty,min=5,max=1440"`
	EnableMissedDayNotifications *bool    `json:"enable_missed_day_notifications"`
}

func (nk *NewKhatm) Validate(validate *validator.Validate) error {
	nk.Title = core.CleanString(nk.Title)
	nk.Description = core.CleanString(nk.Description)
	nk.StartDate = core.CleanString(nk.StartDate)
	nk.EndDate = core.CleanString(nk.EndDate)
	nk.FrequencyType = core.CleanString(nk.FrequencyType, true /* lower */)
	nk.ReadingTime = core.CleanString(nk.ReadingTime)
	nk.Timezone = core.CleanString(nk.Timezone)
	if nk.Timezone == "" {
		nk.Timezone = defaultTimezone
	}
	nk.ReadingMode = core.CleanString(nk.ReadingMode, true /* lower */)
	if nk.ReadingMode == "" {
		nk.ReadingMode = ModeReadListen
	}
	for i, day := range nk.ReadingDays {
		nk.ReadingDays[i] = core.CleanString(day, true /* lower */)
	}
	return validate.Struct(nk)
}

// plan returns the builder input of a validated NewKhatm.
func (nk NewKhatm) plan() (Plan, error) {
	start, err := parseDate(nk.StartDate)
	if err != nil {
		return Plan{}, err
	}
	end, err := parseDate(nk.EndDate)
	if err != nil {
		return Plan{}, err
	}
	loc, err := time.LoadLocation(nk.Timezone)
	if err != nil {
		return Plan{}, err
	}
	return Plan{
		StartDate:   start,
		EndDate:     end,
		Frequency:   nk.FrequencyType,
		ReadingDays: nk.ReadingDays,
		ReadingTime: nk.ReadingTime,
		Location:    loc,
	}, nil
}

// UpdateKhatm defines what may be changed on an existing Khatm.
// The sessions already planned keep their dates and ranges.
type UpdateKhatm struct {
	Title                 *string `json:"title" validate:"omitempty,notblank,max=200"`
	Description           *string `json:"description"`
	ReadingTime           *string `json:"reading_time" validate:"omitempty,hhmm"`
	ReadingMode           *string `json:"reading_mode" validate:"omitempty,oneof=read_only read_listen"`
	EnableAudioBreak      *bool   `json:"enable_audio_break"`
	ReminderMinutesBefore *int    `json:"reminder_minutes_before" validate:"omitempty,min=5,max=1440"`
	IsActive              *bool   `json:"is_active"`
}

func (uk *UpdateKhatm) Validate(validate *validator.Validate) error {
	if uk.Title != nil {
		title := core.CleanString(*uk.Title)
		uk.Title = &title
	}
	if uk.ReadingMode != nil {
		mode := core.CleanString(*uk.ReadingMode, true /* lower */)
		uk.ReadingMode = &mode
	}
	return validate.Struct(uk)
}

type CompleteSession struct {
	VersesRead  int  `json:"verses_read" validate:"min=0"`
	LastVerseID *int `json:"last_verse_id"`
}

func (cs CompleteSession) Validate(validate *validator.Validate) error { return validate.Struct(cs) }

type SkipSession struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (ss *SkipSession) Validate(validate *validator.Validate) error {
	ss.Reason = core.CleanString(ss.Reason)
	return validate.Struct(ss)
}
