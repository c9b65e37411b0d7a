package khatm

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/quran"
)

// Plan is the input of the session builder.
// StartDate and EndDate are calendar dates (midnight UTC); both are included.
type Plan struct {
	StartDate   time.Time
	EndDate     time.Time
	Frequency   string
	ReadingDays []string
	ReadingTime string // HH:MM in Location
	Location    *time.Location
}

// TotalDays counts the days from StartDate to EndDate, both included.
func (p Plan) TotalDays() int {
	if p.EndDate.Before(p.StartDate) {
		return 0
	}
	return int(p.EndDate.Sub(p.StartDate).Hours()/24) + 1
}

// ReadingDates returns the calendar dates that get a session.
func (p Plan) ReadingDates() []time.Time {
	total := p.TotalDays()
	if p.Frequency == FrequencyDaily {
		dates := make([]time.Time, 0, total)
		for i := 0; i < total; i++ {
			dates = append(dates, p.StartDate.AddDate(0, 0, i))
		}
		return dates
	}

	days := make(map[string]bool, len(p.ReadingDays))
	for _, d := range p.ReadingDays {
		days[strings.ToLower(strings.TrimSpace(d))] = true
	}
	var dates []time.Time
	for i := 0; i < total; i++ {
		date := p.StartDate.AddDate(0, 0, i)
		if days[weekdayAbbr(date.Weekday())] {
			dates = append(dates, date)
		}
	}
	return dates
}

// CountSessions returns the number of sessions the plan yields.
func CountSessions(p Plan) int {
	if p.Frequency == FrequencyDaily {
		return p.TotalDays()
	}
	return len(p.ReadingDates())
}

// scheduledAt combines a calendar date with the reading time in the plan location; the result is UTC.
func (p Plan) scheduledAt(date time.Time) time.Time {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	var hour, minute int
	if parts := strings.SplitN(p.ReadingTime, ":", 2); len(parts) == 2 {
		hour, _ = strconv.Atoi(parts[0])
		minute, _ = strconv.Atoi(parts[1])
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc).UTC()
}

func buildError(field, format string, args ...interface{}) error {
	return core.NewValidationError(nil, core.FieldError{Field: field, Error: fmt.Sprintf(format, args...)})
}

// Build splits the ordered corpus into contiguous sessions, one per reading date.
// The first N mod K sessions get one verse more than the others so that the
// ranges tile the corpus without gap nor overlap.
func Build(p Plan, corpus []quran.VerseRef) ([]Session, error) {
	n := len(corpus)
	if n == 0 {
		return nil, quran.ErrEmptyCorpus
	}

	dates := p.ReadingDates()
	total := len(dates)
	switch {
	case total == 0:
		return nil, buildError("reading_days", "no reading sessions fall between the start and end dates")
	case total > n:
		return nil, buildError("end_date", "too many sessions: %d sessions for %d verses", total, n)
	}

	base, rem := n/total, n%total
	sessions := make([]Session, 0, total)
	start := 0
	for i, date := range dates {
		count := base
		if i < rem {
			count++
		}
		first, last := corpus[start], corpus[start+count-1]
		sessions = append(sessions, Session{
			SessionNumber:     i + 1,
			ScheduledDate:     p.scheduledAt(date),
			StartVerseID:      first.ID,
			EndVerseID:        last.ID,
			StartGlobal:       first.Global,
			EndGlobal:         last.Global,
			StartSurahID:      first.SurahID,
			StartVerseInSurah: first.VerseInSurah,
			EndSurahID:        last.SurahID,
			EndVerseInSurah:   last.VerseInSurah,
			VerseCount:        count,
			Status:            StatusScheduled,
		})
		start += count
	}
	return sessions, nil
}
