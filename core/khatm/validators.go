package khatm

import (
	"regexp"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/FARHATREKAYA/quran-app/core"
)

const dateLayout = "2006-01-02"

var (
	// custom validation tags & texts
	dateTag  = "khatmdate"
	dateText = "invalid date, expected YYYY-MM-DD or an ISO 8601 datetime"

	hhmmTag   = "hhmm"
	hhmmText  = "invalid time, expected HH:MM"
	hhmmRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

	weekdayTag  = "weekday"
	weekdayText = "invalid day, expected one of sun mon tue wed thu fri sat"

	tzTag  = "tz"
	tzText = "unknown timezone"

	endDateTag  = "enddate"
	endDateText = "end date cannot be before the start date"

	readingDaysTag  = "readingdays"
	readingDaysText = "reading days are required for weekly and custom frequencies"

	weekdays = map[string]time.Weekday{
		"sun": time.Sunday,
		"mon": time.Monday,
		"tue": time.Tuesday,
		"wed": time.Wednesday,
		"thu": time.Thursday,
		"fri": time.Friday,
		"sat": time.Saturday,
	}
)

// InitValidators registers the schedule validations on `validate`.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(dateTag, func(fl validator.FieldLevel) bool {
		_, err := parseDate(fl.Field().String())
		return err == nil
	})
	core.RegisterCustomTranslation(validate, translator, dateTag, dateText)

	_ = validate.RegisterValidation(hhmmTag, func(fl validator.FieldLevel) bool {
		return hhmmRegex.MatchString(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, hhmmTag, hhmmText)

	_ = validate.RegisterValidation(weekdayTag, func(fl validator.FieldLevel) bool {
		_, ok := weekdays[strings.ToLower(fl.Field().String())]
		return ok
	})
	core.RegisterCustomTranslation(validate, translator, weekdayTag, weekdayText)

	_ = validate.RegisterValidation(tzTag, func(fl validator.FieldLevel) bool {
		_, err := time.LoadLocation(fl.Field().String())
		return err == nil
	})
	core.RegisterCustomTranslation(validate, translator, tzTag, tzText)

	validate.RegisterStructValidation(newKhatmStructValidation, NewKhatm{})
	core.RegisterCustomTranslation(validate, translator, endDateTag, endDateText)
	core.RegisterCustomTranslation(validate, translator, readingDaysTag, readingDaysText)
}

func newKhatmStructValidation(sl validator.StructLevel) {
	nk := sl.Current().Interface().(NewKhatm)

	start, errStart := parseDate(nk.StartDate)
	end, errEnd := parseDate(nk.EndDate)
	if errStart == nil && errEnd == nil && end.Before(start) {
		sl.ReportError(nk.EndDate, "end_date", "EndDate", endDateTag, "")
	}

	if nk.FrequencyType == FrequencyWeekly || nk.FrequencyType == FrequencyCustom {
		if len(nk.ReadingDays) == 0 {
			sl.ReportError(nk.ReadingDays, "reading_days", "ReadingDays", readingDaysTag, "")
		}
	}
}

// parseDate reads a calendar date, either plain or as the date part of an ISO 8601 datetime.
// The result is midnight UTC of that date.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			if t, err = time.Parse("2006-01-02T15:04:05", s); err != nil {
				return time.Time{}, err
			}
		}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// weekdayAbbr returns the lower-cased three-letter name of `d`, e.g. "mon".
func weekdayAbbr(d time.Weekday) string {
	return strings.ToLower(d.String()[:3])
}
