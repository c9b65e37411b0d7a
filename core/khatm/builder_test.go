package khatm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/quran"
)

func testCorpus(n int) []quran.VerseRef {
	refs := make([]quran.VerseRef, n)
	for i := range refs {
		refs[i] = quran.VerseRef{ID: i + 1, Global: i + 1, SurahID: 1 + i/4, VerseInSurah: 1 + i%4}
	}
	return refs
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCountSessions(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
		want int
	}{
		{"daily single day", Plan{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 1), Frequency: FrequencyDaily}, 1},
		{"daily 30 days", Plan{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 30), Frequency: FrequencyDaily}, 30},
		{"daily across leap day", Plan{StartDate: date(2024, 2, 28), EndDate: date(2024, 3, 1), Frequency: FrequencyDaily}, 3},
		// 2024-01-01 is a Monday
		{"weekly mondays over 14 days", Plan{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 14), Frequency: FrequencyWeekly, ReadingDays: []string{"mon"}}, 2},
		{"custom weekend over 14 days", Plan{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 14), Frequency: FrequencyCustom, ReadingDays: []string{"sat", "SUN"}}, 4},
		{"weekly no matching day", Plan{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 2), Frequency: FrequencyWeekly, ReadingDays: []string{"fri"}}, 0},
		{"weekly no reading days", Plan{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 31), Frequency: FrequencyWeekly}, 0},
		{"end before start", Plan{StartDate: date(2024, 1, 2), EndDate: date(2024, 1, 1), Frequency: FrequencyDaily}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountSessions(tt.plan))
		})
	}
}

func TestBuild(t *testing.T) {
	t.Run("uneven split", func(t *testing.T) {
		plan := Plan{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 3), Frequency: FrequencyDaily, ReadingTime: "06:30"}
		sessions, err := Build(plan, testCorpus(10))
		require.NoError(t, err)
		require.Len(t, sessions, 3)

		var counts []int
		for _, s := range sessions {
			counts = append(counts, s.VerseCount)
		}
		assert.Equal(t, []int{4, 3, 3}, counts)

		assert.Equal(t, 1, sessions[0].StartGlobal)
		assert.Equal(t, 4, sessions[0].EndGlobal)
		assert.Equal(t, 5, sessions[1].StartGlobal)
		assert.Equal(t, 8, sessions[2].StartGlobal)
		assert.Equal(t, 10, sessions[2].EndGlobal)
		assert.Equal(t, time.Date(2024, 1, 1, 6, 30, 0, 0, time.UTC), sessions[0].ScheduledDate)
		assert.Equal(t, time.Date(2024, 1, 3, 6, 30, 0, 0, time.UTC), sessions[2].ScheduledDate)
	})

	t.Run("ranges tile the corpus", func(t *testing.T) {
		plan := Plan{StartDate: date(2024, 1, 1), EndDate: date(2024, 3, 31), Frequency: FrequencyCustom, ReadingDays: []string{"mon", "wed", "fri"}, ReadingTime: "20:00"}
		corpus := testCorpus(6236)
		sessions, err := Build(plan, corpus)
		require.NoError(t, err)
		require.Equal(t, CountSessions(plan), len(sessions))

		next, total := 1, 0
		for i, s := range sessions {
			assert.Equal(t, i+1, s.SessionNumber)
			assert.Equal(t, next, s.StartGlobal)
			assert.Equal(t, s.EndGlobal-s.StartGlobal+1, s.VerseCount)
			assert.Equal(t, StatusScheduled, s.Status)
			assert.Contains(t, []string{"mon", "wed", "fri"}, weekdayAbbr(s.ScheduledDate.Weekday()))
			next = s.EndGlobal + 1
			total += s.VerseCount
		}
		assert.Equal(t, 6236, total)
		assert.Equal(t, len(corpus), sessions[len(sessions)-1].EndGlobal)
	})

	t.Run("surah positions", func(t *testing.T) {
		plan := Plan{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 2), Frequency: FrequencyDaily, ReadingTime: "05:00"}
		sessions, err := Build(plan, testCorpus(10))
		require.NoError(t, err)
		assert.Equal(t, 1, sessions[0].StartSurahID)
		assert.Equal(t, 1, sessions[0].StartVerseInSurah)
		assert.Equal(t, 2, sessions[0].EndSurahID)
		assert.Equal(t, 1, sessions[0].EndVerseInSurah)
		assert.Equal(t, 3, sessions[1].EndSurahID)
		assert.Equal(t, 2, sessions[1].EndVerseInSurah)
	})

	t.Run("timezone", func(t *testing.T) {
		loc, err := time.LoadLocation("Africa/Tunis") // UTC+1, no DST
		require.NoError(t, err)
		plan := Plan{StartDate: date(2024, 6, 1), EndDate: date(2024, 6, 1), Frequency: FrequencyDaily, ReadingTime: "07:15", Location: loc}
		sessions, err := Build(plan, testCorpus(10))
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 6, 1, 6, 15, 0, 0, time.UTC), sessions[0].ScheduledDate)
		assert.Equal(t, 10, sessions[0].VerseCount)
	})

	t.Run("no sessions", func(t *testing.T) {
		plan := Plan{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 14), Frequency: FrequencyWeekly, ReadingTime: "05:00"}
		_, err := Build(plan, testCorpus(10))
		assert.True(t, core.IsValidation(err))
	})

	t.Run("more sessions than verses", func(t *testing.T) {
		plan := Plan{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 11), Frequency: FrequencyDaily, ReadingTime: "05:00"}
		_, err := Build(plan, testCorpus(10))
		assert.True(t, core.IsValidation(err))
	})

	t.Run("one verse per session", func(t *testing.T) {
		plan := Plan{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 10), Frequency: FrequencyDaily, ReadingTime: "05:00"}
		sessions, err := Build(plan, testCorpus(10))
		require.NoError(t, err)
		for _, s := range sessions {
			assert.Equal(t, 1, s.VerseCount)
		}
	})

	t.Run("empty corpus", func(t *testing.T) {
		plan := Plan{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 1), Frequency: FrequencyDaily}
		_, err := Build(plan, nil)
		assert.Equal(t, quran.ErrEmptyCorpus, err)
	})
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2024-03-10", date(2024, 3, 10), false},
		{"2024-03-10T22:00:00Z", date(2024, 3, 10), false},
		{"2024-03-10T22:00:00+03:00", date(2024, 3, 10), false},
		{"2024-03-10T08:00:00", date(2024, 3, 10), false},
		{"10/03/2024", time.Time{}, true},
		{"", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
