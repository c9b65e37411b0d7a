package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/FARHATREKAYA/quran-app/apps/api/echo"
	"github.com/FARHATREKAYA/quran-app/core/khatm"
)

// freezeKhatmClock pins the khatm clock to `now` for the duration of the test.
func freezeKhatmClock(t *testing.T, now time.Time) {
	orig := khatm.NowFunc
	khatm.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { khatm.NowFunc = orig })
}

func newKhatmBody(t *testing.T, title string) []byte {
	return marshallObj(t, khatm.NewKhatm{
		Title:         title,
		StartDate:     "2024-03-01",
		EndDate:       "2024-03-05",
		FrequencyType: khatm.FrequencyDaily,
		ReadingTime:   "06:30",
	})
}

// createKhatm plans 5 daily sessions of 4 verses and returns its detail.
func (app *testApp) createKhatm(t *testing.T, token, title string) khatm.Detail {
	t.Helper()

	rec := app.do(http.MethodPost, "/api/khatm", token, newKhatmBody(t, title))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created echoapi.CreateKhatmResponse
	decode(t, rec, &created)

	rec = app.do(http.MethodGet, fmt.Sprintf("/api/khatm/%d", created.ID), token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var detail khatm.Detail
	decode(t, rec, &detail)
	return detail
}

func sessionPath(k khatm.Detail, i int, action string) string {
	path := fmt.Sprintf("/api/khatm/%d/sessions/%d", k.ID, k.Sessions[i].ID)
	if action != "" {
		path += "/" + action
	}
	return path
}

func Test_khatmApi_create(t *testing.T) {
	freezeKhatmClock(t, time.Date(2024, 2, 28, 9, 0, 0, 0, time.UTC))
	app := setup(t)
	token := app.getToken(t, app.createUser(t, "amina"))

	tooLong := khatm.NewKhatm{
		Title:         "Whole month",
		StartDate:     "2024-03-01",
		EndDate:       "2024-03-31",
		FrequencyType: khatm.FrequencyDaily,
		ReadingTime:   "06:30",
	}
	badTime := khatm.NewKhatm{
		Title:         "Late",
		StartDate:     "2024-03-01",
		EndDate:       "2024-03-05",
		FrequencyType: khatm.FrequencyDaily,
		ReadingTime:   "25:00",
	}

	app.run(t, []httpTest{
		{name: "no token", method: http.MethodPost, path: "/api/khatm", body: newKhatmBody(t, "x"), wantCode: http.StatusUnauthorized},
		{
			name: "title required", method: http.MethodPost, path: "/api/khatm", body: newKhatmBody(t, "  "), token: token,
			wantCode: http.StatusBadRequest,
		},
		{name: "bad reading time", method: http.MethodPost, path: "/api/khatm", body: marshallObj(t, badTime), token: token, wantCode: http.StatusBadRequest},
		{name: "more sessions than verses", method: http.MethodPost, path: "/api/khatm", body: marshallObj(t, tooLong), token: token, wantCode: http.StatusBadRequest},
	})

	rec := app.do(http.MethodPost, "/api/khatm", token, newKhatmBody(t, " Ramadan "))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res echoapi.CreateKhatmResponse
	decode(t, rec, &res)
	assert.NotZero(t, res.ID)
	assert.Equal(t, "Ramadan", res.Title)
	assert.Equal(t, 5, res.TotalSessions)
	assert.Equal(t, "Khatm created successfully", res.Message)
}

func Test_khatmApi_listAndDetail(t *testing.T) {
	freezeKhatmClock(t, time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC))
	app := setup(t)
	amina := app.createUser(t, "amina")
	token := app.getToken(t, amina)
	otherToken := app.getToken(t, app.createUser(t, "yusuf"))

	first := app.createKhatm(t, token, "First")
	second := app.createKhatm(t, token, "Second")
	require.Len(t, first.Sessions, 5)
	assert.Equal(t, amina.ID, first.UserID)
	assert.Equal(t, time.Date(2024, 3, 1, 6, 30, 0, 0, time.UTC), first.Sessions[0].ScheduledDate.UTC())

	// deactivate the second one
	rec := app.do(http.MethodPatch, fmt.Sprintf("/api/khatm/%d", second.ID), token, []byte(`{"is_active": false, "title": "Paused"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated khatm.Summary
	decode(t, rec, &updated)
	assert.Equal(t, "Paused", updated.Title)
	assert.False(t, updated.IsActive)

	rec = app.do(http.MethodGet, "/api/khatm", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []khatm.Summary
	decode(t, rec, &all)
	assert.Len(t, all, 2)

	rec = app.do(http.MethodGet, "/api/khatm?active_only=true", token)
	var active []khatm.Summary
	decode(t, rec, &active)
	require.Len(t, active, 1)
	assert.Equal(t, first.ID, active[0].ID)

	rec = app.do(http.MethodGet, "/api/khatm", otherToken)
	assert.JSONEq(t, `[]`, rec.Body.String())

	detailPath := fmt.Sprintf("/api/khatm/%d", first.ID)
	app.run(t, []httpTest{
		{
			name: "other user", path: detailPath, token: otherToken,
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "not authorized to access this khatm"}),
		},
		{name: "unknown", path: "/api/khatm/9999", token: token, wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "khatm not found"})},
		{name: "malformed id", path: "/api/khatm/abc", token: token, wantCode: http.StatusNotFound},
		{name: "today", path: detailPath + "/today", token: token, wantData: marshallObj(t, first.Sessions[2])},
		{
			name: "session", path: sessionPath(first, 0, ""), token: token,
		},
	})

	rec = app.do(http.MethodGet, sessionPath(first, 1, ""), token)
	require.Equal(t, http.StatusOK, rec.Code)
	var sd khatm.SessionDetail
	decode(t, rec, &sd)
	assert.Equal(t, khatm.ModeReadListen, sd.ReadingMode)
	require.Len(t, sd.Verses, 4)
	assert.Equal(t, sd.StartVerseID, sd.Verses[0].ID)
	assert.Equal(t, sd.EndVerseID, sd.Verses[3].ID)
}

func Test_khatmApi_todayOutsideSchedule(t *testing.T) {
	freezeKhatmClock(t, time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC))
	app := setup(t)
	token := app.getToken(t, app.createUser(t, "amina"))
	k := app.createKhatm(t, token, "Past")

	rec := app.do(http.MethodGet, fmt.Sprintf("/api/khatm/%d/today", k.ID), token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"No session scheduled for today"}`, rec.Body.String())
}

func Test_khatmApi_sessionLifecycle(t *testing.T) {
	freezeKhatmClock(t, time.Date(2024, 3, 2, 7, 0, 0, 0, time.UTC))
	app := setup(t)
	token := app.getToken(t, app.createUser(t, "amina"))
	otherToken := app.getToken(t, app.createUser(t, "yusuf"))
	k := app.createKhatm(t, token, "Lifecycle")

	outside := k.Sessions[1].EndVerseID + 1
	app.run(t, []httpTest{
		{
			name: "other user", method: http.MethodPost, path: sessionPath(k, 0, "complete"), body: []byte(`{}`), token: otherToken,
			wantCode: http.StatusForbidden,
		},
		{
			name: "negative verses read", method: http.MethodPost, path: sessionPath(k, 0, "complete"), body: []byte(`{"verses_read": -1}`), token: token,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "last verse outside session", method: http.MethodPost, path: sessionPath(k, 0, "complete"),
			body: marshallObj(t, khatm.CompleteSession{LastVerseID: &outside}), token: token,
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"last_verse_id": "verse is outside of the session range"}),
		},
		{
			name: "unknown session", method: http.MethodPost, path: fmt.Sprintf("/api/khatm/%d/sessions/9999/complete", k.ID), body: []byte(`{}`), token: token,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "session not found"}),
		},
	})

	// complete session 1
	rec := app.do(http.MethodPost, sessionPath(k, 0, "complete"), token, []byte(`{"verses_read": 4}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var done echoapi.CompleteSessionResponse
	decode(t, rec, &done)
	assert.Equal(t, khatm.StatusCompleted, done.Session.Status)
	assert.NotNil(t, done.Session.CompletedAt)
	assert.Equal(t, 1, done.Progress.CompletedSessions)
	assert.Equal(t, 5, done.Progress.TotalSessions)
	assert.Equal(t, 20.0, done.Progress.Percentage)
	assert.Equal(t, "Session completed successfully", done.Message)

	// skip session 2
	rec = app.do(http.MethodPost, sessionPath(k, 1, "skip"), token, []byte(`{"reason": " travelling "}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var skipped echoapi.SkipSessionResponse
	decode(t, rec, &skipped)
	assert.Equal(t, khatm.StatusSkipped, skipped.Session.Status)
	assert.Equal(t, "travelling", skipped.Session.SkipReason)

	app.run(t, []httpTest{
		{
			name: "complete twice", method: http.MethodPost, path: sessionPath(k, 0, "complete"), body: []byte(`{}`), token: token,
			wantCode: http.StatusConflict, wantData: marshallObj(t, httpErr{Error: "session already completed"}),
		},
		{
			name: "skip completed", method: http.MethodPost, path: sessionPath(k, 0, "skip"), body: []byte(`{}`), token: token,
			wantCode: http.StatusConflict, wantData: marshallObj(t, httpErr{Error: "session already completed"}),
		},
		{
			name: "complete skipped", method: http.MethodPost, path: sessionPath(k, 1, "complete"), body: []byte(`{}`), token: token,
			wantCode: http.StatusConflict, wantData: marshallObj(t, httpErr{Error: "session already skipped"}),
		},
	})

	rec = app.do(http.MethodGet, fmt.Sprintf("/api/khatm/%d/progress", k.ID), token)
	require.Equal(t, http.StatusOK, rec.Code)
	var p khatm.Progress
	decode(t, rec, &p)
	assert.Equal(t, 1, p.CompletedSessions)
	assert.Equal(t, 4, p.RemainingSessions)
	assert.Equal(t, 4, p.CompletedVerses)
	assert.Equal(t, 16, p.RemainingVerses)
	assert.Equal(t, 20.0, p.ProgressPercentage)
	assert.Equal(t, map[string]int{
		khatm.StatusScheduled: 3,
		khatm.StatusCompleted: 1,
		khatm.StatusSkipped:   1,
		khatm.StatusMissed:    0,
	}, p.SessionStats)

	// a skipped session keeps the khatm open
	for i := 2; i < 5; i++ {
		rec = app.do(http.MethodPost, sessionPath(k, i, "complete"), token, []byte(`{}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec = app.do(http.MethodGet, fmt.Sprintf("/api/khatm/%d/progress", k.ID), token)
	decode(t, rec, &p)
	assert.False(t, p.IsCompleted)
	assert.True(t, p.IsActive)
	assert.Equal(t, 4, p.CompletedSessions)
	assert.Equal(t, 80.0, p.ProgressPercentage)
}

func Test_khatmApi_finish(t *testing.T) {
	freezeKhatmClock(t, time.Date(2024, 3, 5, 7, 0, 0, 0, time.UTC))
	app := setup(t)
	token := app.getToken(t, app.createUser(t, "amina"))
	k := app.createKhatm(t, token, "All of it")

	var done echoapi.CompleteSessionResponse
	for i := range k.Sessions {
		rec := app.do(http.MethodPost, sessionPath(k, i, "complete"), token, []byte(`{"verses_read": 4}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &done)
	}
	assert.Equal(t, 100.0, done.Progress.Percentage)

	rec := app.do(http.MethodGet, fmt.Sprintf("/api/khatm/%d/progress", k.ID), token)
	var p khatm.Progress
	decode(t, rec, &p)
	assert.True(t, p.IsCompleted)
	assert.False(t, p.IsActive)
	assert.Equal(t, 20, p.CompletedVerses)
	assert.Equal(t, 100.0, p.VersesPercentage)

	rec = app.do(http.MethodPatch, fmt.Sprintf("/api/khatm/%d", k.ID), token, []byte(`{"is_active": true}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"is_active":"a completed khatm cannot be reactivated"}`, rec.Body.String())

	rec = app.do(http.MethodGet, "/api/khatm?active_only=true", token)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func Test_khatmApi_delete(t *testing.T) {
	freezeKhatmClock(t, time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC))
	app := setup(t)
	token := app.getToken(t, app.createUser(t, "amina"))
	otherToken := app.getToken(t, app.createUser(t, "yusuf"))
	k := app.createKhatm(t, token, "Short lived")
	path := fmt.Sprintf("/api/khatm/%d", k.ID)

	app.run(t, []httpTest{
		{name: "other user", method: http.MethodDelete, path: path, token: otherToken, wantCode: http.StatusForbidden},
		{name: "owner", method: http.MethodDelete, path: path, token: token, wantCode: http.StatusNoContent},
		{name: "gone", path: path, token: token, wantCode: http.StatusNotFound},
		{name: "sessions gone", path: sessionPath(k, 0, ""), token: token, wantCode: http.StatusNotFound},
	})
}
