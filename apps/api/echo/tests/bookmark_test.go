package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FARHATREKAYA/quran-app/core/bookmark"
)

func Test_bookmarkApi(t *testing.T) {
	app := setup(t)
	token := app.getToken(t, app.createUser(t, "maryam"))
	otherToken := app.getToken(t, app.createUser(t, "ali"))

	rec := app.do(http.MethodPost, "/api/bookmarks", token, marshallObj(t, bookmark.NewBookmark{VerseID: 9, Notes: "revisit"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var b bookmark.Bookmark
	decode(t, rec, &b)
	assert.Equal(t, 9, b.VerseID)
	require.NotNil(t, b.Verse)
	assert.Equal(t, 2, b.Verse.VerseNumberInSurah)
	assert.Equal(t, 2, b.Verse.Surah.Number)

	path := fmt.Sprintf("/api/bookmarks/%d", b.ID)
	app.run(t, []httpTest{
		{name: "no token", path: "/api/bookmarks", wantCode: http.StatusUnauthorized},
		{
			name: "duplicate", method: http.MethodPost, path: "/api/bookmarks", token: token, body: marshallObj(t, bookmark.NewBookmark{VerseID: 9}),
			wantCode: http.StatusConflict, wantData: marshallObj(t, httpErr{Error: "verse already bookmarked"}),
		},
		{
			name: "unknown verse", method: http.MethodPost, path: "/api/bookmarks", token: token, body: marshallObj(t, bookmark.NewBookmark{VerseID: 99}),
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "verse not found"}),
		},
		{name: "missing verse", method: http.MethodPost, path: "/api/bookmarks", token: token, body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{name: "check bookmarked", path: "/api/bookmarks/check/9", token: token, wantData: marshallObj(t, bookmark.Status{IsBookmarked: true, BookmarkID: &b.ID})},
		{name: "check not bookmarked", path: "/api/bookmarks/check/10", token: token, wantData: []byte(`{"is_bookmarked":false,"bookmark_id":null}`)},
		{name: "check for another user", path: "/api/bookmarks/check/9", token: otherToken, wantData: []byte(`{"is_bookmarked":false,"bookmark_id":null}`)},
		{name: "other user list", path: "/api/bookmarks", token: otherToken, wantData: marshallList(t)},
		{name: "other user update", method: http.MethodPatch, path: path, token: otherToken, body: []byte(`{"notes":"mine"}`), wantCode: http.StatusNotFound},
		{name: "other user delete", method: http.MethodDelete, path: path, token: otherToken, wantCode: http.StatusNotFound},
	})

	rec = app.do(http.MethodPatch, path, token, []byte(`{"notes":"memorised"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &b)
	assert.Equal(t, "memorised", b.Notes)

	rec = app.do(http.MethodGet, "/api/bookmarks", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []bookmark.Bookmark
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "memorised", list[0].Notes)

	rec = app.do(http.MethodDelete, path, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(http.MethodGet, "/api/bookmarks/check/9", token)
	assert.JSONEq(t, `{"is_bookmarked":false,"bookmark_id":null}`, rec.Body.String())
}
