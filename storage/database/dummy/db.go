package dummydb

import (
	"sync"

	"github.com/FARHATREKAYA/quran-app/core/bookmark"
	"github.com/FARHATREKAYA/quran-app/core/interaction"
	"github.com/FARHATREKAYA/quran-app/core/khatm"
	"github.com/FARHATREKAYA/quran-app/core/quran"
	"github.com/FARHATREKAYA/quran-app/core/user"
)

// DB is an in-memory database. A single lock guards every table so that
// multi-table writes (cascades, session transitions) are atomic.
type DB struct {
	sync.RWMutex
	pk int64

	users map[string]*user.User

	surahs     map[int]quran.Surah
	verses     []quran.Verse // by global number
	reciters   []quran.Reciter
	timestamps []quran.Timestamp

	khatms   map[int64]*khatm.Khatm
	sessions map[int64]*khatm.Session

	bookmarks map[int64]*bookmark.Bookmark
	comments  map[int64]*interaction.Comment
	reports   map[int64]*interaction.Report
}

func Open() (*DB, error) {
	db := &DB{
		users:     make(map[string]*user.User),
		surahs:    make(map[int]quran.Surah),
		khatms:    make(map[int64]*khatm.Khatm),
		sessions:  make(map[int64]*khatm.Session),
		bookmarks: make(map[int64]*bookmark.Bookmark),
		comments:  make(map[int64]*interaction.Comment),
		reports:   make(map[int64]*interaction.Report),
	}
	return db, nil
}

// nextPK must be called with the lock held.
func (db *DB) nextPK() int64 {
	db.pk++
	return db.pk
}

// deleteUserData removes everything owned by `userID`. Must be called with the lock held.
func (db *DB) deleteUserData(userID string) {
	for id, k := range db.khatms {
		if k.UserID == userID {
			db.deleteKhatm(id)
		}
	}
	for id, b := range db.bookmarks {
		if b.UserID == userID {
			delete(db.bookmarks, id)
		}
	}
	for id, c := range db.comments {
		if c.UserID == userID {
			delete(db.comments, id)
		} else if c.ApprovedBy == userID {
			c.ApprovedBy = ""
		}
	}
	for id, r := range db.reports {
		if r.UserID == userID {
			delete(db.reports, id)
		}
	}
}

// deleteKhatm must be called with the lock held.
func (db *DB) deleteKhatm(id int64) {
	for sid, s := range db.sessions {
		if s.KhatmID == id {
			delete(db.sessions, sid)
		}
	}
	delete(db.khatms, id)
}

func (db *DB) username(userID string) string {
	if u, ok := db.users[userID]; ok {
		return u.Username
	}
	return ""
}
