package bookmark

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/quran"
)

const previewLength = 100

var (
	// errors
	ErrNotFound = core.NewNotFoundError("bookmark")
	ErrExists   = core.NewConflictError("verse already bookmarked")

	NowFunc = time.Now // mockable
)

type (
	Bookmark struct {
		ID        int64         `json:"id"`
		UserID    string        `json:"user_id"`
		VerseID   int           `json:"verse_id"`
		Notes     string        `json:"notes"`
		CreatedAt time.Time     `json:"created_at"`
		Verse     *VersePreview `json:"verse,omitempty"`
	}

	VersePreview struct {
		ID                 int          `json:"id"`
		VerseNumberInSurah int          `json:"verse_number_in_surah"`
		TextArabic         string       `json:"text_arabic"`
		Surah              SurahPreview `json:"surah"`
	}

	SurahPreview struct {
		ID          int    `json:"id"`
		Number      int    `json:"number"`
		NameArabic  string `json:"name_arabic"`
		NameEnglish string `json:"name_english"`
	}

	Status struct {
		IsBookmarked bool   `json:"is_bookmarked"`
		BookmarkID   *int64 `json:"bookmark_id"`
	}

	NewBookmark struct {
		VerseID int    `json:"verse_id" validate:"required,min=1"`
		Notes   string `json:"notes" validate:"max=2000"`
	}

	UpdateBookmark struct {
		Notes *string `json:"notes" validate:"omitempty,max=2000"`
	}
)

func (nb *NewBookmark) Validate(validate *validator.Validate) error {
	nb.Notes = core.CleanString(nb.Notes)
	return validate.Struct(nb)
}

func (ub *UpdateBookmark) Validate(validate *validator.Validate) error {
	if ub.Notes != nil {
		notes := core.CleanString(*ub.Notes)
		ub.Notes = &notes
	}
	return validate.Struct(ub)
}

type (
	Repository interface {
		// CreateBookmark returns ErrExists when the user already bookmarked the verse.
		CreateBookmark(ctx context.Context, b Bookmark) (Bookmark, error)
		GetBookmark(ctx context.Context, userID string, id int64) (Bookmark, error)
		FindBookmark(ctx context.Context, userID string, verseID int) (Bookmark, error)
		// QueryBookmarks returns the bookmarks of `userID`, newest first.
		QueryBookmarks(ctx context.Context, userID string) ([]Bookmark, error)
		UpdateBookmark(ctx context.Context, b Bookmark) (Bookmark, error)
		DeleteBookmark(ctx context.Context, id int64) error
	}

	// Verses looks up the bookmarked verses.
	Verses interface {
		GetVerses(ctx context.Context, ids ...int) (map[int]quran.Verse, error)
		ListSurahs(ctx context.Context) ([]quran.Surah, error)
	}

	Service interface {
		Create(ctx context.Context, userID string, nb NewBookmark) (Bookmark, error)
		List(ctx context.Context, userID string) ([]Bookmark, error)
		Check(ctx context.Context, userID string, verseID int) (Status, error)
		Update(ctx context.Context, userID string, id int64, ub UpdateBookmark) (Bookmark, error)
		Delete(ctx context.Context, userID string, id int64) error
	}

	service struct {
		repo   Repository
		verses Verses
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, verses Verses) Service {
	return &service{repo: repo, verses: verses}
}

// Create expects a validated NewBookmark.
func (svc *service) Create(ctx context.Context, userID string, nb NewBookmark) (Bookmark, error) {
	verses, err := svc.verses.GetVerses(ctx, nb.VerseID)
	if err != nil {
		return Bookmark{}, errors.Wrap(err, "getting verse")
	}
	if _, ok := verses[nb.VerseID]; !ok {
		return Bookmark{}, quran.ErrVerseNotFound
	}

	b, err := svc.repo.CreateBookmark(ctx, Bookmark{
		UserID:    userID,
		VerseID:   nb.VerseID,
		Notes:     nb.Notes,
		CreatedAt: NowFunc().UTC(),
	})
	if err != nil {
		return Bookmark{}, err
	}
	return svc.withPreview(ctx, b)
}

func (svc *service) List(ctx context.Context, userID string) ([]Bookmark, error) {
	bookmarks, err := svc.repo.QueryBookmarks(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying bookmarks")
	}
	if err = svc.attachPreviews(ctx, bookmarks); err != nil {
		return nil, err
	}
	return bookmarks, nil
}

func (svc *service) Check(ctx context.Context, userID string, verseID int) (Status, error) {
	b, err := svc.repo.FindBookmark(ctx, userID, verseID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Status{}, nil
		}
		return Status{}, err
	}
	return Status{IsBookmarked: true, BookmarkID: &b.ID}, nil
}

// Update expects a validated UpdateBookmark.
func (svc *service) Update(ctx context.Context, userID string, id int64, ub UpdateBookmark) (Bookmark, error) {
	b, err := svc.repo.GetBookmark(ctx, userID, id)
	if err != nil {
		return Bookmark{}, err
	}
	if ub.Notes != nil {
		b.Notes = *ub.Notes
		if b, err = svc.repo.UpdateBookmark(ctx, b); err != nil {
			return Bookmark{}, err
		}
	}
	return svc.withPreview(ctx, b)
}

func (svc *service) Delete(ctx context.Context, userID string, id int64) error {
	if _, err := svc.repo.GetBookmark(ctx, userID, id); err != nil {
		return err
	}
	return svc.repo.DeleteBookmark(ctx, id)
}

func (svc *service) withPreview(ctx context.Context, b Bookmark) (Bookmark, error) {
	list := []Bookmark{b}
	if err := svc.attachPreviews(ctx, list); err != nil {
		return Bookmark{}, err
	}
	return list[0], nil
}

func (svc *service) attachPreviews(ctx context.Context, bookmarks []Bookmark) error {
	if len(bookmarks) == 0 {
		return nil
	}
	ids := make([]int, 0, len(bookmarks))
	for _, b := range bookmarks {
		ids = append(ids, b.VerseID)
	}
	verses, err := svc.verses.GetVerses(ctx, ids...)
	if err != nil {
		return errors.Wrap(err, "getting verses")
	}
	surahList, err := svc.verses.ListSurahs(ctx)
	if err != nil {
		return errors.Wrap(err, "listing surahs")
	}
	surahs := make(map[int]quran.Surah, len(surahList))
	for _, s := range surahList {
		surahs[s.ID] = s
	}

	for i := range bookmarks {
		v, ok := verses[bookmarks[i].VerseID]
		if !ok {
			continue
		}
		s := surahs[v.SurahID]
		bookmarks[i].Verse = &VersePreview{
			ID:                 v.ID,
			VerseNumberInSurah: v.VerseNumberInSurah,
			TextArabic:         core.Truncate(v.TextArabic, previewLength),
			Surah: SurahPreview{
				ID:          s.ID,
				Number:      s.Number,
				NameArabic:  s.NameArabic,
				NameEnglish: s.NameEnglish,
			},
		}
	}
	return nil
}
