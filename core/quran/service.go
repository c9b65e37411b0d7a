package quran

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/FARHATREKAYA/quran-app/core"
)

var (
	// errors
	ErrSurahNotFound = core.NewNotFoundError("surah")
	ErrVerseNotFound = core.NewNotFoundError("verse")
	ErrJuzNotFound   = core.NewNotFoundError("juz")
	ErrPageNotFound  = core.NewNotFoundError("page")
	ErrEmptyCorpus   = errors.New("verse corpus is empty")
)

type (
	Repository interface {
		QuerySurahs(ctx context.Context) ([]Surah, error)
		GetSurah(ctx context.Context, number int) (Surah, error)
		GetVerse(ctx context.Context, id int) (Verse, error)
		// QueryVerses returns the verses matching every non-zero field of `filter`, in corpus order.
		QueryVerses(ctx context.Context, filter VerseFilter) ([]Verse, error)
		// SearchVerses matches `query` against the english text and/or the folded arabic text.
		SearchVerses(ctx context.Context, query SearchQuery) ([]Verse, error)
		ListVerseRefs(ctx context.Context) ([]VerseRef, error)
		QueryReciters(ctx context.Context) ([]Reciter, error)
		QueryTimestamps(ctx context.Context, reciterID, surahID int) ([]Timestamp, error)
		// SaveCorpus replaces the whole corpus atomically.
		SaveCorpus(ctx context.Context, corpus Corpus) error
	}

	Service interface {
		ListSurahs(ctx context.Context) ([]Surah, error)
		GetSurah(ctx context.Context, number int) (Surah, error)
		SurahVerses(ctx context.Context, number int, translation string) (Surah, []Verse, error)
		JuzVerses(ctx context.Context, juz int) ([]Verse, error)
		PageVerses(ctx context.Context, page int) ([]Verse, error)
		GetVerse(ctx context.Context, id int) (Verse, error)
		GetVerses(ctx context.Context, ids ...int) (map[int]Verse, error)
		VersesInRange(ctx context.Context, fromGlobal, toGlobal int) ([]Verse, error)
		Search(ctx context.Context, query SearchQuery) ([]Verse, error)
		VerseAudio(surah, verse int, reciter string) (VerseAudio, error)
		ChapterAudio(ctx context.Context, surah, reciterID int) (ChapterAudio, error)
		Timestamps(ctx context.Context, surah, reciterID int) (Timestamps, error)
		ListReciters(ctx context.Context) ([]Reciter, error)
		// ListVersesOrdered is the corpus accessor: every verse ref in global order, 1..N.
		ListVersesOrdered(ctx context.Context) ([]VerseRef, error)
		Seed(ctx context.Context, corpus Corpus) error
	}

	service struct {
		repo         Repository
		audio        *audioClient
		verseBaseURL string

		corpusMu sync.RWMutex
		corpus   []VerseRef
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, conf *core.Config) Service {
	return &service{
		repo:         repo,
		audio:        newAudioClient(conf.Audio.ChapterAPIBase, conf.Audio.Timeout),
		verseBaseURL: conf.Audio.VerseBaseURL,
	}
}

func (svc *service) ListSurahs(ctx context.Context) ([]Surah, error) {
	return svc.repo.QuerySurahs(ctx)
}

func (svc *service) GetSurah(ctx context.Context, number int) (Surah, error) {
	if number < 1 || number > SurahCount {
		return Surah{}, ErrSurahNotFound
	}
	return svc.repo.GetSurah(ctx, number)
}

func (svc *service) SurahVerses(ctx context.Context, number int, translation string) (Surah, []Verse, error) {
	surah, err := svc.GetSurah(ctx, number)
	if err != nil {
		return Surah{}, nil, err
	}
	verses, err := svc.repo.QueryVerses(ctx, VerseFilter{SurahID: surah.ID})
	if err != nil {
		return Surah{}, nil, errors.Wrap(err, "querying surah verses")
	}
	for i := range verses {
		verses[i] = verses[i].WithTranslation(translation)
	}
	return surah, verses, nil
}

func (svc *service) JuzVerses(ctx context.Context, juz int) ([]Verse, error) {
	if juz < 1 || juz > JuzCount {
		return nil, ErrJuzNotFound
	}
	verses, err := svc.repo.QueryVerses(ctx, VerseFilter{Juz: juz})
	if err != nil {
		return nil, errors.Wrap(err, "querying juz verses")
	}
	if len(verses) == 0 {
		return nil, ErrJuzNotFound
	}
	return verses, nil
}

func (svc *service) PageVerses(ctx context.Context, page int) ([]Verse, error) {
	if page < 1 || page > PageCount {
		return nil, ErrPageNotFound
	}
	verses, err := svc.repo.QueryVerses(ctx, VerseFilter{Page: page})
	if err != nil {
		return nil, errors.Wrap(err, "querying page verses")
	}
	if len(verses) == 0 {
		return nil, ErrPageNotFound
	}
	return verses, nil
}

func (svc *service) GetVerse(ctx context.Context, id int) (Verse, error) {
	if id < 1 {
		return Verse{}, ErrVerseNotFound
	}
	return svc.repo.GetVerse(ctx, id)
}

func (svc *service) GetVerses(ctx context.Context, ids ...int) (map[int]Verse, error) {
	result := make(map[int]Verse, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	verses, err := svc.repo.QueryVerses(ctx, VerseFilter{IDs: ids})
	if err != nil {
		return nil, errors.Wrap(err, "querying verses")
	}
	for _, v := range verses {
		result[v.ID] = v
	}
	return result, nil
}

func (svc *service) VersesInRange(ctx context.Context, fromGlobal, toGlobal int) ([]Verse, error) {
	if fromGlobal < 1 || toGlobal < fromGlobal {
		return []Verse{}, nil
	}
	return svc.repo.QueryVerses(ctx, VerseFilter{FromNumber: fromGlobal, ToNumber: toGlobal})
}

// Search expects a validated SearchQuery.
func (svc *service) Search(ctx context.Context, query SearchQuery) ([]Verse, error) {
	verses, err := svc.repo.SearchVerses(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "searching verses")
	}
	return verses, nil
}

func (svc *service) VerseAudio(surah, verse int, reciter string) (VerseAudio, error) {
	if surah < 1 || surah > SurahCount || verse < 1 {
		return VerseAudio{}, ErrVerseNotFound
	}
	if reciter == "" {
		reciter = "Alafasy"
	}
	return VerseAudio{
		SurahNumber: surah,
		VerseNumber: verse,
		Reciter:     reciter,
		AudioURL:    VerseAudioURL(svc.verseBaseURL, reciter, surah, verse),
		Format:      "mp3",
	}, nil
}

func (svc *service) ChapterAudio(ctx context.Context, surah, reciterID int) (ChapterAudio, error) {
	if surah < 1 || surah > SurahCount {
		return ChapterAudio{}, ErrSurahNotFound
	}
	if reciterID < 1 {
		reciterID = 1
	}
	return svc.audio.chapterAudio(ctx, reciterID, surah)
}

// Timestamps returns the stored verse timestamps of a recitation,
// or tells the client to interpolate them when none are stored.
func (svc *service) Timestamps(ctx context.Context, surahNumber, reciterID int) (Timestamps, error) {
	surah, err := svc.GetSurah(ctx, surahNumber)
	if err != nil {
		return Timestamps{}, err
	}
	if reciterID < 1 {
		reciterID = 1
	}

	stamps, err := svc.repo.QueryTimestamps(ctx, reciterID, surah.ID)
	if err != nil {
		return Timestamps{}, errors.Wrap(err, "querying timestamps")
	}
	if len(stamps) > 0 {
		return Timestamps{SurahNumber: surahNumber, ReciterID: reciterID, Source: "database", Timestamps: stamps}, nil
	}
	return Timestamps{
		SurahNumber: surahNumber,
		ReciterID:   reciterID,
		Source:      "interpolation",
		VerseCount:  surah.VerseCount,
		Message:     "Timestamps will be interpolated based on audio duration",
	}, nil
}

func (svc *service) ListReciters(ctx context.Context) ([]Reciter, error) {
	return svc.repo.QueryReciters(ctx)
}

func (svc *service) ListVersesOrdered(ctx context.Context) ([]VerseRef, error) {
	svc.corpusMu.RLock()
	corpus := svc.corpus
	svc.corpusMu.RUnlock()
	if corpus != nil {
		return corpus, nil
	}

	refs, err := svc.repo.ListVerseRefs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing verse refs")
	}
	if len(refs) == 0 {
		return nil, ErrEmptyCorpus
	}
	for i, ref := range refs {
		if ref.Global != i+1 {
			return nil, errors.Errorf("corpus gap: position %d holds verse number %d", i+1, ref.Global)
		}
	}

	svc.corpusMu.Lock()
	svc.corpus = refs
	svc.corpusMu.Unlock()
	return refs, nil
}

// Seed checks and stores a full corpus, then drops the cached verse refs.
func (svc *service) Seed(ctx context.Context, corpus Corpus) error {
	if err := PrepareCorpus(&corpus); err != nil {
		return err
	}
	if err := svc.repo.SaveCorpus(ctx, corpus); err != nil {
		return errors.Wrap(err, "saving corpus")
	}

	svc.corpusMu.Lock()
	svc.corpus = nil
	svc.corpusMu.Unlock()
	return nil
}
