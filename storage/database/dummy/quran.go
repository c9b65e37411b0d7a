package dummydb

import (
	"context"
	"sort"

	"github.com/FARHATREKAYA/quran-app/core/quran"
)

type quranRepository struct {
	db *DB
}

var _ quran.Repository = (*quranRepository)(nil) // interface compliance check

func NewQuranRepository(db *DB) quran.Repository {
	return &quranRepository{db: db}
}

func (repo *quranRepository) QuerySurahs(_ context.Context) ([]quran.Surah, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	surahs := make([]quran.Surah, 0, len(repo.db.surahs))
	for _, s := range repo.db.surahs {
		surahs = append(surahs, s)
	}
	sort.Slice(surahs, func(i, j int) bool { return surahs[i].Number < surahs[j].Number })
	return surahs, nil
}

func (repo *quranRepository) GetSurah(_ context.Context, number int) (quran.Surah, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.surahs {
		if s.Number == number {
			return s, nil
		}
	}
	return quran.Surah{}, quran.ErrSurahNotFound
}

func (repo *quranRepository) GetVerse(_ context.Context, id int) (quran.Verse, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, v := range repo.db.verses {
		if v.ID == id {
			return v, nil
		}
	}
	return quran.Verse{}, quran.ErrVerseNotFound
}

func (repo *quranRepository) QueryVerses(_ context.Context, filter quran.VerseFilter) ([]quran.Verse, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var ids map[int]bool
	if len(filter.IDs) > 0 {
		ids = make(map[int]bool, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = true
		}
	}

	verses := make([]quran.Verse, 0)
	for _, v := range repo.db.verses {
		switch {
		case filter.SurahID != 0 && v.SurahID != filter.SurahID,
			filter.Juz != 0 && v.Juz != filter.Juz,
			filter.Page != 0 && v.Page != filter.Page,
			filter.FromNumber != 0 && v.VerseNumber < filter.FromNumber,
			filter.ToNumber != 0 && v.VerseNumber > filter.ToNumber,
			ids != nil && !ids[v.ID]:
			continue
		}
		verses = append(verses, v)
	}
	return verses, nil
}

func (repo *quranRepository) SearchVerses(_ context.Context, query quran.SearchQuery) ([]quran.Verse, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	verses := make([]quran.Verse, 0)
	for _, v := range repo.db.verses {
		if quran.MatchesQuery(v, query.Query, query.SearchIn) {
			verses = append(verses, v)
			if len(verses) == query.Limit {
				break
			}
		}
	}
	return verses, nil
}

func (repo *quranRepository) ListVerseRefs(_ context.Context) ([]quran.VerseRef, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	refs := make([]quran.VerseRef, 0, len(repo.db.verses))
	for _, v := range repo.db.verses {
		refs = append(refs, v.Ref())
	}
	return refs, nil
}

func (repo *quranRepository) QueryReciters(_ context.Context) ([]quran.Reciter, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reciters := make([]quran.Reciter, len(repo.db.reciters))
	copy(reciters, repo.db.reciters)
	return reciters, nil
}

func (repo *quranRepository) QueryTimestamps(_ context.Context, reciterID, surahID int) ([]quran.Timestamp, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	stamps := make([]quran.Timestamp, 0)
	for _, ts := range repo.db.timestamps {
		if ts.ReciterID == reciterID && ts.SurahID == surahID {
			stamps = append(stamps, ts)
		}
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].VerseNumber < stamps[j].VerseNumber })
	return stamps, nil
}

func (repo *quranRepository) SaveCorpus(_ context.Context, corpus quran.Corpus) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	surahs := make(map[int]quran.Surah, len(corpus.Surahs))
	for _, s := range corpus.Surahs {
		surahs[s.ID] = s
	}
	verses := make([]quran.Verse, len(corpus.Verses))
	copy(verses, corpus.Verses)
	sort.Slice(verses, func(i, j int) bool { return verses[i].VerseNumber < verses[j].VerseNumber })

	repo.db.surahs = surahs
	repo.db.verses = verses
	repo.db.reciters = append([]quran.Reciter(nil), corpus.Reciters...)
	repo.db.timestamps = append([]quran.Timestamp(nil), corpus.Timestamps...)
	return nil
}
