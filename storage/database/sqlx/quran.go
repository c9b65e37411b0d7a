package sqlxrepos

import (
	"context"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/FARHATREKAYA/quran-app/core/quran"
)

var (
	surahColumns = []string{
		"id", "number", "name_arabic", "name_english", "name_transliteration", "verse_count", "revelation_type", "description",
	}
	verseColumns = []string{
		"id", "surah_id", "verse_number", "verse_number_in_surah", "text_arabic", "text_arabic_plain",
		"text_english", "text_french", "tafsir_english", "tafsir_french", "juz", "page",
	}
)

type surahRow struct {
	ID                  int    `db:"id"`
	Number              int    `db:"number"`
	NameArabic          string `db:"name_arabic"`
	NameEnglish         string `db:"name_english"`
	NameTransliteration string `db:"name_transliteration"`
	VerseCount          int    `db:"verse_count"`
	RevelationType      string `db:"revelation_type"`
	Description         string `db:"description"`
}

func (r surahRow) surah() quran.Surah { return quran.Surah(r) }

type verseRow struct {
	ID                 int    `db:"id"`
	SurahID            int    `db:"surah_id"`
	VerseNumber        int    `db:"verse_number"`
	VerseNumberInSurah int    `db:"verse_number_in_surah"`
	TextArabic         string `db:"text_arabic"`
	TextArabicPlain    string `db:"text_arabic_plain"`
	TextEnglish        string `db:"text_english"`
	TextFrench         string `db:"text_french"`
	TafsirEnglish      string `db:"tafsir_english"`
	TafsirFrench       string `db:"tafsir_french"`
	Juz                int    `db:"juz"`
	Page               int    `db:"page"`
}

func (r verseRow) verse() quran.Verse { return quran.Verse(r) }

type reciterRow struct {
	ID          int    `db:"id"`
	Name        string `db:"name"`
	NameArabic  string `db:"name_arabic"`
	Style       string `db:"style"`
	AudioFolder string `db:"audio_folder"`
	QuranComID  int    `db:"quran_com_id"`
}

type timestampRow struct {
	ReciterID   int `db:"reciter_id"`
	SurahID     int `db:"surah_id"`
	VerseNumber int `db:"verse_number_in_surah"`
	StartTime   int `db:"start_ms"`
	EndTime     int `db:"end_ms"`
}

type quranRepository struct {
	pg *Postgres
}

var _ quran.Repository = (*quranRepository)(nil) // interface compliance check

func NewQuranRepository(pg *Postgres) quran.Repository {
	return &quranRepository{pg: pg}
}

func (repo *quranRepository) QuerySurahs(ctx context.Context) ([]quran.Surah, error) {
	var rows []surahRow
	if err := repo.pg.selectAll(ctx, &rows, repo.pg.psql.Select(surahColumns...).From("surahs").OrderBy("number")); err != nil {
		return nil, errors.Wrap(err, "selecting surahs")
	}
	surahs := make([]quran.Surah, 0, len(rows))
	for _, r := range rows {
		surahs = append(surahs, r.surah())
	}
	return surahs, nil
}

func (repo *quranRepository) GetSurah(ctx context.Context, number int) (quran.Surah, error) {
	var row surahRow
	q := repo.pg.psql.Select(surahColumns...).From("surahs").Where(squirrel.Eq{"number": number})
	if err := repo.pg.get(ctx, &row, q); err != nil {
		return quran.Surah{}, trapNoRowsErr(err, quran.ErrSurahNotFound)
	}
	return row.surah(), nil
}

func (repo *quranRepository) GetVerse(ctx context.Context, id int) (quran.Verse, error) {
	var row verseRow
	q := repo.pg.psql.Select(verseColumns...).From("verses").Where(squirrel.Eq{"id": id})
	if err := repo.pg.get(ctx, &row, q); err != nil {
		return quran.Verse{}, trapNoRowsErr(err, quran.ErrVerseNotFound)
	}
	return row.verse(), nil
}

func (repo *quranRepository) selectVerses(ctx context.Context, q squirrel.SelectBuilder) ([]quran.Verse, error) {
	var rows []verseRow
	if err := repo.pg.selectAll(ctx, &rows, q); err != nil {
		return nil, err
	}
	verses := make([]quran.Verse, 0, len(rows))
	for _, r := range rows {
		verses = append(verses, r.verse())
	}
	return verses, nil
}

func (repo *quranRepository) QueryVerses(ctx context.Context, filter quran.VerseFilter) ([]quran.Verse, error) {
	q := repo.pg.psql.Select(verseColumns...).From("verses").OrderBy("verse_number")
	if filter.SurahID != 0 {
		q = q.Where(squirrel.Eq{"surah_id": filter.SurahID})
	}
	if filter.Juz != 0 {
		q = q.Where(squirrel.Eq{"juz": filter.Juz})
	}
	if filter.Page != 0 {
		q = q.Where(squirrel.Eq{"page": filter.Page})
	}
	if filter.FromNumber != 0 {
		q = q.Where(squirrel.GtOrEq{"verse_number": filter.FromNumber})
	}
	if filter.ToNumber != 0 {
		q = q.Where(squirrel.LtOrEq{"verse_number": filter.ToNumber})
	}
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}

	verses, err := repo.selectVerses(ctx, q)
	return verses, errors.Wrap(err, "selecting verses")
}

func (repo *quranRepository) SearchVerses(ctx context.Context, query quran.SearchQuery) ([]quran.Verse, error) {
	arabic := squirrel.Like{"text_arabic_plain": "%" + quran.FoldArabic(query.Query) + "%"}
	translation := squirrel.ILike{"text_english": "%" + strings.TrimSpace(query.Query) + "%"}

	q := repo.pg.psql.Select(verseColumns...).From("verses").OrderBy("verse_number").Limit(uint64(query.Limit))
	switch query.SearchIn {
	case quran.SearchInArabic:
		q = q.Where(arabic)
	case quran.SearchInBoth:
		q = q.Where(squirrel.Or{arabic, translation})
	default:
		q = q.Where(translation)
	}

	verses, err := repo.selectVerses(ctx, q)
	return verses, errors.Wrap(err, "searching verses")
}

func (repo *quranRepository) ListVerseRefs(ctx context.Context) ([]quran.VerseRef, error) {
	var refs []struct {
		ID           int `db:"id"`
		Global       int `db:"verse_number"`
		SurahID      int `db:"surah_id"`
		VerseInSurah int `db:"verse_number_in_surah"`
	}
	q := repo.pg.psql.Select("id", "verse_number", "surah_id", "verse_number_in_surah").From("verses").OrderBy("verse_number")
	if err := repo.pg.selectAll(ctx, &refs, q); err != nil {
		return nil, errors.Wrap(err, "selecting verse refs")
	}
	res := make([]quran.VerseRef, 0, len(refs))
	for _, r := range refs {
		res = append(res, quran.VerseRef{ID: r.ID, Global: r.Global, SurahID: r.SurahID, VerseInSurah: r.VerseInSurah})
	}
	return res, nil
}

func (repo *quranRepository) QueryReciters(ctx context.Context) ([]quran.Reciter, error) {
	var rows []reciterRow
	q := repo.pg.psql.Select("id", "name", "name_arabic", "style", "audio_folder", "quran_com_id").From("reciters").OrderBy("id")
	if err := repo.pg.selectAll(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting reciters")
	}
	reciters := make([]quran.Reciter, 0, len(rows))
	for _, r := range rows {
		reciters = append(reciters, quran.Reciter(r))
	}
	return reciters, nil
}

func (repo *quranRepository) QueryTimestamps(ctx context.Context, reciterID, surahID int) ([]quran.Timestamp, error) {
	var rows []timestampRow
	q := repo.pg.psql.Select("t.reciter_id", "t.surah_id", "v.verse_number_in_surah", "t.start_ms", "t.end_ms").
		From("verse_timestamps t").
		Join("verses v ON v.id = t.verse_id").
		Where(squirrel.Eq{"t.reciter_id": reciterID, "t.surah_id": surahID}).
		OrderBy("v.verse_number_in_surah")
	if err := repo.pg.selectAll(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting timestamps")
	}
	stamps := make([]quran.Timestamp, 0, len(rows))
	for _, r := range rows {
		stamps = append(stamps, quran.Timestamp(r))
	}
	return stamps, nil
}

const (
	insertBatchSize      = 500
	insertTimestampQuery = `INSERT INTO verse_timestamps (reciter_id, surah_id, verse_id, start_ms, end_ms)
		SELECT $1, surah_id, id, $2, $3 FROM verses WHERE surah_id = $4 AND verse_number_in_surah = $5`
)

// SaveCorpus replaces the corpus in one transaction. Rows referencing verses
// (bookmarks, comments, reports) are removed by the cascades.
func (repo *quranRepository) SaveCorpus(ctx context.Context, corpus quran.Corpus) error {
	return repo.pg.RunInTx(ctx, func(tx *Postgres) error {
		for _, table := range []string{"verse_timestamps", "reciters", "verses", "surahs"} {
			if _, err := tx.exec(ctx, tx.psql.Delete(table)); err != nil {
				return errors.Wrapf(err, "clearing %s", table)
			}
		}

		if len(corpus.Surahs) > 0 {
			q := tx.psql.Insert("surahs").Columns(surahColumns...)
			for _, s := range corpus.Surahs {
				q = q.Values(s.ID, s.Number, s.NameArabic, s.NameEnglish, s.NameTransliteration, s.VerseCount, s.RevelationType, s.Description)
			}
			if _, err := tx.exec(ctx, q); err != nil {
				return errors.Wrap(err, "inserting surahs")
			}
		}

		for start := 0; start < len(corpus.Verses); start += insertBatchSize {
			end := start + insertBatchSize
			if end > len(corpus.Verses) {
				end = len(corpus.Verses)
			}
			q := tx.psql.Insert("verses").Columns(verseColumns...)
			for _, v := range corpus.Verses[start:end] {
				q = q.Values(v.ID, v.SurahID, v.VerseNumber, v.VerseNumberInSurah, v.TextArabic, v.TextArabicPlain,
					v.TextEnglish, v.TextFrench, v.TafsirEnglish, v.TafsirFrench, v.Juz, v.Page)
			}
			if _, err := tx.exec(ctx, q); err != nil {
				return errors.Wrap(err, "inserting verses")
			}
		}

		for _, r := range corpus.Reciters {
			q := tx.psql.Insert("reciters").
				Columns("id", "name", "name_arabic", "style", "audio_folder", "quran_com_id").
				Values(r.ID, r.Name, r.NameArabic, r.Style, r.AudioFolder, r.QuranComID)
			if _, err := tx.exec(ctx, q); err != nil {
				return errors.Wrapf(err, "inserting reciter %q", r.Name)
			}
		}

		for _, ts := range corpus.Timestamps {
			if _, err := tx.executor().ExecContext(ctx, insertTimestampQuery, ts.ReciterID, ts.StartTime, ts.EndTime, ts.SurahID, ts.VerseNumber); err != nil {
				return errors.Wrap(err, "inserting timestamps")
			}
		}
		return nil
	})
}
