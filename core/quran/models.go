package quran

import (
	"github.com/go-playground/validator/v10"

	"github.com/FARHATREKAYA/quran-app/core"
)

const (
	SurahCount = 114
	JuzCount   = 30
	PageCount  = 604

	// CorpusSize is the number of verses of the full corpus.
	CorpusSize = 6236
)

// Translations
const (
	TranslationEnglish = "english" // arabic + english
	TranslationArabic  = "arabic"  // arabic only
	TranslationFrench  = "french"  // arabic + french
)

// Search targets
const (
	SearchInTranslation = "translation"
	SearchInArabic      = "arabic"
	SearchInBoth        = "both"
)

type Surah struct {
	ID                  int    `json:"id" yaml:"id"`
	Number              int    `json:"number" yaml:"number"`
	NameArabic          string `json:"name_arabic" yaml:"name_arabic"`
	NameEnglish         string `json:"name_english" yaml:"name_english"`
	NameTransliteration string `json:"name_transliteration" yaml:"name_transliteration"`
	VerseCount          int    `json:"verse_count" yaml:"verse_count"`
	RevelationType      string `json:"revelation_type" yaml:"revelation_type"`
	Description         string `json:"description,omitempty" yaml:"description"`
}

type Verse struct {
	ID                 int    `json:"id" yaml:"id"`
	SurahID            int    `json:"surah_id" yaml:"surah_id"`
	VerseNumber        int    `json:"verse_number" yaml:"verse_number"` // global, 1..N
	VerseNumberInSurah int    `json:"verse_number_in_surah" yaml:"verse_number_in_surah"`
	TextArabic         string `json:"text_arabic" yaml:"text_arabic"`
	TextArabicPlain    string `json:"-" yaml:"-"` // diacritics folded, for search
	TextEnglish        string `json:"text_english" yaml:"text_english"`
	TextFrench         string `json:"text_french,omitempty" yaml:"text_french"`
	TafsirEnglish      string `json:"tafsir_english,omitempty" yaml:"tafsir_english"`
	TafsirFrench       string `json:"tafsir_french,omitempty" yaml:"tafsir_french"`
	Juz                int    `json:"juz_number" yaml:"juz"`
	Page               int    `json:"page_number" yaml:"page"`
}

// WithTranslation returns a copy of the verse holding only the texts of the given translation.
func (v Verse) WithTranslation(translation string) Verse {
	switch translation {
	case TranslationArabic:
		v.TextEnglish = ""
		v.TextFrench = ""
	case TranslationFrench:
	default:
		v.TextFrench = ""
	}
	return v
}

// VerseRef locates a verse in the ordered corpus.
type VerseRef struct {
	ID           int `json:"id"`
	Global       int `json:"global"`
	SurahID      int `json:"surah_id"`
	VerseInSurah int `json:"verse_in_surah"`
}

func (v Verse) Ref() VerseRef {
	return VerseRef{ID: v.ID, Global: v.VerseNumber, SurahID: v.SurahID, VerseInSurah: v.VerseNumberInSurah}
}

type Reciter struct {
	ID          int    `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	NameArabic  string `json:"name_arabic" yaml:"name_arabic"`
	Style       string `json:"style" yaml:"style"`
	AudioFolder string `json:"audio_folder" yaml:"audio_folder"`
	QuranComID  int    `json:"quran_com_id" yaml:"quran_com_id"`
}

// Timestamp is the position of a verse in a surah recitation, in milliseconds.
type Timestamp struct {
	ReciterID   int `json:"-" yaml:"reciter_id"`
	SurahID     int `json:"-" yaml:"surah_id"`
	VerseNumber int `json:"verse_number" yaml:"verse_number"` // in surah
	StartTime   int `json:"start_time" yaml:"start_time"`
	EndTime     int `json:"end_time" yaml:"end_time"`
}

type Timestamps struct {
	SurahNumber int         `json:"surah_number"`
	ReciterID   int         `json:"reciter_id"`
	Source      string      `json:"source"` // database | interpolation
	Timestamps  []Timestamp `json:"timestamps,omitempty"`
	VerseCount  int         `json:"verse_count,omitempty"`
	Message     string      `json:"message,omitempty"`
}

type VerseFilter struct {
	SurahID    int
	Juz        int
	Page       int
	FromNumber int // global, inclusive
	ToNumber   int // global, inclusive
	IDs        []int
}

type SearchQuery struct {
	Query    string `json:"query" validate:"required,min=2"`
	SearchIn string `json:"search_in" validate:"oneof=arabic translation both"`
	Limit    int    `json:"limit" validate:"min=1,max=100"`
}

func (sq *SearchQuery) Validate(validate *validator.Validate) error {
	sq.Query = core.CleanString(sq.Query)
	sq.SearchIn = core.CleanString(sq.SearchIn, true /* lower */)
	if sq.SearchIn == "" {
		sq.SearchIn = SearchInTranslation
	}
	if sq.Limit == 0 {
		sq.Limit = 20
	}
	return validate.Struct(sq)
}

// Corpus is the full content loaded by the seed command.
type Corpus struct {
	Surahs     []Surah     `json:"surahs" yaml:"surahs"`
	Verses     []Verse     `json:"verses" yaml:"verses"`
	Reciters   []Reciter   `json:"reciters" yaml:"reciters"`
	Timestamps []Timestamp `json:"timestamps" yaml:"timestamps"`
}
