package quran

import (
	"fmt"
	"sort"

	"github.com/FARHATREKAYA/quran-app/core"
)

func corpusError(field, format string, args ...interface{}) error {
	return core.NewValidationError(nil, core.FieldError{Field: field, Error: fmt.Sprintf(format, args...)})
}

// PrepareCorpus fills derived fields and checks that the verses form one contiguous,
// canonically ordered sequence 1..N matching the surah verse counts.
func PrepareCorpus(c *Corpus) error {
	if len(c.Surahs) == 0 {
		return corpusError("surahs", "no surahs")
	}
	if len(c.Verses) == 0 {
		return corpusError("verses", "no verses")
	}

	surahs := make(map[int]*Surah, len(c.Surahs))
	for i := range c.Surahs {
		s := &c.Surahs[i]
		if s.ID == 0 {
			s.ID = s.Number
		}
		if s.Number < 1 || s.Number > SurahCount {
			return corpusError("surahs", "invalid surah number %d", s.Number)
		}
		if _, ok := surahs[s.ID]; ok {
			return corpusError("surahs", "duplicate surah %d", s.ID)
		}
		surahs[s.ID] = s
	}

	sort.Slice(c.Verses, func(i, j int) bool { return c.Verses[i].VerseNumber < c.Verses[j].VerseNumber })

	counts := make(map[int]int, len(surahs))
	prevSurah, prevInSurah := 0, 0
	for i := range c.Verses {
		v := &c.Verses[i]
		if v.VerseNumber != i+1 {
			return corpusError("verses", "verse numbers must be contiguous from 1, got %d at position %d", v.VerseNumber, i+1)
		}
		if v.ID == 0 {
			v.ID = v.VerseNumber
		}
		s, ok := surahs[v.SurahID]
		if !ok {
			return corpusError("verses", "verse %d refers to unknown surah %d", v.VerseNumber, v.SurahID)
		}
		if s.Number < prevSurah || (s.Number == prevSurah && v.VerseNumberInSurah <= prevInSurah) {
			return corpusError("verses", "verse %d is out of canonical order", v.VerseNumber)
		}
		prevSurah, prevInSurah = s.Number, v.VerseNumberInSurah
		v.TextArabicPlain = FoldArabic(v.TextArabic)
		counts[v.SurahID]++
	}

	for i := range c.Reciters {
		if c.Reciters[i].ID == 0 {
			c.Reciters[i].ID = i + 1
		}
	}

	for id, s := range surahs {
		if s.VerseCount == 0 {
			s.VerseCount = counts[id]
		}
		if s.VerseCount != counts[id] {
			return corpusError("surahs", "surah %d declares %d verses but has %d", s.Number, s.VerseCount, counts[id])
		}
	}
	return nil
}
