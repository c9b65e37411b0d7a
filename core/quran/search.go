package quran

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var arabicLetterFolds = strings.NewReplacer(
	"ٱ", "ا", // alef wasla
	"ى", "ي", // alef maqsura
	"ة", "ه", // ta marbuta
	"ـ", "", // tatweel
)

// FoldArabic strips harakat and Quranic annotation marks and unifies letter variants,
// so that a query typed without diacritics matches the vocalised text.
func FoldArabic(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(arabicLetterFolds.Replace(folded)), " ")
}

// MatchesQuery reports whether `v` matches the folded query `q` for the given target.
func MatchesQuery(v Verse, q, searchIn string) bool {
	plain := v.TextArabicPlain
	if plain == "" {
		plain = FoldArabic(v.TextArabic)
	}
	arabic := strings.Contains(plain, FoldArabic(q))
	translation := strings.Contains(strings.ToLower(v.TextEnglish), strings.ToLower(q))

	switch searchIn {
	case SearchInArabic:
		return arabic
	case SearchInBoth:
		return arabic || translation
	default:
		return translation
	}
}
