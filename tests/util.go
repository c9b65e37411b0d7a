package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/khatm"
	"github.com/FARHATREKAYA/quran-app/core/quran"
	"github.com/FARHATREKAYA/quran-app/core/user"
	"github.com/FARHATREKAYA/quran-app/services/logger"
)

// Config returns the default configuration with the test mode on.
func Config() *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Server.DisableReqLogs = true
	return conf
}

// Logger discards everything.
func Logger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(zap.NewNop(), conf)
}

// Validator returns a validator with every custom tag registered.
func Validator() *validator.Validate {
	validate, _ := ValidatorWithTranslator()
	return validate
}

func ValidatorWithTranslator() (*validator.Validate, ut.Translator) {
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	khatm.InitValidators(validate, translator)
	return validate, translator
}

type UserOpts struct {
	Email     string
	Password  string
	IsAdmin   bool
	Inactive  bool
	CreatedAt time.Time
}

func CreateUser(t *testing.T, repo user.Repository, uname string, opts ...UserOpts) user.User {
	t.Helper()

	var o UserOpts
	if len(opts) > 0 {
		o = opts[0]
	}
	tstamp := time.Now().UTC()
	if !o.CreatedAt.IsZero() {
		tstamp = o.CreatedAt.UTC()
	}
	usr := user.User{
		ID:                fmt.Sprintf("00000000-0000-4000-8000-%012d", nextUserSeq()),
		Username:          uname,
		Email:             o.Email,
		IsAdmin:           o.IsAdmin,
		IsActive:          !o.Inactive,
		PreferredTheme:    user.ThemeLight,
		PreferredLanguage: user.LanguageEnglish,
		CreatedAt:         tstamp,
		UpdatedAt:         tstamp,
	}
	if o.Password != "" {
		if err := usr.SetPassword(o.Password); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

var userSeq int

func nextUserSeq() int {
	userSeq++
	return userSeq
}

// Corpus builds a synthetic corpus with one surah per verse count.
func Corpus(verseCounts ...int) quran.Corpus {
	var c quran.Corpus
	global := 0
	for i, count := range verseCounts {
		number := i + 1
		c.Surahs = append(c.Surahs, quran.Surah{
			ID:                  number,
			Number:              number,
			NameArabic:          fmt.Sprintf("سورة %d", number),
			NameEnglish:         fmt.Sprintf("Surah %d", number),
			NameTransliteration: fmt.Sprintf("Surah-%d", number),
			VerseCount:          count,
			RevelationType:      "Meccan",
		})
		for v := 1; v <= count; v++ {
			global++
			c.Verses = append(c.Verses, quran.Verse{
				ID:                 global,
				SurahID:            number,
				VerseNumber:        global,
				VerseNumberInSurah: v,
				TextArabic:         fmt.Sprintf("آية %d", global),
				TextEnglish:        fmt.Sprintf("Verse %d of surah %d", v, number),
				Juz:                1 + (global-1)/250,
				Page:               1 + (global-1)/15,
			})
		}
	}
	c.Reciters = []quran.Reciter{{ID: 1, Name: "Alafasy", NameArabic: "العفاسي", Style: "murattal", AudioFolder: "Alafasy_128kbps", QuranComID: 7}}
	return c
}

// SeedCorpus stores the synthetic corpus through `svc`.
func SeedCorpus(t *testing.T, svc quran.Service, verseCounts ...int) quran.Corpus {
	t.Helper()

	c := Corpus(verseCounts...)
	if err := svc.Seed(context.Background(), c); err != nil {
		t.Fatalf("SeedCorpus() failed: %v", err)
	}
	return c
}
