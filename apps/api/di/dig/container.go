package dig_container

import (
	"context"
	"fmt"
	"log"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/FARHATREKAYA/quran-app/apps/api/echo"
	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/bookmark"
	"github.com/FARHATREKAYA/quran-app/core/interaction"
	"github.com/FARHATREKAYA/quran-app/core/khatm"
	"github.com/FARHATREKAYA/quran-app/core/quran"
	"github.com/FARHATREKAYA/quran-app/core/user"
	emailsvc "github.com/FARHATREKAYA/quran-app/services/email"
	logsvc "github.com/FARHATREKAYA/quran-app/services/logger"
	"github.com/FARHATREKAYA/quran-app/services/scheduler"
	"github.com/FARHATREKAYA/quran-app/storage/database"
	sqlxrepos "github.com/FARHATREKAYA/quran-app/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// ServerParams gathers everything the API server needs.
type ServerParams struct {
	dig.In

	Conf           *core.Config
	Logger         core.Logger
	Validate       *validator.Validate
	Translator     ut.Translator
	UserSvc        user.Service
	QuranSvc       quran.Service
	KhatmSvc       khatm.Service
	BookmarkSvc    bookmark.Service
	InteractionSvc interaction.Service
}

func newZap(conf *core.Config) (*zap.Logger, error) {
	return logsvc.NewZap(conf)
}

func newLogger(conf *core.Config, zl *zap.Logger) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config, zl *zap.Logger) core.Logger {
	return logsvc.NewRollbarLogger(zl.Named("db"), conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(context.Background(), db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// the quran service is the verse corpus of every other service
func newKhatmCorpus(svc quran.Service) khatm.Corpus { return svc }
func newBookmarkVerses(svc quran.Service) bookmark.Verses { return svc }
func newInteractionVerses(svc quran.Service) interaction.Verses { return svc }
func newInteractionUsers(svc user.Service) interaction.Users { return svc }
func newSchedulerJobs(svc khatm.Service) scheduler.Jobs { return svc }

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Conf:           p.Conf,
		Logger:         p.Logger,
		Validate:       p.Validate,
		Translator:     p.Translator,
		UserSvc:        p.UserSvc,
		QuranSvc:       p.QuranSvc,
		KhatmSvc:       p.KhatmSvc,
		BookmarkSvc:    p.BookmarkSvc,
		InteractionSvc: p.InteractionSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newZap))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(sqlxrepos.New))
	must(c.Provide(emailsvc.NewService))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewQuranRepository))
	must(c.Provide(sqlxrepos.NewKhatmRepository))
	must(c.Provide(sqlxrepos.NewBookmarkRepository))
	must(c.Provide(sqlxrepos.NewInteractionRepository))

	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(quran.NewService))
	must(c.Provide(newKhatmCorpus))
	must(c.Provide(newBookmarkVerses))
	must(c.Provide(newInteractionVerses))
	must(c.Provide(newInteractionUsers))
	must(c.Provide(khatm.NewService))
	must(c.Provide(bookmark.NewService))
	must(c.Provide(interaction.NewService))

	must(c.Provide(newSchedulerJobs))
	must(c.Provide(scheduler.New))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
