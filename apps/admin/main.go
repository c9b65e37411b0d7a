package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/khatm"
	"github.com/FARHATREKAYA/quran-app/core/quran"
	"github.com/FARHATREKAYA/quran-app/core/user"
	emailsvc "github.com/FARHATREKAYA/quran-app/services/email"
	logsvc "github.com/FARHATREKAYA/quran-app/services/logger"
	"github.com/FARHATREKAYA/quran-app/storage/database"
	sqlxrepos "github.com/FARHATREKAYA/quran-app/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatal(err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	defer logger.Sync()

	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logger)
	core.ParseEmailTemplates(conf, logger)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	pg := sqlxrepos.New(db)

	// set up services
	mailSvc := emailsvc.NewService(conf, logger)
	usrRepo := sqlxrepos.NewUserRepository(pg)
	quranSvc := quran.NewService(sqlxrepos.NewQuranRepository(pg), conf)

	// start CLI
	cli := commandLine{
		db:       db,
		validate: validate,
		usrRepo:  usrRepo,
		usrSvc:   user.NewService(usrRepo, mailSvc, conf),
		quranSvc: quranSvc,
		jobs:     khatm.NewService(sqlxrepos.NewKhatmRepository(pg), quranSvc, mailSvc, conf),
		out:      os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}
