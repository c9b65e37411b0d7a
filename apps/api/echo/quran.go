package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/quran"
)

type quranApi struct {
	svc      quran.Service
	validate *validator.Validate
}

func registerQuranAPI(g *echo.Group, opts *Options) {
	api := quranApi{svc: opts.QuranSvc, validate: opts.Validate}

	qg := g.Group("/quran")
	qg.GET("/surahs", api.surahs)
	qg.GET("/surahs/:number", api.surah)
	qg.GET("/surahs/:number/verses", api.surahVerses)
	qg.GET("/juz/:number", api.juz)
	qg.GET("/page/:number", api.page)
	qg.GET("/verses/:id", api.verse)
	qg.GET("/search", api.search)
	qg.GET("/reciters", api.reciters)
	qg.GET("/audio/:surah", api.chapterAudio)
	qg.GET("/audio/verse/:surah/:verse", api.verseAudio)
	qg.GET("/timestamps/:surah", api.timestamps)
}

type SurahVersesResponse struct {
	Surah       quran.Surah   `json:"surah"`
	Translation string        `json:"translation"`
	Verses      []quran.Verse `json:"verses"`
}

func (api *quranApi) surahs(ctx echo.Context) error {
	surahs, err := api.svc.ListSurahs(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing surahs")
	}
	if surahs == nil {
		surahs = []quran.Surah{}
	}
	return ctx.JSON(http.StatusOK, surahs)
}

func (api *quranApi) surah(ctx echo.Context) error {
	number, err := intParam(ctx, "number")
	if err != nil {
		return err
	}
	surah, err := api.svc.GetSurah(ctx.Request().Context(), number)
	if err != nil {
		return errors.Wrap(err, "getting surah")
	}
	return ctx.JSON(http.StatusOK, surah)
}

func (api *quranApi) surahVerses(ctx echo.Context) error {
	number, err := intParam(ctx, "number")
	if err != nil {
		return err
	}
	translation := core.CleanString(ctx.QueryParam("translation"), true /* lower */)
	if translation == "" {
		translation = quran.TranslationEnglish
	}
	if err = api.validate.Var(translation, "oneof=english arabic french"); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "translation", Error: "must be one of: english, arabic, french"})
	}

	surah, verses, err := api.svc.SurahVerses(ctx.Request().Context(), number, translation)
	if err != nil {
		return errors.Wrap(err, "getting surah verses")
	}
	return ctx.JSON(http.StatusOK, SurahVersesResponse{Surah: surah, Translation: translation, Verses: verses})
}

func (api *quranApi) juz(ctx echo.Context) error {
	number, err := intParam(ctx, "number")
	if err != nil {
		return err
	}
	verses, err := api.svc.JuzVerses(ctx.Request().Context(), number)
	if err != nil {
		return errors.Wrap(err, "getting juz verses")
	}
	return ctx.JSON(http.StatusOK, verses)
}

func (api *quranApi) page(ctx echo.Context) error {
	number, err := intParam(ctx, "number")
	if err != nil {
		return err
	}
	verses, err := api.svc.PageVerses(ctx.Request().Context(), number)
	if err != nil {
		return errors.Wrap(err, "getting page verses")
	}
	return ctx.JSON(http.StatusOK, verses)
}

func (api *quranApi) verse(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	verse, err := api.svc.GetVerse(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting verse")
	}
	return ctx.JSON(http.StatusOK, verse)
}

func (api *quranApi) search(ctx echo.Context) error {
	query := quran.SearchQuery{
		Query:    ctx.QueryParam("query"),
		SearchIn: ctx.QueryParam("search_in"),
	}
	if limit := ctx.QueryParam("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "limit", Error: "must be a number"})
		}
		query.Limit = n
	}
	if err := query.Validate(api.validate); err != nil {
		return err
	}

	verses, err := api.svc.Search(ctx.Request().Context(), query)
	if err != nil {
		return errors.Wrap(err, "searching verses")
	}
	if verses == nil {
		verses = []quran.Verse{}
	}
	return ctx.JSON(http.StatusOK, verses)
}

func (api *quranApi) reciters(ctx echo.Context) error {
	reciters, err := api.svc.ListReciters(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing reciters")
	}
	if reciters == nil {
		reciters = []quran.Reciter{}
	}
	return ctx.JSON(http.StatusOK, reciters)
}

func (api *quranApi) chapterAudio(ctx echo.Context) error {
	surah, err := intParam(ctx, "surah")
	if err != nil {
		return err
	}
	reciterID, _ := strconv.Atoi(ctx.QueryParam("reciter"))

	audio, err := api.svc.ChapterAudio(ctx.Request().Context(), surah, reciterID)
	if err != nil {
		return errors.Wrap(err, "getting chapter audio")
	}
	return ctx.JSON(http.StatusOK, audio)
}

func (api *quranApi) verseAudio(ctx echo.Context) error {
	surah, err := intParam(ctx, "surah")
	if err != nil {
		return err
	}
	verse, err := intParam(ctx, "verse")
	if err != nil {
		return err
	}

	audio, err := api.svc.VerseAudio(surah, verse, core.CleanString(ctx.QueryParam("reciter")))
	if err != nil {
		return errors.Wrap(err, "getting verse audio")
	}
	return ctx.JSON(http.StatusOK, audio)
}

func (api *quranApi) timestamps(ctx echo.Context) error {
	surah, err := intParam(ctx, "surah")
	if err != nil {
		return err
	}
	reciterID, _ := strconv.Atoi(ctx.QueryParam("reciter"))

	stamps, err := api.svc.Timestamps(ctx.Request().Context(), surah, reciterID)
	if err != nil {
		return errors.Wrap(err, "getting timestamps")
	}
	return ctx.JSON(http.StatusOK, stamps)
}
