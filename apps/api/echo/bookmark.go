package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/FARHATREKAYA/quran-app/core/bookmark"
)

type bookmarkApi struct {
	svc      bookmark.Service
	validate *validator.Validate
}

func registerBookmarkAPI(g *echo.Group, auth echo.MiddlewareFunc, opts *Options) {
	api := bookmarkApi{svc: opts.BookmarkSvc, validate: opts.Validate}

	bg := g.Group("/bookmarks", auth)
	bg.POST("", api.create)
	bg.GET("", api.list)
	bg.GET("/check/:verse", api.check)
	bg.PATCH("/:id", api.update)
	bg.DELETE("/:id", api.destroy)
}

func (api *bookmarkApi) create(ctx echo.Context) error {
	var data bookmark.NewBookmark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBookmark")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	b, err := api.svc.Create(ctx.Request().Context(), mustContextUser(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "creating bookmark")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *bookmarkApi) list(ctx echo.Context) error {
	bookmarks, err := api.svc.List(ctx.Request().Context(), mustContextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "listing bookmarks")
	}
	if bookmarks == nil {
		bookmarks = []bookmark.Bookmark{}
	}
	return ctx.JSON(http.StatusOK, bookmarks)
}

func (api *bookmarkApi) check(ctx echo.Context) error {
	verseID, err := intParam(ctx, "verse")
	if err != nil {
		return err
	}
	status, err := api.svc.Check(ctx.Request().Context(), mustContextUser(ctx).ID, verseID)
	if err != nil {
		return errors.Wrap(err, "checking bookmark")
	}
	return ctx.JSON(http.StatusOK, status)
}

func (api *bookmarkApi) update(ctx echo.Context) error {
	id, err := int64Param(ctx, "id")
	if err != nil {
		return err
	}
	var data bookmark.UpdateBookmark
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBookmark")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	b, err := api.svc.Update(ctx.Request().Context(), mustContextUser(ctx).ID, id, data)
	if err != nil {
		return errors.Wrap(err, "updating bookmark")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *bookmarkApi) destroy(ctx echo.Context) error {
	id, err := int64Param(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), mustContextUser(ctx).ID, id); err != nil {
		return errors.Wrap(err, "deleting bookmark")
	}
	return ctx.NoContent(http.StatusNoContent)
}
