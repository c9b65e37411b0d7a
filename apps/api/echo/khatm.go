package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/FARHATREKAYA/quran-app/core/khatm"
)

type khatmApi struct {
	svc      khatm.Service
	validate *validator.Validate
}

func registerKhatmAPI(g *echo.Group, auth echo.MiddlewareFunc, opts *Options) {
	api := khatmApi{svc: opts.KhatmSvc, validate: opts.Validate}

	kg := g.Group("/khatm", auth)
	kg.POST("", api.create)
	kg.GET("", api.list)

	// detail endpoints
	kg.GET("/:id", api.retrieve)
	kg.PATCH("/:id", api.update)
	kg.DELETE("/:id", api.destroy)
	kg.GET("/:id/today", api.today)
	kg.GET("/:id/progress", api.progress)
	kg.GET("/:id/sessions/:session", api.session)
	kg.POST("/:id/sessions/:session/complete", api.complete)
	kg.POST("/:id/sessions/:session/skip", api.skip)
}

type (
	CreateKhatmResponse struct {
		ID            int64  `json:"id"`
		Title         string `json:"title"`
		TotalSessions int    `json:"total_sessions"`
		Message       string `json:"message"`
	}

	CompleteSessionResponse struct {
		khatm.CompleteResult
		Message string `json:"message"`
	}

	SkipSessionResponse struct {
		Session khatm.Session `json:"session"`
		Message string        `json:"message"`
	}
)

func (api *khatmApi) ids(ctx echo.Context) (id, sessionID int64, err error) {
	if id, err = int64Param(ctx, "id"); err != nil {
		return 0, 0, err
	}
	if ctx.Param("session") != "" {
		if sessionID, err = int64Param(ctx, "session"); err != nil {
			return 0, 0, err
		}
	}
	return id, sessionID, nil
}

func (api *khatmApi) create(ctx echo.Context) error {
	var data khatm.NewKhatm
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewKhatm")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	k, err := api.svc.Create(ctx.Request().Context(), mustContextUser(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "creating khatm")
	}
	return ctx.JSON(http.StatusCreated, CreateKhatmResponse{
		ID:            k.ID,
		Title:         k.Title,
		TotalSessions: k.TotalSessions,
		Message:       "Khatm created successfully",
	})
}

func (api *khatmApi) list(ctx echo.Context) error {
	activeOnly := boolQuery(ctx, "active_only")
	summaries, err := api.svc.List(ctx.Request().Context(), mustContextUser(ctx).ID, activeOnly != nil && *activeOnly)
	if err != nil {
		return errors.Wrap(err, "listing khatms")
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func (api *khatmApi) retrieve(ctx echo.Context) error {
	id, _, err := api.ids(ctx)
	if err != nil {
		return err
	}
	detail, err := api.svc.Get(ctx.Request().Context(), mustContextUser(ctx).ID, id)
	if err != nil {
		return errors.Wrap(err, "getting khatm")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *khatmApi) update(ctx echo.Context) error {
	id, _, err := api.ids(ctx)
	if err != nil {
		return err
	}
	var data khatm.UpdateKhatm
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateKhatm")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	k, err := api.svc.Update(ctx.Request().Context(), mustContextUser(ctx).ID, id, data)
	if err != nil {
		return errors.Wrap(err, "updating khatm")
	}
	return ctx.JSON(http.StatusOK, khatm.NewSummary(k))
}

func (api *khatmApi) destroy(ctx echo.Context) error {
	id, _, err := api.ids(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), mustContextUser(ctx).ID, id); err != nil {
		return errors.Wrap(err, "deleting khatm")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *khatmApi) today(ctx echo.Context) error {
	id, _, err := api.ids(ctx)
	if err != nil {
		return err
	}
	s, ok, err := api.svc.Today(ctx.Request().Context(), mustContextUser(ctx).ID, id)
	if err != nil {
		return errors.Wrap(err, "getting today's session")
	}
	if !ok {
		return ctx.JSON(http.StatusOK, MessageResponse{Message: "No session scheduled for today"})
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *khatmApi) progress(ctx echo.Context) error {
	id, _, err := api.ids(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.Progress(ctx.Request().Context(), mustContextUser(ctx).ID, id)
	if err != nil {
		return errors.Wrap(err, "getting progress")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *khatmApi) session(ctx echo.Context) error {
	id, sessionID, err := api.ids(ctx)
	if err != nil {
		return err
	}
	detail, err := api.svc.GetSession(ctx.Request().Context(), mustContextUser(ctx).ID, id, sessionID)
	if err != nil {
		return errors.Wrap(err, "getting session")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *khatmApi) complete(ctx echo.Context) error {
	id, sessionID, err := api.ids(ctx)
	if err != nil {
		return err
	}
	var data khatm.CompleteSession
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompleteSession")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.CompleteSession(ctx.Request().Context(), mustContextUser(ctx).ID, id, sessionID, data)
	if err != nil {
		return errors.Wrap(err, "completing session")
	}
	return ctx.JSON(http.StatusOK, CompleteSessionResponse{CompleteResult: res, Message: "Session completed successfully"})
}

func (api *khatmApi) skip(ctx echo.Context) error {
	id, sessionID, err := api.ids(ctx)
	if err != nil {
		return err
	}
	var data khatm.SkipSession
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SkipSession")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.SkipSession(ctx.Request().Context(), mustContextUser(ctx).ID, id, sessionID, data)
	if err != nil {
		return errors.Wrap(err, "skipping session")
	}
	return ctx.JSON(http.StatusOK, SkipSessionResponse{Session: s, Message: "Session skipped successfully"})
}
