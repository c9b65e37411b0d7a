package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/FARHATREKAYA/quran-app/core/interaction"
)

type interactionApi struct {
	svc      interaction.Service
	validate *validator.Validate
}

func registerInteractionAPI(g *echo.Group, auth echo.MiddlewareFunc, opts *Options) {
	api := interactionApi{svc: opts.InteractionSvc, validate: opts.Validate}

	vg := g.Group("/verses")
	vg.GET("/report-types", api.reportTypes)

	ag := vg.Group("", auth)
	ag.GET("/my-comments", api.myComments)
	ag.GET("/my-reports", api.myReports)
	ag.GET("/:verse/comments", api.comments)
	ag.POST("/:verse/comments", api.createComment)
	ag.PATCH("/:verse/comments/:comment", api.updateComment)
	ag.DELETE("/:verse/comments/:comment", api.destroyComment)
	ag.GET("/:verse/reports", api.verseReports)
	ag.POST("/:verse/reports", api.createReport)
}

func (api *interactionApi) reportTypes(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"report_types": interaction.ReportTypes})
}

func (api *interactionApi) comments(ctx echo.Context) error {
	verseID, err := intParam(ctx, "verse")
	if err != nil {
		return err
	}
	comments, err := api.svc.VerseComments(ctx.Request().Context(), verseID, mustContextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "listing verse comments")
	}
	return ctx.JSON(http.StatusOK, nonNilComments(comments))
}

func (api *interactionApi) createComment(ctx echo.Context) error {
	verseID, err := intParam(ctx, "verse")
	if err != nil {
		return err
	}
	var data interaction.NewComment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.CreateComment(ctx.Request().Context(), mustContextUser(ctx).ID, verseID, data)
	if err != nil {
		return errors.Wrap(err, "creating comment")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *interactionApi) updateComment(ctx echo.Context) error {
	verseID, err := intParam(ctx, "verse")
	if err != nil {
		return err
	}
	id, err := int64Param(ctx, "comment")
	if err != nil {
		return err
	}
	var data interaction.UpdateComment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateComment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.UpdateComment(ctx.Request().Context(), mustContextUser(ctx).ID, verseID, id, data)
	if err != nil {
		return errors.Wrap(err, "updating comment")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *interactionApi) destroyComment(ctx echo.Context) error {
	verseID, err := intParam(ctx, "verse")
	if err != nil {
		return err
	}
	id, err := int64Param(ctx, "comment")
	if err != nil {
		return err
	}
	if err = api.svc.DeleteComment(ctx.Request().Context(), mustContextUser(ctx).ID, verseID, id); err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *interactionApi) myComments(ctx echo.Context) error {
	comments, err := api.svc.UserComments(ctx.Request().Context(), mustContextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "listing user comments")
	}
	return ctx.JSON(http.StatusOK, nonNilComments(comments))
}

func (api *interactionApi) createReport(ctx echo.Context) error {
	verseID, err := intParam(ctx, "verse")
	if err != nil {
		return err
	}
	var data interaction.NewReport
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReport")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.CreateReport(ctx.Request().Context(), mustContextUser(ctx).ID, verseID, data)
	if err != nil {
		return errors.Wrap(err, "creating report")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *interactionApi) verseReports(ctx echo.Context) error {
	verseID, err := intParam(ctx, "verse")
	if err != nil {
		return err
	}
	reports, err := api.svc.UserVerseReports(ctx.Request().Context(), mustContextUser(ctx).ID, verseID)
	if err != nil {
		return errors.Wrap(err, "listing verse reports")
	}
	return ctx.JSON(http.StatusOK, nonNilReports(reports))
}

func (api *interactionApi) myReports(ctx echo.Context) error {
	reports, err := api.svc.UserReports(ctx.Request().Context(), mustContextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "listing user reports")
	}
	return ctx.JSON(http.StatusOK, nonNilReports(reports))
}

func nonNilComments(comments []interaction.Comment) []interaction.Comment {
	if comments == nil {
		return []interaction.Comment{}
	}
	return comments
}

func nonNilReports(reports []interaction.Report) []interaction.Report {
	if reports == nil {
		return []interaction.Report{}
	}
	return reports
}
