package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/interaction"
	"github.com/FARHATREKAYA/quran-app/core/user"
)

type adminApi struct {
	users        user.Service
	interactions interaction.Service
	validate     *validator.Validate
}

func registerAdminAPI(g *echo.Group, auth echo.MiddlewareFunc, opts *Options) {
	api := adminApi{users: opts.UserSvc, interactions: opts.InteractionSvc, validate: opts.Validate}

	ag := g.Group("/admin", auth, adminMiddleware)
	ag.GET("/stats", api.stats)

	ag.GET("/comments/pending", api.pendingComments)
	ag.GET("/comments/all", api.allComments)
	ag.POST("/comments/:id/moderate", api.moderateComment)

	ag.GET("/reports", api.reports)
	ag.GET("/reports/pending", api.pendingReports)
	ag.PATCH("/reports/:id", api.updateReport)

	ag.GET("/users", api.listUsers)
	ag.POST("/users/:id/block", api.blockUser)
	ag.POST("/users/:id/unblock", api.unblockUser)
	ag.DELETE("/users/:id", api.destroyUser)
}

type UserActionResponse struct {
	Message string    `json:"message"`
	User    user.User `json:"user"`
}

func (api *adminApi) stats(ctx echo.Context) error {
	stats, err := api.interactions.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *adminApi) pendingComments(ctx echo.Context) error {
	comments, err := api.interactions.PendingComments(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing pending comments")
	}
	return ctx.JSON(http.StatusOK, nonNilComments(comments))
}

func (api *adminApi) allComments(ctx echo.Context) error {
	approvedOnly := boolQuery(ctx, "approved_only")
	comments, err := api.interactions.AllComments(ctx.Request().Context(), approvedOnly != nil && *approvedOnly)
	if err != nil {
		return errors.Wrap(err, "listing comments")
	}
	return ctx.JSON(http.StatusOK, nonNilComments(comments))
}

func (api *adminApi) moderateComment(ctx echo.Context) error {
	id, err := int64Param(ctx, "id")
	if err != nil {
		return err
	}
	var data interaction.Moderation
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Moderation")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	msg, err := api.interactions.ModerateComment(ctx.Request().Context(), mustContextUser(ctx).ID, id, data)
	if err != nil {
		return errors.Wrap(err, "moderating comment")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: msg})
}

func (api *adminApi) reports(ctx echo.Context) error {
	status := core.CleanString(ctx.QueryParam("status"), true /* lower */)
	if status != "" {
		if err := api.validate.Var(status, "oneof=pending reviewed resolved rejected"); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid report status"})
		}
	}
	return api.listReports(ctx, status)
}

func (api *adminApi) pendingReports(ctx echo.Context) error {
	return api.listReports(ctx, interaction.StatusPending)
}

func (api *adminApi) listReports(ctx echo.Context, status string) error {
	reports, err := api.interactions.Reports(ctx.Request().Context(), status)
	if err != nil {
		return errors.Wrap(err, "listing reports")
	}
	return ctx.JSON(http.StatusOK, nonNilReports(reports))
}

func (api *adminApi) updateReport(ctx echo.Context) error {
	id, err := int64Param(ctx, "id")
	if err != nil {
		return err
	}
	var data interaction.UpdateReport
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateReport")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.interactions.UpdateReport(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating report")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *adminApi) listUsers(ctx echo.Context) error {
	filter := user.QueryFilter{
		Search:   ctx.QueryParam("search"),
		IsActive: boolQuery(ctx, "is_active"),
	}
	page := new(Pagination)
	page.Bind(ctx)
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.users.Query(ctx.Request().Context(), filter, page.Page, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *adminApi) setActive(ctx echo.Context, active bool) (user.User, error) {
	usr, err := api.users.SetActive(ctx.Request().Context(), ctx.Param("id"), active)
	return usr, errors.Wrap(err, "setting user active flag")
}

func (api *adminApi) blockUser(ctx echo.Context) error {
	usr, err := api.setActive(ctx, false)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, UserActionResponse{Message: "User " + usr.Username + " has been blocked", User: usr})
}

func (api *adminApi) unblockUser(ctx echo.Context) error {
	usr, err := api.setActive(ctx, true)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, UserActionResponse{Message: "User " + usr.Username + " has been unblocked", User: usr})
}

func (api *adminApi) destroyUser(ctx echo.Context) error {
	if err := api.users.Delete(ctx.Request().Context(), ctx.Param("id"), mustContextUser(ctx).ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}
