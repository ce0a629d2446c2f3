package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/wepgcomp/wepgcomp/core/evaluation"
	"github.com/wepgcomp/wepgcomp/core/user"
)

type evaluationApi struct {
	svc     evaluation.Service
	userSvc user.Service
}

func registerEvaluationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc evaluation.Service, userSvc user.Service) {
	api := evaluationApi{svc: svc, userSvc: userSvc}

	eg := g.Group("/evaluations", jwt)
	eg.POST("", api.submit)
	eg.GET("", api.query, adminMiddleware())
	eg.GET("/:id", api.retrieve, adminMiddleware())
	eg.DELETE("/:id", api.destroy, adminMiddleware())
}

// Handlers

func (api *evaluationApi) submit(ctx echo.Context) error {
	var data evaluation.NewEvaluation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvaluation")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ev, err := api.svc.Submit(ctx.Request().Context(), ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "submitting evaluation")
	}
	return ctx.JSON(http.StatusCreated, ev)
}

func (api *evaluationApi) query(ctx echo.Context) error {
	filter := &evaluation.QueryFilter{
		PresentationID: ctx.QueryParam("presentation_id"),
		UserID:         ctx.QueryParam("user_id"),
	}

	evs, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying evaluations")
	}
	if evs == nil {
		evs = []evaluation.Evaluation{}
	}
	return ctx.JSON(http.StatusOK, evs)
}

func (api *evaluationApi) retrieve(ctx echo.Context) error {
	ev, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding evaluation by ID")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *evaluationApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting evaluation")
	}
	return ctx.NoContent(http.StatusNoContent)
}
