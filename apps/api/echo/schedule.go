package echoapi

import (
	"context"
	"net/http"
	"strconv"

	ics "github.com/arran4/golang-ical"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/core/event"
	"github.com/wepgcomp/wepgcomp/core/schedule"
)

type scheduleApi struct {
	svc      schedule.Service
	eventSvc event.Service
}

func registerScheduleAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc schedule.Service, eventSvc event.Service) {
	api := scheduleApi{svc: svc, eventSvc: eventSvc}

	bg := g.Group("/blocks")

	// un-authed endpoints
	bg.GET("", api.queryBlocks)
	bg.GET("/:id", api.retrieveBlock)

	// admin endpoints
	bag := bg.Group("", jwt, adminMiddleware())
	bag.POST("", api.createBlock)
	bag.PUT("/:id", api.updateBlock)
	bag.DELETE("/:id", api.destroyBlock)

	pg := g.Group("/presentations")

	// un-authed endpoints
	pg.GET("", api.queryPresentations)
	pg.GET("/:id", api.retrievePresentation)

	// admin endpoints
	pag := pg.Group("", jwt, adminMiddleware())
	pag.POST("", api.confirm)
	pag.PUT("/:id/status", api.setStatus)
	pag.DELETE("/:id", api.destroyPresentation)

	ag := g.Group("/awards")
	ag.GET("/top-panelists/:editionID", api.topPanelists)
	ag.GET("/top-audience/:editionID", api.topAudience)

	g.POST("/certificates/:editionID", api.sendCertificates, jwt, adminMiddleware())
	g.GET("/schedule/:editionID/calendar", api.calendar)
}

// Block handlers

func (api *scheduleApi) createBlock(ctx echo.Context) error {
	var data schedule.NewBlock
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBlock")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	blk, err := api.svc.CreateBlock(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating block")
	}
	return ctx.JSON(http.StatusCreated, blk)
}

func (api *scheduleApi) queryBlocks(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	blocks, err := api.svc.QueryBlocks(ctx.Request().Context(), ctx.QueryParam("edition_id"), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying blocks")
	}
	if blocks == nil {
		blocks = []schedule.Block{}
	}
	return ctx.JSON(http.StatusOK, blocks)
}

func (api *scheduleApi) retrieveBlock(ctx echo.Context) error {
	blk, err := api.svc.GetBlock(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding block by ID")
	}
	return ctx.JSON(http.StatusOK, blk)
}

func (api *scheduleApi) updateBlock(ctx echo.Context) error {
	var data schedule.UpdateBlock
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBlock")
	}

	orig, err := api.svc.GetBlock(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding block by ID")
	}
	if err := data.Validate(orig); err != nil {
		return err
	}

	blk, err := api.svc.UpdateBlock(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating block")
	}
	return ctx.JSON(http.StatusOK, blk)
}

func (api *scheduleApi) destroyBlock(ctx echo.Context) error {
	if err := api.svc.DeleteBlock(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting block")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Presentation handlers

func (api *scheduleApi) confirm(ctx echo.Context) error {
	var data schedule.NewPresentation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPresentation")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	prez, err := api.svc.Confirm(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "confirming presentation")
	}
	return ctx.JSON(http.StatusCreated, prez)
}

func (api *scheduleApi) queryPresentations(ctx echo.Context) error {
	prezs, err := api.svc.QueryPresentations(ctx.Request().Context(), ctx.QueryParam("edition_id"))
	if err != nil {
		return errors.Wrap(err, "querying presentations")
	}
	if prezs == nil {
		prezs = []schedule.Presentation{}
	}
	return ctx.JSON(http.StatusOK, prezs)
}

func (api *scheduleApi) retrievePresentation(ctx echo.Context) error {
	prez, err := api.svc.GetPresentation(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding presentation by ID")
	}
	return ctx.JSON(http.StatusOK, prez)
}

func (api *scheduleApi) setStatus(ctx echo.Context) error {
	var data PresentationStatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PresentationStatusRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	prez, err := api.svc.SetPresentationStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "setting presentation status")
	}
	return ctx.JSON(http.StatusOK, prez)
}

func (api *scheduleApi) destroyPresentation(ctx echo.Context) error {
	if err := api.svc.DeletePresentation(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting presentation")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Award handlers

func (api *scheduleApi) topPanelists(ctx echo.Context) error {
	return api.top(ctx, api.svc.TopByEvaluators)
}

func (api *scheduleApi) topAudience(ctx echo.Context) error {
	return api.top(ctx, api.svc.TopByAudience)
}

func (api *scheduleApi) top(ctx echo.Context,
	query func(context.Context, string, int) ([]schedule.RankedPresentation, error)) error {

	edition, err := api.checkRankingAccess(ctx)
	if err != nil {
		return err
	}

	limit := 0
	if raw := ctx.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "limit", Error: "must be an integer"})
		}
	}

	ranked, err := query(ctx.Request().Context(), edition.ID, limit)
	if err != nil {
		return errors.Wrap(err, "querying ranked presentations")
	}
	if ranked == nil {
		ranked = []schedule.RankedPresentation{}
	}
	return ctx.JSON(http.StatusOK, ranked)
}

// checkRankingAccess loads the edition and enforces its restricted-visibility
// flag: rankings of a restricted edition require a valid token.
func (api *scheduleApi) checkRankingAccess(ctx echo.Context) (event.Edition, error) {
	edition, err := api.eventSvc.GetByID(ctx.Request().Context(), ctx.Param("editionID"))
	if err != nil {
		return event.Edition{}, errors.Wrap(err, "finding edition by ID")
	}
	if edition.IsEvaluationRestrictToLoggedUsers {
		if _, err := requestClaims(ctx); err != nil {
			return event.Edition{}, errUnauthorized
		}
	}
	return edition, nil
}

// Certificate handler

func (api *scheduleApi) sendCertificates(ctx echo.Context) error {
	sent, err := api.svc.SendCertificates(ctx.Request().Context(), ctx.Param("editionID"))
	if err != nil {
		return errors.Wrap(err, "sending certificates")
	}
	return ctx.JSON(http.StatusOK, CertificatesResponse{Sent: sent})
}

// Calendar handler

// calendar renders the edition's block schedule as an iCalendar feed, one
// event per block.
func (api *scheduleApi) calendar(ctx echo.Context) error {
	editionID := ctx.Param("editionID")
	edition, err := api.eventSvc.GetByID(ctx.Request().Context(), editionID)
	if err != nil {
		return errors.Wrap(err, "finding edition by ID")
	}
	blocks, err := api.svc.QueryBlocks(ctx.Request().Context(), editionID, nil)
	if err != nil {
		return errors.Wrap(err, "querying blocks")
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//WEPGCOMP//Schedule//EN")

	for _, blk := range blocks {
		evt := cal.AddEvent(blk.ID + "@wepgcomp")
		evt.SetDtStampTime(blk.UpdatedAt)
		evt.SetStartAt(blk.StartTime)
		evt.SetEndAt(blk.EndTime())
		evt.SetSummary(blk.Title)
		evt.SetDescription(edition.Name)
		location := edition.Location
		if blk.RoomID.Valid {
			if room, err := api.eventSvc.GetRoomByID(ctx.Request().Context(), blk.RoomID.String); err == nil {
				location = room.Name
			}
		}
		if location != "" {
			evt.SetLocation(location)
		}
	}

	return ctx.Blob(http.StatusOK, "text/calendar", []byte(cal.Serialize()))
}

// PresentationStatusRequest carries the target status of a presentation.
type PresentationStatusRequest struct {
	Status schedule.PresentationStatus `json:"status" validate:"required,oneof=ToPresent Presented NotPresented"`
}

func (psr *PresentationStatusRequest) Validate() error {
	return core.Validate.Struct(psr)
}

// CertificatesResponse reports how many certificate emails were dispatched.
type CertificatesResponse struct {
	Sent int `json:"sent"`
}
