package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/wepgcomp/wepgcomp/core/event"
)

type eventApi struct {
	svc event.Service
}

func registerEventAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc event.Service) {
	api := eventApi{svc: svc}

	eg := g.Group("/editions")

	// un-authed endpoints
	eg.GET("", api.query)
	eg.GET("/active", api.retrieveActive)
	eg.GET("/:id", api.retrieve)

	// admin endpoints
	ag := eg.Group("", jwt, adminMiddleware())
	ag.POST("", api.create)
	ag.PUT("/:id", api.update)
	ag.POST("/:id/set-active", api.setActive)
	ag.DELETE("/:id", api.destroy)

	rg := g.Group("/rooms")

	// un-authed endpoints
	rg.GET("", api.queryRooms)
	rg.GET("/:id", api.retrieveRoom)

	// admin endpoints
	rag := rg.Group("", jwt, adminMiddleware())
	rag.POST("", api.createRoom)
	rag.PUT("/:id", api.updateRoom)
	rag.DELETE("/:id", api.destroyRoom)
}

// Edition handlers

func (api *eventApi) create(ctx echo.Context) error {
	var data event.NewEdition
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEdition")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	edition, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating edition")
	}
	return ctx.JSON(http.StatusCreated, edition)
}

func (api *eventApi) query(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	editions, err := api.svc.Query(ctx.Request().Context(), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying editions")
	}
	if editions == nil {
		editions = []event.Edition{}
	}
	return ctx.JSON(http.StatusOK, editions)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	edition, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding edition by ID")
	}
	return ctx.JSON(http.StatusOK, edition)
}

func (api *eventApi) retrieveActive(ctx echo.Context) error {
	edition, err := api.svc.GetActive(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "finding active edition")
	}
	return ctx.JSON(http.StatusOK, edition)
}

func (api *eventApi) update(ctx echo.Context) error {
	var data event.UpdateEdition
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEdition")
	}

	orig, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding edition by ID")
	}
	if err := data.Validate(orig); err != nil {
		return err
	}

	edition, err := api.svc.Update(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating edition")
	}
	return ctx.JSON(http.StatusOK, edition)
}

func (api *eventApi) setActive(ctx echo.Context) error {
	edition, err := api.svc.SetActive(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "activating edition")
	}
	return ctx.JSON(http.StatusOK, edition)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting edition")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Room handlers

func (api *eventApi) createRoom(ctx echo.Context) error {
	var data event.NewRoom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRoom")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	room, err := api.svc.CreateRoom(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating room")
	}
	return ctx.JSON(http.StatusCreated, room)
}

func (api *eventApi) queryRooms(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	rooms, err := api.svc.QueryRooms(ctx.Request().Context(), ctx.QueryParam("edition_id"), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying rooms")
	}
	if rooms == nil {
		rooms = []event.Room{}
	}
	return ctx.JSON(http.StatusOK, rooms)
}

func (api *eventApi) retrieveRoom(ctx echo.Context) error {
	room, err := api.svc.GetRoomByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding room by ID")
	}
	return ctx.JSON(http.StatusOK, room)
}

func (api *eventApi) updateRoom(ctx echo.Context) error {
	var data event.NewRoom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRoom")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	room, err := api.svc.UpdateRoom(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating room")
	}
	return ctx.JSON(http.StatusOK, room)
}

func (api *eventApi) destroyRoom(ctx echo.Context) error {
	if err := api.svc.DeleteRoom(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting room")
	}
	return ctx.NoContent(http.StatusNoContent)
}
