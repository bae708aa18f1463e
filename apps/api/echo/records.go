package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/umoja/core/record"
	"github.com/trezcool/umoja/core/session"
	"github.com/trezcool/umoja/core/syncer"
)

type recordsApi struct {
	sync     *syncer.Service
	sessions *session.Store
}

func registerRecordsAPI(g *echo.Group, sync *syncer.Service, sessions *session.Store) {
	api := recordsApi{sync: sync, sessions: sessions}

	// the login page needs the member list, so reads stay open
	g.GET("/snapshot", api.snapshot)
	g.POST("/refresh", api.refresh)

	// chatting only needs a session
	mg := g.Group("/messages", sessionRequiredMiddleware(sessions))
	mg.POST("", api.sendMessage)
	mg.POST("/clear", api.clearMessages, adminMiddleware(sessions))

	// everything else is privileged
	rg := g.Group("/records", adminMiddleware(sessions))
	rg.POST("/:kind", api.save)
	rg.DELETE("/:kind/:id", api.remove)
}

func (api *recordsApi) snapshot(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.sync.Snapshot())
}

func (api *recordsApi) refresh(ctx echo.Context) error {
	if err := api.sync.Refresh(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.sync.Snapshot())
}

func (api *recordsApi) save(ctx echo.Context) error {
	kind, err := record.KindFromString(ctx.Param("kind"))
	if err != nil {
		return err
	}

	var raw record.RawData
	if err = ctx.Bind(&raw); err != nil {
		return errors.Wrap(err, "binding raw record data")
	}

	if err = api.sync.Save(ctx.Request().Context(), kind, raw, ctx.QueryParam("edit_id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// remove expects the client to have confirmed the deletion with the user.
func (api *recordsApi) remove(ctx echo.Context) error {
	kind, err := record.KindFromString(ctx.Param("kind"))
	if err != nil {
		return err
	}
	if err = api.sync.Remove(ctx.Request().Context(), kind, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

type messageRequest struct {
	Text string `json:"text" validate:"required"`
}

func (api *recordsApi) sendMessage(ctx echo.Context) error {
	var data messageRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to messageRequest")
	}

	mbr := api.sessions.Member()
	raw := record.RawData{
		"senderId":   mbr.ID,
		"senderName": mbr.Name,
		"text":       data.Text,
		"timestamp":  time.Now().UnixMilli(),
	}
	if err := api.sync.Save(ctx.Request().Context(), record.KindMessage, raw, ""); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusCreated)
}

func (api *recordsApi) clearMessages(ctx echo.Context) error {
	if err := api.sync.ClearMessages(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
