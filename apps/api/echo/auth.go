package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/umoja/core"
	"github.com/trezcool/umoja/core/member"
	"github.com/trezcool/umoja/core/record"
	"github.com/trezcool/umoja/core/session"
	"github.com/trezcool/umoja/core/syncer"
)

type authApi struct {
	sync     *syncer.Service
	sessions *session.Store
}

func registerAuthAPI(g *echo.Group, sync *syncer.Service, sessions *session.Store) {
	api := authApi{sync: sync, sessions: sessions}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/signup", api.signup)
	ag.POST("/logout", api.logout)
	ag.GET("/session", api.session)
	ag.PUT("/preference", api.preference)
}

// sessionRequiredMiddleware rejects requests without an authenticated member.
func sessionRequiredMiddleware(sessions *session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if sessions.Member() == nil {
				return errUnauthorized
			}
			return next(ctx)
		}
	}
}

// adminMiddleware gates the privileged mutation paths on the access gate.
func adminMiddleware(sessions *session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if !sessions.CanAdminister() {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

type loginRequest struct {
	Mobile   string `json:"mobile" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (api *authApi) login(ctx echo.Context) error {
	var data loginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to loginRequest")
	}
	if err := core.Validate.Struct(&data); err != nil {
		return err
	}

	mbr, err := member.Authenticate(api.sync.Snapshot().Members, data.Mobile, data.Password)
	if err != nil {
		return err
	}
	api.sessions.SetMember(&mbr)

	mbr.Password = ""
	return ctx.JSON(http.StatusOK, mbr)
}

func (api *authApi) signup(ctx echo.Context) error {
	var data member.NewMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMember")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	mbr, err := data.Member()
	if err != nil {
		return errors.Wrap(err, "building member")
	}

	raw := record.RawData{
		"name":        mbr.Name,
		"designation": mbr.Designation,
		"mobile":      mbr.Mobile,
		"blood_group": mbr.BloodGroup,
		"address":     mbr.Address,
		"profile_pic": mbr.ProfilePic,
		"password":    mbr.Password,
		"email":       "",
	}
	if err = api.sync.Save(ctx.Request().Context(), record.KindMember, raw, ""); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusCreated)
}

func (api *authApi) logout(ctx echo.Context) error {
	api.sessions.SetMember(nil)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) session(ctx echo.Context) error {
	mbr := api.sessions.Member()
	if mbr != nil {
		mbr.Password = ""
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"member":         mbr,
		"dark_mode":      api.sessions.DarkMode(),
		"can_administer": api.sessions.CanAdminister(),
	})
}

type preferenceRequest struct {
	DarkMode bool `json:"dark_mode"`
}

func (api *authApi) preference(ctx echo.Context) error {
	var data preferenceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to preferenceRequest")
	}
	api.sessions.SetDarkMode(data.DarkMode)
	return ctx.NoContent(http.StatusNoContent)
}
