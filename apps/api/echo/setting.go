package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mpiangona/core/role"
	"github.com/trezcool/mpiangona/core/setting"
)

type settingApi struct {
	svc *setting.Service
}

func registerSettingAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := settingApi{svc: deps.SettingSvc}

	sg := g.Group("/settings", with(authed, requireCapability(role.ManageUsers))...)
	sg.GET("", api.retrieve)
	sg.PUT("", api.update)
	sg.POST("/reset", api.reset)
	sg.GET("/raw", api.list)
}

// Handlers

func (api *settingApi) retrieve(ctx echo.Context) error {
	cfg, err := api.svc.Config(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "reading settings")
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *settingApi) update(ctx echo.Context) error {
	var data setting.SystemConfig
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SystemConfig")
	}

	cfg, err := api.svc.SaveConfig(ctx.Request().Context(), data, actor(ctx))
	if err != nil {
		return errors.Wrap(err, "saving settings")
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *settingApi) reset(ctx echo.Context) error {
	cfg, err := api.svc.Reset(ctx.Request().Context(), actor(ctx))
	if err != nil {
		return errors.Wrap(err, "resetting settings")
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *settingApi) list(ctx echo.Context) error {
	settings, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing settings")
	}
	if settings == nil {
		settings = []setting.Setting{}
	}
	return ctx.JSON(http.StatusOK, settings)
}
