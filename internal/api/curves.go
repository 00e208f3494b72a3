package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/longctl/longctl/internal/configuration"
	"github.com/longctl/longctl/internal/curves"
)

func registerCurveEndpoints(rest *echo.Echo) {
	group := rest.Group("/curve")

	group.GET("/", getCurves)
	group.GET("/:"+urlParamId+"/", getCurve)
}

// returns the gas profiles of all gas modes for the configured vehicle
func getCurves(c echo.Context) error {
	data := curves.GasProfiles(configuration.CurrentConfig.Vehicle.HasInterceptor)
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

func getCurve(c echo.Context) error {
	id := c.Param(urlParamId)
	mode, err := configuration.ParseGasMode(id)
	if err != nil || !mode.IsSet() {
		return returnNotFound(c, id)
	}
	hasInterceptor := configuration.CurrentConfig.Vehicle.HasInterceptor
	curve, _ := curves.GasCurve(mode, hasInterceptor)
	return c.JSONPretty(http.StatusOK, curves.GasProfile{
		Mode:        mode,
		Interceptor: hasInterceptor,
		Curve:       curve,
	}, indentationChar)
}
