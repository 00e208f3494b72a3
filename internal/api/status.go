package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/longctl/longctl/internal/controller"
	"github.com/qdm12/reprint"
)

func registerStatusEndpoints(rest *echo.Echo) {
	group := rest.Group("/status")

	group.GET("/", getStatuses)
	group.GET("/:"+urlParamId+"/", getStatus)
}

// returns the latest published status of all controllers
func getStatuses(c echo.Context) error {
	data := reprint.This(controller.StatusMap.Items())
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

func getStatus(c echo.Context) error {
	id := c.Param(urlParamId)
	data, exists := controller.StatusMap.Get(id)
	if !exists {
		return returnNotFound(c, id)
	}
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}
