package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/longctl/longctl/internal/configuration"
	"github.com/longctl/longctl/internal/controller"
)

type GasModeRequest struct {
	Mode string `json:"mode"`
}

type GasModeResponse struct {
	VehicleId string                `json:"vehicleId"`
	Mode      configuration.GasMode `json:"mode"`
}

func registerGasModeEndpoints(rest *echo.Echo, contr controller.LongitudinalController) {
	group := rest.Group("/gasmode")

	group.GET("/", func(c echo.Context) error {
		return getGasMode(c, contr)
	})
	group.PUT("/", func(c echo.Context) error {
		return setGasMode(c, contr)
	})
}

func getGasMode(c echo.Context, contr controller.LongitudinalController) error {
	return c.JSONPretty(http.StatusOK, GasModeResponse{
		VehicleId: contr.GetStatus().VehicleId,
		Mode:      contr.GetGasMode(),
	}, indentationChar)
}

// selects the gas mode used from the next control cycle on
func setGasMode(c echo.Context, contr controller.LongitudinalController) error {
	request := GasModeRequest{}
	if err := c.Bind(&request); err != nil {
		return returnBadRequest(c, fmt.Errorf("invalid request body: %v", err))
	}
	mode, err := configuration.ParseGasMode(request.Mode)
	if err != nil {
		return returnBadRequest(c, err)
	}
	if err := contr.SetGasMode(mode); err != nil {
		return returnError(c, err)
	}
	return getGasMode(c, contr)
}
