package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/longctl/longctl/internal/configuration"
	"github.com/longctl/longctl/internal/controller"
	"github.com/longctl/longctl/internal/curves"
	"github.com/longctl/longctl/internal/persistence"
	"github.com/longctl/longctl/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func createController(t *testing.T, vehicleId string) controller.LongitudinalController {
	scenario := &telemetry.Scenario{
		Name: "api",
		Frames: []telemetry.Frame{
			{Cycles: 5, Active: true, VEgo: 10, VTarget: 12, VTargetFuture: 12},
		},
	}
	config := configuration.Configuration{
		Rate:                  100,
		StatusPublishInterval: 1,
		CycleTimeWindowSize:   10,
		Vehicle:               configuration.VehicleConfig{Id: vehicleId},
		Longitudinal:          configuration.DefaultLongitudinalConfig(false),
		GasMode:               configuration.GasModeDefault,
	}
	p := persistence.NewPersistence(t.TempDir() + "/test.db")
	return controller.NewLongitudinalController(config, p, telemetry.NewScenarioSource(scenario, false, 100), nil)
}

func createRestService(t *testing.T, contr controller.LongitudinalController, hub *Hub) *echo.Echo {
	return CreateRestService(contr, hub, prometheus.NewRegistry())
}

func request(e *echo.Echo, method string, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRest_Alive(t *testing.T) {
	// GIVEN
	e := createRestService(t, createController(t, "alive"), nil)

	// WHEN
	rec := request(e, http.MethodGet, "/alive", "")

	// THEN
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRest_Status(t *testing.T) {
	// GIVEN
	contr := createController(t, "rest-status")
	_, _, err := contr.RunCycle(context.Background())
	assert.NoError(t, err)
	e := createRestService(t, contr, nil)

	// WHEN
	rec := request(e, http.MethodGet, "/status/rest-status/", "")

	// THEN
	assert.Equal(t, http.StatusOK, rec.Code)
	var status controller.Status
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "rest-status", status.VehicleId)
	assert.Equal(t, uint64(1), status.Cycle)
	assert.Equal(t, 10.0, status.Input.Vehicle.VEgo)

	// all statuses
	rec = request(e, http.MethodGet, "/status/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var statuses map[string]controller.Status
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	assert.Contains(t, statuses, "rest-status")
}

func TestRest_Status_NotFound(t *testing.T) {
	// GIVEN
	e := createRestService(t, createController(t, "not-found"), nil)

	// WHEN
	rec := request(e, http.MethodGet, "/status/unknown/", "")

	// THEN
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var result Result
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "No item with id 'unknown' found", result.Message)
}

func TestRest_Curves(t *testing.T) {
	// GIVEN
	configuration.CurrentConfig.Vehicle.HasInterceptor = false
	e := createRestService(t, createController(t, "curves"), nil)

	// WHEN
	rec := request(e, http.MethodGet, "/curve/", "")

	// THEN
	assert.Equal(t, http.StatusOK, rec.Code)
	var profiles []curves.GasProfile
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profiles))
	assert.Len(t, profiles, 3)
	assert.Equal(t, curves.GasProfiles(false), profiles)
}

func TestRest_Curve(t *testing.T) {
	// GIVEN
	configuration.CurrentConfig.Vehicle.HasInterceptor = true
	defer func() { configuration.CurrentConfig.Vehicle.HasInterceptor = false }()
	e := createRestService(t, createController(t, "curve"), nil)

	// WHEN
	rec := request(e, http.MethodGet, "/curve/sport/", "")

	// THEN
	assert.Equal(t, http.StatusOK, rec.Code)
	var profile curves.GasProfile
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	expected, ok := curves.GasCurve(configuration.GasModeSport, true)
	assert.True(t, ok)
	assert.Equal(t, configuration.GasModeSport, profile.Mode)
	assert.True(t, profile.Interceptor)
	assert.Equal(t, expected, profile.Curve)

	rec = request(e, http.MethodGet, "/curve/turbo/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRest_GasMode(t *testing.T) {
	// GIVEN
	contr := createController(t, "gasmode")
	e := createRestService(t, contr, nil)

	// WHEN
	rec := request(e, http.MethodPut, "/gasmode/", `{"mode": "eco"}`)

	// THEN
	assert.Equal(t, http.StatusOK, rec.Code)
	var response GasModeResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "gasmode", response.VehicleId)
	assert.Equal(t, configuration.GasModeEco, response.Mode)
	assert.Equal(t, configuration.GasModeEco, contr.GetGasMode())

	rec = request(e, http.MethodGet, "/gasmode/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mode": "eco"`)
}

func TestRest_GasMode_Invalid(t *testing.T) {
	// GIVEN
	contr := createController(t, "gasmode-invalid")
	e := createRestService(t, contr, nil)

	// WHEN
	rec := request(e, http.MethodPut, "/gasmode/", `{"mode": "turbo"}`)

	// THEN
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, configuration.GasModeDefault, contr.GetGasMode())
}

func TestWebsocket_StreamsStatus(t *testing.T) {
	// GIVEN
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	contr := createController(t, "websocket")
	hub := NewHub(4, 8)
	go hub.Run(ctx)
	statuses, unsubscribe := contr.Subscribe()
	defer unsubscribe()
	go RunStatusBroadcaster(ctx, statuses, hub)

	server := httptest.NewServer(createRestService(t, contr, hub))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws/", nil)
	assert.NoError(t, err)
	if err != nil {
		return
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// WHEN
	var initial Envelope
	assert.NoError(t, conn.ReadJSON(&initial))

	assert.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	_, _, err = contr.RunCycle(context.Background())
	assert.NoError(t, err)

	// THEN
	assert.Equal(t, MessageTypeStatusInit, initial.Type)

	var update struct {
		Type string            `json:"type"`
		Data controller.Status `json:"data"`
	}
	assert.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, MessageTypeStatus, update.Type)
	assert.Equal(t, "websocket", update.Data.VehicleId)
	assert.Equal(t, uint64(1), update.Data.Cycle)
}
