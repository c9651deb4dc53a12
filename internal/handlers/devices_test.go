package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"smart_envi/internal/envi"
	"smart_envi/internal/models"
	"smart_envi/internal/service"
)

func deviceFixture(id string) models.Device {
	return models.Device{
		ID:                 models.StringID(id),
		Name:               "Bedroom Heater",
		AmbientTemperature: 68,
		TargetTemperature:  72,
		State:              1,
	}
}

func newDeviceRouter(heaters *mockHeaters) (*mockAuth, func(method, path, body string) *httptest.ResponseRecorder) {
	auth := &mockAuth{parseID: 7}
	s := &service.Service{Authorization: auth, Heaters: heaters}
	r := newTestRouter(s)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		req.Header.Set("Authorization", "Bearer valid")
		r.ServeHTTP(w, req)
		return w
	}
	return auth, do
}

func TestDevicesHandler_ListAndGet(t *testing.T) {
	heaters := &mockHeaters{devices: map[string]models.Device{
		"dev-1": deviceFixture("dev-1"),
	}}
	_, do := newDeviceRouter(heaters)

	w := do(http.MethodGet, "/api/v1/devices", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count   int             `json:"count"`
		Devices []models.Device `json:"devices"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 1 || len(out.Devices) != 1 {
		t.Fatalf("unexpected list response: %+v", out)
	}

	w = do(http.MethodGet, "/api/v1/devices/dev-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status=%d, body=%s", w.Code, w.Body.String())
	}

	w = do(http.MethodGet, "/api/v1/devices/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown device, got %d", w.Code)
	}
}

func TestDevicesHandler_SetTemperature(t *testing.T) {
	heaters := &mockHeaters{devices: map[string]models.Device{
		"dev-1": deviceFixture("dev-1"),
	}}
	_, do := newDeviceRouter(heaters)

	w := do(http.MethodPost, "/api/v1/devices/dev-1/temperature", `{"temperature":72}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	if heaters.lastDeviceID != "dev-1" || heaters.lastTemperature != 72 {
		t.Fatalf("service got id=%q temp=%v", heaters.lastDeviceID, heaters.lastTemperature)
	}

	// Missing body field → 400 before the service is touched.
	w = do(http.MethodPost, "/api/v1/devices/dev-1/temperature", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing temperature, got %d", w.Code)
	}
}

func TestDevicesHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unknown device", service.ErrUnknownDevice, http.StatusNotFound},
		{"auth failure", &envi.AuthError{Reason: "rejected twice"}, http.StatusBadGateway},
		{"permanent rejection", &envi.APIError{HTTPStatus: 422, Msg: "out of range", Permanent: true}, http.StatusBadRequest},
		{"transient upstream", &envi.APIError{HTTPStatus: 503, Msg: "unavailable"}, http.StatusBadGateway},
		{"device failure", &envi.DeviceError{DeviceID: "dev-1", Err: &envi.APIError{HTTPStatus: 500}}, http.StatusBadGateway},
		{"local validation", service.ErrInvalidMode, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			heaters := &mockHeaters{
				devices:     map[string]models.Device{"dev-1": deviceFixture("dev-1")},
				setStateErr: tc.err,
			}
			_, do := newDeviceRouter(heaters)
			w := do(http.MethodPost, "/api/v1/devices/dev-1/state", `{"on":true}`)
			if w.Code != tc.want {
				t.Fatalf("got %d, want %d (body=%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestDevicesHandler_RefreshUnknownVsFailed(t *testing.T) {
	heaters := &mockHeaters{
		devices:   map[string]models.Device{"dev-1": deviceFixture("dev-1")},
		refreshOK: false,
	}
	_, do := newDeviceRouter(heaters)

	// Unknown device never reaches the upstream call.
	w := do(http.MethodPost, "/api/v1/devices/ghost/refresh", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown device, got %d", w.Code)
	}
	if heaters.refreshCalls != 0 {
		t.Fatalf("refresh should not be called for unknown devices")
	}

	// Known device whose refresh fails upstream → 502.
	w = do(http.MethodPost, "/api/v1/devices/dev-1/refresh", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for failed refresh, got %d", w.Code)
	}

	heaters.refreshOK = true
	w = do(http.MethodPost, "/api/v1/devices/dev-1/refresh", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body=%s)", w.Code, w.Body.String())
	}
}

func TestDevicesHandler_SetSetting(t *testing.T) {
	rejected := &envi.APIError{
		HTTPStatus: 422,
		Msg:        "child_lock cannot be changed through the API; use the Envi mobile app",
		Permanent:  true,
	}
	heaters := &mockHeaters{
		devices:       map[string]models.Device{"dev-1": deviceFixture("dev-1")},
		setSettingErr: rejected,
	}
	_, do := newDeviceRouter(heaters)

	w := do(http.MethodPost, "/api/v1/devices/dev-1/settings/child_lock", `{"enabled":true}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for vendor-app-only setting, got %d", w.Code)
	}
	if heaters.lastSetting != "child_lock" || !heaters.lastEnabled {
		t.Fatalf("service got setting=%q enabled=%v", heaters.lastSetting, heaters.lastEnabled)
	}
}
