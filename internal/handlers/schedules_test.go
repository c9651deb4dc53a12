package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"smart_envi/internal/models"
	"smart_envi/internal/service"
)

func newScheduleRouter(schedules *mockSchedules) func(method, path, body string) *httptest.ResponseRecorder {
	auth := &mockAuth{parseID: 7}
	s := &service.Service{Authorization: auth, Schedules: schedules}
	r := newTestRouter(s)

	return func(method, path, body string) *httptest.ResponseRecorder {
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
}

func TestSchedulesHandler_ListAndGet(t *testing.T) {
	schedules := &mockSchedules{
		resp: []models.Schedule{{ID: 3, DeviceID: "dev-1", Name: "Morning"}},
		one:  models.Schedule{ID: 3, DeviceID: "dev-1", Name: "Morning"},
	}
	do := newScheduleRouter(schedules)

	w := do(http.MethodGet, "/api/v1/schedules", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count int `json:"count"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 1 {
		t.Fatalf("unexpected count: %d", out.Count)
	}

	w = do(http.MethodGet, "/api/v1/schedules/3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status=%d", w.Code)
	}
	if schedules.lastID != 3 {
		t.Fatalf("service got id=%d, want 3", schedules.lastID)
	}

	// Non-numeric id → 400 without touching the service.
	w = do(http.MethodGet, "/api/v1/schedules/abc", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", w.Code)
	}
}

func TestSchedulesHandler_CreateUpdateDelete(t *testing.T) {
	schedules := &mockSchedules{one: models.Schedule{ID: 9, DeviceID: "dev-1", Name: "Night"}}
	do := newScheduleRouter(schedules)

	w := do(http.MethodPost, "/api/v1/schedules", `{"device_id":"dev-1","name":"Night","temperature":65}`)
	if w.Code != http.StatusOK {
		t.Fatalf("create status=%d, body=%s", w.Code, w.Body.String())
	}
	if schedules.lastInput.Name != "Night" {
		t.Fatalf("service got input %+v", schedules.lastInput)
	}

	w = do(http.MethodPut, "/api/v1/schedules/9", `{"device_id":"dev-1","name":"Night","temperature":66}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update status=%d, body=%s", w.Code, w.Body.String())
	}
	if schedules.lastID != 9 {
		t.Fatalf("update id=%d, want 9", schedules.lastID)
	}

	w = do(http.MethodDelete, "/api/v1/schedules/9", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete status=%d", w.Code)
	}
	if len(schedules.deleted) != 1 || schedules.deleted[0] != 9 {
		t.Fatalf("deleted ids: %v", schedules.deleted)
	}
}
