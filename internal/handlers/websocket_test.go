package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"smart_envi/internal/models"
	"smart_envi/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestWebSocket_DeviceStream_InitialAndOnUpdate(t *testing.T) {
	heaters := &mockHeaters{devices: map[string]models.Device{
		"dev-1": deviceFixture("dev-1"),
	}}
	s := &service.Service{Heaters: heaters}

	r := gin.New()
	h := NewHandler(s, nil)
	r.GET("/ws", h.wsConnect)

	srv := httptest.NewServer(r)
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	type envelope struct {
		Type  string          `json:"type"`
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}

	// Read initial snapshot.
	_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if env.Type != "devices" || len(env.Data) == 0 {
		t.Fatalf("bad envelope: %+v", env)
	}
	var devices []models.Device
	if err := json.Unmarshal(env.Data, &devices); err != nil {
		t.Fatalf("unmarshal devices: %v", err)
	}
	if len(devices) != 1 || devices[0].ID != "dev-1" {
		t.Fatalf("unexpected devices: %+v", devices)
	}

	// A coordinator publish triggers one more message. The Watch registration
	// happens during connection setup, so poll briefly until it lands.
	deadline := time.Now().Add(1 * time.Second)
	for heaters.listenerCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("handler never subscribed to device updates")
		}
		time.Sleep(5 * time.Millisecond)
	}
	heaters.notify()

	_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	env = envelope{}
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if env.Type != "devices" {
		t.Fatalf("expected type=devices, got %+v", env)
	}
}
