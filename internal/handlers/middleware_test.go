package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"smart_envi/internal/models"
	"smart_envi/internal/service"

	"github.com/gin-gonic/gin"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer tok", "tok", true},
		{"Bearer spaced out", "spaced out", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic dXNlcjpwdw==", "", false},
		{"bearer tok", "", false}, // scheme is case sensitive
	}
	for _, tc := range cases {
		got, ok := bearerToken(tc.header)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("bearerToken(%q) = %q, %v; want %q, %v", tc.header, got, ok, tc.want, tc.ok)
		}
	}
}

func TestProtectedRoutes_RequireBridgeToken(t *testing.T) {
	heaters := &mockHeaters{devices: map[string]models.Device{
		"dev-1": {ID: "dev-1", Name: "Bedroom", TargetTemperature: 70},
	}}
	auth := &mockAuth{parseID: 1}
	s := &service.Service{Authorization: auth, Heaters: heaters}
	r := newTestRouter(s)

	cases := []struct {
		name     string
		header   string
		parseErr error
		wantCode int
	}{
		{name: "no header", header: "", wantCode: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Token abc", wantCode: http.StatusUnauthorized},
		{name: "bearer without credential", header: "Bearer", wantCode: http.StatusUnauthorized},
		{name: "rejected token", header: "Bearer stale", parseErr: errors.New("token is expired"), wantCode: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer good", wantCode: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth.parseErr = tc.parseErr

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d (body=%s)", w.Code, tc.wantCode, w.Body.String())
			}
			if tc.wantCode == http.StatusUnauthorized {
				var out struct {
					Error string `json:"error"`
				}
				_ = json.Unmarshal(w.Body.Bytes(), &out)
				if out.Error == "" {
					t.Fatalf("401 must carry an error message, body=%s", w.Body.String())
				}
			}
		})
	}
}

func TestMiddleware_StoresAccountIDForHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := &mockAuth{parseID: 42}
	h := NewHandler(&service.Service{Authorization: auth}, nil)

	r := gin.New()
	r.GET("/whoami", h.userIdMiddleware, func(c *gin.Context) {
		uid, _ := c.Get(userCtxKey)
		c.JSON(http.StatusOK, gin.H{"account": uid})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer issued-by-sign-in")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Account int `json:"account"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Account != 42 {
		t.Fatalf("account = %d, want 42", resp.Account)
	}
	if auth.lastParseToken != "issued-by-sign-in" {
		t.Fatalf("ParseToken got %q", auth.lastParseToken)
	}
}
