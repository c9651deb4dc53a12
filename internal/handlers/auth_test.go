package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"smart_envi/internal/service"
)

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestSignUp(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		signUpID  int
		signUpErr error
		wantCode int
		wantID   int
	}{
		{
			name:     "creates bridge account",
			body:     `{"username":"wall-panel","password":"s3cret"}`,
			signUpID: 42,
			wantCode: http.StatusOK,
			wantID:   42,
		},
		{
			name:     "blank password rejected by service",
			body:     `{"username":"wall-panel","password":" "}`,
			signUpErr: errors.New("invalid password: password is empty"),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing fields fail binding",
			body:     `{"username":"wall-panel"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "non-string username fails binding",
			body:     `{"username":1,"password":"p"}`,
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{signUpID: tc.signUpID, signUpErr: tc.signUpErr}
			r := newTestRouter(&service.Service{Authorization: auth})

			w := postJSON(r, "/auth/sign-up", tc.body)
			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d (body=%s)", w.Code, tc.wantCode, w.Body.String())
			}
			if tc.wantCode != http.StatusOK {
				return
			}
			var resp struct {
				ID int `json:"id"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.ID != tc.wantID {
				t.Fatalf("id = %d, want %d", resp.ID, tc.wantID)
			}
			if auth.lastSignUpUsername != "wall-panel" {
				t.Fatalf("service got username %q", auth.lastSignUpUsername)
			}
		})
	}
}

func TestSignIn(t *testing.T) {
	t.Run("issues bridge token", func(t *testing.T) {
		auth := &mockAuth{genTokenToken: "bridge-jwt"}
		r := newTestRouter(&service.Service{Authorization: auth})

		w := postJSON(r, "/auth/sign-in", `{"username":"homeassistant","password":"pw"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body=%s", w.Code, w.Body.String())
		}
		var resp struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp.Token != "bridge-jwt" {
			t.Fatalf("token = %q", resp.Token)
		}
	})

	t.Run("bad credentials are a plain 401", func(t *testing.T) {
		auth := &mockAuth{genTokenErr: service.ErrInvalidPassword}
		r := newTestRouter(&service.Service{Authorization: auth})

		w := postJSON(r, "/auth/sign-in", `{"username":"homeassistant","password":"nope"}`)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
		// The response must not leak whether the account exists.
		var out struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &out)
		if out.Error != "invalid credentials" {
			t.Fatalf("error = %q, want generic message", out.Error)
		}
	})

	t.Run("unknown account gets the same response", func(t *testing.T) {
		auth := &mockAuth{genTokenErr: service.ErrUserNotFound}
		r := newTestRouter(&service.Service{Authorization: auth})

		w := postJSON(r, "/auth/sign-in", `{"username":"ghost","password":"pw"}`)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
		var out struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &out)
		if out.Error != "invalid credentials" {
			t.Fatalf("error = %q; unknown accounts must look like bad passwords", out.Error)
		}
	})

	t.Run("malformed body fails binding", func(t *testing.T) {
		r := newTestRouter(&service.Service{Authorization: &mockAuth{}})
		if w := postJSON(r, "/auth/sign-in", `{"username":1}`); w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})
}
