package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"smart_envi/internal/models"
	"smart_envi/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockHeaters struct {
	devices map[string]models.Device

	setTempErr    error
	setStateErr   error
	setModeErr    error
	setSettingErr error
	refreshOK     bool

	lastDeviceID    string
	lastTemperature float64
	lastOn          bool
	lastMode        int
	lastSetting     string
	lastEnabled     bool
	refreshCalls    int

	mu        sync.Mutex
	listeners []func()
}

func (m *mockHeaters) List(ctx context.Context) []models.Device {
	out := make([]models.Device, 0, len(m.devices))
	for _, dev := range m.devices {
		out = append(out, dev)
	}
	return out
}
func (m *mockHeaters) Get(ctx context.Context, deviceID string) (models.Device, bool) {
	dev, ok := m.devices[deviceID]
	return dev, ok
}
func (m *mockHeaters) Refresh(ctx context.Context, deviceID string) (models.Device, bool) {
	m.refreshCalls++
	if !m.refreshOK {
		return models.Device{}, false
	}
	dev, ok := m.devices[deviceID]
	return dev, ok
}
func (m *mockHeaters) SetTemperature(ctx context.Context, deviceID string, temperature float64) (models.Device, error) {
	m.lastDeviceID = deviceID
	m.lastTemperature = temperature
	if m.setTempErr != nil {
		return models.Device{}, m.setTempErr
	}
	return m.devices[deviceID], nil
}
func (m *mockHeaters) SetState(ctx context.Context, deviceID string, on bool) (models.Device, error) {
	m.lastDeviceID = deviceID
	m.lastOn = on
	if m.setStateErr != nil {
		return models.Device{}, m.setStateErr
	}
	return m.devices[deviceID], nil
}
func (m *mockHeaters) SetMode(ctx context.Context, deviceID string, mode int) (models.Device, error) {
	m.lastDeviceID = deviceID
	m.lastMode = mode
	if m.setModeErr != nil {
		return models.Device{}, m.setModeErr
	}
	return m.devices[deviceID], nil
}
func (m *mockHeaters) SetVendorSetting(ctx context.Context, deviceID, setting string, enabled bool) error {
	m.lastDeviceID = deviceID
	m.lastSetting = setting
	m.lastEnabled = enabled
	return m.setSettingErr
}
func (m *mockHeaters) Watch(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
	return func() {}
}
func (m *mockHeaters) listenerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}
func (m *mockHeaters) notify() {
	m.mu.Lock()
	fns := append([]func(){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type mockSchedules struct {
	resp      []models.Schedule
	one       models.Schedule
	err       error
	lastID    int
	lastInput models.Schedule
	deleted   []int
}

func (m *mockSchedules) List(ctx context.Context) ([]models.Schedule, error) {
	return m.resp, m.err
}
func (m *mockSchedules) Get(ctx context.Context, scheduleID int) (models.Schedule, error) {
	m.lastID = scheduleID
	return m.one, m.err
}
func (m *mockSchedules) Create(ctx context.Context, schedule models.Schedule) (models.Schedule, error) {
	m.lastInput = schedule
	return m.one, m.err
}
func (m *mockSchedules) Update(ctx context.Context, scheduleID int, schedule models.Schedule) error {
	m.lastID = scheduleID
	m.lastInput = schedule
	return m.err
}
func (m *mockSchedules) Delete(ctx context.Context, scheduleID int) error {
	m.deleted = append(m.deleted, scheduleID)
	return m.err
}

type mockEventLog struct {
	resp     []models.BridgeEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.BridgeEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
