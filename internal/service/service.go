package service

import (
	"context"
	"time"

	"smart_envi/internal/logger"
	"smart_envi/internal/models"
	"smart_envi/internal/repository"
)

// DeviceCache is the coordinator surface the heater service reads from.
type DeviceCache interface {
	Data() map[string]models.Device
	DeviceIDs() []string
	DeviceData(deviceID string) (models.Device, bool)
	RefreshDevice(ctx context.Context, deviceID string) (models.Device, bool)
	AddListener(fn func()) func()
}

// EnviClient is the slice of the API client the services drive. The periodic
// read path goes through the coordinator instead.
type EnviClient interface {
	UpdateDevice(ctx context.Context, deviceID string, update models.DeviceUpdate) error
	SetChildLock(ctx context.Context, deviceID string, enabled bool) error
	SetFreezeProtect(ctx context.Context, deviceID string, enabled bool) error
	SetHold(ctx context.Context, deviceID string, enabled bool) error
	ListSchedules(ctx context.Context) ([]models.Schedule, error)
	GetSchedule(ctx context.Context, scheduleID int) (models.Schedule, error)
	CreateSchedule(ctx context.Context, schedule models.Schedule) (models.Schedule, error)
	UpdateSchedule(ctx context.Context, scheduleID int, schedule models.Schedule) error
	DeleteSchedule(ctx context.Context, scheduleID int) error
}

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Heaters exposes the cached device states and the control operations
// (set temperature / on-off / mode, isolated single-device refresh).
type Heaters interface {
	List(ctx context.Context) []models.Device
	Get(ctx context.Context, deviceID string) (models.Device, bool)
	Refresh(ctx context.Context, deviceID string) (models.Device, bool)
	SetTemperature(ctx context.Context, deviceID string, temperature float64) (models.Device, error)
	SetState(ctx context.Context, deviceID string, on bool) (models.Device, error)
	SetMode(ctx context.Context, deviceID string, mode int) (models.Device, error)
	SetVendorSetting(ctx context.Context, deviceID, setting string, enabled bool) error
	Watch(fn func()) (remove func())
}

// Schedules exposes validated schedule CRUD, always server-authoritative.
type Schedules interface {
	List(ctx context.Context) ([]models.Schedule, error)
	Get(ctx context.Context, scheduleID int) (models.Schedule, error)
	Create(ctx context.Context, schedule models.Schedule) (models.Schedule, error)
	Update(ctx context.Context, scheduleID int, schedule models.Schedule) error
	Delete(ctx context.Context, scheduleID int) error
}

// EventLog exposes the append-only bridge log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.BridgeEvent, error)
}

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", or one of the models.Event* constants
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Heaters
	Schedules
	EventLog
	Authorization
}

// NewService wires the coordinator cache, the Envi client and the repository
// layer into concrete services. Ownership is explicit: one Service per
// account session, no shared registries.
func NewService(cache DeviceCache, client EnviClient, repos *repository.Repository, log *logger.Logger, signingKey string, tokenTTL time.Duration) *Service {
	return &Service{
		Heaters:       NewHeaterService(cache, client, repos.Events, log),
		Schedules:     NewScheduleService(client, repos.Events, log),
		EventLog:      NewEventLogService(repos.Events),
		Authorization: NewAuthService(repos.Auth, signingKey, tokenTTL),
	}
}
