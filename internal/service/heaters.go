package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"smart_envi/internal/envi"
	"smart_envi/internal/logger"
	"smart_envi/internal/models"
	"smart_envi/internal/repository"
)

// Setpoint limits in Fahrenheit, per the vendor's published device range.
const (
	MinTemperatureF = 50.0
	MaxTemperatureF = 86.0
)

// Vendor setting names accepted by SetVendorSetting. All of them are
// rejected by the write endpoint; the methods exist to surface that clearly.
const (
	SettingChildLock     = "child_lock"
	SettingFreezeProtect = "freeze_protect"
	SettingHold          = "hold"
)

var (
	ErrUnknownDevice  = errors.New("unknown device: not present in the device cache")
	ErrUnknownSetting = errors.New("unknown vendor setting")
	ErrInvalidMode    = errors.New("invalid mode: must be a positive vendor mode number")
)

// HeaterService owns the read/write paths for heater control: reads come
// from the coordinator cache, writes go through the API client and are
// confirmed with an isolated single-device refresh.
type HeaterService struct {
	cache     DeviceCache
	client    EnviClient
	eventRepo repository.EventRepo
	log       *logger.Logger
}

func NewHeaterService(cache DeviceCache, client EnviClient, eventRepo repository.EventRepo, log *logger.Logger) *HeaterService {
	return &HeaterService{cache: cache, client: client, eventRepo: eventRepo, log: log}
}

// List returns every cached device snapshot, ordered by identifier.
func (s *HeaterService) List(ctx context.Context) []models.Device {
	data := s.cache.Data()
	out := make([]models.Device, 0, len(data))
	for _, dev := range data {
		out = append(out, dev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the cached snapshot for one device.
func (s *HeaterService) Get(ctx context.Context, deviceID string) (models.Device, bool) {
	return s.cache.DeviceData(deviceID)
}

// Refresh fetches one device immediately, outside the poll cycle.
func (s *HeaterService) Refresh(ctx context.Context, deviceID string) (models.Device, bool) {
	return s.cache.RefreshDevice(ctx, deviceID)
}

// Watch registers fn to run whenever the cache publishes new data.
func (s *HeaterService) Watch(fn func()) func() {
	return s.cache.AddListener(fn)
}

// SetTemperature validates the setpoint against the device's configured unit,
// writes it, and confirms with a single-device refresh. The returned device
// is the freshest snapshot available; a failed confirmation read falls back
// to the cached one.
func (s *HeaterService) SetTemperature(ctx context.Context, deviceID string, temperature float64) (models.Device, error) {
	dev, ok := s.cache.DeviceData(deviceID)
	if !ok {
		return models.Device{}, ErrUnknownDevice
	}

	if err := s.validateSetpoint(temperature, dev.TemperatureUnit); err != nil {
		return models.Device{}, err
	}

	t := temperature
	if err := s.client.UpdateDevice(ctx, deviceID, models.DeviceUpdate{Temperature: &t}); err != nil {
		return models.Device{}, err
	}
	s.recordUpdate(ctx, deviceID, "temperature set", map[string]any{"temperature": temperature})
	return s.confirm(ctx, deviceID), nil
}

// SetState switches the heater on or off and confirms with a refresh.
func (s *HeaterService) SetState(ctx context.Context, deviceID string, on bool) (models.Device, error) {
	if _, ok := s.cache.DeviceData(deviceID); !ok {
		return models.Device{}, ErrUnknownDevice
	}
	state := 0
	if on {
		state = 1
	}
	if err := s.client.UpdateDevice(ctx, deviceID, models.DeviceUpdate{State: &state}); err != nil {
		return models.Device{}, err
	}
	s.recordUpdate(ctx, deviceID, "state set", map[string]any{"on": on})
	return s.confirm(ctx, deviceID), nil
}

// SetMode sets the vendor mode number and confirms with a refresh.
func (s *HeaterService) SetMode(ctx context.Context, deviceID string, mode int) (models.Device, error) {
	if mode <= 0 {
		return models.Device{}, ErrInvalidMode
	}
	if _, ok := s.cache.DeviceData(deviceID); !ok {
		return models.Device{}, ErrUnknownDevice
	}
	m := mode
	if err := s.client.UpdateDevice(ctx, deviceID, models.DeviceUpdate{Mode: &m}); err != nil {
		return models.Device{}, err
	}
	s.recordUpdate(ctx, deviceID, "mode set", map[string]any{"mode": mode})
	return s.confirm(ctx, deviceID), nil
}

// SetVendorSetting forwards a vendor-app-only setting write. Every one of
// them comes back as a permanent rejection; callers surface that to the user
// as "not available via this integration".
func (s *HeaterService) SetVendorSetting(ctx context.Context, deviceID, setting string, enabled bool) error {
	switch setting {
	case SettingChildLock:
		return s.client.SetChildLock(ctx, deviceID, enabled)
	case SettingFreezeProtect:
		return s.client.SetFreezeProtect(ctx, deviceID, enabled)
	case SettingHold:
		return s.client.SetHold(ctx, deviceID, enabled)
	}
	return fmt.Errorf("%w: %q", ErrUnknownSetting, setting)
}

// validateSetpoint checks the requested temperature against the device
// limits, converted into the device's configured unit.
func (s *HeaterService) validateSetpoint(temperature float64, unit string) error {
	if unit == "" {
		unit = envi.UnitFahrenheit
	}
	minT, err := envi.ConvertTemperature(MinTemperatureF, envi.UnitFahrenheit, unit)
	if err != nil {
		return err
	}
	maxT, err := envi.ConvertTemperature(MaxTemperatureF, envi.UnitFahrenheit, unit)
	if err != nil {
		return err
	}
	if temperature < minT || temperature > maxT {
		return fmt.Errorf("temperature %.1f°%s out of range [%.1f, %.1f]", temperature, unit, minT, maxT)
	}
	return nil
}

// confirm performs the read-after-write refresh. A failed read is not an
// error for the caller: the write already succeeded, so serve the last
// cached snapshot and let the next poll cycle catch up.
func (s *HeaterService) confirm(ctx context.Context, deviceID string) models.Device {
	if dev, ok := s.cache.RefreshDevice(ctx, deviceID); ok {
		return dev
	}
	dev, _ := s.cache.DeviceData(deviceID)
	return dev
}

func (s *HeaterService) recordUpdate(ctx context.Context, deviceID, description string, metadata map[string]any) {
	metadata["device_id"] = deviceID
	err := s.eventRepo.Append(ctx, models.BridgeEvent{
		OccurredAt:  time.Now().UTC(),
		Type:        models.EventDeviceUpdate,
		Description: description,
		Metadata:    metadata,
	})
	if err != nil && s.log != nil {
		s.log.Warnw("event_append_failed", "device_id", deviceID, "err", err)
	}
}
