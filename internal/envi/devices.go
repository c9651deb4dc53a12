package envi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"smart_envi/internal/models"
)

// FetchAllDeviceIDs returns the identifiers of every heater on the account.
// The list is re-read on every call; devices may appear or disappear between
// calls. Malformed entries are skipped with a log entry rather than failing
// the whole list.
func (c *Client) FetchAllDeviceIDs(ctx context.Context) ([]string, error) {
	data, err := c.request(ctx, http.MethodGet, endpointDeviceList, nil)
	if err != nil {
		return nil, err
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &APIError{Msg: "device list is not a list", Err: err}
	}

	ids := make([]string, 0, len(entries))
	for i, raw := range entries {
		var entry struct {
			ID models.StringID `json:"id"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			c.log.Warnw("envi_device_entry_invalid", "index", i, "err", err)
			continue
		}
		if entry.ID == "" {
			c.log.Warnw("envi_device_entry_missing_id", "index", i)
			continue
		}
		ids = append(ids, string(entry.ID))
	}
	return ids, nil
}

// GetDeviceState fetches the full state of one device. Failures are wrapped
// in a DeviceError so batch callers can isolate them per device.
func (c *Client) GetDeviceState(ctx context.Context, deviceID string) (models.Device, error) {
	endpoint := fmt.Sprintf(endpointDevice, url.PathEscape(deviceID))
	data, err := c.request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Device{}, &DeviceError{DeviceID: deviceID, Err: err}
	}

	var dev models.Device
	if err := json.Unmarshal(data, &dev); err != nil {
		return models.Device{}, &DeviceError{DeviceID: deviceID, Err: fmt.Errorf("decode device state: %w", err)}
	}
	if dev.ID == "" {
		// Some firmware revisions omit the id in the single-device payload.
		dev.ID = models.StringID(deviceID)
	}
	return dev, nil
}

// UpdateDevice sends a partial update for one device. Only temperature, state
// and mode (plus the light/display setting blocks) are writable; anything
// else in the read model comes back as a permanent rejection from the vendor.
func (c *Client) UpdateDevice(ctx context.Context, deviceID string, update models.DeviceUpdate) error {
	endpoint := fmt.Sprintf(endpointDeviceUpdate, url.PathEscape(deviceID))
	if _, err := c.request(ctx, http.MethodPatch, endpoint, update); err != nil {
		return &DeviceError{DeviceID: deviceID, Err: err}
	}
	return nil
}

// SetTemperature sets the target temperature in the device's configured unit.
func (c *Client) SetTemperature(ctx context.Context, deviceID string, temperature float64) error {
	t := temperature
	return c.UpdateDevice(ctx, deviceID, models.DeviceUpdate{Temperature: &t})
}

// SetState switches the heater on or off.
func (c *Client) SetState(ctx context.Context, deviceID string, on bool) error {
	state := 0
	if on {
		state = 1
	}
	return c.UpdateDevice(ctx, deviceID, models.DeviceUpdate{State: &state})
}

// SetMode sets the vendor mode number (1 = heat, 3 = auto, ...).
func (c *Client) SetMode(ctx context.Context, deviceID string, mode int) error {
	m := mode
	return c.UpdateDevice(ctx, deviceID, models.DeviceUpdate{Mode: &m})
}
