package envi

import (
	"context"
	"fmt"

	"smart_envi/internal/models"
)

// NightLightSetting returns the device's night light block unmodified.
func (c *Client) NightLightSetting(ctx context.Context, deviceID string) (map[string]any, error) {
	dev, err := c.GetDeviceState(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return dev.NightLightSetting, nil
}

// SetNightLightSetting merges changes over the current night light block and
// writes the result back. The endpoint rejects partial blocks, hence the
// read-modify-write.
func (c *Client) SetNightLightSetting(ctx context.Context, deviceID string, changes map[string]any) error {
	current, err := c.NightLightSetting(ctx, deviceID)
	if err != nil {
		return err
	}
	return c.UpdateDevice(ctx, deviceID, models.DeviceUpdate{NightLight: mergeSetting(current, changes)})
}

// PilotLightSetting returns the device's pilot light block unmodified.
func (c *Client) PilotLightSetting(ctx context.Context, deviceID string) (map[string]any, error) {
	dev, err := c.GetDeviceState(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return dev.PilotLightSetting, nil
}

// SetPilotLightSetting merges changes over the current pilot light block and
// writes the result back.
func (c *Client) SetPilotLightSetting(ctx context.Context, deviceID string, changes map[string]any) error {
	current, err := c.PilotLightSetting(ctx, deviceID)
	if err != nil {
		return err
	}
	return c.UpdateDevice(ctx, deviceID, models.DeviceUpdate{PilotLight: mergeSetting(current, changes)})
}

// DisplaySetting returns the device's display block unmodified.
func (c *Client) DisplaySetting(ctx context.Context, deviceID string) (map[string]any, error) {
	dev, err := c.GetDeviceState(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return dev.DisplaySetting, nil
}

// SetDisplaySetting merges changes over the current display block and writes
// the result back.
func (c *Client) SetDisplaySetting(ctx context.Context, deviceID string, changes map[string]any) error {
	current, err := c.DisplaySetting(ctx, deviceID)
	if err != nil {
		return err
	}
	return c.UpdateDevice(ctx, deviceID, models.DeviceUpdate{Display: mergeSetting(current, changes)})
}

func mergeSetting(current, changes map[string]any) map[string]any {
	merged := make(map[string]any, len(current)+len(changes))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range changes {
		merged[k] = v
	}
	return merged
}

// The update endpoint rejects the fields below with "is not allowed"; they
// are writable only from the vendor app. The setters exist so callers get a
// clear permanent error instead of a puzzling 400 from the wire.

// SetChildLock always fails: the setting is vendor-app-only.
func (c *Client) SetChildLock(ctx context.Context, deviceID string, enabled bool) error {
	return errVendorAppOnly("child_lock_setting")
}

// SetFreezeProtect always fails: the setting is vendor-app-only.
func (c *Client) SetFreezeProtect(ctx context.Context, deviceID string, enabled bool) error {
	return errVendorAppOnly("freeze_protect_setting")
}

// SetHold always fails: the setting is vendor-app-only.
func (c *Client) SetHold(ctx context.Context, deviceID string, enabled bool) error {
	return errVendorAppOnly("is_hold")
}

// SetPermanentHold always fails: the setting is vendor-app-only.
func (c *Client) SetPermanentHold(ctx context.Context, deviceID string, enabled bool) error {
	return errVendorAppOnly("permanent_hold")
}

// SetNotification always fails: the setting is vendor-app-only.
func (c *Client) SetNotification(ctx context.Context, deviceID string, enabled bool) error {
	return errVendorAppOnly("notification_setting")
}

func errVendorAppOnly(field string) error {
	return &APIError{
		Permanent: true,
		Msg:       fmt.Sprintf("%s cannot be changed through the API; use the Envi mobile app", field),
	}
}
