package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Device is the last successfully fetched snapshot of one Envi heater, as
// returned by GET device/{id}. Field names follow the vendor wire format.
// Beware the vendor naming: "current_temperature" is the target setpoint,
// while "ambient_temperature" is the room reading.
type Device struct {
	ID                   StringID       `json:"id"`
	SerialNo             string         `json:"serial_no,omitempty"`
	Name                 string         `json:"name,omitempty"`
	TemperatureUnit      string         `json:"temperature_unit,omitempty"` // "C" or "F"
	AmbientTemperature   float64        `json:"ambient_temperature"`        // room reading
	TargetTemperature    float64        `json:"current_temperature"`        // setpoint
	State                int            `json:"state"`                      // 1 = on, 0 = off
	CurrentMode          int            `json:"current_mode,omitempty"`     // 1 = heat, 3 = auto, ...
	FirmwareVersion      string         `json:"firmware_version,omitempty"`
	ModelNo              string         `json:"model_no,omitempty"`
	SignalStrength       int            `json:"signal_strength,omitempty"`
	SSID                 string         `json:"ssid,omitempty"`
	LocationName         string         `json:"location_name,omitempty"`
	RelativeLocationName string         `json:"relative_location_name,omitempty"`
	Schedule             *ScheduleRef   `json:"schedule,omitempty"`
	IsScheduleActive     Flag           `json:"is_schedule_active,omitempty"`
	IsHold               Flag           `json:"is_hold,omitempty"`
	IsGeofenceActive     Flag           `json:"is_geofence_active,omitempty"`
	FreezeProtectSetting Flag           `json:"freeze_protect_setting,omitempty"`
	ChildLockSetting     Flag           `json:"child_lock_setting,omitempty"`
	NightLightSetting    map[string]any `json:"night_light_setting,omitempty"`
	PilotLightSetting    map[string]any `json:"pilot_light_setting,omitempty"`
	DisplaySetting       map[string]any `json:"display_setting,omitempty"`
	DeviceStatusResAt    string         `json:"device_status_res_at,omitempty"`

	// Raw holds the untouched vendor payload for pass-through consumers;
	// fields the bridge does not interpret survive a round trip through it.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the typed fields and keeps a copy of the raw payload.
func (d *Device) UnmarshalJSON(b []byte) error {
	type alias Device
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*d = Device(a)
	d.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// On reports whether the heater is switched on.
func (d Device) On() bool { return d.State == 1 }

// FreezeProtect reports whether freeze protection is active. The wire field
// has been observed inverted relative to the vendor app (raw true when the
// feature is off), so the value is negated here. Inferred from user reports,
// not vendor documentation; verify against the live API before relying on it.
func (d Device) FreezeProtect() bool { return !bool(d.FreezeProtectSetting) }

// ChildLock reports whether the child lock is engaged. Same observed
// inversion as FreezeProtect applies.
func (d Device) ChildLock() bool { return !bool(d.ChildLockSetting) }

// ScheduleRef is the schedule block embedded in a device snapshot.
type ScheduleRef struct {
	ID          int     `json:"id,omitempty"`
	Name        string  `json:"name,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// DeviceUpdate is a partial update for PATCH device/update-temperature/{id}.
// The endpoint accepts only the fields below; other fields present in the
// read model are rejected by the vendor with an "is not allowed" error.
type DeviceUpdate struct {
	Temperature *float64       `json:"temperature,omitempty"`
	State       *int           `json:"state,omitempty"`
	Mode        *int           `json:"mode,omitempty"`
	NightLight  map[string]any `json:"night_light_setting,omitempty"`
	PilotLight  map[string]any `json:"pilot_light_setting,omitempty"`
	Display     map[string]any `json:"display_setting,omitempty"`
}

// StringID is a vendor identifier that may arrive as a JSON string or number.
type StringID string

func (s *StringID) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*s = ""
	case string:
		*s = StringID(t)
	case float64:
		*s = StringID(strconv.FormatFloat(t, 'f', -1, 64))
	default:
		return fmt.Errorf("unsupported identifier type %T", v)
	}
	return nil
}

// Flag is a vendor boolean that may arrive as true/false, 0/1 or "0"/"true".
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*f = false
	case bool:
		*f = Flag(t)
	case float64:
		*f = t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "on", "yes":
			*f = true
		case "", "0", "false", "off", "no":
			*f = false
		default:
			return fmt.Errorf("unsupported flag value %q", t)
		}
	default:
		return fmt.Errorf("unsupported flag type %T", v)
	}
	return nil
}

// Bool unwraps the flag.
func (f Flag) Bool() bool { return bool(f) }
