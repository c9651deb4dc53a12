package models

// Schedule is a server-owned heating schedule tied to exactly one device.
// The bridge never caches these; every read goes back to the vendor API.
type Schedule struct {
	ID          int            `json:"id,omitempty"`
	DeviceID    StringID       `json:"device_id"`
	Name        string         `json:"name,omitempty"`
	Enabled     Flag           `json:"enabled"`
	Temperature float64        `json:"temperature,omitempty"`
	TriggerTime string         `json:"trigger_time,omitempty"`
	Day         string         `json:"day,omitempty"`
	Times       []ScheduleTime `json:"times,omitempty"`
}

// ScheduleTime is one entry of a schedule: a time of day, a setpoint and an
// enabled flag.
type ScheduleTime struct {
	Time        string  `json:"time"` // "HH:MM"
	Temperature float64 `json:"temperature"`
	Enabled     Flag    `json:"enabled"`
}
