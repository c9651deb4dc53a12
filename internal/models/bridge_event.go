package models

import "time"

// Event types recorded in the bridge log.
const (
	EventCycleSoftFail  = "CYCLE_SOFT_FAIL"
	EventDeviceError    = "DEVICE_ERROR"
	EventDeviceUpdate   = "DEVICE_UPDATE"
	EventScheduleChange = "SCHEDULE_CHANGE"
)

// BridgeEvent is a single operational log entry: poll cycles that degraded to
// cached data, per-device fetch failures, control writes, schedule changes.
type BridgeEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
