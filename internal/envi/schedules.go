package envi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"smart_envi/internal/models"
)

// ListSchedules returns every schedule on the account. Schedules are never
// cached; the server stays authoritative.
func (c *Client) ListSchedules(ctx context.Context) ([]models.Schedule, error) {
	data, err := c.request(ctx, http.MethodGet, endpointScheduleList, nil)
	if err != nil {
		return nil, err
	}
	var schedules []models.Schedule
	if err := json.Unmarshal(data, &schedules); err != nil {
		return nil, &APIError{Msg: "schedule list is not a list", Err: err}
	}
	return schedules, nil
}

// GetSchedule returns one schedule by id. The vendor has no reliable
// single-schedule read, so the list is scanned.
func (c *Client) GetSchedule(ctx context.Context, scheduleID int) (models.Schedule, error) {
	schedules, err := c.ListSchedules(ctx)
	if err != nil {
		return models.Schedule{}, err
	}
	for _, s := range schedules {
		if s.ID == scheduleID {
			return s, nil
		}
	}
	return models.Schedule{}, &APIError{Msg: fmt.Sprintf("schedule %d not found", scheduleID), Permanent: true}
}

// CreateSchedule creates a schedule for the device named in it and returns
// the server's copy (with the assigned id).
func (c *Client) CreateSchedule(ctx context.Context, schedule models.Schedule) (models.Schedule, error) {
	if schedule.DeviceID == "" {
		return models.Schedule{}, &APIError{Msg: "device_id is required to create a schedule", Permanent: true}
	}
	data, err := c.request(ctx, http.MethodPost, endpointScheduleAdd, schedule)
	if err != nil {
		return models.Schedule{}, err
	}
	var created models.Schedule
	if len(data) > 0 {
		if err := json.Unmarshal(data, &created); err != nil {
			return models.Schedule{}, &APIError{Msg: "decode created schedule", Err: err}
		}
	}
	if created.DeviceID == "" {
		created.DeviceID = schedule.DeviceID
	}
	return created, nil
}

// UpdateSchedule replaces the mutable fields of an existing schedule.
func (c *Client) UpdateSchedule(ctx context.Context, scheduleID int, schedule models.Schedule) error {
	_, err := c.request(ctx, http.MethodPut, fmt.Sprintf(endpointSchedule, scheduleID), schedule)
	return err
}

// DeleteSchedule removes a schedule.
func (c *Client) DeleteSchedule(ctx context.Context, scheduleID int) error {
	_, err := c.request(ctx, http.MethodDelete, fmt.Sprintf(endpointSchedule, scheduleID), nil)
	return err
}
