package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smart_envi/internal/logger"
	"smart_envi/internal/models"
	"smart_envi/internal/repository"
)

var (
	errScheduleDevice = errors.New("schedule requires a device_id")
	errScheduleID     = errors.New("schedule id must be positive")
)

// ScheduleService validates schedule payloads before handing them to the
// API client. The server stays authoritative; nothing is cached here.
type ScheduleService struct {
	client    EnviClient
	eventRepo repository.EventRepo
	log       *logger.Logger
}

func NewScheduleService(client EnviClient, eventRepo repository.EventRepo, log *logger.Logger) *ScheduleService {
	return &ScheduleService{client: client, eventRepo: eventRepo, log: log}
}

func (s *ScheduleService) List(ctx context.Context) ([]models.Schedule, error) {
	return s.client.ListSchedules(ctx)
}

func (s *ScheduleService) Get(ctx context.Context, scheduleID int) (models.Schedule, error) {
	if scheduleID <= 0 {
		return models.Schedule{}, errScheduleID
	}
	return s.client.GetSchedule(ctx, scheduleID)
}

func (s *ScheduleService) Create(ctx context.Context, schedule models.Schedule) (models.Schedule, error) {
	if schedule.DeviceID == "" {
		return models.Schedule{}, errScheduleDevice
	}
	if err := validateScheduleTimes(schedule.Times); err != nil {
		return models.Schedule{}, err
	}
	created, err := s.client.CreateSchedule(ctx, schedule)
	if err != nil {
		return models.Schedule{}, err
	}
	s.recordChange(ctx, "schedule created", map[string]any{"schedule_id": created.ID, "device_id": string(created.DeviceID)})
	return created, nil
}

func (s *ScheduleService) Update(ctx context.Context, scheduleID int, schedule models.Schedule) error {
	if scheduleID <= 0 {
		return errScheduleID
	}
	if err := validateScheduleTimes(schedule.Times); err != nil {
		return err
	}
	if err := s.client.UpdateSchedule(ctx, scheduleID, schedule); err != nil {
		return err
	}
	s.recordChange(ctx, "schedule updated", map[string]any{"schedule_id": scheduleID})
	return nil
}

func (s *ScheduleService) Delete(ctx context.Context, scheduleID int) error {
	if scheduleID <= 0 {
		return errScheduleID
	}
	if err := s.client.DeleteSchedule(ctx, scheduleID); err != nil {
		return err
	}
	s.recordChange(ctx, "schedule deleted", map[string]any{"schedule_id": scheduleID})
	return nil
}

// validateScheduleTimes checks each time entry's setpoint against the device
// limits. Time-of-day format is left to the server, which rejects bad values.
func validateScheduleTimes(times []models.ScheduleTime) error {
	for i, entry := range times {
		if entry.Time == "" {
			return fmt.Errorf("schedule time entry %d: time of day is required", i)
		}
		if entry.Temperature < MinTemperatureF || entry.Temperature > MaxTemperatureF {
			return fmt.Errorf("schedule time entry %d: temperature %.1f out of range [%.0f, %.0f]",
				i, entry.Temperature, MinTemperatureF, MaxTemperatureF)
		}
	}
	return nil
}

func (s *ScheduleService) recordChange(ctx context.Context, description string, metadata map[string]any) {
	err := s.eventRepo.Append(ctx, models.BridgeEvent{
		OccurredAt:  time.Now().UTC(),
		Type:        models.EventScheduleChange,
		Description: description,
		Metadata:    metadata,
	})
	if err != nil && s.log != nil {
		s.log.Warnw("event_append_failed", "err", err)
	}
}
