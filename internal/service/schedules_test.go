package service

import (
	"context"
	"errors"
	"testing"

	"smart_envi/internal/models"
)

func TestSchedules_CreateRequiresDevice(t *testing.T) {
	client := &fakeClient{}
	s := NewScheduleService(client, &fakeEvents{}, nil)

	_, err := s.Create(context.Background(), models.Schedule{Name: "no device"})
	if !errors.Is(err, errScheduleDevice) {
		t.Fatalf("expected errScheduleDevice, got %v", err)
	}
	if client.created != nil {
		t.Fatalf("invalid schedule must not reach the client")
	}
}

func TestSchedules_CreateRecordsEvent(t *testing.T) {
	client := &fakeClient{}
	events := &fakeEvents{}
	s := NewScheduleService(client, events, nil)

	created, err := s.Create(context.Background(), models.Schedule{
		DeviceID: "dev-1",
		Name:     "Morning",
		Times:    []models.ScheduleTime{{Time: "06:30", Temperature: 70}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 99 {
		t.Fatalf("expected the server copy back, got %+v", created)
	}
	if len(events.events) != 1 || events.events[0].Type != models.EventScheduleChange {
		t.Fatalf("expected one schedule change event, got %+v", events.events)
	}
}

func TestSchedules_TimeEntryValidation(t *testing.T) {
	cases := []struct {
		name  string
		entry models.ScheduleTime
		ok    bool
	}{
		{"valid", models.ScheduleTime{Time: "06:30", Temperature: 70}, true},
		{"missing_time", models.ScheduleTime{Temperature: 70}, false},
		{"temp_below_range", models.ScheduleTime{Time: "06:30", Temperature: 40}, false},
		{"temp_above_range", models.ScheduleTime{Time: "06:30", Temperature: 90}, false},
		{"temp_at_limits", models.ScheduleTime{Time: "06:30", Temperature: 86}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateScheduleTimes([]models.ScheduleTime{tc.entry})
			if tc.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected rejection")
			}
		})
	}
}

func TestSchedules_IDMustBePositive(t *testing.T) {
	s := NewScheduleService(&fakeClient{}, &fakeEvents{}, nil)
	ctx := context.Background()

	if _, err := s.Get(ctx, 0); !errors.Is(err, errScheduleID) {
		t.Fatalf("get: expected errScheduleID, got %v", err)
	}
	if err := s.Update(ctx, -1, models.Schedule{}); !errors.Is(err, errScheduleID) {
		t.Fatalf("update: expected errScheduleID, got %v", err)
	}
	if err := s.Delete(ctx, 0); !errors.Is(err, errScheduleID) {
		t.Fatalf("delete: expected errScheduleID, got %v", err)
	}
}

func TestSchedules_UpdateAndDeleteRecordEvents(t *testing.T) {
	client := &fakeClient{}
	events := &fakeEvents{}
	s := NewScheduleService(client, events, nil)
	ctx := context.Background()

	if err := s.Update(ctx, 5, models.Schedule{Name: "Evening"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if client.updatedID != 5 {
		t.Fatalf("update id = %d", client.updatedID)
	}
	if err := s.Delete(ctx, 5); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if client.deletedID != 5 {
		t.Fatalf("delete id = %d", client.deletedID)
	}
	if len(events.events) != 2 {
		t.Fatalf("expected two schedule change events, got %+v", events.events)
	}
}

func TestSchedules_ClientFailureSkipsEvent(t *testing.T) {
	client := &fakeClient{scheduleErr: errors.New("upstream down")}
	events := &fakeEvents{}
	s := NewScheduleService(client, events, nil)

	if err := s.Delete(context.Background(), 5); err == nil {
		t.Fatalf("expected client failure to propagate")
	}
	if len(events.events) != 0 {
		t.Fatalf("failed delete must not be logged: %+v", events.events)
	}
}
