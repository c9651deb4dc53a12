package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"smart_envi/internal/models"
)

func TestEventLog_RejectsInvertedRange(t *testing.T) {
	s := NewEventLogService(&fakeEvents{})

	_, err := s.List(context.Background(), LogFilter{
		From: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, errInvalidTimeRange) {
		t.Fatalf("expected errInvalidTimeRange, got %v", err)
	}
}

func TestEventLog_NormalizesFilter(t *testing.T) {
	repo := &fakeEvents{listResp: []models.BridgeEvent{{Type: models.EventDeviceError}}}
	s := NewEventLogService(repo)

	loc := time.FixedZone("UTC+5", 5*3600)
	from := time.Date(2026, 8, 1, 10, 0, 0, 0, loc)

	got, err := s.List(context.Background(), LogFilter{From: from, Type: "  device_error "})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected repo results passed through, got %+v", got)
	}
	if repo.listFrom.Location() != time.UTC || repo.listFrom.Hour() != 5 {
		t.Fatalf("from must be normalized to UTC, got %v", repo.listFrom)
	}
	if !repo.listTo.IsZero() {
		t.Fatalf("unset bounds must stay zero, got %v", repo.listTo)
	}
	if repo.listType != models.EventDeviceError {
		t.Fatalf("type must be trimmed and uppercased, got %q", repo.listType)
	}
}

func TestEventLog_ZeroBoundsSkipRangeCheck(t *testing.T) {
	s := NewEventLogService(&fakeEvents{})
	if _, err := s.List(context.Background(), LogFilter{}); err != nil {
		t.Fatalf("empty filter must be valid, got %v", err)
	}
}
