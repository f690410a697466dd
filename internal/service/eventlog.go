package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ChristiaanHPutter/Skripsie/internal/cooker"
	"github.com/ChristiaanHPutter/Skripsie/internal/models"
	"github.com/ChristiaanHPutter/Skripsie/internal/repository"
)

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var (
	// ErrInvalidTimeRange rejects filters whose From lies after To.
	ErrInvalidTimeRange = errors.New("invalid time range: From must be <= To")

	// ErrInvalidChamberFilter rejects chamber filters outside 0..3.
	ErrInvalidChamberFilter = errors.New("invalid chamber filter: must be 1..3")
)

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the
// time range and chamber index.
func normalizeAndValidateFilter(f LogFilter) (LogFilter, error) {
	f.From = normalizeToUTC(f.From)
	f.To = normalizeToUTC(f.To)

	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return LogFilter{}, ErrInvalidTimeRange
	}
	if f.Chamber < 0 || f.Chamber > cooker.NumChambers {
		return LogFilter{}, ErrInvalidChamberFilter
	}

	f.Type = normalizeEventType(f.Type)
	return f, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.CookEvent, error) {
	f, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, f.From, f.To, f.Type, f.Chamber)
}
