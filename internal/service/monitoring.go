package service

import (
	"context"
	"time"

	"github.com/ChristiaanHPutter/Skripsie/internal/models"
)

// StateSource publishes the loop's latest cooker snapshot.
type StateSource interface {
	Snapshot() models.CookerState
}

type MonitoringService struct {
	source StateSource
}

func NewMonitoringService(source StateSource) *MonitoringService {
	return &MonitoringService{source: source}
}

// GetState returns the latest published snapshot. The state is volatile; a
// freshly started controller reports an idle cooker, never a restored run.
func (s *MonitoringService) GetState(_ context.Context) (models.CookerState, error) {
	st := s.source.Snapshot()
	st.UpdatedAt = toUTC(st.UpdatedAt)
	return st, nil
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
