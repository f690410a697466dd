package service

import (
	"context"

	"github.com/ChristiaanHPutter/Skripsie/internal/models"
	"github.com/ChristiaanHPutter/Skripsie/internal/repository"
)

// Control accepts operator panel input.
type Control interface {
	PressButton(button int) error
}

// Monitoring exposes the read-only cooker snapshot.
type Monitoring interface {
	GetState(ctx context.Context) (models.CookerState, error)
}

// EventLog exposes the append-only journal with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.CookEvent, error)
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Control
	Monitoring
	EventLog
}

// NewService wires the run loop and repository layer into the service
// facade the handlers consume.
func NewService(loop *Loop, repos *repository.Repository) *Service {
	return &Service{
		Control:    loop,
		Monitoring: NewMonitoringService(loop),
		EventLog:   NewEventLogService(repos.EventRepo),
	}
}
