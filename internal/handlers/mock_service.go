package handlers

import (
	"context"
	"time"

	"github.com/ChristiaanHPutter/Skripsie/internal/models"
	"github.com/ChristiaanHPutter/Skripsie/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockControl struct {
	pressErr   error
	pressCalls int
	lastButton int
}

func (m *mockControl) PressButton(button int) error {
	m.pressCalls++
	m.lastButton = button
	return m.pressErr
}

type mockMonitoring struct {
	state models.CookerState
	err   error
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.CookerState, error) {
	return m.state, m.err
}

type mockEventLog struct {
	resp        []models.CookEvent
	err         error
	calls       int
	lastFrom    time.Time
	lastTo      time.Time
	lastType    string
	lastChamber int
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.CookEvent, error) {
	m.calls++
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	m.lastChamber = f.Chamber
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	return newTestRouterWithHub(s, NewLinkHub(nil))
}

func newTestRouterWithHub(s *service.Service, hub *LinkHub) *gin.Engine {
	h := NewHandler(s, hub, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
