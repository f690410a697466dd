package sensor

import (
	"context"
	"sync"
	"time"

	"github.com/ChristiaanHPutter/Skripsie/internal/cooker"
)

// ----------- Simulation constants -----------
const (
	SimAmbientC     = 21.0  // resting water temperature °C
	SimMaxC         = 99.0  // heater ceiling just below boil °C
	HeatRateCPerSec = 0.05  // °C per second while the heater is driven
	CoolRateCPerSec = 0.005 // °C per second drifting back toward ambient
)

// Sim is an in-process stand-in for the chamber probes. Each bath heats
// toward SimMaxC while its heater is driven and drifts back toward ambient
// otherwise. Temperatures advance lazily from the wall time elapsed since
// the last touch, so no background goroutine is needed.
type Sim struct {
	mu       sync.Mutex
	now      func() time.Time
	chambers [cooker.NumChambers]simChamber
}

type simChamber struct {
	tempC     float64
	heaterOn  bool
	faulted   bool
	updatedAt time.Time
}

// NewSim returns a simulator with every chamber at ambient.
func NewSim() *Sim {
	s := &Sim{now: time.Now}
	start := s.now()
	for i := range s.chambers {
		s.chambers[i] = simChamber{tempC: SimAmbientC, updatedAt: start}
	}
	return s
}

// Read advances the chamber to the current instant and returns its water
// temperature. A faulted chamber reports ErrNoReading.
func (s *Sim) Read(_ context.Context, chamber int) (float64, error) {
	if chamber < 0 || chamber >= cooker.NumChambers {
		return 0, ErrUnknownChamber
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(chamber, s.now())
	if s.chambers[chamber].faulted {
		return 0, ErrNoReading
	}
	return s.chambers[chamber].tempC, nil
}

// Apply records the heater drive for one chamber, settling the temperature
// first so the new rate applies from this instant. The indicator is accepted
// so Sim satisfies the control loop's output port; it has no thermal effect.
func (s *Sim) Apply(chamber int, heaterOn bool, _ cooker.Indicator) {
	if chamber < 0 || chamber >= cooker.NumChambers {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(chamber, s.now())
	s.chambers[chamber].heaterOn = heaterOn
}

// SetFault toggles a simulated probe failure on one chamber. The bath keeps
// integrating while faulted; only the reading is withheld.
func (s *Sim) SetFault(chamber int, faulted bool) {
	if chamber < 0 || chamber >= cooker.NumChambers {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chambers[chamber].faulted = faulted
}

// SetTemperature pins a chamber's water to the given value, e.g. to start a
// demo from a preheated bath.
func (s *Sim) SetTemperature(chamber int, tempC float64) {
	if chamber < 0 || chamber >= cooker.NumChambers {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chambers[chamber].tempC = tempC
	s.chambers[chamber].updatedAt = s.now()
}

// advance integrates one chamber over the wall time since its last update.
// Callers hold s.mu.
func (s *Sim) advance(chamber int, now time.Time) {
	ch := &s.chambers[chamber]
	elapsed := now.Sub(ch.updatedAt).Seconds()
	if elapsed <= 0 {
		return
	}
	ch.updatedAt = now
	switch {
	case ch.heaterOn:
		ch.tempC = minFloat(ch.tempC+HeatRateCPerSec*elapsed, SimMaxC)
	case ch.tempC > SimAmbientC:
		ch.tempC = maxFloat(ch.tempC-CoolRateCPerSec*elapsed, SimAmbientC)
	}
}

// helpers
func minFloat(a, b float64) float64 {
	if a <= b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a >= b {
		return a
	}
	return b
}
