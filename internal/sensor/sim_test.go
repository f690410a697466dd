package sensor

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ChristiaanHPutter/Skripsie/internal/cooker"
)

// newTestSim rebases the simulator onto a manual clock.
func newTestSim() (*Sim, func(time.Duration)) {
	current := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	s := NewSim()
	s.now = func() time.Time { return current }
	for i := range s.chambers {
		s.chambers[i].updatedAt = current
	}
	return s, func(d time.Duration) { current = current.Add(d) }
}

func readTemp(t *testing.T, s *Sim, chamber int) float64 {
	t.Helper()
	v, err := s.Read(context.Background(), chamber)
	if err != nil {
		t.Fatalf("Read(%d): %v", chamber, err)
	}
	return v
}

func assertClose(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("temperature = %.6f, want %.6f", got, want)
	}
}

func TestSim_HeatsWhileDrivenAndClamps(t *testing.T) {
	t.Parallel()

	s, advance := newTestSim()
	s.Apply(0, true, cooker.IndicatorHeating)

	advance(60 * time.Second)
	assertClose(t, readTemp(t, s, 0), SimAmbientC+60*HeatRateCPerSec)

	advance(48 * time.Hour)
	assertClose(t, readTemp(t, s, 0), SimMaxC)
}

func TestSim_DriftsBackToAmbient(t *testing.T) {
	t.Parallel()

	s, advance := newTestSim()
	s.SetTemperature(1, 60.0)

	advance(1000 * time.Second)
	assertClose(t, readTemp(t, s, 1), 60.0-1000*CoolRateCPerSec)

	advance(72 * time.Hour)
	assertClose(t, readTemp(t, s, 1), SimAmbientC)
}

func TestSim_HeaterOffSettlesBeforeRateChange(t *testing.T) {
	t.Parallel()

	s, advance := newTestSim()
	s.Apply(0, true, cooker.IndicatorHeating)
	advance(100 * time.Second)

	// Turning the heater off integrates the heating segment first; the
	// cooling rate only applies from here on.
	s.Apply(0, false, cooker.IndicatorOff)
	heated := SimAmbientC + 100*HeatRateCPerSec

	advance(100 * time.Second)
	assertClose(t, readTemp(t, s, 0), heated-100*CoolRateCPerSec)
}

func TestSim_ChambersAreIndependent(t *testing.T) {
	t.Parallel()

	s, advance := newTestSim()
	s.Apply(0, true, cooker.IndicatorHeating)
	advance(10 * time.Minute)

	if got := readTemp(t, s, 0); got <= SimAmbientC {
		t.Fatalf("driven chamber did not heat: %.3f", got)
	}
	assertClose(t, readTemp(t, s, 1), SimAmbientC)
	assertClose(t, readTemp(t, s, 2), SimAmbientC)
}

func TestSim_FaultWithholdsReadingOnly(t *testing.T) {
	t.Parallel()

	s, advance := newTestSim()
	s.Apply(2, true, cooker.IndicatorHeating)
	s.SetFault(2, true)

	advance(60 * time.Second)
	if _, err := s.Read(context.Background(), 2); !errors.Is(err, ErrNoReading) {
		t.Fatalf("faulted Read err = %v, want ErrNoReading", err)
	}

	// The bath kept heating underneath the fault.
	s.SetFault(2, false)
	assertClose(t, readTemp(t, s, 2), SimAmbientC+60*HeatRateCPerSec)
}

func TestSim_IndexGuards(t *testing.T) {
	t.Parallel()

	s, _ := newTestSim()
	for _, idx := range []int{-1, cooker.NumChambers, 99} {
		if _, err := s.Read(context.Background(), idx); !errors.Is(err, ErrUnknownChamber) {
			t.Fatalf("Read(%d) err = %v, want ErrUnknownChamber", idx, err)
		}
		// Must not panic.
		s.Apply(idx, true, cooker.IndicatorHeating)
		s.SetFault(idx, true)
		s.SetTemperature(idx, 50)
	}
}
