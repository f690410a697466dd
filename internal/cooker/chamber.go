package cooker

import (
	"math"
	"time"
)

// Fixed hardware layout: three independently heated chambers.
const NumChambers = 3

// Temperature and timer limits for panel adjustments. Remote SET commands
// write targets verbatim and are not clamped to these.
const (
	MinTargetTempC   = 40
	MaxTargetTempC   = 90
	MaxTargetTimeMin = 120

	// AtTempBandC is the tolerance band around the target within which a
	// chamber counts as "at temperature".
	AtTempBandC = 0.5

	// FaultReading is the sentinel stored when a sensor read fails.
	FaultReading = -999.0

	// minuteTick is the countdown granularity.
	minuteTick = 60 * time.Second
)

// Chamber holds the control state of one heating zone. All methods are pure
// state transitions; time is passed in explicitly and no I/O happens here.
type Chamber struct {
	TargetTempC   int     // {0} ∪ [MinTargetTempC, MaxTargetTempC] via panel; raw via remote SET
	CurrentTempC  float64 // last sampled reading, FaultReading until one arrives
	TargetTimeMin int     // [0, MaxTargetTimeMin]
	RemainingMin  int     // counts down only while armed and at temperature
	Active        bool
	AtTemperature bool
	TimerStarted  bool // latches on the first at-temperature reading of a run

	lastTimerTick time.Time
}

// NewChamber returns a zeroed chamber with no valid reading yet.
func NewChamber() Chamber {
	return Chamber{CurrentTempC: FaultReading}
}

// AdjustTargetTemp nudges the target temperature by delta. An unconfigured
// chamber (target 0) jumps straight to the minimum on any positive delta so
// the panel never dwells on sub-minimum values; results above the maximum
// clamp to it, and results below the minimum snap back to 0 ("off").
func (ch *Chamber) AdjustTargetTemp(delta int) {
	if ch.TargetTempC == 0 && delta > 0 {
		ch.TargetTempC = MinTargetTempC
		return
	}
	v := ch.TargetTempC + delta
	if v > MaxTargetTempC {
		v = MaxTargetTempC
	}
	if v < MinTargetTempC {
		v = 0
	}
	ch.TargetTempC = v
}

// AdjustTargetTime nudges the cook time by delta minutes, clamped to
// [0, MaxTargetTimeMin].
func (ch *Chamber) AdjustTargetTime(delta int) {
	v := ch.TargetTimeMin + delta
	if v < 0 {
		v = 0
	}
	if v > MaxTargetTimeMin {
		v = MaxTargetTimeMin
	}
	ch.TargetTimeMin = v
}

// SetTargets overwrites both targets verbatim. This is the remote SET path;
// values are accepted as given, outside the panel clamp ranges included.
func (ch *Chamber) SetTargets(tempC, timeMin int) {
	ch.TargetTempC = tempC
	ch.TargetTimeMin = timeMin
}

// ApplyReading stores a sampled temperature. While the chamber is active and
// configured, it recomputes AtTemperature; the first at-temperature reading
// of a run latches TimerStarted, seeds the minute tick and reports
// EventTempReached. A FaultReading is stored like any other value but can
// never satisfy the tolerance check, so it never starts a timer.
func (ch *Chamber) ApplyReading(value float64, now time.Time) (EventKind, bool) {
	ch.CurrentTempC = value
	if !ch.Active || ch.TargetTempC < MinTargetTempC {
		return 0, false
	}
	ch.AtTemperature = math.Abs(value-float64(ch.TargetTempC)) <= AtTempBandC
	if ch.AtTemperature && !ch.TimerStarted {
		ch.TimerStarted = true
		ch.lastTimerTick = now
		return EventTempReached, true
	}
	return 0, false
}

// TickTimer advances the countdown. It is a no-op unless the chamber is
// active with a started timer and a nonzero cook time; at most one minute is
// consumed per call, and the 1→0 transition reports EventComplete exactly
// once.
func (ch *Chamber) TickTimer(now time.Time) (EventKind, bool) {
	if !ch.Active || !ch.TimerStarted || ch.TargetTimeMin == 0 {
		return 0, false
	}
	if now.Sub(ch.lastTimerTick) < minuteTick || ch.RemainingMin == 0 {
		return 0, false
	}
	ch.RemainingMin--
	ch.lastTimerTick = now
	if ch.RemainingMin == 0 {
		return EventComplete, true
	}
	return 0, false
}

// ArmForRun enrolls the chamber in a starting run. Only configured chambers
// (target at or above the minimum) become active; the countdown is reloaded
// from the configured cook time.
func (ch *Chamber) ArmForRun() {
	ch.Active = ch.TargetTempC >= MinTargetTempC
	ch.RemainingMin = ch.TargetTimeMin
	ch.TimerStarted = false
	ch.AtTemperature = false
}

// Disarm withdraws the chamber from the run, keeping its configured targets.
func (ch *Chamber) Disarm() {
	ch.Active = false
	ch.AtTemperature = false
	ch.TimerStarted = false
}

// HeaterDemand reports whether the heater relay should be on: active,
// configured, holding a valid reading and still below target. A faulted
// sensor always reads as no demand.
func (ch *Chamber) HeaterDemand() bool {
	return ch.Active &&
		ch.TargetTempC >= MinTargetTempC &&
		ch.CurrentTempC != FaultReading &&
		ch.CurrentTempC < float64(ch.TargetTempC)
}

// Indicator is the per-chamber panel light projection.
type Indicator int

const (
	IndicatorOff Indicator = iota
	IndicatorHeating
	IndicatorReady
)

func (i Indicator) String() string {
	switch i {
	case IndicatorHeating:
		return "HEATING"
	case IndicatorReady:
		return "READY"
	default:
		return "OFF"
	}
}

// Indicator projects the panel light from the active/at-temperature pair.
func (ch *Chamber) Indicator() Indicator {
	switch {
	case !ch.Active:
		return IndicatorOff
	case ch.AtTemperature:
		return IndicatorReady
	default:
		return IndicatorHeating
	}
}
