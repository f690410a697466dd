package cooker

import "time"

// OperatingState is the controller's global mode.
type OperatingState int

const (
	Idle OperatingState = iota
	Setting
	Running
	// Paused is declared for forward compatibility; no transition enters it.
	Paused
)

func (s OperatingState) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Setting:
		return "SETTING"
	case Running:
		return "RUNNING"
	case Paused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

// SettingMode selects which chamber value the plus/minus buttons adjust.
type SettingMode int

const (
	SettingTemperature SettingMode = iota
	SettingTime
)

func (m SettingMode) String() string {
	if m == SettingTime {
		return "TIME"
	}
	return "TEMPERATURE"
}

// Controller owns the three chambers and the operating state machine. It is
// not safe for concurrent use; the scheduler loop is its single caller.
type Controller struct {
	state       OperatingState
	settingMode SettingMode
	selected    int
	chambers    [NumChambers]Chamber
}

// NewController returns a controller in Idle with all chambers zeroed and no
// valid readings.
func NewController() *Controller {
	c := &Controller{}
	for i := range c.chambers {
		c.chambers[i] = NewChamber()
	}
	return c
}

func (c *Controller) State() OperatingState    { return c.state }
func (c *Controller) SettingMode() SettingMode { return c.settingMode }
func (c *Controller) SelectedChamber() int     { return c.selected }

// ChamberState returns a copy of one chamber's state.
func (c *Controller) ChamberState(i int) Chamber { return c.chambers[i] }

// SelectNextChamber advances the selection and enters Setting. Ignored while
// Running so a run cannot be reconfigured from the panel.
func (c *Controller) SelectNextChamber() {
	if c.state == Running {
		return
	}
	c.selected = (c.selected + 1) % NumChambers
	c.state = Setting
}

// ToggleSettingMode flips between temperature and time adjustment. Only
// meaningful while Setting.
func (c *Controller) ToggleSettingMode() {
	if c.state != Setting {
		return
	}
	if c.settingMode == SettingTemperature {
		c.settingMode = SettingTime
	} else {
		c.settingMode = SettingTemperature
	}
}

// IncrementValue bumps the selected chamber's temperature or time up one
// step, depending on the setting mode. Only meaningful while Setting.
func (c *Controller) IncrementValue() { c.adjustSelected(1) }

// DecrementValue bumps the selected chamber's temperature or time down one
// step, depending on the setting mode. Only meaningful while Setting.
func (c *Controller) DecrementValue() { c.adjustSelected(-1) }

// Panel adjustment step sizes.
const (
	tempStepC   = 1
	timeStepMin = 5
)

func (c *Controller) adjustSelected(direction int) {
	if c.state != Setting {
		return
	}
	ch := &c.chambers[c.selected]
	if c.settingMode == SettingTemperature {
		ch.AdjustTargetTemp(direction * tempStepC)
	} else {
		ch.AdjustTargetTime(direction * timeStepMin)
	}
}

// ToggleRun starts a run from any non-Running state, arming every chamber,
// or stops the current run, disarming every chamber. Starting with zero
// configured chambers is permitted; the run simply has no active chambers.
func (c *Controller) ToggleRun() []Event {
	if c.state == Running {
		for i := range c.chambers {
			c.chambers[i].Disarm()
		}
		c.state = Idle
		return []Event{{Kind: EventStopped, Chamber: NoChamber}}
	}
	for i := range c.chambers {
		c.chambers[i].ArmForRun()
	}
	c.state = Running
	return []Event{{Kind: EventStarted, Chamber: NoChamber}}
}

// SetChamberTargets overwrites one chamber's targets verbatim (remote SET
// path, no clamping). Out-of-range chamber indices are ignored.
func (c *Controller) SetChamberTargets(i, tempC, timeMin int) {
	if i < 0 || i >= NumChambers {
		return
	}
	c.chambers[i].SetTargets(tempC, timeMin)
}

// ApplyReading feeds one sensor sample into a chamber and stamps any
// resulting notification with the chamber index.
func (c *Controller) ApplyReading(i int, value float64, now time.Time) (Event, bool) {
	if i < 0 || i >= NumChambers {
		return Event{}, false
	}
	kind, ok := c.chambers[i].ApplyReading(value, now)
	if !ok {
		return Event{}, false
	}
	return Event{Kind: kind, Chamber: i}, true
}

// TickTimers advances every chamber's countdown and collects completion
// notifications.
func (c *Controller) TickTimers(now time.Time) []Event {
	var events []Event
	for i := range c.chambers {
		if kind, ok := c.chambers[i].TickTimer(now); ok {
			events = append(events, Event{Kind: kind, Chamber: i})
		}
	}
	return events
}

// ChamberOutputs projects one chamber's heater relay demand and panel
// indicator.
func (c *Controller) ChamberOutputs(i int) (heaterOn bool, indicator Indicator) {
	ch := &c.chambers[i]
	return ch.HeaterDemand(), ch.Indicator()
}
