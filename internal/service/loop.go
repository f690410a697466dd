package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ChristiaanHPutter/Skripsie/internal/cooker"
	"github.com/ChristiaanHPutter/Skripsie/internal/logger"
	"github.com/ChristiaanHPutter/Skripsie/internal/models"
	"github.com/ChristiaanHPutter/Skripsie/internal/protocol"
	"github.com/ChristiaanHPutter/Skripsie/internal/repository"
	"github.com/ChristiaanHPutter/Skripsie/internal/sensor"
)

var (
	// ErrInvalidButton rejects panel button indexes outside 0..4.
	ErrInvalidButton = errors.New("invalid button index")

	// ErrInputBacklog means presses arrive faster than the loop drains them.
	ErrInputBacklog = errors.New("button backlog full")
)

// Outputs receives heater drive and panel light updates. The loop pushes a
// chamber only when its pair changed since the last push.
type Outputs interface {
	Apply(chamber int, heaterOn bool, indicator cooker.Indicator)
}

// Display renders the externally visible cooker snapshot. The loop pushes a
// frame only when some field changed, never on a quiet tick.
type Display interface {
	Show(st models.CookerState)
}

// LinkSender carries one outbound protocol line to the companion session,
// if any is attached.
type LinkSender interface {
	Send(line string)
}

// LoopConfig tunes the control loop cadences. Zero fields fall back to the
// defaults below.
type LoopConfig struct {
	SensorPoll     time.Duration // gap between probe sweeps
	InputQuiet     time.Duration // panel must be idle this long before a sweep
	StatusInterval time.Duration // STATUS cadence while a companion is linked
}

const (
	defaultSensorPoll     = 10 * time.Second
	defaultInputQuiet     = 5 * time.Second
	defaultStatusInterval = time.Second

	buttonBacklog = 8
)

// Loop owns the cooker controller and is the only goroutine that mutates it.
// Operator presses, remote commands and link state changes are handed over
// through the inbox and applied once per tick, in input order before sensor
// work.
type Loop struct {
	log     *logger.Logger
	events  repository.EventRepo
	sensor  sensor.Reader
	out     Outputs
	display Display
	link    LinkSender

	sensorPoll     time.Duration
	inputQuiet     time.Duration
	statusInterval time.Duration

	// now is swapped by tests to drive the loop on a manual clock.
	now func() time.Time

	buttons chan int

	inMu          sync.Mutex
	pendingCmd    string
	hasCmd        bool
	linkConnected bool
	statusNow     bool

	ctrl        *cooker.Controller
	lastInput   time.Time
	lastPoll    time.Time
	lastStatus  time.Time
	lastOutputs [cooker.NumChambers]chamberOutput

	snapMu   sync.RWMutex
	snapshot models.CookerState
}

type chamberOutput struct {
	heaterOn  bool
	indicator cooker.Indicator
	pushed    bool
}

// NewLoop wires the control loop. out, display and link may be nil; events
// and rd are required.
func NewLoop(cfg LoopConfig, rd sensor.Reader, out Outputs, display Display, link LinkSender, events repository.EventRepo, log *logger.Logger) *Loop {
	if log == nil {
		log = logger.Discard()
	}
	if out == nil {
		out = noopOutputs{}
	}
	if display == nil {
		display = noopDisplay{}
	}
	if link == nil {
		link = noopLink{}
	}
	l := &Loop{
		log:            log,
		events:         events,
		sensor:         rd,
		out:            out,
		display:        display,
		link:           link,
		sensorPoll:     cfg.SensorPoll,
		inputQuiet:     cfg.InputQuiet,
		statusInterval: cfg.StatusInterval,
		now:            time.Now,
		buttons:        make(chan int, buttonBacklog),
		ctrl:           cooker.NewController(),
	}
	if l.sensorPoll <= 0 {
		l.sensorPoll = defaultSensorPoll
	}
	if l.inputQuiet <= 0 {
		l.inputQuiet = defaultInputQuiet
	}
	if l.statusInterval <= 0 {
		l.statusInterval = defaultStatusInterval
	}
	l.refreshSnapshot(l.now())
	l.display.Show(l.Snapshot())
	return l
}

// Run ticks the loop at the given interval until ctx is canceled.
func (l *Loop) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			l.step(ctx, now)
		}
	}
}

// PressButton queues one panel press for the next tick.
func (l *Loop) PressButton(button int) error {
	if button < 0 || button >= cooker.NumButtons {
		return ErrInvalidButton
	}
	select {
	case l.buttons <- button:
		return nil
	default:
		return ErrInputBacklog
	}
}

// SubmitCommand hands one raw companion payload to the loop. The slot holds
// a single command; an unprocessed one is overwritten by the newer arrival.
func (l *Loop) SubmitCommand(payload string) {
	l.inMu.Lock()
	l.pendingCmd, l.hasCmd = payload, true
	l.inMu.Unlock()
}

// SetLinkConnected tracks whether a companion session is attached. A fresh
// attach gets a STATUS line on the next tick.
func (l *Loop) SetLinkConnected(connected bool) {
	l.inMu.Lock()
	l.linkConnected = connected
	if connected {
		l.statusNow = true
	}
	l.inMu.Unlock()
}

// Snapshot returns the latest published cooker state.
func (l *Loop) Snapshot() models.CookerState {
	l.snapMu.RLock()
	defer l.snapMu.RUnlock()
	return l.snapshot
}

// step advances the loop by one tick: operator input, then the remote
// command slot, then the gated probe sweep and timers, then outputs,
// snapshot and the link cadence.
func (l *Loop) step(ctx context.Context, now time.Time) {
	for drained := false; !drained; {
		select {
		case b := <-l.buttons:
			l.handleButton(ctx, b, now)
		default:
			drained = true
		}
	}

	l.inMu.Lock()
	cmd, has := l.pendingCmd, l.hasCmd
	l.hasCmd = false
	linked := l.linkConnected
	kick := l.statusNow
	l.statusNow = false
	l.inMu.Unlock()

	if has {
		l.handleCommand(ctx, cmd, now)
	}

	if l.shouldPoll(now) {
		l.pollProbes(ctx, now)
		l.lastPoll = now
	}

	for _, ev := range l.ctrl.TickTimers(now) {
		l.record(ctx, ev, now)
	}

	l.pushOutputs()
	if l.refreshSnapshot(now) {
		l.display.Show(l.Snapshot())
	}

	if linked && (kick || l.lastStatus.IsZero() || now.Sub(l.lastStatus) >= l.statusInterval) {
		l.link.Send(protocol.FormatStatus(l.Snapshot()))
		l.lastStatus = now
	}
}

func (l *Loop) handleButton(ctx context.Context, button int, now time.Time) {
	l.lastInput = now
	for _, ev := range l.ctrl.PressButton(button) {
		l.record(ctx, ev, now)
	}
}

// handleCommand applies one companion payload. Unknown commands are dropped
// without a reply; a recognized SET is always acknowledged, even when every
// segment was unusable.
func (l *Loop) handleCommand(ctx context.Context, payload string, now time.Time) {
	cmd, err := protocol.ParseCommand(payload)
	if err != nil {
		l.log.Debugw("dropping companion payload", "error", err)
		return
	}
	for _, t := range cmd.Targets {
		l.ctrl.SetChamberTargets(t.Chamber, t.TargetTempC, t.TargetTimeMin)
	}
	if len(cmd.Targets) > 0 {
		l.journal(ctx, models.CookEvent{
			OccurredAt:  now.UTC(),
			Type:        models.EventTypeTargetsSet,
			Description: fmt.Sprintf("Companion set targets for %d chamber(s)", len(cmd.Targets)),
			Metadata:    map[string]any{"targets": cmd.Targets},
		})
	}
	l.link.Send(protocol.Ack())
}

// shouldPoll gates the probe sweep: enough time since the last sweep, and
// the panel quiet long enough that a reading cannot race a mid-adjustment.
func (l *Loop) shouldPoll(now time.Time) bool {
	return now.Sub(l.lastPoll) >= l.sensorPoll && now.Sub(l.lastInput) > l.inputQuiet
}

// pollProbes sweeps every chamber. A failed read stores the fault value so
// the staleness is visible downstream instead of freezing the old reading.
func (l *Loop) pollProbes(ctx context.Context, now time.Time) {
	for i := 0; i < cooker.NumChambers; i++ {
		value, err := l.sensor.Read(ctx, i)
		if err != nil {
			l.log.Debugw("probe read failed", "chamber", i+1, "error", err)
			value = cooker.FaultReading
		}
		if ev, ok := l.ctrl.ApplyReading(i, value, now); ok {
			l.record(ctx, ev, now)
		}
	}
}

// record journals one control event and mirrors it onto the link.
func (l *Loop) record(ctx context.Context, ev cooker.Event, now time.Time) {
	e := models.CookEvent{
		OccurredAt:  now.UTC(),
		Type:        ev.Kind.String(),
		Description: describe(ev),
	}
	if ev.Chamber != cooker.NoChamber {
		e.Chamber = ev.Chamber + 1
	}
	l.journal(ctx, e)
	l.link.Send(protocol.FormatEvent(ev))
}

func describe(ev cooker.Event) string {
	switch ev.Kind {
	case cooker.EventStarted:
		return "Cook run started"
	case cooker.EventStopped:
		return "Cook run stopped"
	case cooker.EventTempReached:
		return fmt.Sprintf("Chamber %d reached target temperature", ev.Chamber+1)
	case cooker.EventComplete:
		return fmt.Sprintf("Chamber %d cook time elapsed", ev.Chamber+1)
	default:
		return ev.Kind.String()
	}
}

func (l *Loop) journal(ctx context.Context, e models.CookEvent) {
	if err := l.events.Append(ctx, e); err != nil {
		l.log.Errorw("journal append failed", "type", e.Type, "error", err)
	}
}

// pushOutputs forwards heater and indicator pairs that changed since the
// previous tick, including the very first computation.
func (l *Loop) pushOutputs() {
	for i := 0; i < cooker.NumChambers; i++ {
		heaterOn, ind := l.ctrl.ChamberOutputs(i)
		cur := chamberOutput{heaterOn: heaterOn, indicator: ind, pushed: true}
		if l.lastOutputs[i] != cur {
			l.out.Apply(i, heaterOn, ind)
			l.lastOutputs[i] = cur
		}
	}
}

// refreshSnapshot republishes the state when anything besides the timestamp
// moved. UpdatedAt marks the last real change.
func (l *Loop) refreshSnapshot(now time.Time) bool {
	next := l.buildSnapshot()
	l.snapMu.Lock()
	defer l.snapMu.Unlock()
	if sameSnapshot(l.snapshot, next) {
		return false
	}
	next.UpdatedAt = now.UTC()
	l.snapshot = next
	return true
}

func (l *Loop) buildSnapshot() models.CookerState {
	st := models.CookerState{
		State:           l.ctrl.State().String(),
		SettingMode:     l.ctrl.SettingMode().String(),
		SelectedChamber: l.ctrl.SelectedChamber(),
	}
	for i := 0; i < cooker.NumChambers; i++ {
		ch := l.ctrl.ChamberState(i)
		heaterOn, _ := l.ctrl.ChamberOutputs(i)
		st.Chambers[i] = models.ChamberStatus{
			TargetTempC:   ch.TargetTempC,
			CurrentTempC:  ch.CurrentTempC,
			TargetTimeMin: ch.TargetTimeMin,
			RemainingMin:  ch.RemainingMin,
			Active:        ch.Active,
			AtTemperature: ch.AtTemperature,
			TimerStarted:  ch.TimerStarted,
			HeaterOn:      heaterOn,
		}
	}
	return st
}

// sameSnapshot compares two snapshots ignoring the change timestamp.
func sameSnapshot(a, b models.CookerState) bool {
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	return a == b
}

type noopOutputs struct{}

func (noopOutputs) Apply(int, bool, cooker.Indicator) {}

type noopDisplay struct{}

func (noopDisplay) Show(models.CookerState) {}

type noopLink struct{}

func (noopLink) Send(string) {}
