package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ChristiaanHPutter/Skripsie/internal/cooker"
	"github.com/ChristiaanHPutter/Skripsie/internal/logger"
	"github.com/ChristiaanHPutter/Skripsie/internal/models"
)

type memEventRepo struct {
	appendErr error
	events    []models.CookEvent
}

func (f *memEventRepo) Append(_ context.Context, e models.CookEvent) error {
	f.events = append(f.events, e)
	return f.appendErr
}

func (f *memEventRepo) List(_ context.Context, from, to time.Time, typ string, chamber int) ([]models.CookEvent, error) {
	var out []models.CookEvent
	for _, e := range f.events {
		if !from.IsZero() && e.OccurredAt.Before(from) {
			continue
		}
		if !to.IsZero() && e.OccurredAt.After(to) {
			continue
		}
		if typ != "" && e.Type != typ {
			continue
		}
		if chamber > 0 && e.Chamber != chamber {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *memEventRepo) types() []string {
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type scriptedReader struct {
	values [cooker.NumChambers]float64
	errs   [cooker.NumChambers]error
}

func (r *scriptedReader) Read(_ context.Context, chamber int) (float64, error) {
	if err := r.errs[chamber]; err != nil {
		return 0, err
	}
	return r.values[chamber], nil
}

type recordingLink struct {
	lines []string
}

func (l *recordingLink) Send(line string) { l.lines = append(l.lines, line) }

func (l *recordingLink) drain() []string {
	out := l.lines
	l.lines = nil
	return out
}

type outputCall struct {
	chamber   int
	heaterOn  bool
	indicator cooker.Indicator
}

type recordingOutputs struct {
	calls []outputCall
}

func (o *recordingOutputs) Apply(chamber int, heaterOn bool, indicator cooker.Indicator) {
	o.calls = append(o.calls, outputCall{chamber: chamber, heaterOn: heaterOn, indicator: indicator})
}

type recordingDisplay struct {
	frames []models.CookerState
}

func (d *recordingDisplay) Show(st models.CookerState) { d.frames = append(d.frames, st) }

// loopHarness drives the loop tick by tick on a manual clock.
type loopHarness struct {
	loop   *Loop
	repo   *memEventRepo
	reader *scriptedReader
	link   *recordingLink
	outs   *recordingOutputs
	disp   *recordingDisplay
	now    time.Time
}

func newLoopHarness(t *testing.T) *loopHarness {
	t.Helper()
	h := &loopHarness{
		repo:   &memEventRepo{},
		reader: &scriptedReader{},
		link:   &recordingLink{},
		outs:   &recordingOutputs{},
		disp:   &recordingDisplay{},
		now:    time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
	for i := range h.reader.values {
		h.reader.values[i] = 21.0
	}
	h.loop = NewLoop(LoopConfig{}, h.reader, h.outs, h.disp, h.link, h.repo, logger.Discard())
	h.loop.now = func() time.Time { return h.now }
	return h
}

func (h *loopHarness) step() { h.loop.step(context.Background(), h.now) }

func (h *loopHarness) advance(d time.Duration) { h.now = h.now.Add(d) }

func (h *loopHarness) press(t *testing.T, button int) {
	t.Helper()
	if err := h.loop.PressButton(button); err != nil {
		t.Fatalf("PressButton(%d): %v", button, err)
	}
}

func assertTypes(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("journal types = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("journal types = %v, want %v", got, want)
		}
	}
}

func TestLoop_EndToEndCookRun(t *testing.T) {
	t.Parallel()

	h := newLoopHarness(t)
	h.loop.SetLinkConnected(true)

	// Companion configures chamber 1 for 65 °C over 60 minutes.
	h.loop.SubmitCommand("SET:C1:65:60")
	h.step()

	lines := h.link.drain()
	if len(lines) != 2 || lines[0] != "ACK\n" {
		t.Fatalf("expected ACK then STATUS, got %q", lines)
	}
	// The countdown slot stays 0 until the run arms the chamber.
	if want := "C1:21.0:65:0:0:0,C2:21.0:0:0:0:0,C3:21.0:0:0:0:0|STATE:IDLE\n"; lines[1] != want {
		t.Fatalf("STATUS = %q, want %q", lines[1], want)
	}

	// Operator starts the run.
	h.advance(250 * time.Millisecond)
	h.press(t, cooker.ButtonRun)
	h.step()

	lines = h.link.drain()
	if len(lines) != 1 || lines[0] != "EVENT:STARTED\n" {
		t.Fatalf("expected the start notification, got %q", lines)
	}
	st := h.loop.Snapshot()
	if st.State != "RUNNING" || !st.Chambers[0].Active || st.Chambers[0].RemainingMin != 60 {
		t.Fatalf("unexpected snapshot after start: %+v", st)
	}
	if !st.Chambers[0].HeaterOn {
		t.Fatalf("cold chamber below target must heat: %+v", st.Chambers[0])
	}

	// Water reaches the band on the next probe sweep.
	h.reader.values[0] = 64.8
	h.advance(10 * time.Second)
	h.step()

	st = h.loop.Snapshot()
	if !st.Chambers[0].AtTemperature || !st.Chambers[0].TimerStarted {
		t.Fatalf("expected the latch after the sweep: %+v", st.Chambers[0])
	}
	foundEvent := false
	for _, line := range h.link.drain() {
		if line == "EVENT:TEMP_REACHED:C1\n" {
			foundEvent = true
		}
	}
	if !foundEvent {
		t.Fatalf("missing TEMP_REACHED notification")
	}

	// One decrement per minute at temperature; COMPLETE exactly when the
	// last minute elapses.
	for m := 0; m < 60; m++ {
		h.advance(time.Minute)
		h.step()
	}
	st = h.loop.Snapshot()
	if st.Chambers[0].RemainingMin != 0 {
		t.Fatalf("remaining = %d, want 0", st.Chambers[0].RemainingMin)
	}
	if st.State != "RUNNING" || !st.Chambers[0].Active {
		t.Fatalf("completion must not stop the run: %+v", st)
	}

	// Operator stops; targets survive for the next run.
	h.press(t, cooker.ButtonRun)
	h.advance(250 * time.Millisecond)
	h.step()

	st = h.loop.Snapshot()
	if st.State != "IDLE" || st.Chambers[0].Active {
		t.Fatalf("expected an idle cooker, got %+v", st)
	}
	if st.Chambers[0].TargetTempC != 65 || st.Chambers[0].TargetTimeMin != 60 {
		t.Fatalf("targets must survive the stop: %+v", st.Chambers[0])
	}

	assertTypes(t, h.repo.types(), []string{
		models.EventTypeTargetsSet,
		models.EventTypeStarted,
		models.EventTypeTempReached,
		models.EventTypeComplete,
		models.EventTypeStopped,
	})
	if h.repo.events[2].Chamber != 1 || h.repo.events[3].Chamber != 1 {
		t.Fatalf("per-chamber events must carry the chamber: %+v", h.repo.events)
	}
	if h.repo.events[1].Chamber != 0 || h.repo.events[4].Chamber != 0 {
		t.Fatalf("run events are controller-wide: %+v", h.repo.events)
	}
}

func TestLoop_AckEvenWhenEverySegmentIsMalformed(t *testing.T) {
	t.Parallel()

	h := newLoopHarness(t)
	h.loop.SubmitCommand("SET:C9:65:60,junk")
	h.step()

	lines := h.link.drain()
	if len(lines) != 1 || lines[0] != "ACK\n" {
		t.Fatalf("a recognized SET is always acknowledged, got %q", lines)
	}
	if len(h.repo.events) != 0 {
		t.Fatalf("nothing applied, nothing journaled: %+v", h.repo.events)
	}
	st := h.loop.Snapshot()
	for i, ch := range st.Chambers {
		if ch.TargetTempC != 0 || ch.TargetTimeMin != 0 {
			t.Fatalf("chamber %d targets changed: %+v", i+1, ch)
		}
	}
}

func TestLoop_UnknownCommandDroppedWithoutReply(t *testing.T) {
	t.Parallel()

	h := newLoopHarness(t)
	h.loop.SubmitCommand("REBOOT")
	h.step()

	if lines := h.link.drain(); len(lines) != 0 {
		t.Fatalf("unknown payloads get no reply, got %q", lines)
	}
	if len(h.repo.events) != 0 {
		t.Fatalf("unknown payloads are not journaled: %+v", h.repo.events)
	}
}

func TestLoop_CommandSlotKeepsNewestOnly(t *testing.T) {
	t.Parallel()

	h := newLoopHarness(t)
	h.loop.SubmitCommand("SET:C1:50:10")
	h.loop.SubmitCommand("SET:C2:70:20")
	h.step()

	lines := h.link.drain()
	if len(lines) != 1 || lines[0] != "ACK\n" {
		t.Fatalf("exactly one ack for the surviving command, got %q", lines)
	}
	st := h.loop.Snapshot()
	if st.Chambers[0].TargetTempC != 0 {
		t.Fatalf("overwritten command must not apply: %+v", st.Chambers[0])
	}
	if st.Chambers[1].TargetTempC != 70 || st.Chambers[1].TargetTimeMin != 20 {
		t.Fatalf("newest command must apply: %+v", st.Chambers[1])
	}
}

func TestLoop_RawRemoteTargetsBypassPanelClamps(t *testing.T) {
	t.Parallel()

	h := newLoopHarness(t)
	h.loop.SubmitCommand("SET:C3:999:480")
	h.step()

	st := h.loop.Snapshot()
	if st.Chambers[2].TargetTempC != 999 || st.Chambers[2].TargetTimeMin != 480 {
		t.Fatalf("remote targets are applied verbatim: %+v", st.Chambers[2])
	}
}

func TestLoop_QuietGuardDefersProbeSweep(t *testing.T) {
	t.Parallel()

	h := newLoopHarness(t)
	h.step() // initial sweep picks up ambient
	if st := h.loop.Snapshot(); st.Chambers[0].CurrentTempC != 21.0 {
		t.Fatalf("initial sweep missing: %+v", st.Chambers[0])
	}

	h.reader.values[0] = 50.0

	// The sweep is due, but the operator is on the panel.
	h.advance(10 * time.Second)
	h.press(t, cooker.ButtonSelect)
	h.step()
	if st := h.loop.Snapshot(); st.Chambers[0].CurrentTempC != 21.0 {
		t.Fatalf("sweep must wait for panel quiet: %+v", st.Chambers[0])
	}

	// Still inside the quiet window.
	h.advance(3 * time.Second)
	h.step()
	if st := h.loop.Snapshot(); st.Chambers[0].CurrentTempC != 21.0 {
		t.Fatalf("sweep ran inside the quiet window: %+v", st.Chambers[0])
	}

	// Quiet long enough; the deferred sweep runs.
	h.advance(3 * time.Second)
	h.step()
	if st := h.loop.Snapshot(); st.Chambers[0].CurrentTempC != 50.0 {
		t.Fatalf("deferred sweep missing: %+v", st.Chambers[0])
	}
}

func TestLoop_PressButtonValidationAndBacklog(t *testing.T) {
	t.Parallel()

	h := newLoopHarness(t)
	for _, idx := range []int{-1, cooker.NumButtons, 99} {
		if err := h.loop.PressButton(idx); !errors.Is(err, ErrInvalidButton) {
			t.Fatalf("PressButton(%d) err = %v, want ErrInvalidButton", idx, err)
		}
	}

	for i := 0; i < buttonBacklog; i++ {
		if err := h.loop.PressButton(cooker.ButtonPlus); err != nil {
			t.Fatalf("press %d rejected: %v", i, err)
		}
	}
	if err := h.loop.PressButton(cooker.ButtonPlus); !errors.Is(err, ErrInputBacklog) {
		t.Fatalf("expected ErrInputBacklog, got %v", err)
	}

	// The next tick drains the queue and frees the backlog.
	h.step()
	if err := h.loop.PressButton(cooker.ButtonPlus); err != nil {
		t.Fatalf("press after drain rejected: %v", err)
	}
}

func TestLoop_StatusCadenceAndConnectKick(t *testing.T) {
	t.Parallel()

	h := newLoopHarness(t)

	h.step()
	if lines := h.link.drain(); len(lines) != 0 {
		t.Fatalf("no session, no status, got %q", lines)
	}

	h.loop.SetLinkConnected(true)
	h.advance(250 * time.Millisecond)
	h.step()
	if lines := h.link.drain(); len(lines) != 1 || !strings.HasSuffix(lines[0], "|STATE:IDLE\n") {
		t.Fatalf("expected the connect status, got %q", lines)
	}

	// Inside the cadence window nothing is sent.
	h.advance(250 * time.Millisecond)
	h.step()
	if lines := h.link.drain(); len(lines) != 0 {
		t.Fatalf("cadence window violated, got %q", lines)
	}

	// One second after the last status the next one goes out.
	h.advance(750 * time.Millisecond)
	h.step()
	if lines := h.link.drain(); len(lines) != 1 {
		t.Fatalf("expected the cadence status, got %q", lines)
	}

	h.loop.SetLinkConnected(false)
	h.advance(5 * time.Second)
	h.step()
	if lines := h.link.drain(); len(lines) != 0 {
		t.Fatalf("status after disconnect, got %q", lines)
	}

	// A reconnect is served on the next tick regardless of the cadence.
	h.loop.SetLinkConnected(true)
	h.advance(100 * time.Millisecond)
	h.step()
	if lines := h.link.drain(); len(lines) != 1 {
		t.Fatalf("expected the reconnect status, got %q", lines)
	}
}

func TestLoop_OutputsPushedOnChangeOnly(t *testing.T) {
	t.Parallel()

	h := newLoopHarness(t)
	h.step()

	// First tick publishes the resting state of all chambers once.
	if len(h.outs.calls) != cooker.NumChambers {
		t.Fatalf("expected one initial push per chamber, got %+v", h.outs.calls)
	}
	for i, call := range h.outs.calls {
		if call.chamber != i || call.heaterOn || call.indicator != cooker.IndicatorOff {
			t.Fatalf("unexpected initial push: %+v", call)
		}
	}
	h.outs.calls = nil

	h.advance(250 * time.Millisecond)
	h.step()
	if len(h.outs.calls) != 0 {
		t.Fatalf("steady state must not re-push, got %+v", h.outs.calls)
	}

	// Arming a configured chamber flips its heater and light.
	h.loop.SubmitCommand("SET:C1:65:60")
	h.advance(250 * time.Millisecond)
	h.step()
	h.outs.calls = nil

	h.press(t, cooker.ButtonRun)
	h.advance(250 * time.Millisecond)
	h.step()
	if len(h.outs.calls) != 1 {
		t.Fatalf("only the armed chamber changed, got %+v", h.outs.calls)
	}
	if call := h.outs.calls[0]; call.chamber != 0 || !call.heaterOn || call.indicator != cooker.IndicatorHeating {
		t.Fatalf("unexpected push after arming: %+v", call)
	}
}

func TestLoop_DisplayPushedOnChangeOnly(t *testing.T) {
	t.Parallel()

	h := newLoopHarness(t)

	// Construction renders the resting frame once.
	if len(h.disp.frames) != 1 {
		t.Fatalf("expected one frame at construction, got %d", len(h.disp.frames))
	}
	if f := h.disp.frames[0]; f.State != "IDLE" || f.SelectedChamber != 0 {
		t.Fatalf("unexpected resting frame: %+v", f)
	}

	// The first tick sweeps the probes, so the readings redraw once; a quiet
	// tick after that must not.
	h.step()
	h.disp.frames = nil
	h.advance(250 * time.Millisecond)
	h.step()
	if len(h.disp.frames) != 0 {
		t.Fatalf("quiet tick redrew the panel: %d frames", len(h.disp.frames))
	}

	h.press(t, cooker.ButtonSelect)
	h.advance(250 * time.Millisecond)
	h.step()
	if len(h.disp.frames) != 1 {
		t.Fatalf("expected one frame after the press, got %d", len(h.disp.frames))
	}
	if f := h.disp.frames[0]; f.State != "SETTING" || f.SelectedChamber != 1 {
		t.Fatalf("unexpected frame after select: %+v", f)
	}
}

func TestLoop_ProbeFaultForcesHeaterOff(t *testing.T) {
	t.Parallel()

	h := newLoopHarness(t)
	h.loop.SubmitCommand("SET:C2:65:10")
	h.step()
	h.press(t, cooker.ButtonRun)
	h.advance(250 * time.Millisecond)
	h.step()

	if st := h.loop.Snapshot(); !st.Chambers[1].HeaterOn {
		t.Fatalf("cold armed chamber must heat: %+v", st.Chambers[1])
	}

	h.reader.errs[1] = errors.New("probe timeout")
	h.advance(10 * time.Second)
	h.step()

	st := h.loop.Snapshot()
	if st.Chambers[1].CurrentTempC != cooker.FaultReading {
		t.Fatalf("fault must surface as the sentinel, got %+v", st.Chambers[1])
	}
	if st.Chambers[1].HeaterOn {
		t.Fatalf("no trustworthy reading, no heat: %+v", st.Chambers[1])
	}
	if st.Chambers[1].AtTemperature {
		t.Fatalf("sentinel can never sit in the band: %+v", st.Chambers[1])
	}

	last := h.outs.calls[len(h.outs.calls)-1]
	if last.chamber != 1 || last.heaterOn {
		t.Fatalf("heater drop not pushed: %+v", last)
	}
}

func TestLoop_SnapshotTimestampMovesOnChangeOnly(t *testing.T) {
	t.Parallel()

	h := newLoopHarness(t)
	h.step() // ambient sweep is a change
	first := h.loop.Snapshot().UpdatedAt
	if !first.Equal(h.now) {
		t.Fatalf("UpdatedAt = %v, want %v", first, h.now)
	}

	h.advance(250 * time.Millisecond)
	h.step()
	if got := h.loop.Snapshot().UpdatedAt; !got.Equal(first) {
		t.Fatalf("timestamp moved without a change: %v", got)
	}

	h.loop.SubmitCommand("SET:C1:65:60")
	h.advance(250 * time.Millisecond)
	h.step()
	if got := h.loop.Snapshot().UpdatedAt; !got.Equal(h.now) {
		t.Fatalf("timestamp must follow the change: %v", got)
	}
}
