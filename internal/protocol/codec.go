// Package protocol implements the text line protocol spoken with the remote
// companion app: inbound SET commands, outbound ACK, STATUS and EVENT lines.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ChristiaanHPutter/Skripsie/internal/cooker"
	"github.com/ChristiaanHPutter/Skripsie/internal/models"
)

var (
	// ErrUnknownCommand marks inbound payloads with an unrecognized prefix.
	// They are dropped without an ACK.
	ErrUnknownCommand = errors.New("unknown remote command")

	// ErrMalformedStatus marks STATUS lines that do not match the wire layout.
	ErrMalformedStatus = errors.New("malformed status line")
)

const (
	setPrefix   = "SET:"
	statusSplit = "|STATE:"
)

// ChamberTargets is one parsed SET segment. Values are carried verbatim;
// the panel clamp ranges do not apply to the remote path.
type ChamberTargets struct {
	Chamber       int // 0-based
	TargetTempC   int
	TargetTimeMin int
}

// Command is a parsed inbound payload. A recognized SET always yields a
// Command, even when every segment was malformed; the reply contract is an
// ACK per recognized command, not per segment.
type Command struct {
	Targets []ChamberTargets
}

// ParseCommand parses one inbound payload. SET payloads carry comma-separated
// segments of the form C<index>:<temp>:<time>; segments that do not parse are
// skipped without aborting the rest. Anything that is not a SET is reported
// as ErrUnknownCommand.
func ParseCommand(payload string) (Command, error) {
	line := strings.TrimRight(payload, "\r\n")
	if !strings.HasPrefix(line, setPrefix) {
		return Command{}, ErrUnknownCommand
	}
	var cmd Command
	for _, seg := range strings.Split(line[len(setPrefix):], ",") {
		if t, ok := parseSegment(seg); ok {
			cmd.Targets = append(cmd.Targets, t)
		}
	}
	return cmd, nil
}

// parseSegment accepts exactly C<1..3>:<int>:<int>, splitting on the first
// two colons.
func parseSegment(seg string) (ChamberTargets, bool) {
	parts := strings.SplitN(seg, ":", 3)
	if len(parts) != 3 {
		return ChamberTargets{}, false
	}
	idx, ok := parseChamberTag(parts[0])
	if !ok {
		return ChamberTargets{}, false
	}
	tempC, err := strconv.Atoi(parts[1])
	if err != nil {
		return ChamberTargets{}, false
	}
	timeMin, err := strconv.Atoi(parts[2])
	if err != nil {
		return ChamberTargets{}, false
	}
	return ChamberTargets{Chamber: idx - 1, TargetTempC: tempC, TargetTimeMin: timeMin}, true
}

// parseChamberTag accepts C<n> with n in [1, NumChambers], returning n.
func parseChamberTag(s string) (int, bool) {
	if len(s) < 2 || s[0] != 'C' {
		return 0, false
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 1 || n > cooker.NumChambers {
		return 0, false
	}
	return n, true
}

// Ack is the reply sent after any recognized SET command.
func Ack() string { return "ACK\n" }

// FormatStatus serializes a snapshot into one STATUS line:
// C1:<cur>:<target>:<remaining>:<at>:<started>,C2:…,C3:…|STATE:<NAME>\n
// with the current temperature at one decimal and the flags as 1/0.
func FormatStatus(st models.CookerState) string {
	var b strings.Builder
	for i, ch := range st.Chambers {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "C%d:%.1f:%d:%d:%d:%d",
			i+1, ch.CurrentTempC, ch.TargetTempC, ch.RemainingMin,
			bit(ch.AtTemperature), bit(ch.TimerStarted))
	}
	b.WriteString(statusSplit)
	b.WriteString(st.State)
	b.WriteByte('\n')
	return b.String()
}

// ParseStatus is the companion-side inverse of FormatStatus. The current
// temperature comes back at one-decimal precision; every other field is
// exact.
func ParseStatus(line string) (models.CookerState, error) {
	var st models.CookerState

	body, state, found := strings.Cut(strings.TrimRight(line, "\r\n"), statusSplit)
	if !found || state == "" {
		return st, ErrMalformedStatus
	}
	records := strings.Split(body, ",")
	if len(records) != cooker.NumChambers {
		return st, fmt.Errorf("%w: want %d chamber records, got %d", ErrMalformedStatus, cooker.NumChambers, len(records))
	}
	for i, rec := range records {
		fields := strings.Split(rec, ":")
		if len(fields) != 6 || fields[0] != fmt.Sprintf("C%d", i+1) {
			return st, fmt.Errorf("%w: bad record %q", ErrMalformedStatus, rec)
		}
		cur, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return st, fmt.Errorf("%w: bad record %q", ErrMalformedStatus, rec)
		}
		target, err := strconv.Atoi(fields[2])
		if err != nil {
			return st, fmt.Errorf("%w: bad record %q", ErrMalformedStatus, rec)
		}
		remaining, err := strconv.Atoi(fields[3])
		if err != nil {
			return st, fmt.Errorf("%w: bad record %q", ErrMalformedStatus, rec)
		}
		at, err := parseBit(fields[4])
		if err != nil {
			return st, fmt.Errorf("%w: bad record %q", ErrMalformedStatus, rec)
		}
		started, err := parseBit(fields[5])
		if err != nil {
			return st, fmt.Errorf("%w: bad record %q", ErrMalformedStatus, rec)
		}
		st.Chambers[i] = models.ChamberStatus{
			CurrentTempC:  cur,
			TargetTempC:   target,
			RemainingMin:  remaining,
			AtTemperature: at,
			TimerStarted:  started,
		}
	}
	st.State = state
	return st, nil
}

// FormatEvent serializes one control notification:
// EVENT:<NAME> for controller-wide events, EVENT:<NAME>:C<n> for per-chamber
// ones, newline-terminated.
func FormatEvent(ev cooker.Event) string {
	if ev.Chamber == cooker.NoChamber {
		return fmt.Sprintf("EVENT:%s\n", ev.Kind)
	}
	return fmt.Sprintf("EVENT:%s:C%d\n", ev.Kind, ev.Chamber+1)
}

func bit(v bool) int {
	if v {
		return 1
	}
	return 0
}

func parseBit(s string) (bool, error) {
	switch s {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, fmt.Errorf("not a flag bit: %q", s)
	}
}
