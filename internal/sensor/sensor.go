// Package sensor provides the temperature probe backends for the cooking
// chambers: an in-process simulator and a NATS-fed remote probe cache.
package sensor

import (
	"context"
	"errors"
)

var (
	// ErrNoReading means the backend has not produced a value for the
	// chamber yet.
	ErrNoReading = errors.New("no probe reading")

	// ErrStaleReading means the last value is older than the configured
	// freshness window.
	ErrStaleReading = errors.New("stale probe reading")

	// ErrUnknownChamber means the chamber index is out of range.
	ErrUnknownChamber = errors.New("unknown chamber")
)

// Reader reports the latest water temperature of one chamber in °C.
// Chamber indexes are 0-based. Implementations must be safe for concurrent
// use.
type Reader interface {
	Read(ctx context.Context, chamber int) (float64, error)
}
