package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	nats "github.com/nats-io/nats.go"

	"github.com/ChristiaanHPutter/Skripsie/internal/cooker"
	"github.com/ChristiaanHPutter/Skripsie/internal/logger"
	"github.com/ChristiaanHPutter/Skripsie/internal/models"
)

// Remote serves probe values published by external probe heads on a NATS
// subject. The newest reading per chamber is cached, so Read never waits on
// the bus.
type Remote struct {
	sub        *nats.Subscription
	log        *logger.Logger
	staleAfter time.Duration
	now        func() time.Time

	mu       sync.RWMutex
	readings [cooker.NumChambers]remoteReading
}

type remoteReading struct {
	celsius    float64
	receivedAt time.Time
}

// NewRemote subscribes to subject on nc and starts caching readings.
// Values older than staleAfter are reported as errors; staleAfter <= 0
// disables the freshness check.
func NewRemote(nc *nats.Conn, subject string, staleAfter time.Duration, log *logger.Logger) (*Remote, error) {
	if log == nil {
		log = logger.Discard()
	}
	r := &Remote{log: log, staleAfter: staleAfter, now: time.Now}
	sub, err := nc.Subscribe(subject, r.handleUpdate)
	if err != nil {
		return nil, fmt.Errorf("subscribe %q: %w", subject, err)
	}
	r.sub = sub
	return r, nil
}

// handleUpdate caches one published reading. Payloads that do not decode or
// that name an unknown chamber are dropped.
func (r *Remote) handleUpdate(m *nats.Msg) {
	var reading models.ProbeReading
	if err := json.Unmarshal(m.Data, &reading); err != nil {
		r.log.Debugw("dropping unparseable probe update", "error", err)
		return
	}
	idx := reading.Chamber - 1
	if idx < 0 || idx >= cooker.NumChambers {
		r.log.Debugw("dropping probe update for unknown chamber", "chamber", reading.Chamber)
		return
	}
	r.mu.Lock()
	r.readings[idx] = remoteReading{celsius: reading.Celsius, receivedAt: r.now()}
	r.mu.Unlock()
}

// Read returns the cached value for the chamber.
func (r *Remote) Read(_ context.Context, chamber int) (float64, error) {
	if chamber < 0 || chamber >= cooker.NumChambers {
		return 0, ErrUnknownChamber
	}
	r.mu.RLock()
	rd := r.readings[chamber]
	r.mu.RUnlock()

	if rd.receivedAt.IsZero() {
		return 0, ErrNoReading
	}
	if r.staleAfter > 0 {
		if age := r.now().Sub(rd.receivedAt); age > r.staleAfter {
			return 0, fmt.Errorf("%w: chamber %d last updated %s ago", ErrStaleReading, chamber+1, age.Round(time.Second))
		}
	}
	return rd.celsius, nil
}

// Close drops the subscription. Safe to call on a Remote built without one.
func (r *Remote) Close() {
	if r.sub != nil {
		_ = r.sub.Unsubscribe()
	}
}
