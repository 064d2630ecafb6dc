package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/trailkeeper/trailkeeper/internal/history"
	"github.com/trailkeeper/trailkeeper/internal/identity"
	"github.com/trailkeeper/trailkeeper/internal/logger"
)

// ErrNotStarted is returned when the identity is needed before Start succeeded.
var ErrNotStarted = errors.New("tracker not started")

// IdentityResolver resolves the device identity.
type IdentityResolver interface {
	Resolve(ctx context.Context) (identity.Identity, error)
}

// TrailPoint is a recorded entry with its display weight. Weight grows from
// the oldest entry to the newest and never reaches 1.
type TrailPoint struct {
	history.Entry
	Weight float64 `json:"weight"`
}

// Trail is the device's recent location history, oldest first.
type Trail struct {
	DeviceID string       `json:"device_id"`
	Capacity int          `json:"capacity"`
	Entries  []TrailPoint `json:"entries"`
}

// Tracker binds the device identity to its trail of readings.
type Tracker struct {
	resolver IdentityResolver
	trail    *history.Buffer
	metrics  *Metrics
	log      *zerolog.Logger

	mu       sync.RWMutex
	identity *identity.Identity
}

func New(resolver IdentityResolver, trail *history.Buffer, metrics *Metrics, log *zerolog.Logger) *Tracker {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Tracker{
		resolver: resolver,
		trail:    trail,
		metrics:  metrics,
		log:      log,
	}
}

// Start resolves the device identity. It must succeed before the tracker is
// used; an unavailable identity is returned as is.
func (t *Tracker) Start(ctx context.Context) error {
	id, err := t.resolver.Resolve(ctx)
	if err != nil {
		logger.LogAuditEvent(logger.AuditIdentityFailed, "", "", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("resolve device identity: %w", err)
	}

	t.mu.Lock()
	t.identity = &id
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.observeIdentity(string(id.Source))
		t.metrics.observeSize(t.trail.Size())
	}
	logger.LogAuditEvent(logger.AuditIdentityResolved, id.ID, "", map[string]interface{}{
		"source": string(id.Source),
	})
	t.log.Info().Str("device_id", id.ID).Str("source", string(id.Source)).Msg("Device identity resolved")

	return nil
}

// Identity returns the resolved identity, or false before Start succeeded.
func (t *Tracker) Identity() (identity.Identity, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.identity == nil {
		return identity.Identity{}, false
	}
	return *t.identity, true
}

func (t *Tracker) DeviceID() (string, bool) {
	id, ok := t.Identity()
	return id.ID, ok
}

func (t *Tracker) TrailSize() int {
	return t.trail.Size()
}

// Record appends a reading to the trail, evicting the oldest one when full.
func (t *Tracker) Record(e history.Entry) {
	t.trail.Add(e)
	if t.metrics != nil {
		t.metrics.observeReading(t.trail.Size())
	}
	t.log.Debug().
		Float64("latitude", e.Latitude).
		Float64("longitude", e.Longitude).
		Time("time", e.Time).
		Msg("Reading recorded")
}

// Reject counts a reading that failed validation.
func (t *Tracker) Reject(sourceIP, reason string) {
	if t.metrics != nil {
		t.metrics.observeRejected()
	}
	deviceID, _ := t.DeviceID()
	logger.LogAuditEvent(logger.AuditReadingRejected, deviceID, sourceIP, map[string]interface{}{
		"reason": reason,
	})
}

// Trail returns a copy of the trail with display weights.
func (t *Tracker) Trail() Trail {
	entries := t.trail.All()
	deviceID, _ := t.DeviceID()

	points := make([]TrailPoint, len(entries))
	for i, e := range entries {
		points[i] = TrailPoint{
			Entry:  e,
			Weight: float64(i+1) / float64(len(entries)+1),
		}
	}

	return Trail{
		DeviceID: deviceID,
		Capacity: t.trail.Capacity(),
		Entries:  points,
	}
}

// Restore reloads entries from a snapshot taken for the same device. It
// returns the number of snapshot entries the trail kept, which is at most
// its capacity.
func (t *Tracker) Restore(snap *Snapshot) (int, error) {
	if snap == nil {
		return 0, nil
	}
	deviceID, ok := t.DeviceID()
	if !ok {
		return 0, ErrNotStarted
	}
	if snap.DeviceID != deviceID {
		t.log.Warn().
			Str("snapshot_device_id", snap.DeviceID).
			Msg("Ignoring trail snapshot taken for another device")
		return 0, nil
	}

	for _, p := range snap.Entries {
		t.trail.Add(p.Entry)
	}
	if t.metrics != nil {
		t.metrics.observeSize(t.trail.Size())
	}
	return min(len(snap.Entries), t.trail.Capacity()), nil
}
