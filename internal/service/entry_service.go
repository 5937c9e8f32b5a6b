package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"parkgate/internal/device"
	"parkgate/internal/domain/parking"
	"parkgate/internal/repository"
	"parkgate/internal/vision"
)

// EntryController watches the entry lane: every stabilized plate becomes
// a new unpaid ledger visit, a snapshot artifact and a gate pulse. The
// gate pulse is deliberately fire-and-forget; only the payment path uses
// the acknowledged handshake.
type EntryController struct {
	scanner   *Scanner
	ledger    repository.LedgerStore
	link      *device.Link
	snapshots *vision.SnapshotStore

	gateDwell    time.Duration
	scanInterval time.Duration
	log          zerolog.Logger
}

func NewEntryController(
	scanner *Scanner,
	ledger repository.LedgerStore,
	link *device.Link,
	snapshots *vision.SnapshotStore,
	gateDwell time.Duration,
	scanInterval time.Duration,
	log zerolog.Logger,
) *EntryController {
	return &EntryController{
		scanner:      scanner,
		ledger:       ledger,
		link:         link,
		snapshots:    snapshots,
		gateDwell:    gateDwell,
		scanInterval: scanInterval,
		log:          log,
	}
}

// Run is the lane loop. Per-frame errors are contained to their
// iteration; the loop exits only on context cancellation, after letting
// any in-flight gate cycle finish.
func (c *EntryController) Run(ctx context.Context) {
	if !c.link.Available() {
		c.log.Warn().Msg("entry device not attached, running in no-gate mode")
	}
	c.log.Info().Msg("entry controller ready")

	for ctx.Err() == nil {
		detection, err := c.scanner.Scan(time.Now())
		if err != nil {
			c.log.Error().Err(err).Msg("entry scan failed")
		} else if detection != nil {
			if err := c.admit(ctx, detection); err != nil {
				c.log.Error().Err(err).Str("plate", detection.Plate).Msg("entry admission failed")
			}
		}
		sleep(ctx, c.scanInterval)
	}
	c.log.Info().Msg("entry controller stopped")
}

func (c *EntryController) admit(ctx context.Context, detection *Detection) error {
	correlationID := uuid.NewString()
	log := c.log.With().
		Str("plate", detection.Plate).
		Str("correlation_id", correlationID).
		Logger()

	snapshotPath := ""
	if c.snapshots != nil {
		path, err := c.snapshots.Save(detection.Plate, detection.At, detection.Image)
		if err != nil {
			// The visit is still billable without its snapshot.
			log.Warn().Err(err).Msg("failed to archive plate snapshot")
		} else {
			snapshotPath = path
		}
	}

	event := &parking.Event{
		Plate:     detection.Plate,
		Paid:      false,
		EntryTime: detection.At,
		RawDetection: map[string]interface{}{
			"correlation_id": correlationID,
			"candidates":     detection.Window,
			"snapshot":       snapshotPath,
		},
	}
	if err := c.ledger.InsertEntry(ctx, event); err != nil {
		return fmt.Errorf("record entry: %w", err)
	}
	log.Info().Int64("event_id", event.ID).Msg("vehicle admitted")

	c.cycleGate(log)
	return nil
}

// cycleGate pulses the barrier open for the configured dwell. No
// acknowledgement is expected from the entry actuator.
func (c *EntryController) cycleGate(log zerolog.Logger) {
	if err := c.link.Send(device.CmdOpenGate); err != nil {
		if !errors.Is(err, device.ErrUnavailable) {
			log.Error().Err(err).Msg("failed to open entry gate")
		}
		return
	}
	log.Info().Dur("dwell", c.gateDwell).Msg("entry gate open")
	time.Sleep(c.gateDwell)
	if err := c.link.Send(device.CmdCloseGate); err != nil {
		log.Error().Err(err).Msg("failed to close entry gate")
		return
	}
	log.Info().Msg("entry gate closed")
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
// Used only between iterations; gate dwells and handshakes run to their
// own completion.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
