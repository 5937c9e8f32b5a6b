package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"parkgate/internal/device"
	"parkgate/internal/domain/parking"
	"parkgate/internal/repository"
)

// ExitController watches the exit lane. A resolved plate is authorized
// only when the ledger holds a paid visit for it; anything else sounds
// the buzzer and leaves an incident record. The exit stabilizer carries
// no cooldown: repeated denial attempts must each be evaluated and
// logged.
type ExitController struct {
	scanner *Scanner
	ledger  repository.LedgerStore
	link    *device.Link

	gateDwell    time.Duration
	scanInterval time.Duration
	log          zerolog.Logger
}

func NewExitController(
	scanner *Scanner,
	ledger repository.LedgerStore,
	link *device.Link,
	gateDwell time.Duration,
	scanInterval time.Duration,
	log zerolog.Logger,
) *ExitController {
	return &ExitController{
		scanner:      scanner,
		ledger:       ledger,
		link:         link,
		gateDwell:    gateDwell,
		scanInterval: scanInterval,
		log:          log,
	}
}

func (c *ExitController) Run(ctx context.Context) {
	if !c.link.Available() {
		c.log.Warn().Msg("exit device not attached, running in no-gate mode")
	}
	c.log.Info().Msg("exit controller ready")

	for ctx.Err() == nil {
		detection, err := c.scanner.Scan(time.Now())
		if err != nil {
			c.log.Error().Err(err).Msg("exit scan failed")
		} else if detection != nil {
			if err := c.evaluate(ctx, detection); err != nil {
				c.log.Error().Err(err).Str("plate", detection.Plate).Msg("exit evaluation failed")
			}
		}
		sleep(ctx, c.scanInterval)
	}
	c.log.Info().Msg("exit controller stopped")
}

func (c *ExitController) evaluate(ctx context.Context, detection *Detection) error {
	event, err := c.ledger.FindLatestPaid(ctx, detection.Plate)
	if err != nil {
		// A ledger fault must not open the gate; treat it as a denial.
		c.deny(ctx, detection)
		return fmt.Errorf("payment lookup: %w", err)
	}
	if event == nil {
		c.deny(ctx, detection)
		return nil
	}
	c.authorize(ctx, detection, event)
	return nil
}

func (c *ExitController) authorize(ctx context.Context, detection *Detection, event *parking.Event) {
	log := c.log.With().Str("plate", detection.Plate).Int64("event_id", event.ID).Logger()
	log.Info().Msg("exit authorized, payment complete")

	// Stamp the actual egress time on the settled visit.
	amount := int64(0)
	if event.AmountPaid != nil {
		amount = *event.AmountPaid
	}
	update := parking.SettlementUpdate{Paid: true, ExitTime: detection.At, AmountPaid: amount}
	if err := c.ledger.UpdateEvent(ctx, event.ID, update); err != nil {
		log.Warn().Err(err).Msg("failed to stamp egress time")
	}

	if err := c.link.Send(device.CmdOpenGate); err != nil {
		if !errors.Is(err, device.ErrUnavailable) {
			log.Error().Err(err).Msg("failed to open exit gate")
		}
		return
	}
	log.Info().Dur("dwell", c.gateDwell).Msg("exit gate open")
	time.Sleep(c.gateDwell)
	if err := c.link.Send(device.CmdCloseGate); err != nil {
		log.Error().Err(err).Msg("failed to close exit gate")
		return
	}
	log.Info().Msg("exit gate closed")
}

func (c *ExitController) deny(ctx context.Context, detection *Detection) {
	log := c.log.With().Str("plate", detection.Plate).Logger()
	log.Warn().Msg("exit denied, no completed payment")

	if err := c.link.Send(device.CmdSoundAlarm); err != nil && !errors.Is(err, device.ErrUnavailable) {
		log.Error().Err(err).Msg("failed to sound alarm")
	}

	incident := &parking.Incident{
		Plate:        detection.Plate,
		Timestamp:    detection.At,
		IncidentType: parking.IncidentUnauthorizedExit,
	}
	if err := c.ledger.InsertIncident(ctx, incident); err != nil {
		log.Error().Err(err).Msg("failed to record incident")
		return
	}
	log.Info().Int64("incident_id", incident.ID).Msg("unauthorized exit recorded")
}
