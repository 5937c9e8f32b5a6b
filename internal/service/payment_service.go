package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"parkgate/internal/billing"
	"parkgate/internal/device"
	"parkgate/internal/domain/parking"
	"parkgate/internal/repository"
)

// ErrSettlementUnconfirmed means the card balance handshake was not
// acknowledged, so the ledger was deliberately left untouched. The
// physical card may still have been debited by the reader; the operator
// log is the audit trail for that gap.
var ErrSettlementUnconfirmed = errors.New("settlement unconfirmed by device")

// PaymentService settles parking fees against prepaid cards presented at
// the kiosk. The ledger commit happens strictly after the card reader
// confirms the balance write, never before.
type PaymentService struct {
	ledger repository.LedgerStore
	link   *device.Link

	ratePerHour     int64
	cardPollTimeout time.Duration
	readyTimeout    time.Duration
	confirmAttempts int
	confirmTimeout  time.Duration

	now func() time.Time
	log zerolog.Logger
}

func NewPaymentService(
	ledger repository.LedgerStore,
	link *device.Link,
	ratePerHour int64,
	cardPollTimeout time.Duration,
	readyTimeout time.Duration,
	confirmAttempts int,
	confirmTimeout time.Duration,
	log zerolog.Logger,
) *PaymentService {
	return &PaymentService{
		ledger:          ledger,
		link:            link,
		ratePerHour:     ratePerHour,
		cardPollTimeout: cardPollTimeout,
		readyTimeout:    readyTimeout,
		confirmAttempts: confirmAttempts,
		confirmTimeout:  confirmTimeout,
		now:             time.Now,
		log:             log,
	}
}

// Run polls for presented cards until the context is cancelled. A
// settlement in flight when cancellation arrives runs to its own
// completion or timeout; the card is never left mid-handshake.
func (s *PaymentService) Run(ctx context.Context) {
	if !s.link.Available() {
		s.log.Warn().Msg("payment device not attached, settlement disabled")
		return
	}
	s.log.Info().Msg("payment service ready, waiting for card")

	for ctx.Err() == nil {
		if err := s.settleNext(ctx); err != nil {
			s.log.Error().Err(err).Msg("settlement attempt failed")
			// A transport fault fails instantly, unlike an idle poll
			// which already waited out cardPollTimeout. Back off so a
			// persistent fault cannot spin the loop hot.
			sleep(ctx, s.cardPollTimeout)
		}
	}
	s.log.Info().Msg("payment service stopped")
}

// settleNext performs at most one settlement: poll for a card, match it
// to the oldest unpaid visit, negotiate the balance update and commit.
// Returning nil means there was nothing to do this cycle.
func (s *PaymentService) settleNext(ctx context.Context) error {
	if err := s.link.Send(device.CmdReadCard); err != nil {
		return fmt.Errorf("request card read: %w", err)
	}
	line, err := s.link.ReadLine(s.cardPollTimeout)
	if errors.Is(err, device.ErrReadTimeout) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("card poll: %w", err)
	}

	if strings.Contains(line, device.TokenNoCard) {
		// Routine idle response; not worth a log line.
		return nil
	}
	swipe, ok := parseCardSwipe(line)
	if !ok {
		// Unparseable frames (partial reads, field garbage) are
		// discarded and the poll loop continues.
		s.log.Debug().Str("line", line).Msg("discarding unparseable card frame")
		return nil
	}
	return s.settle(ctx, swipe)
}

func (s *PaymentService) settle(ctx context.Context, swipe parking.CardSwipe) error {
	log := s.log.With().
		Str("plate", swipe.Plate).
		Str("settlement_id", uuid.NewString()).
		Logger()
	log.Info().Int64("balance", swipe.Balance).Msg("card presented")

	event, err := s.ledger.FindOldestUnpaid(ctx, swipe.Plate)
	if err != nil {
		return fmt.Errorf("unpaid lookup for %s: %w", swipe.Plate, err)
	}
	if event == nil {
		log.Info().Msg("no unpaid visits for this plate")
		return nil
	}

	fee := billing.Calculate(event.EntryTime, s.now(), s.ratePerHour)
	log.Info().
		Int64("event_id", event.ID).
		Time("entry_time", event.EntryTime).
		Int64("fee", fee).
		Msg("fee computed for oldest unpaid visit")

	if swipe.Balance < fee {
		log.Warn().Int64("fee", fee).Int64("balance", swipe.Balance).Msg("insufficient card balance")
		if err := s.link.Send(device.CmdInsufficientFunds); err != nil {
			log.Error().Err(err).Msg("failed to signal insufficient funds")
		}
		return nil
	}

	// The card's stored balance is untouched up to this point, so
	// aborting on a missed READY is safe.
	if err := s.link.AwaitToken(device.TokenReady, s.readyTimeout); err != nil {
		return fmt.Errorf("card reader not ready: %w", err)
	}

	newBalance := swipe.Balance - fee
	err = s.link.RequestWithRetry(
		device.BalanceUpdate(newBalance),
		device.TokenUpdated,
		s.confirmAttempts,
		s.confirmTimeout,
	)
	if err != nil {
		// No commit without confirmation. The reader may have debited
		// the card anyway; surface loudly instead of guessing.
		log.Error().Err(err).Int64("event_id", event.ID).Msg("balance update unconfirmed, ledger not modified")
		return fmt.Errorf("%w: %v", ErrSettlementUnconfirmed, err)
	}

	update := parking.SettlementUpdate{Paid: true, ExitTime: s.now(), AmountPaid: fee}
	if err := s.ledger.UpdateEvent(ctx, event.ID, update); err != nil {
		return fmt.Errorf("commit settlement for event %d: %w", event.ID, err)
	}

	log.Info().
		Int64("event_id", event.ID).
		Int64("amount_paid", fee).
		Int64("new_balance", newBalance).
		Msg("settlement committed")
	return nil
}

// parseCardSwipe parses a "plate,balance" card frame. The balance field
// keeps only its digits; a frame with the wrong field count or no digits
// at all is rejected.
func parseCardSwipe(line string) (parking.CardSwipe, bool) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return parking.CardSwipe{}, false
	}

	cardPlate := strings.TrimSpace(parts[0])
	if cardPlate == "" {
		return parking.CardSwipe{}, false
	}

	var digits strings.Builder
	for _, r := range parts[1] {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return parking.CardSwipe{}, false
	}
	balance, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return parking.CardSwipe{}, false
	}
	return parking.CardSwipe{Plate: cardPlate, Balance: balance}, true
}
