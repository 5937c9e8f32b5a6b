// Package device implements the half-duplex command/response channel to
// the embedded gate controllers: gate and buzzer actuation, card reads and
// the token-synchronized balance-update handshake.
package device

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Command is one outbound frame understood by the embedded controller.
// Gate and alarm commands are single characters for firmware simplicity;
// card-reader commands use a '#'-terminated keyword form.
type Command string

const (
	CmdOpenGate          Command = "1"
	CmdCloseGate         Command = "0"
	CmdSoundAlarm        Command = "2"
	CmdReadCard          Command = "READ#"
	CmdInsufficientFunds Command = "INSUFFICIENT#"
)

// BalanceUpdate builds the frame instructing the card reader to write a
// new stored balance to the presented card.
func BalanceUpdate(newBalance int64) Command {
	return Command(fmt.Sprintf("UPDATE#%d#", newBalance))
}

// Tokens the embedded controller emits during the payment handshake.
const (
	TokenReady   = "READY"
	TokenUpdated = "UPDATED"
	TokenNoCard  = "[NO_CARD]"
)

var (
	// ErrUnavailable means the link was opened in degraded mode: no
	// physical device was found at startup. Operations fail fast and the
	// caller decides how to degrade.
	ErrUnavailable = errors.New("device: link unavailable")
	// ErrTokenTimeout means an expected acknowledgement token did not
	// arrive within its bound.
	ErrTokenTimeout = errors.New("device: token wait timed out")
	// ErrNoAck means every attempt of a retried request went
	// unacknowledged.
	ErrNoAck = errors.New("device: no acknowledgement")
)

// Link is a request/response channel to one embedded controller. Each
// controller task owns exactly one Link; Link itself is not safe for
// concurrent use.
type Link struct {
	transport  Transport
	retryDelay time.Duration
	log        zerolog.Logger
}

// NewLink wraps an open transport.
func NewLink(transport Transport, log zerolog.Logger) *Link {
	return &Link{
		transport:  transport,
		retryDelay: time.Second,
		log:        log,
	}
}

// Unavailable returns a link with no transport. Every operation returns
// ErrUnavailable; used for degraded no-gate operation when the device is
// absent at startup.
func Unavailable(log zerolog.Logger) *Link {
	return &Link{log: log}
}

// SetRetryDelay overrides the fixed delay between retry attempts.
func (l *Link) SetRetryDelay(d time.Duration) {
	l.retryDelay = d
}

// Available reports whether a physical device is attached.
func (l *Link) Available() bool {
	return l.transport != nil
}

// Send writes a single command with no acknowledgement wait. Used for
// one-shot signals: gate pulses, the alarm buzzer, insufficient-funds
// notification.
func (l *Link) Send(cmd Command) error {
	if l.transport == nil {
		return ErrUnavailable
	}
	if err := l.transport.WriteLine(string(cmd)); err != nil {
		return fmt.Errorf("send %q: %w", cmd, err)
	}
	l.log.Debug().Str("command", string(cmd)).Msg("sent device command")
	return nil
}

// ReadLine returns the next inbound frame, waiting at most timeout.
func (l *Link) ReadLine(timeout time.Duration) (string, error) {
	if l.transport == nil {
		return "", ErrUnavailable
	}
	return l.transport.ReadLine(timeout)
}

// AwaitToken consumes inbound frames until one contains the expected
// token or the timeout elapses. Frames not containing the token are
// discarded.
func (l *Link) AwaitToken(token string, timeout time.Duration) error {
	if l.transport == nil {
		return ErrUnavailable
	}

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w: waited %s for %q", ErrTokenTimeout, timeout, token)
		}
		line, err := l.transport.ReadLine(remaining)
		if errors.Is(err, ErrReadTimeout) {
			return fmt.Errorf("%w: waited %s for %q", ErrTokenTimeout, timeout, token)
		}
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
		l.log.Debug().Str("line", line).Str("expected", token).Msg("discarding unexpected frame")
	}
}

// RequestWithRetry sends cmd and waits perAttempt for a frame containing
// expectedAck, retrying with a fixed delay until maxAttempts are
// exhausted. This is the resilience primitive for every exchange whose
// effect must be confirmed, most importantly card balance updates.
func (l *Link) RequestWithRetry(cmd Command, expectedAck string, maxAttempts int, perAttempt time.Duration) error {
	if l.transport == nil {
		return ErrUnavailable
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := l.transport.WriteLine(string(cmd)); err != nil {
			return fmt.Errorf("send %q: %w", cmd, err)
		}
		err := l.AwaitToken(expectedAck, perAttempt)
		if err == nil {
			if attempt > 1 {
				l.log.Info().
					Str("command", string(cmd)).
					Int("attempt", attempt).
					Msg("device acknowledged after retry")
			}
			return nil
		}
		lastErr = err
		l.log.Warn().
			Err(err).
			Str("command", string(cmd)).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Msg("device did not acknowledge")
		if attempt < maxAttempts {
			time.Sleep(l.retryDelay)
		}
	}
	return fmt.Errorf("%w: %q after %d attempts: %v", ErrNoAck, cmd, maxAttempts, lastErr)
}

// Close releases the underlying transport.
func (l *Link) Close() error {
	if l.transport == nil {
		return nil
	}
	return l.transport.Close()
}
