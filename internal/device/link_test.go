package device

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeTransport scripts the device side of an exchange: each write
// enqueues the next scripted response batch, reads drain the queue and
// time out once it is empty.
type fakeTransport struct {
	writes  []string
	scripts [][]string
	queue   []string
	closed  bool
}

func (t *fakeTransport) WriteLine(s string) error {
	t.writes = append(t.writes, s)
	if len(t.scripts) > 0 {
		t.queue = append(t.queue, t.scripts[0]...)
		t.scripts = t.scripts[1:]
	}
	return nil
}

func (t *fakeTransport) ReadLine(timeout time.Duration) (string, error) {
	if len(t.queue) == 0 {
		return "", ErrReadTimeout
	}
	line := t.queue[0]
	t.queue = t.queue[1:]
	return line, nil
}

func (t *fakeTransport) Close() error {
	t.closed = true
	return nil
}

func newTestLink(transport Transport) *Link {
	link := NewLink(transport, zerolog.Nop())
	link.SetRetryDelay(0)
	return link
}

func TestSend(t *testing.T) {
	transport := &fakeTransport{}
	link := newTestLink(transport)

	if err := link.Send(CmdOpenGate); err != nil {
		t.Fatalf("Send returned %v", err)
	}
	if len(transport.writes) != 1 || transport.writes[0] != "1" {
		t.Fatalf("writes = %v, want [1]", transport.writes)
	}
}

func TestUnavailableLink(t *testing.T) {
	link := Unavailable(zerolog.Nop())

	if link.Available() {
		t.Fatal("Unavailable link reports Available")
	}
	if err := link.Send(CmdOpenGate); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Send error = %v, want ErrUnavailable", err)
	}
	if err := link.AwaitToken(TokenReady, time.Second); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("AwaitToken error = %v, want ErrUnavailable", err)
	}
	if err := link.Close(); err != nil {
		t.Fatalf("Close returned %v", err)
	}
}

func TestAwaitTokenMatchesSubstring(t *testing.T) {
	transport := &fakeTransport{queue: []string{"noise", "status READY ok"}}
	link := newTestLink(transport)

	if err := link.AwaitToken(TokenReady, time.Second); err != nil {
		t.Fatalf("AwaitToken returned %v", err)
	}
}

func TestAwaitTokenTimeout(t *testing.T) {
	transport := &fakeTransport{queue: []string{"noise"}}
	link := newTestLink(transport)

	err := link.AwaitToken(TokenReady, 50*time.Millisecond)
	if !errors.Is(err, ErrTokenTimeout) {
		t.Fatalf("AwaitToken error = %v, want ErrTokenTimeout", err)
	}
}

func TestRequestWithRetryAcksAfterRetries(t *testing.T) {
	transport := &fakeTransport{
		scripts: [][]string{{"ERR"}, {"ERR"}, {TokenUpdated}},
	}
	link := newTestLink(transport)

	err := link.RequestWithRetry(BalanceUpdate(4000), TokenUpdated, 3, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("RequestWithRetry returned %v", err)
	}
	if len(transport.writes) != 3 {
		t.Fatalf("send attempts = %d, want 3", len(transport.writes))
	}
	if transport.writes[0] != "UPDATE#4000#" {
		t.Fatalf("first write = %q, want UPDATE#4000#", transport.writes[0])
	}
}

func TestRequestWithRetryExhaustsAttempts(t *testing.T) {
	transport := &fakeTransport{
		scripts: [][]string{{"ERR"}, {"ERR"}, {TokenUpdated}},
	}
	link := newTestLink(transport)

	err := link.RequestWithRetry(BalanceUpdate(4000), TokenUpdated, 2, 50*time.Millisecond)
	if !errors.Is(err, ErrNoAck) {
		t.Fatalf("RequestWithRetry error = %v, want ErrNoAck", err)
	}
	if len(transport.writes) != 2 {
		t.Fatalf("send attempts = %d, want 2", len(transport.writes))
	}
}

func TestBalanceUpdateFrame(t *testing.T) {
	if got := BalanceUpdate(0); got != "UPDATE#0#" {
		t.Fatalf("BalanceUpdate(0) = %q", got)
	}
	if got := BalanceUpdate(12500); got != "UPDATE#12500#" {
		t.Fatalf("BalanceUpdate(12500) = %q", got)
	}
}
