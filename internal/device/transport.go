package device

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// ErrReadTimeout is returned by Transport.ReadLine when no complete frame
// arrived within the allowed wait.
var ErrReadTimeout = errors.New("device: read timed out")

// Transport is a newline-framed byte channel to the embedded controller.
// The serial implementation below is the production one; tests substitute
// scripted fakes.
type Transport interface {
	WriteLine(s string) error
	// ReadLine returns the next complete frame, waiting at most timeout.
	// Returns ErrReadTimeout when nothing arrived in time.
	ReadLine(timeout time.Duration) (string, error)
	Close() error
}

// readPollInterval bounds a single blocking serial read so token waits can
// be rechecked at sub-second granularity.
const readPollInterval = 100 * time.Millisecond

type serialTransport struct {
	port serial.Port
	buf  []byte
}

// OpenSerial opens the named port at the given baud rate with newline
// framing.
func OpenSerial(portName string, baudRate int) (Transport, error) {
	mode := &serial.Mode{BaudRate: baudRate}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	return &serialTransport{port: port}, nil
}

func (t *serialTransport) WriteLine(s string) error {
	if _, err := t.port.Write([]byte(s + "\n")); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

func (t *serialTransport) ReadLine(timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	chunk := make([]byte, 64)

	for {
		if i := bytes.IndexByte(t.buf, '\n'); i >= 0 {
			line := string(bytes.TrimRight(t.buf[:i], "\r"))
			t.buf = t.buf[i+1:]
			return line, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", ErrReadTimeout
		}
		if remaining > readPollInterval {
			remaining = readPollInterval
		}
		if err := t.port.SetReadTimeout(remaining); err != nil {
			return "", fmt.Errorf("serial set read timeout: %w", err)
		}

		n, err := t.port.Read(chunk)
		if err != nil {
			return "", fmt.Errorf("serial read: %w", err)
		}
		t.buf = append(t.buf, chunk[:n]...)
	}
}

func (t *serialTransport) Close() error {
	return t.port.Close()
}
