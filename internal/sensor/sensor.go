// Package sensor abstracts the vehicle-presence distance sensor at each
// lane. The real deployment reads an ultrasonic sensor through the lane's
// embedded controller; development and tests run against a simulated
// source with the same shape.
package sensor

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"parkgate/internal/device"
)

// DistanceSource yields the current distance, in centimeters, between the
// lane sensor and whatever is in front of it.
type DistanceSource interface {
	Distance() (float64, error)
}

// Simulated mimics the bench-test ultrasonic sensor: occasionally a
// vehicle is close (10-40 cm), most of the time the lane is clear
// (60-150 cm).
type Simulated struct {
	rng *rand.Rand
}

func NewSimulated() *Simulated {
	return &Simulated{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *Simulated) Distance() (float64, error) {
	if s.rng.Intn(11) == 0 {
		return float64(10 + s.rng.Intn(31)), nil
	}
	return float64(60 + s.rng.Intn(91)), nil
}

// Serial reads distance reports pushed by the embedded controller as
// "DIST:<cm>" frames on the lane's device link.
type Serial struct {
	link    *device.Link
	timeout time.Duration
}

func NewSerial(link *device.Link, timeout time.Duration) *Serial {
	return &Serial{link: link, timeout: timeout}
}

func (s *Serial) Distance() (float64, error) {
	line, err := s.link.ReadLine(s.timeout)
	if err != nil {
		return 0, fmt.Errorf("read distance: %w", err)
	}
	value, ok := strings.CutPrefix(line, "DIST:")
	if !ok {
		return 0, fmt.Errorf("unexpected sensor frame %q", line)
	}
	cm, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("parse distance %q: %w", value, err)
	}
	return cm, nil
}
