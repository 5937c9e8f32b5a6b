package service

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"parkgate/internal/plate"
	"parkgate/internal/sensor"
	"parkgate/internal/vision"
)

// Detection is one stabilized plate identity produced by a lane scanner,
// together with the crop that produced the final vote and the candidate
// window for auditing.
type Detection struct {
	Plate  string
	Window []string
	Image  vision.Image
	At     time.Time
}

// Scanner runs the per-frame detection pipeline for one lane: presence
// check, capture, classification, OCR, grammar validation and
// stabilization. Both gate controllers drive the same pipeline and differ
// only in what they do with a resolved plate.
type Scanner struct {
	camera     vision.Camera
	classifier vision.Classifier
	reader     vision.Reader
	distance   sensor.DistanceSource
	stabilizer *plate.Stabilizer

	triggerDistance float64
	log             zerolog.Logger
}

func NewScanner(
	camera vision.Camera,
	classifier vision.Classifier,
	reader vision.Reader,
	distance sensor.DistanceSource,
	stabilizer *plate.Stabilizer,
	triggerDistance float64,
	log zerolog.Logger,
) *Scanner {
	return &Scanner{
		camera:          camera,
		classifier:      classifier,
		reader:          reader,
		distance:        distance,
		stabilizer:      stabilizer,
		triggerDistance: triggerDistance,
		log:             log,
	}
}

// Scan runs one iteration. It returns a Detection only when the
// stabilizer resolved a new identity this frame; a clear lane, noisy
// reads, pending windows and cooldown-skipped resolutions all return
// (nil, nil).
func (s *Scanner) Scan(now time.Time) (*Detection, error) {
	cm, err := s.distance.Distance()
	if err != nil {
		return nil, fmt.Errorf("distance read: %w", err)
	}
	if cm > s.triggerDistance {
		return nil, nil
	}

	frame, err := s.camera.Capture()
	if err != nil {
		return nil, fmt.Errorf("capture frame: %w", err)
	}
	regions, err := s.classifier.Detect(frame)
	if err != nil {
		return nil, fmt.Errorf("classify frame: %w", err)
	}

	for _, region := range regions {
		img, err := frame.Crop(region)
		if err != nil {
			return nil, fmt.Errorf("crop region: %w", err)
		}
		raw, err := s.reader.ReadText(img)
		if err != nil {
			return nil, fmt.Errorf("ocr: %w", err)
		}

		candidate, ok := plate.Normalize(raw)
		if !ok {
			// Malformed per-frame reads are expected noise.
			continue
		}
		s.log.Debug().Str("candidate", candidate).Msg("valid plate candidate")

		res := s.stabilizer.Observe(candidate, now)
		switch res.Outcome {
		case plate.Resolved:
			return &Detection{
				Plate:  res.Plate,
				Window: res.Window,
				Image:  img,
				At:     now,
			}, nil
		case plate.Skipped:
			s.log.Debug().
				Str("plate", res.Plate).
				Msg("duplicate plate within cooldown window, skipped")
			return nil, nil
		}
	}
	return nil, nil
}
