// Package vision defines the interface boundary to the detection
// collaborators: the frame source, the plate classifier and the OCR
// reader. The controllers consume only these interfaces; the models
// behind them are external.
package vision

// Region is one classifier bounding box in frame pixel coordinates.
type Region struct {
	X1, Y1, X2, Y2 int
}

// Image is an opaque cropped plate image that can render itself as JPEG
// for the snapshot archive.
type Image interface {
	JPEG() ([]byte, error)
}

// Frame is one captured video frame. Crop extracts the plate region
// proposed by the classifier.
type Frame interface {
	Crop(r Region) (Image, error)
}

// Camera produces frames from the lane's capture device.
type Camera interface {
	Capture() (Frame, error)
}

// Classifier proposes plate bounding boxes for a frame.
type Classifier interface {
	Detect(frame Frame) ([]Region, error)
}

// Reader performs OCR on a cropped plate image and returns raw text. The
// text is noisy; validation is the caller's concern.
type Reader interface {
	ReadText(img Image) (string, error)
}
