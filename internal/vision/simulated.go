package vision

// Simulated collaborators for bench runs without a camera or models. A
// ScriptedCamera replays a fixed sequence of plate texts; the paired
// classifier and reader pass the scripted text through the same pipeline
// shape the real collaborators use.

type scriptedFrame struct {
	text string
}

type scriptedImage struct {
	text string
}

func (i scriptedImage) JPEG() ([]byte, error) {
	// Minimal JPEG SOI/EOI wrapper; enough for the snapshot archive.
	return append([]byte{0xFF, 0xD8}, append([]byte(i.text), 0xFF, 0xD9)...), nil
}

func (f scriptedFrame) Crop(Region) (Image, error) {
	return scriptedImage{text: f.text}, nil
}

// ScriptedCamera replays the given raw OCR texts, one per frame, cycling
// when exhausted.
type ScriptedCamera struct {
	texts []string
	next  int
}

func NewScriptedCamera(texts ...string) *ScriptedCamera {
	return &ScriptedCamera{texts: texts}
}

func (c *ScriptedCamera) Capture() (Frame, error) {
	if len(c.texts) == 0 {
		return scriptedFrame{}, nil
	}
	text := c.texts[c.next%len(c.texts)]
	c.next++
	return scriptedFrame{text: text}, nil
}

// FullFrameClassifier proposes a single box covering the whole frame,
// standing in for the plate detector.
type FullFrameClassifier struct {
	Width, Height int
}

func (c FullFrameClassifier) Detect(Frame) ([]Region, error) {
	w, h := c.Width, c.Height
	if w == 0 {
		w = 640
	}
	if h == 0 {
		h = 480
	}
	return []Region{{X1: 0, Y1: 0, X2: w, Y2: h}}, nil
}

// EchoReader returns the text embedded in a scripted image.
type EchoReader struct{}

func (EchoReader) ReadText(img Image) (string, error) {
	if si, ok := img.(scriptedImage); ok {
		return si.text, nil
	}
	return "", nil
}
