package entity

import "time"

type FramingStatus string

const (
	FramingNoFace    FramingStatus = "NO_FACE"
	FramingOffCenter FramingStatus = "OFF_CENTER"
	FramingTooClose  FramingStatus = "TOO_CLOSE"
	FramingTooFar    FramingStatus = "TOO_FAR"
	FramingGood      FramingStatus = "GOOD"
)

// FaceBox is a detected face in pixel coordinates of the frame it came from.
type FaceBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FrameRect is a rectangle expressed as fractions of the frame size.
type FrameRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type FramingAssessment struct {
	Status FramingStatus `json:"status"`
	Box    *FrameRect    `json:"box,omitempty"`
}

func NoFace() FramingAssessment {
	return FramingAssessment{Status: FramingNoFace}
}

// VideoFrame is the latest encoded image pushed by the kiosk camera.
type VideoFrame struct {
	Data       []byte    `json:"-"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Paused     bool      `json:"paused"`
	Ended      bool      `json:"ended"`
	CapturedAt time.Time `json:"captured_at"`
}

// Live reports whether the frame source is playing and has decoded pixels.
func (f VideoFrame) Live() bool {
	return !f.Paused && !f.Ended && f.Width > 0 && f.Height > 0 && len(f.Data) > 0
}
