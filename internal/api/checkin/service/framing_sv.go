package checkinService

import (
	"context"
	"math"

	"HotelGate/internal/entity"
	"HotelGate/pkg/detector"
	"HotelGate/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// Thresholds are fractions of the frame. They tune guidance only.
type Thresholds struct {
	MaxCenterOffset float64
	MaxAreaFraction float64
	MinAreaFraction float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxCenterOffset: 0.15,
		MaxAreaFraction: 0.35,
		MinAreaFraction: 0.08,
	}
}

// Classify grades a detected face against the frame it was found in. A nil
// box or an empty frame is NoFace.
func Classify(box *entity.FaceBox, frameWidth, frameHeight int, t Thresholds) entity.FramingAssessment {
	if box == nil || frameWidth <= 0 || frameHeight <= 0 || box.Width <= 0 || box.Height <= 0 {
		return entity.NoFace()
	}

	w, h := float64(frameWidth), float64(frameHeight)
	rect := &entity.FrameRect{
		X:      box.X / w,
		Y:      box.Y / h,
		Width:  box.Width / w,
		Height: box.Height / h,
	}

	centerX := rect.X + rect.Width/2
	centerY := rect.Y + rect.Height/2
	area := rect.Width * rect.Height

	status := entity.FramingGood
	switch {
	case math.Abs(centerX-0.5) > t.MaxCenterOffset || math.Abs(centerY-0.5) > t.MaxCenterOffset:
		status = entity.FramingOffCenter
	case area > t.MaxAreaFraction:
		status = entity.FramingTooClose
	case area < t.MinAreaFraction:
		status = entity.FramingTooFar
	}

	return entity.FramingAssessment{Status: status, Box: rect}
}

// Assess runs one framing cycle. It never fails: a frame that is not live or
// a detector error both yield NoFace so the loop simply tries again.
func Assess(ctx context.Context, frame entity.VideoFrame, det detector.IDetector, t Thresholds, log *logrus.Entry) entity.FramingAssessment {
	if !frame.Live() || det == nil {
		return entity.NoFace()
	}

	box, err := det.DetectSingleFace(ctx, frame)
	if err != nil {
		if log != nil {
			log.WithField("error", err.Error()).Debug("Face detection failed, treating as no face")
		}
		metrics.FramingAssessments.WithLabelValues(string(entity.FramingNoFace)).Inc()
		return entity.NoFace()
	}

	assessment := Classify(box, frame.Width, frame.Height, t)
	metrics.FramingAssessments.WithLabelValues(string(assessment.Status)).Inc()

	return assessment
}
