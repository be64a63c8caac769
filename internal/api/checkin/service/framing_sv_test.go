package checkinService

import (
	"context"
	"errors"
	"testing"

	"HotelGate/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name string
		box  *entity.FaceBox
		want entity.FramingStatus
	}{
		// 1000x1000 frame; area fractions are width*height/1e6
		{"centered, area 0.20", &entity.FaceBox{X: 300, Y: 250, Width: 400, Height: 500}, entity.FramingGood},
		{"center x offset 0.20", &entity.FaceBox{X: 500, Y: 250, Width: 400, Height: 500}, entity.FramingOffCenter},
		{"center y offset 0.20", &entity.FaceBox{X: 300, Y: 450, Width: 400, Height: 500}, entity.FramingOffCenter},
		{"off center wins over too close", &entity.FaceBox{X: 300, Y: 250, Width: 800, Height: 500}, entity.FramingOffCenter},
		{"centered, area 0.40", &entity.FaceBox{X: 100, Y: 250, Width: 800, Height: 500}, entity.FramingTooClose},
		{"centered, area 0.05", &entity.FaceBox{X: 375, Y: 400, Width: 250, Height: 200}, entity.FramingTooFar},
		{"no box", nil, entity.FramingNoFace},
		{"degenerate box", &entity.FaceBox{X: 500, Y: 500}, entity.FramingNoFace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.box, 1000, 1000, th)
			assert.Equal(t, tt.want, got.Status)
			if tt.want != entity.FramingNoFace {
				require.NotNil(t, got.Box)
			} else {
				assert.Nil(t, got.Box)
			}
		})
	}
}

func TestClassify_BoxIsFractionOfFrame(t *testing.T) {
	got := Classify(&entity.FaceBox{X: 160, Y: 120, Width: 320, Height: 240}, 640, 480, DefaultThresholds())

	require.NotNil(t, got.Box)
	assert.InDelta(t, 0.25, got.Box.X, 1e-9)
	assert.InDelta(t, 0.25, got.Box.Y, 1e-9)
	assert.InDelta(t, 0.5, got.Box.Width, 1e-9)
	assert.InDelta(t, 0.5, got.Box.Height, 1e-9)
}

func TestAssess(t *testing.T) {
	live := entity.VideoFrame{Data: []byte{1}, Width: 1000, Height: 1000}

	t.Run("detector error is no face", func(t *testing.T) {
		det := &fakeDetector{err: errors.New("model crashed")}
		got := Assess(context.Background(), live, det, DefaultThresholds(), nil)
		assert.Equal(t, entity.FramingNoFace, got.Status)
	})

	t.Run("paused frame is not assessed", func(t *testing.T) {
		det := &fakeDetector{box: goodBox()}
		paused := live
		paused.Paused = true
		got := Assess(context.Background(), paused, det, DefaultThresholds(), nil)
		assert.Equal(t, entity.FramingNoFace, got.Status)
		assert.Zero(t, det.calls.Load())
	})

	t.Run("good face", func(t *testing.T) {
		det := &fakeDetector{box: goodBox()}
		got := Assess(context.Background(), live, det, DefaultThresholds(), nil)
		assert.Equal(t, entity.FramingGood, got.Status)
	})
}
