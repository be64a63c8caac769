package checkinHandler

import (
	"context"
	"sync"
	"time"

	"HotelGate/internal/api/checkin"
	checkinService "HotelGate/internal/api/checkin/service"
	"HotelGate/internal/entity"
	"HotelGate/pkg/utils"
)

const (
	cameraStart = "start"
	cameraStop  = "stop"
)

// streamCamera is the kiosk camera as seen through the session socket. The
// kiosk starts and stops its device on command and streams JPEG frames back
// as binary messages.
type streamCamera struct {
	send         func(checkin.ServerMessage) error
	utils        utils.IUtils
	readyTimeout time.Duration

	mu      sync.Mutex
	purpose checkinService.CameraPurpose
	held    bool
	frame   entity.VideoFrame
	hasData bool
	paused  bool
	ended   bool
	ready   chan struct{}
}

func newStreamCamera(send func(checkin.ServerMessage) error, u utils.IUtils, readyTimeout time.Duration) *streamCamera {
	return &streamCamera{
		send:         send,
		utils:        u,
		readyTimeout: readyTimeout,
	}
}

// Acquire asks the kiosk to start its camera. For framing it waits for the
// first frame, so a slow device surfaces as ErrCameraNotReady.
func (c *streamCamera) Acquire(ctx context.Context, purpose checkinService.CameraPurpose) error {
	c.mu.Lock()
	c.purpose = purpose
	c.held = true
	c.hasData = false
	c.frame = entity.VideoFrame{}
	c.paused, c.ended = false, false
	ready := make(chan struct{})
	c.ready = ready
	c.mu.Unlock()

	err := c.send(checkin.ServerMessage{
		Type:   checkin.MsgCamera,
		Camera: &checkin.CameraCommand{Action: cameraStart, Purpose: string(purpose)},
	})
	if err != nil {
		c.Release()
		return checkin.ErrCameraUnavailable
	}

	if purpose != checkinService.PurposeFraming {
		return nil
	}

	timer := time.NewTimer(c.readyTimeout)
	defer timer.Stop()

	select {
	case <-ready:
		return nil
	case <-timer.C:
		return checkin.ErrCameraNotReady
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *streamCamera) Release() {
	c.mu.Lock()
	wasHeld := c.held
	c.held = false
	c.hasData = false
	c.frame = entity.VideoFrame{}
	c.ready = nil
	c.mu.Unlock()

	if wasHeld {
		_ = c.send(checkin.ServerMessage{
			Type:   checkin.MsgCamera,
			Camera: &checkin.CameraCommand{Action: cameraStop},
		})
	}
}

func (c *streamCamera) Frame() (entity.VideoFrame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.held || !c.hasData {
		return entity.VideoFrame{}, false
	}

	frame := c.frame
	frame.Paused = c.paused
	frame.Ended = c.ended
	return frame, true
}

// pushFrame stores the latest image. Frames arriving while the camera is not
// held, or that are not decodable images, are dropped.
func (c *streamCamera) pushFrame(data []byte) bool {
	width, height, err := c.utils.ImageSize(data)
	if err != nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.held {
		return false
	}

	c.frame = entity.VideoFrame{
		Data:       data,
		Width:      width,
		Height:     height,
		CapturedAt: time.Now(),
	}
	c.hasData = true

	if c.ready != nil {
		close(c.ready)
		c.ready = nil
	}

	return true
}

func (c *streamCamera) setState(paused, ended bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused, c.ended = paused, ended
}
