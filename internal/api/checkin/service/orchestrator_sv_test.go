package checkinService

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"HotelGate/internal/api/checkin"
	"HotelGate/internal/entity"
	"HotelGate/pkg/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	pollAt  = 5 * time.Millisecond
)

func openWindowBackend() *fakeBackend {
	now := time.Now()
	return &fakeBackend{
		booking: bookingJSON(now.Add(-time.Hour), now.Add(24*time.Hour)),
		submitResp: &backend.RawResponse{
			Status: http.StatusOK,
			Body:   []byte(`{"code":"SUCCESS","data":{"roomCode":"R101"}}`),
		},
	}
}

func waitCaptureEnabled(t *testing.T, o *Orchestrator) {
	t.Helper()
	require.Eventually(t, func() bool {
		return o.Snapshot().CaptureEnabled
	}, waitFor, pollAt)
}

func waitState(t *testing.T, o *Orchestrator, state checkin.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return o.Snapshot().State == state
	}, waitFor, pollAt)
}

func TestOrchestrator_GrantedFlow(t *testing.T) {
	h := newHarness(t, openWindowBackend())
	ctx := context.Background()

	require.NoError(t, h.orch.OpenScanner(ctx))
	assert.True(t, h.orch.Snapshot().ScannerOpen)

	require.NoError(t, h.orch.Scan(ctx, "12|abc"))
	assert.Equal(t, checkin.StateLiveFraming, h.orch.Snapshot().State)

	waitCaptureEnabled(t, h.orch)

	snap, accepted := h.orch.Capture(ctx)
	require.True(t, accepted)
	assert.Equal(t, checkin.StateGranted, snap.State)
	require.NotNil(t, snap.Outcome)
	assert.Equal(t, "R101", snap.Outcome.RoomCode)
	require.NotNil(t, snap.Panel)
	assert.False(t, snap.Panel.Dismissible)
	assert.False(t, h.camera.isHeld())

	assert.Equal(t, int32(1), h.backend.submitCalls.Load())
	req := h.backend.requests[0]
	assert.Equal(t, "/checkin/face-verify", req.Path)
	assert.Equal(t, int64(12), req.BookingID)
	assert.Equal(t, "abc", req.SubjectID)
	assert.NotEmpty(t, req.Image)

	require.Eventually(t, func() bool { return len(h.recorder.recorded()) == 1 }, waitFor, pollAt)
	event := h.recorder.recorded()[0]
	assert.Equal(t, entity.OutcomeGranted, event.Outcome)
	assert.Equal(t, int64(12), event.BookingID)
	assert.Equal(t, "R101", event.RoomCode)

	states := h.observed.sequence()
	assert.Equal(t, checkin.StateIdle, states[0])
	assert.Contains(t, states, checkin.StateScanning)
	assert.Contains(t, states, checkin.StateTokenResolved)
	assert.Contains(t, states, checkin.StateWindowChecked)
	assert.Contains(t, states, checkin.StateLiveFraming)
	assert.Contains(t, states, checkin.StateSubmitting)
	assert.Equal(t, checkin.StateGranted, states[len(states)-1])
}

func TestOrchestrator_OutOfWindowNeverSubmits(t *testing.T) {
	now := time.Now()
	b := openWindowBackend()
	b.booking = bookingJSON(now.Add(-72*time.Hour), now.Add(-time.Hour))
	h := newHarness(t, b)

	require.NoError(t, h.orch.Scan(context.Background(), "12|abc"))

	snap := h.orch.Snapshot()
	assert.Equal(t, checkin.StateDenied, snap.State)
	require.NotNil(t, snap.Outcome)
	assert.Equal(t, entity.DenialOutOfWindow, snap.Outcome.Reason)
	require.NotNil(t, snap.Outcome.Boundary)
	assert.False(t, snap.Panel.Retryable)
	assert.Zero(t, h.backend.submitCalls.Load())
	assert.Zero(t, h.camera.acquired)
}

func TestOrchestrator_ServerNoMatch(t *testing.T) {
	b := openWindowBackend()
	b.submitResp = &backend.RawResponse{
		Status: http.StatusOK,
		Body:   []byte(`{"code":"NO_MATCH","message":"face does not match"}`),
	}
	h := newHarness(t, b)
	ctx := context.Background()

	require.NoError(t, h.orch.Scan(ctx, "12|abc"))
	waitCaptureEnabled(t, h.orch)

	snap, accepted := h.orch.Capture(ctx)
	require.True(t, accepted)
	assert.Equal(t, checkin.StateDenied, snap.State)
	assert.Equal(t, entity.DenialNoMatch, snap.Outcome.Reason)
	assert.Equal(t, "NO_MATCH", snap.Outcome.ServerCode)
	assert.True(t, snap.Panel.Retryable)
}

func TestOrchestrator_TransportErrorThenRestart(t *testing.T) {
	b := openWindowBackend()
	b.submitResp = nil
	b.submitErr = errors.New("connection reset by peer")
	h := newHarness(t, b)
	ctx := context.Background()

	require.NoError(t, h.orch.Scan(ctx, "12|abc"))
	waitCaptureEnabled(t, h.orch)

	snap, accepted := h.orch.Capture(ctx)
	require.True(t, accepted)
	assert.Equal(t, checkin.StateTransportError, snap.State)
	assert.Equal(t, "Unknown outcome, safe to retry (connection reset by peer).", snap.Panel.Message)

	require.NoError(t, h.orch.Restart())

	snap = h.orch.Snapshot()
	assert.Equal(t, checkin.StateIdle, snap.State)
	assert.Nil(t, snap.Outcome)
	assert.Nil(t, snap.Reference)
	assert.False(t, h.camera.isHeld())
	assert.Equal(t, h.camera.acquired, h.camera.released)
}

func TestOrchestrator_CancelDuringSubmitDiscardsResponse(t *testing.T) {
	b := openWindowBackend()
	b.block = make(chan struct{})
	b.ignoreCtx = true
	h := newHarness(t, b)
	ctx := context.Background()

	require.NoError(t, h.orch.Scan(ctx, "12|abc"))
	waitCaptureEnabled(t, h.orch)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.orch.Capture(ctx)
	}()

	waitState(t, h.orch, checkin.StateSubmitting)
	require.NoError(t, h.orch.Cancel())
	assert.Equal(t, checkin.StateIdle, h.orch.Snapshot().State)
	seenBeforeReply := len(h.observed.sequence())

	// The upstream answers SUCCESS after the operator already walked away.
	close(b.block)

	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("capture did not return after the late reply")
	}

	snap := h.orch.Snapshot()
	assert.Equal(t, checkin.StateIdle, snap.State)
	assert.Nil(t, snap.Outcome)
	assert.Nil(t, snap.Panel)
	assert.Equal(t, int32(1), b.submitCalls.Load())
	assert.NotContains(t, h.observed.sequence()[seenBeforeReply:], checkin.StateGranted)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, h.recorder.recorded())
}

func TestOrchestrator_PendingFramingAcquireIsReleased(t *testing.T) {
	tests := []struct {
		name string
		stop func(t *testing.T, o *Orchestrator)
	}{
		{"cancel", func(t *testing.T, o *Orchestrator) { require.NoError(t, o.Cancel()) }},
		{"restart", func(t *testing.T, o *Orchestrator) { require.NoError(t, o.Restart()) }},
		{"close", func(t *testing.T, o *Orchestrator) { o.Close() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := &stallingCamera{stallFraming: true}
			h := newHarnessWithCamera(t, openWindowBackend(), cam)

			scanned := make(chan error, 1)
			go func() { scanned <- h.orch.Scan(context.Background(), "12|abc") }()

			waitState(t, h.orch, checkin.StateLiveFraming)
			require.Eventually(t, cam.isStarted, waitFor, pollAt)

			tt.stop(t, h.orch)

			select {
			case err := <-scanned:
				assert.NoError(t, err)
			case <-time.After(waitFor):
				t.Fatal("scan did not return after the attempt was stopped")
			}
			assert.False(t, cam.isStarted())
			assert.Equal(t, 1, cam.releases())
			assert.Empty(t, h.orch.Snapshot().CameraError)
		})
	}
}

func TestOrchestrator_StaleReleaseKeepsNewerScanner(t *testing.T) {
	cam := &stallingCamera{stallFraming: true}
	h := newHarnessWithCamera(t, openWindowBackend(), cam)
	ctx := context.Background()

	// A release minted for an older acquisition must not stop a newer one.
	stale, err := h.orch.acquire(ctx, PurposeScan)
	require.NoError(t, err)

	require.NoError(t, h.orch.OpenScanner(ctx))
	require.True(t, h.orch.Snapshot().ScannerOpen)

	runRelease(stale)
	assert.True(t, cam.isStarted())
	assert.Zero(t, cam.releases())

	require.NoError(t, h.orch.Cancel())
	assert.False(t, cam.isStarted())
	assert.Equal(t, 1, cam.releases())
}

func TestOrchestrator_SlowCameraReleaseDoesNotBlockState(t *testing.T) {
	for _, name := range []string{"cancel", "close"} {
		t.Run(name, func(t *testing.T) {
			cam := &stallingCamera{
				releaseGate: make(chan struct{}),
				releasing:   make(chan struct{}),
			}
			h := newHarnessWithCamera(t, openWindowBackend(), cam)

			require.NoError(t, h.orch.Scan(context.Background(), "12|abc"))
			waitCaptureEnabled(t, h.orch)

			stopped := make(chan struct{})
			go func() {
				defer close(stopped)
				if name == "close" {
					h.orch.Close()
					return
				}
				assert.NoError(t, h.orch.Cancel())
			}()

			select {
			case <-cam.releasing:
			case <-time.After(waitFor):
				t.Fatal("camera release never started")
			}

			snaps := make(chan checkin.Snapshot, 1)
			go func() { snaps <- h.orch.Snapshot() }()

			select {
			case snap := <-snaps:
				assert.Equal(t, checkin.StateIdle, snap.State)
				assert.False(t, snap.CaptureEnabled)
			case <-time.After(waitFor):
				t.Fatal("snapshot waited on the camera release")
			}

			close(cam.releaseGate)
			<-stopped
			assert.False(t, cam.isStarted())
		})
	}
}

func TestOrchestrator_SlowDetectorIsNeverCalledConcurrently(t *testing.T) {
	h := newHarness(t, openWindowBackend())
	h.detector.delay = 50 * time.Millisecond

	require.NoError(t, h.orch.Scan(context.Background(), "12|abc"))

	require.Eventually(t, func() bool {
		return h.detector.calls.Load() >= 3
	}, waitFor, pollAt)

	assert.Equal(t, int32(1), h.detector.maxInFlight.Load())
	waitCaptureEnabled(t, h.orch)
}

func TestOrchestrator_CaptureIgnoredUnlessGood(t *testing.T) {
	h := newHarness(t, openWindowBackend())
	h.detector.setBox(&entity.FaceBox{X: 375, Y: 400, Width: 250, Height: 200})
	ctx := context.Background()

	require.NoError(t, h.orch.Scan(ctx, "12|abc"))
	require.Eventually(t, func() bool {
		return h.orch.Snapshot().Assessment.Status == entity.FramingTooFar
	}, waitFor, pollAt)

	snap, accepted := h.orch.Capture(ctx)
	assert.False(t, accepted)
	assert.Equal(t, checkin.StateLiveFraming, snap.State)
	assert.False(t, snap.CaptureEnabled)
	assert.Zero(t, h.backend.submitCalls.Load())
}

func TestOrchestrator_SecondCaptureWhileSubmittingIsIgnored(t *testing.T) {
	b := openWindowBackend()
	b.block = make(chan struct{})
	h := newHarness(t, b)
	ctx := context.Background()

	require.NoError(t, h.orch.Scan(ctx, "12|abc"))
	waitCaptureEnabled(t, h.orch)

	first := make(chan bool, 1)
	go func() {
		_, accepted := h.orch.Capture(ctx)
		first <- accepted
	}()

	waitState(t, h.orch, checkin.StateSubmitting)

	_, accepted := h.orch.Capture(ctx)
	assert.False(t, accepted)

	close(b.block)
	assert.True(t, <-first)
	assert.Equal(t, checkin.StateGranted, h.orch.Snapshot().State)
	assert.Equal(t, int32(1), b.submitCalls.Load())
}

func TestOrchestrator_GrantedRequiresAcknowledge(t *testing.T) {
	h := newHarness(t, openWindowBackend())
	ctx := context.Background()

	require.NoError(t, h.orch.Scan(ctx, "12|abc"))
	waitCaptureEnabled(t, h.orch)
	_, accepted := h.orch.Capture(ctx)
	require.True(t, accepted)

	assert.ErrorIs(t, h.orch.Cancel(), checkin.ErrAcknowledgeRequired)
	assert.ErrorIs(t, h.orch.Retry(ctx), checkin.ErrAcknowledgeRequired)
	assert.Equal(t, checkin.StateGranted, h.orch.Snapshot().State)

	require.NoError(t, h.orch.Acknowledge())
	assert.Equal(t, checkin.StateIdle, h.orch.Snapshot().State)
}

func TestOrchestrator_ScanOutsideIdleIsRejected(t *testing.T) {
	h := newHarness(t, openWindowBackend())
	ctx := context.Background()

	require.NoError(t, h.orch.Scan(ctx, "12|abc"))
	attempt := h.orch.Snapshot().AttemptID

	assert.ErrorIs(t, h.orch.Scan(ctx, "99|zzz"), checkin.ErrNotIdle)
	snap := h.orch.Snapshot()
	assert.Equal(t, attempt, snap.AttemptID)
	assert.Equal(t, int64(12), snap.Reference.BookingID)
}

func TestOrchestrator_ResolveFailures(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeBackend
		token   string
		want    entity.DenialReason
	}{
		{"invalid token", openWindowBackend(), "not-a-token", entity.DenialInvalidToken},
		{"booking not found", &fakeBackend{bookingErr: backend.ErrNotFound}, "12|abc", entity.DenialBookingNotFound},
		{"network error", &fakeBackend{bookingErr: errors.New("dial tcp: refused")}, "12|abc", entity.DenialNetworkError},
		{"missing subject", &fakeBackend{booking: []byte(`{"id":12}`)}, "12", entity.DenialMissingSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.backend)
			require.NoError(t, h.orch.Scan(context.Background(), tt.token))

			snap := h.orch.Snapshot()
			assert.Equal(t, checkin.StateDenied, snap.State)
			assert.Equal(t, tt.want, snap.Outcome.Reason)
			assert.Zero(t, tt.backend.submitCalls.Load())
		})
	}
}

func TestOrchestrator_ScanImageWithoutCode(t *testing.T) {
	h := newHarness(t, openWindowBackend())

	require.NoError(t, h.orch.ScanImage(context.Background(), bytes.NewReader([]byte("not an image"))))

	snap := h.orch.Snapshot()
	assert.Equal(t, checkin.StateDenied, snap.State)
	assert.Equal(t, entity.DenialInvalidToken, snap.Outcome.Reason)
}

func TestOrchestrator_CameraFailureBlocksCapture(t *testing.T) {
	h := newHarness(t, openWindowBackend())
	h.camera.failNext(checkin.ErrCameraUnavailable)
	ctx := context.Background()

	require.NoError(t, h.orch.Scan(ctx, "12|abc"))

	snap := h.orch.Snapshot()
	assert.Equal(t, checkin.StateLiveFraming, snap.State)
	assert.NotEmpty(t, snap.CameraError)
	assert.False(t, snap.CaptureEnabled)

	_, accepted := h.orch.Capture(ctx)
	assert.False(t, accepted)

	require.NoError(t, h.orch.RetryCamera(ctx))
	assert.Empty(t, h.orch.Snapshot().CameraError)
	waitCaptureEnabled(t, h.orch)
}

func TestOrchestrator_CameraNotReadyIsRetriedOnce(t *testing.T) {
	h := newHarness(t, openWindowBackend())
	h.camera.failNext(checkin.ErrCameraNotReady)

	require.NoError(t, h.orch.Scan(context.Background(), "12|abc"))

	assert.Empty(t, h.orch.Snapshot().CameraError)
	assert.True(t, h.camera.isHeld())
	waitCaptureEnabled(t, h.orch)
}

func TestOrchestrator_RetryWithAutoRestart(t *testing.T) {
	b := openWindowBackend()
	b.bookingErr = backend.ErrNotFound
	h := newHarness(t, b)
	h.orch.cfg.AutoRestart = true
	ctx := context.Background()

	require.NoError(t, h.orch.Scan(ctx, "12|abc"))
	require.Equal(t, checkin.StateDenied, h.orch.Snapshot().State)

	require.NoError(t, h.orch.Retry(ctx))

	snap := h.orch.Snapshot()
	assert.Equal(t, checkin.StateIdle, snap.State)
	assert.True(t, snap.ScannerOpen)
	assert.Equal(t, PurposeScan, h.camera.purpose)
}

func TestOrchestrator_CloseReleasesCamera(t *testing.T) {
	h := newHarness(t, openWindowBackend())
	ctx := context.Background()

	require.NoError(t, h.orch.Scan(ctx, "12|abc"))
	require.True(t, h.camera.isHeld())

	h.orch.Close()

	assert.False(t, h.camera.isHeld())
	assert.ErrorIs(t, h.orch.Scan(ctx, "12|abc"), checkin.ErrSessionClosed)
}
