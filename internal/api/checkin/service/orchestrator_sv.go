package checkinService

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"HotelGate/internal/api/checkin"
	"HotelGate/internal/entity"
	contextPkg "HotelGate/pkg/context"
	"HotelGate/pkg/detector"
	"HotelGate/pkg/metrics"
	"HotelGate/pkg/qr"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type OrchestratorDeps struct {
	Config     Config
	Mode       entity.FlowMode
	OperatorID string
	Camera     Camera
	Detector   detector.IDetector
	Resolver   BookingResolver
	Verifier   Verifier
	Recorder   Recorder
	Observer   func(checkin.Snapshot)
	Log        *logrus.Logger
	Now        func() time.Time
	NewID      func() string
}

// Orchestrator drives one workflow instance from scan to outcome. Every
// attempt runs under a generation number; results that come back for an
// older generation are dropped, which is how Cancel discards in-flight work.
type Orchestrator struct {
	cfg        Config
	mode       entity.FlowMode
	operatorID string
	camera     Camera
	detector   detector.IDetector
	resolver   BookingResolver
	verifier   Verifier
	recorder   Recorder
	observer   func(checkin.Snapshot)
	log        *logrus.Logger
	now        func() time.Time
	newID      func() string

	notifyMu sync.Mutex

	// camMu orders camera releases against the start of a new acquisition.
	camMu    sync.Mutex
	camEpoch atomic.Uint64

	mu          sync.Mutex
	state       checkin.State
	generation  uint64
	attemptID   string
	scannerOpen bool
	cameraHeld  bool
	ref         *entity.BookingReference
	booking     *entity.BookingRecord
	assessment  entity.FramingAssessment
	assessing   bool
	submitting  bool
	cameraErr   string
	outcome     *entity.AccessOutcome
	stopFraming chan struct{}
	cancelOps   context.CancelFunc
	closed      bool
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	cfg := deps.Config
	defaults := DefaultConfig()
	if cfg.FramingInterval <= 0 {
		cfg.FramingInterval = defaults.FramingInterval
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = defaults.Thresholds
	}
	if len(cfg.SuccessCodes) == 0 {
		cfg.SuccessCodes = defaults.SuccessCodes
	}
	if cfg.Location == nil {
		cfg.Location = defaults.Location
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = defaults.ResolveTimeout
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = defaults.SubmitTimeout
	}
	if cfg.AssessTimeout <= 0 {
		cfg.AssessTimeout = defaults.AssessTimeout
	}

	mode := deps.Mode
	if mode == "" {
		mode = entity.ModeCheckin
	}

	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	newID := deps.NewID
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}

	return &Orchestrator{
		cfg:        cfg,
		mode:       mode,
		operatorID: deps.OperatorID,
		camera:     deps.Camera,
		detector:   deps.Detector,
		resolver:   deps.Resolver,
		verifier:   deps.Verifier,
		recorder:   deps.Recorder,
		observer:   deps.Observer,
		log:        log,
		now:        now,
		newID:      newID,
		state:      checkin.StateIdle,
		assessment: entity.NoFace(),
	}
}

func (o *Orchestrator) Mode() entity.FlowMode {
	return o.mode
}

// OpenScanner acquires the camera for QR scanning. Only valid while Idle.
func (o *Orchestrator) OpenScanner(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return checkin.ErrSessionClosed
	}
	if o.state != checkin.StateIdle {
		o.mu.Unlock()
		return checkin.ErrNotIdle
	}
	if o.scannerOpen {
		o.mu.Unlock()
		return nil
	}
	gen := o.generation
	o.mu.Unlock()

	release, err := o.acquire(ctx, PurposeScan)

	o.mu.Lock()
	if gen != o.generation || o.state != checkin.StateIdle {
		owned := o.cameraHeld || o.scannerOpen
		o.mu.Unlock()
		if !owned {
			runRelease(release)
		}
		return nil
	}
	if err != nil {
		o.cameraErr = err.Error()
		o.mu.Unlock()
		runRelease(release)
		o.notify()
		return err
	}
	o.scannerOpen = true
	o.cameraErr = ""
	o.mu.Unlock()

	o.notify()
	return nil
}

// Scan feeds a raw token into the workflow and runs it up to LiveFraming or
// a terminal state. A scan that arrives outside Idle is ignored.
func (o *Orchestrator) Scan(ctx context.Context, raw string) error {
	return o.scan(ctx, raw, nil)
}

// ScanImage decodes a QR code from an uploaded image and scans its text. An
// image without a readable code ends the attempt as an invalid token.
func (o *Orchestrator) ScanImage(ctx context.Context, r io.Reader) error {
	raw, err := qr.DecodeImage(r)
	return o.scan(ctx, raw, err)
}

func (o *Orchestrator) scan(ctx context.Context, raw string, decodeErr error) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return checkin.ErrSessionClosed
	}
	if o.state != checkin.StateIdle {
		o.mu.Unlock()
		return checkin.ErrNotIdle
	}

	o.generation++
	gen := o.generation
	o.attemptID = o.newID()
	o.state = checkin.StateScanning
	release := o.detachCameraLocked()

	opCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	opCtx = contextPkg.WithAttemptID(opCtx, o.attemptID)
	o.cancelOps = cancel
	logger := o.entryLocked(opCtx)
	o.mu.Unlock()
	runRelease(release)
	o.notify()

	logger.Info("Scan received")

	var ref entity.BookingReference
	err := decodeErr
	if err == nil {
		ref, err = DecodeToken(raw)
	}
	if err != nil {
		logger.WithField("error", err.Error()).Warn("Token rejected")
		o.finish(gen, entity.Denied(entity.DenialInvalidToken, err.Error()))
		return nil
	}

	if !o.advance(gen, func() {
		o.state = checkin.StateTokenResolved
		o.ref = &ref
	}) {
		return nil
	}

	resolveCtx, cancelResolve := context.WithTimeout(opCtx, o.cfg.ResolveTimeout)
	booking, err := o.resolver.Resolve(resolveCtx, ref)
	cancelResolve()
	if err != nil {
		o.finish(gen, entity.Denied(resolveReason(err), err.Error()))
		return nil
	}

	var window checkin.WindowResult
	var boundary *time.Time
	if !o.advance(gen, func() {
		completed := ref.WithSubject(booking.SubjectID)
		o.ref = &completed
		o.booking = booking
		o.state = checkin.StateWindowChecked
		window, boundary = bookingWindow(o.now(), booking)
	}) {
		return nil
	}

	if window != checkin.WindowOk {
		logger.WithFields(logrus.Fields{
			"window":   window,
			"boundary": boundary,
		}).Info("Booking outside its stay window")
		outcome := entity.Denied(entity.DenialOutOfWindow, string(window))
		outcome.Boundary = boundary
		o.finish(gen, outcome)
		return nil
	}

	if !o.advance(gen, func() {
		o.state = checkin.StateLiveFraming
		o.assessment = entity.NoFace()
	}) {
		return nil
	}

	o.startFraming(opCtx, gen)
	return nil
}

// Capture submits the current frame. It is a no-op, reported by the false
// return, unless the workflow is LiveFraming with a Good assessment and no
// submission in flight.
func (o *Orchestrator) Capture(ctx context.Context) (checkin.Snapshot, bool) {
	o.mu.Lock()
	if o.closed || !o.captureEnabledLocked() {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, false
	}

	frame, ok := o.camera.Frame()
	if !ok || !frame.Live() {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, false
	}

	o.submitting = true
	o.state = checkin.StateCapturing
	gen := o.generation

	image := make([]byte, len(frame.Data))
	copy(image, frame.Data)
	attempt := entity.VerificationAttempt{
		AttemptID:   o.attemptID,
		Mode:        o.mode,
		Reference:   *o.ref,
		Image:       image,
		IsReference: o.cfg.ReferenceCapture,
		Timestamp:   o.now(),
	}
	booking := o.booking

	o.stopFramingLocked()
	release := o.detachCameraLocked()
	o.state = checkin.StateSubmitting

	opCtx := contextPkg.WithAttemptID(context.WithoutCancel(ctx), o.attemptID)
	if o.cancelOps != nil {
		o.cancelOps()
	}
	opCtx, cancel := context.WithCancel(opCtx)
	o.cancelOps = cancel
	logger := o.entryLocked(opCtx)
	o.mu.Unlock()
	runRelease(release)
	o.notify()

	logger.Info("Capture accepted, submitting verification")

	submitCtx, cancelSubmit := context.WithTimeout(opCtx, o.cfg.SubmitTimeout)
	outcome := o.verifier.Verify(submitCtx, attempt, booking)
	cancelSubmit()
	attempt.Image = nil

	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		logger.WithField("outcome", outcome.Kind).Info("Discarding late verification response")
		return o.Snapshot(), true
	}
	o.submitting = false
	o.mu.Unlock()

	o.finish(gen, outcome)
	return o.Snapshot(), true
}

// Cancel abandons the current attempt and returns to Idle. A Granted outcome
// must be acknowledged instead.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return checkin.ErrSessionClosed
	}
	if o.state == checkin.StateGranted {
		o.mu.Unlock()
		return checkin.ErrAcknowledgeRequired
	}
	if o.state != checkin.StateIdle {
		o.entryLocked(context.Background()).WithField("state", o.state).Info("Attempt cancelled")
	}
	release := o.resetLocked()
	o.mu.Unlock()
	runRelease(release)

	o.notify()
	return nil
}

func (o *Orchestrator) Restart() error {
	return o.Cancel()
}

// Retry leaves a Denied or TransportError result. With auto-restart enabled
// the scanner is reopened straight away.
func (o *Orchestrator) Retry(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return checkin.ErrSessionClosed
	}
	if o.state == checkin.StateGranted {
		o.mu.Unlock()
		return checkin.ErrAcknowledgeRequired
	}
	if o.state != checkin.StateDenied && o.state != checkin.StateTransportError {
		o.mu.Unlock()
		return nil
	}
	release := o.resetLocked()
	o.mu.Unlock()
	runRelease(release)
	o.notify()

	if o.cfg.AutoRestart {
		return o.OpenScanner(ctx)
	}
	return nil
}

// Acknowledge confirms a Granted result and resets to Idle.
func (o *Orchestrator) Acknowledge() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return checkin.ErrSessionClosed
	}
	if o.state != checkin.StateGranted {
		o.mu.Unlock()
		return nil
	}
	o.entryLocked(context.Background()).Info("Granted result acknowledged")
	release := o.resetLocked()
	o.mu.Unlock()
	runRelease(release)

	o.notify()
	return nil
}

// RetryCamera re-attempts the camera after an acquisition failure.
func (o *Orchestrator) RetryCamera(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return checkin.ErrSessionClosed
	}
	state, held, open := o.state, o.cameraHeld, o.scannerOpen
	gen := o.generation
	o.mu.Unlock()

	switch {
	case state == checkin.StateLiveFraming && !held:
		opCtx := contextPkg.WithAttemptID(context.WithoutCancel(ctx), o.currentAttemptID())
		o.startFraming(opCtx, gen)
		return nil
	case state == checkin.StateIdle && !open:
		return o.OpenScanner(ctx)
	default:
		return nil
	}
}

func (o *Orchestrator) Snapshot() checkin.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Close releases everything the instance holds. Later calls fail with
// ErrSessionClosed.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	release := o.resetLocked()
	o.closed = true
	o.mu.Unlock()
	runRelease(release)
}

// startFraming acquires the camera for face framing and starts the
// assessment loop. On failure the workflow stays in LiveFraming with capture
// blocked and the camera error set.
func (o *Orchestrator) startFraming(ctx context.Context, gen uint64) {
	release, err := o.acquire(ctx, PurposeFraming)
	if err == nil && o.detector != nil {
		err = o.ensureDetector(ctx)
	}

	o.mu.Lock()
	if gen != o.generation || o.state != checkin.StateLiveFraming || o.cameraHeld {
		// Superseded while starting. The device was asked to start whether or
		// not acquire succeeded, so stop it unless someone else owns it now.
		owned := o.cameraHeld || o.scannerOpen
		o.mu.Unlock()
		if !owned {
			runRelease(release)
		}
		return
	}

	if err != nil {
		o.cameraErr = err.Error()
		o.entryLocked(ctx).WithField("error", err.Error()).Warn("Camera unavailable for framing")
		o.mu.Unlock()
		runRelease(release)
		o.notify()
		return
	}

	o.cameraHeld = true
	o.cameraErr = ""
	o.assessing = false
	stop := make(chan struct{})
	o.stopFraming = stop
	o.mu.Unlock()
	o.notify()

	go o.framingLoop(ctx, gen, stop)
}

func (o *Orchestrator) framingLoop(ctx context.Context, gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(o.cfg.FramingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			go o.tick(ctx, gen)
		}
	}
}

// tick runs one assessment. A tick that fires while the previous one is
// still running is skipped.
func (o *Orchestrator) tick(ctx context.Context, gen uint64) {
	o.mu.Lock()
	if gen != o.generation || o.state != checkin.StateLiveFraming || !o.cameraHeld {
		o.mu.Unlock()
		return
	}
	if o.assessing {
		o.mu.Unlock()
		metrics.FramingSkipped.Inc()
		return
	}
	o.assessing = true
	logger := o.entryLocked(ctx)
	o.mu.Unlock()

	assessment := entity.NoFace()
	if frame, ok := o.camera.Frame(); ok {
		assessCtx, cancel := context.WithTimeout(ctx, o.cfg.AssessTimeout)
		assessment = Assess(assessCtx, frame, o.detector, o.cfg.Thresholds, logger)
		cancel()
	}

	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return
	}
	o.assessing = false
	if o.state != checkin.StateLiveFraming {
		o.mu.Unlock()
		return
	}
	o.assessment = assessment
	o.mu.Unlock()

	o.notify()
}

// acquire takes the camera, retrying once when it reports not ready yet. The
// returned release stops this acquisition and is safe to run on any error.
func (o *Orchestrator) acquire(ctx context.Context, purpose CameraPurpose) (func(), error) {
	if o.camera == nil {
		return nil, checkin.ErrCameraUnavailable
	}

	o.camMu.Lock()
	release := o.releaseFor(o.camEpoch.Add(1))
	o.camMu.Unlock()

	err := o.camera.Acquire(ctx, purpose)
	if err == nil || !errors.Is(err, checkin.ErrCameraNotReady) {
		return release, err
	}

	select {
	case <-time.After(o.cfg.CameraRetryDelay):
	case <-ctx.Done():
		return release, ctx.Err()
	}

	return release, o.camera.Acquire(ctx, purpose)
}

func (o *Orchestrator) ensureDetector(ctx context.Context) error {
	err := o.detector.EnsureLoaded(ctx)
	if err == nil {
		return nil
	}

	select {
	case <-time.After(o.cfg.CameraRetryDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := o.detector.EnsureLoaded(ctx); err != nil {
		return fmt.Errorf("%w: %v", checkin.ErrDetectorUnavailable, err)
	}
	return nil
}

// advance applies fn if gen is still current and notifies. It reports false
// when the attempt has been superseded.
func (o *Orchestrator) advance(gen uint64, fn func()) bool {
	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return false
	}
	fn()
	o.mu.Unlock()

	o.notify()
	return true
}

// finish moves a current attempt into its terminal state, releases the
// camera and journals the outcome.
func (o *Orchestrator) finish(gen uint64, outcome entity.AccessOutcome) {
	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return
	}

	switch outcome.Kind {
	case entity.OutcomeGranted:
		o.state = checkin.StateGranted
	case entity.OutcomeDenied:
		o.state = checkin.StateDenied
	default:
		o.state = checkin.StateTransportError
	}
	o.outcome = &outcome
	o.submitting = false
	o.stopFramingLocked()
	release := o.detachCameraLocked()
	if o.cancelOps != nil {
		o.cancelOps()
		o.cancelOps = nil
	}

	event := entity.AccessEvent{
		ID:         o.newID(),
		AttemptID:  o.attemptID,
		Mode:       o.mode,
		Outcome:    outcome.Kind,
		Reason:     outcome.Reason,
		Message:    outcome.Message,
		RoomCode:   outcome.RoomCode,
		OperatorID: o.operatorID,
		CreatedAt:  o.now(),
	}
	if o.ref != nil {
		event.BookingID = o.ref.BookingID
		event.SubjectID = o.ref.SubjectID
	}
	logger := o.entryLocked(context.Background())
	o.mu.Unlock()
	runRelease(release)

	metrics.AccessAttempts.WithLabelValues(string(o.mode), string(outcome.Kind), string(outcome.Reason)).Inc()
	logger.WithFields(logrus.Fields{
		"outcome":   outcome.Kind,
		"reason":    outcome.Reason,
		"room_code": outcome.RoomCode,
	}).Info("Attempt finished")

	o.notify()

	if o.recorder != nil {
		go o.record(event)
	}
}

func (o *Orchestrator) record(event entity.AccessEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ctx = contextPkg.WithAttemptID(ctx, event.AttemptID)
	if err := o.recorder.Record(ctx, event); err != nil {
		o.log.WithFields(logrus.Fields{
			"attempt_id": event.AttemptID,
			"error":      err.Error(),
		}).Error("Failed to journal access event")
	}
}

// resetLocked discards the attempt. Bumping the generation invalidates every
// in-flight continuation of the old one. The returned release must run after
// o.mu is unlocked.
func (o *Orchestrator) resetLocked() func() {
	o.generation++
	if o.cancelOps != nil {
		o.cancelOps()
		o.cancelOps = nil
	}
	o.stopFramingLocked()
	release := o.detachCameraLocked()

	o.state = checkin.StateIdle
	o.attemptID = ""
	o.ref = nil
	o.booking = nil
	o.assessment = entity.NoFace()
	o.assessing = false
	o.submitting = false
	o.cameraErr = ""
	o.outcome = nil
	return release
}

func (o *Orchestrator) stopFramingLocked() {
	if o.stopFraming != nil {
		close(o.stopFraming)
		o.stopFraming = nil
	}
}

// detachCameraLocked clears the held flags and returns the release to run
// once o.mu is unlocked, or nil when nothing was held. Release writes to the
// kiosk and must not stall the state lock.
func (o *Orchestrator) detachCameraLocked() func() {
	held := o.scannerOpen || o.cameraHeld
	o.scannerOpen = false
	o.cameraHeld = false
	if !held {
		return nil
	}
	return o.releaseFor(o.camEpoch.Load())
}

// releaseFor stops the camera for the acquisition numbered epoch. It does
// nothing once a newer acquisition has started.
func (o *Orchestrator) releaseFor(epoch uint64) func() {
	return func() {
		if o.camera == nil {
			return
		}
		o.camMu.Lock()
		defer o.camMu.Unlock()
		if o.camEpoch.Load() != epoch {
			return
		}
		o.camera.Release()
	}
}

func runRelease(release func()) {
	if release != nil {
		release()
	}
}

func (o *Orchestrator) captureEnabledLocked() bool {
	return o.state == checkin.StateLiveFraming &&
		o.cameraHeld &&
		!o.submitting &&
		o.assessment.Status == entity.FramingGood
}

func (o *Orchestrator) currentAttemptID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attemptID
}

func (o *Orchestrator) snapshotLocked() checkin.Snapshot {
	snap := checkin.Snapshot{
		AttemptID:      o.attemptID,
		Generation:     o.generation,
		Mode:           o.mode,
		State:          o.state,
		ScannerOpen:    o.scannerOpen,
		Assessment:     o.assessment,
		CaptureEnabled: o.captureEnabledLocked(),
		CameraError:    o.cameraErr,
	}
	if o.ref != nil {
		ref := *o.ref
		snap.Reference = &ref
	}
	if o.booking != nil {
		booking := *o.booking
		snap.Booking = &booking
	}
	if o.outcome != nil {
		outcome := *o.outcome
		panel := Present(o.mode, outcome)
		snap.Outcome = &outcome
		snap.Panel = &panel
	}
	return snap
}

// notify pushes the current snapshot. Serialising on notifyMu keeps the last
// delivered snapshot current even when transitions race.
func (o *Orchestrator) notify() {
	if o.observer == nil {
		return
	}

	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	o.observer(o.Snapshot())
}

func (o *Orchestrator) entryLocked(ctx context.Context) *logrus.Entry {
	fields := logrus.Fields{
		"attempt_id": o.attemptID,
		"mode":       o.mode,
		"generation": o.generation,
	}
	if ctx != nil {
		fields["request_id"] = contextPkg.GetRequestID(ctx)
	}
	if o.operatorID != "" {
		fields["operator_id"] = o.operatorID
	}
	return o.log.WithFields(fields)
}

func resolveReason(err error) entity.DenialReason {
	switch {
	case errors.Is(err, checkin.ErrBookingNotFound):
		return entity.DenialBookingNotFound
	case errors.Is(err, checkin.ErrMissingSubject):
		return entity.DenialMissingSubject
	default:
		return entity.DenialNetworkError
	}
}
