package checkinService

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"HotelGate/internal/api/checkin"
	"HotelGate/internal/entity"
	"HotelGate/pkg/backend"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func goodBox() *entity.FaceBox {
	return &entity.FaceBox{X: 300, Y: 250, Width: 400, Height: 500}
}

func liveFrame() entity.VideoFrame {
	return entity.VideoFrame{Data: []byte{0xff, 0xd8}, Width: 1000, Height: 1000, CapturedAt: time.Now()}
}

type fakeDetector struct {
	mu      sync.Mutex
	box     *entity.FaceBox
	err     error
	loadErr error
	delay   time.Duration
	calls   atomic.Int32

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (d *fakeDetector) EnsureLoaded(ctx context.Context) error { return d.loadErr }
func (d *fakeDetector) IsLoaded() bool                         { return d.loadErr == nil }
func (d *fakeDetector) Close()                                 {}

func (d *fakeDetector) DetectSingleFace(ctx context.Context, frame entity.VideoFrame) (*entity.FaceBox, error) {
	d.calls.Add(1)
	n := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		peak := d.maxInFlight.Load()
		if n <= peak || d.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.box, d.err
}

func (d *fakeDetector) setBox(box *entity.FaceBox) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.box = box
}

type fakeCamera struct {
	mu        sync.Mutex
	held      bool
	purpose   CameraPurpose
	errs      []error
	acquired  int
	released  int
	frameless bool
}

func (c *fakeCamera) Acquire(ctx context.Context, purpose CameraPurpose) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		if err != nil {
			return err
		}
	}
	c.held = true
	c.purpose = purpose
	c.acquired++
	return nil
}

func (c *fakeCamera) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held {
		c.released++
	}
	c.held = false
}

func (c *fakeCamera) Frame() (entity.VideoFrame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.held || c.frameless {
		return entity.VideoFrame{}, false
	}
	return liveFrame(), true
}

func (c *fakeCamera) isHeld() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.held
}

func (c *fakeCamera) failNext(errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, errs...)
}

// stallingCamera models a kiosk that is slow to answer. With stallFraming set,
// a framing Acquire starts the device and then waits for its context. A
// non-nil releaseGate holds Release until the gate is closed.
type stallingCamera struct {
	stallFraming bool
	releaseGate  chan struct{}
	releasing    chan struct{}

	mu       sync.Mutex
	started  bool
	released int
	once     sync.Once
}

func (c *stallingCamera) Acquire(ctx context.Context, purpose CameraPurpose) error {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()

	if purpose == PurposeFraming && c.stallFraming {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (c *stallingCamera) Release() {
	if c.releasing != nil {
		c.once.Do(func() { close(c.releasing) })
	}
	if c.releaseGate != nil {
		<-c.releaseGate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
	c.released++
}

func (c *stallingCamera) Frame() (entity.VideoFrame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return entity.VideoFrame{}, false
	}
	return liveFrame(), true
}

func (c *stallingCamera) isStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

func (c *stallingCamera) releases() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

// fakeBackend serves canned upstream replies. A non-nil block channel holds
// SubmitVerification until it is closed or, unless ignoreCtx is set, the
// context ends.
type fakeBackend struct {
	booking     []byte
	bookingErr  error
	user        []byte
	room        []byte
	submitResp  *backend.RawResponse
	submitErr   error
	block       chan struct{}
	ignoreCtx   bool
	submitCalls atomic.Int32

	mu       sync.Mutex
	requests []backend.VerificationRequest
}

func (b *fakeBackend) GetBooking(ctx context.Context, bookingID int64) ([]byte, error) {
	if b.bookingErr != nil {
		return nil, b.bookingErr
	}
	return b.booking, nil
}

func (b *fakeBackend) GetUser(ctx context.Context, userID string) ([]byte, error) {
	if b.user == nil {
		return nil, backend.ErrNotFound
	}
	return b.user, nil
}

func (b *fakeBackend) GetRoom(ctx context.Context, roomID string) ([]byte, error) {
	if b.room == nil {
		return nil, backend.ErrNotFound
	}
	return b.room, nil
}

func (b *fakeBackend) SubmitVerification(ctx context.Context, req backend.VerificationRequest) (*backend.RawResponse, error) {
	b.submitCalls.Add(1)
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	if b.block != nil && b.ignoreCtx {
		<-b.block
	} else if b.block != nil {
		select {
		case <-b.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return b.submitResp, b.submitErr
}

func (b *fakeBackend) GetPayment(ctx context.Context, orderID string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (b *fakeBackend) CompleteCheckout(ctx context.Context, bookingID int64, orderID string) error {
	return errors.New("not implemented")
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []entity.AccessEvent
}

func (r *fakeRecorder) Record(ctx context.Context, event entity.AccessEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *fakeRecorder) recorded() []entity.AccessEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.AccessEvent, len(r.events))
	copy(out, r.events)
	return out
}

type observed struct {
	mu     sync.Mutex
	states []checkin.State
}

func (o *observed) push(snap checkin.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if n := len(o.states); n == 0 || o.states[n-1] != snap.State {
		o.states = append(o.states, snap.State)
	}
}

func (o *observed) sequence() []checkin.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]checkin.State, len(o.states))
	copy(out, o.states)
	return out
}

func bookingJSON(checkinAt, checkoutAt time.Time) []byte {
	return []byte(`{"data":{"id":12,"userId":"abc","userName":"Ana","userEmail":"ana@example.com","userPhone":"0812",` +
		`"checkinDate":"` + checkinAt.UTC().Format(time.RFC3339) + `",` +
		`"checkoutDate":"` + checkoutAt.UTC().Format(time.RFC3339) + `"}}`)
}

type harness struct {
	orch     *Orchestrator
	camera   *fakeCamera
	detector *fakeDetector
	backend  *fakeBackend
	recorder *fakeRecorder
	observed *observed
}

func newHarness(t *testing.T, b *fakeBackend) *harness {
	t.Helper()

	cam := &fakeCamera{}
	h := newHarnessWithCamera(t, b, cam)
	h.camera = cam
	return h
}

// newHarnessWithCamera builds the orchestrator around cam. The harness camera
// field stays nil; callers keep their own handle on cam.
func newHarnessWithCamera(t *testing.T, b *fakeBackend, cam Camera) *harness {
	t.Helper()

	logger := testLogger()
	h := &harness{
		detector: &fakeDetector{box: goodBox()},
		backend:  b,
		recorder: &fakeRecorder{},
		observed: &observed{},
	}

	cfg := DefaultConfig()
	cfg.FramingInterval = 10 * time.Millisecond
	cfg.CameraRetryDelay = 5 * time.Millisecond
	cfg.Location = time.UTC

	h.orch = NewOrchestrator(OrchestratorDeps{
		Config:   cfg,
		Mode:     entity.ModeCheckin,
		Camera:   cam,
		Detector: h.detector,
		Resolver: newBookingResolver(b, time.UTC, logger),
		Verifier: newVerifier(b, cfg.SuccessCodes, logger),
		Recorder: h.recorder,
		Observer: h.observed.push,
		Log:      logger,
	})
	t.Cleanup(h.orch.Close)

	return h
}
