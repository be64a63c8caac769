package checkinService

import (
	"context"
	"io"
	"time"

	"HotelGate/internal/api/checkin"
	"HotelGate/internal/entity"
	"HotelGate/pkg/backend"
	"HotelGate/pkg/detector"
	"github.com/sirupsen/logrus"
)

type CameraPurpose string

const (
	PurposeScan    CameraPurpose = "scan"
	PurposeFraming CameraPurpose = "framing"
)

// Camera is the kiosk camera as seen by one workflow instance. Acquire starts
// the stream for a purpose, Release stops and clears it. Release must be safe
// to call when nothing is held.
type Camera interface {
	Acquire(ctx context.Context, purpose CameraPurpose) error
	Release()
	Frame() (entity.VideoFrame, bool)
}

type BookingResolver interface {
	Resolve(ctx context.Context, ref entity.BookingReference) (*entity.BookingRecord, error)
}

type Verifier interface {
	Verify(ctx context.Context, attempt entity.VerificationAttempt, booking *entity.BookingRecord) entity.AccessOutcome
}

// Recorder journals terminal outcomes. A nil Recorder disables journaling.
type Recorder interface {
	Record(ctx context.Context, event entity.AccessEvent) error
}

type Config struct {
	FramingInterval  time.Duration
	Thresholds       Thresholds
	SuccessCodes     []string
	ReferenceCapture bool
	AutoRestart      bool
	Location         *time.Location
	CameraRetryDelay time.Duration
	ResolveTimeout   time.Duration
	SubmitTimeout    time.Duration
	AssessTimeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		FramingInterval:  700 * time.Millisecond,
		Thresholds:       DefaultThresholds(),
		SuccessCodes:     []string{"SUCCESS", "00", "200"},
		Location:         time.Local,
		CameraRetryDelay: 500 * time.Millisecond,
		ResolveTimeout:   10 * time.Second,
		SubmitTimeout:    20 * time.Second,
		AssessTimeout:    2 * time.Second,
	}
}

type ICheckinService interface {
	DecodeToken(raw string) (entity.BookingReference, error)
	DecodeQRImage(r io.Reader) (checkin.DecodeResponse, error)
	Preview(ctx context.Context, token string) (*checkin.ResolveResponse, error)
	NewSession(opts SessionOptions) *Orchestrator
}

type SessionOptions struct {
	Mode       entity.FlowMode
	OperatorID string
	Camera     Camera
	// Observer receives a snapshot after every transition. It is called
	// without the orchestrator lock held.
	Observer func(checkin.Snapshot)
}

type checkinService struct {
	log      *logrus.Logger
	cfg      Config
	resolver BookingResolver
	verifier Verifier
	detector detector.IDetector
	recorder Recorder
	now      func() time.Time
}

func NewCheckinService(
	log *logrus.Logger,
	cfg Config,
	backend backend.IBackend,
	detector detector.IDetector,
	recorder Recorder,
) ICheckinService {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if len(cfg.SuccessCodes) == 0 {
		cfg.SuccessCodes = DefaultConfig().SuccessCodes
	}

	return &checkinService{
		log:      log,
		cfg:      cfg,
		resolver: newBookingResolver(backend, cfg.Location, log),
		verifier: newVerifier(backend, cfg.SuccessCodes, log),
		detector: detector,
		recorder: recorder,
		now:      time.Now,
	}
}

func (s *checkinService) DecodeToken(raw string) (entity.BookingReference, error) {
	return DecodeToken(raw)
}

func (s *checkinService) NewSession(opts SessionOptions) *Orchestrator {
	return NewOrchestrator(OrchestratorDeps{
		Config:     s.cfg,
		Mode:       opts.Mode,
		OperatorID: opts.OperatorID,
		Camera:     opts.Camera,
		Detector:   s.detector,
		Resolver:   s.resolver,
		Verifier:   s.verifier,
		Recorder:   s.recorder,
		Observer:   opts.Observer,
		Log:        s.log,
	})
}
