package detector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"HotelGate/internal/entity"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnavailable = errors.New("face detector unavailable")
	ErrNoFrame     = errors.New("empty frame")
)

// IDetector is a handle to the face-detection model. Loading is expensive, so
// one handle is shared by every kiosk session; it keeps no per-attempt state.
type IDetector interface {
	EnsureLoaded(ctx context.Context) error
	IsLoaded() bool
	DetectSingleFace(ctx context.Context, frame entity.VideoFrame) (*entity.FaceBox, error)
	Close()
}

type detectionResult struct {
	Message    string    `json:"message"`
	BBox       []float64 `json:"bbox,omitempty"`
	Confidence float64   `json:"conf,omitempty"`
	Error      string    `json:"error,omitempty"`
}

type wsDetector struct {
	url          string
	log          *logrus.Logger
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration

	mu      sync.Mutex
	conn    *websocket.Conn
	loading bool
	loaded  chan struct{}
	loadErr error

	// one request/response exchange on the socket at a time
	reqMu sync.Mutex
}

var (
	shared     IDetector
	sharedOnce sync.Once
)

// Shared returns the process-wide detector handle. It does not connect; the
// first EnsureLoaded does.
func Shared(log *logrus.Logger) IDetector {
	sharedOnce.Do(func() {
		shared = New(getDetectorURL(), log)
	})
	return shared
}

func New(url string, log *logrus.Logger) IDetector {
	return &wsDetector{
		url:          url,
		log:          log,
		pingInterval: 30 * time.Second,
		readTimeout:  5 * time.Second,
		writeTimeout: 5 * time.Second,
	}
}

func (d *wsDetector) IsLoaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

// EnsureLoaded connects to the model service once. Callers arriving while a
// load is in progress wait for that load instead of starting another.
func (d *wsDetector) EnsureLoaded(ctx context.Context) error {
	d.mu.Lock()
	if d.conn != nil {
		d.mu.Unlock()
		return nil
	}

	if d.loading {
		wait := d.loaded
		d.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}

		d.mu.Lock()
		defer d.mu.Unlock()
		if d.conn != nil {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, d.loadErr)
	}

	d.loading = true
	d.loaded = make(chan struct{})
	done := d.loaded
	d.mu.Unlock()

	conn, err := d.dial(ctx)

	d.mu.Lock()
	d.loading = false
	d.loadErr = err
	if err == nil {
		d.conn = conn
	}
	close(done)
	d.mu.Unlock()

	if err != nil {
		d.log.WithFields(logrus.Fields{
			"url":   d.url,
			"error": err.Error(),
		}).Warn("Face detector load failed")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	d.log.WithField("url", d.url).Info("Face detector loaded")
	go d.keepAlive(conn)

	return nil
}

func (d *wsDetector) dial(ctx context.Context) (*websocket.Conn, error) {
	if d.url == "" {
		return nil, errors.New("detector URL not configured")
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", d.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		if err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(d.writeTimeout)); err != nil {
			d.log.Debugf("Error sending pong to detector: %v", err)
		}
		return nil
	})

	return conn, nil
}

func (d *wsDetector) DetectSingleFace(ctx context.Context, frame entity.VideoFrame) (*entity.FaceBox, error) {
	if len(frame.Data) == 0 {
		return nil, ErrNoFrame
	}

	if err := d.EnsureLoaded(ctx); err != nil {
		return nil, err
	}

	d.reqMu.Lock()
	defer d.reqMu.Unlock()

	conn := d.current()
	if conn == nil {
		return nil, ErrUnavailable
	}

	writeDeadline := time.Now().Add(d.writeTimeout)
	readDeadline := time.Now().Add(d.readTimeout)
	if deadline, ok := ctx.Deadline(); ok {
		if deadline.Before(writeDeadline) {
			writeDeadline = deadline
		}
		if deadline.Before(readDeadline) {
			readDeadline = deadline
		}
	}

	_ = conn.SetWriteDeadline(writeDeadline)
	if err := conn.WriteMessage(websocket.BinaryMessage, frame.Data); err != nil {
		d.drop(conn)
		return nil, fmt.Errorf("error sending frame to detector: %w", err)
	}

	_ = conn.SetReadDeadline(readDeadline)
	_, message, err := conn.ReadMessage()
	if err != nil {
		d.drop(conn)
		return nil, fmt.Errorf("error reading detector reply: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})

	var result detectionResult
	if err := jsoniter.Unmarshal(message, &result); err != nil {
		return nil, fmt.Errorf("error unmarshaling detector reply: %w", err)
	}

	if result.Error != "" {
		return nil, fmt.Errorf("detector: %s", result.Error)
	}

	if len(result.BBox) != 4 {
		return nil, nil
	}

	x1, y1, x2, y2 := result.BBox[0], result.BBox[1], result.BBox[2], result.BBox[3]
	if x2 <= x1 || y2 <= y1 {
		return nil, nil
	}

	return &entity.FaceBox{
		X:      x1,
		Y:      y1,
		Width:  x2 - x1,
		Height: y2 - y1,
	}, nil
}

func (d *wsDetector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

func (d *wsDetector) current() *websocket.Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn
}

// drop discards conn if it is still the active connection; the next
// EnsureLoaded reconnects.
func (d *wsDetector) drop(conn *websocket.Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == conn {
		d.conn = nil
	}
	conn.Close()
}

func (d *wsDetector) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(d.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		if d.current() != conn {
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(d.writeTimeout))
		if err != nil {
			d.log.WithField("error", err.Error()).Warn("Detector ping failed, marking connection as dead")
			d.drop(conn)
			return
		}
	}
}

func getDetectorURL() string {
	url := os.Getenv("AI_FACE_DETECTION_URL")
	if url == "" {
		url = "ws://localhost:8000/api/v1/face/ws"
	}
	return url
}
