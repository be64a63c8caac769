package checkinHandler

import (
	"bytes"
	"context"
	"sync"
	"time"

	"HotelGate/internal/api/checkin"
	checkinService "HotelGate/internal/api/checkin/service"
	"HotelGate/internal/entity"
	"HotelGate/internal/middleware"
	contextPkg "HotelGate/pkg/context"
	"HotelGate/pkg/metrics"
	"HotelGate/pkg/response"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

const writeTimeout = 10 * time.Second

type kioskSession struct {
	conn   *websocket.Conn
	log    *logrus.Entry
	ctx    context.Context
	writeM sync.Mutex
	closed bool
}

func (s *kioskSession) send(msg checkin.ServerMessage) error {
	payload, err := jsoniter.Marshal(msg)
	if err != nil {
		return err
	}

	s.writeM.Lock()
	defer s.writeM.Unlock()

	if s.closed {
		return checkin.ErrSessionClosed
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.log.WithField("error", err.Error()).Debug("Failed to write to kiosk")
		return err
	}
	return s.conn.SetWriteDeadline(time.Time{})
}

func (s *kioskSession) sendError(err error) {
	code := response.KindOf(err)
	if code == "" {
		code = "INTERNAL_ERROR"
	}
	_ = s.send(checkin.ServerMessage{
		Type:  checkin.MsgError,
		Error: err.Error(),
		Code:  code,
	})
}

func (s *kioskSession) markClosed() {
	s.writeM.Lock()
	defer s.writeM.Unlock()
	s.closed = true
}

// handleSession runs one kiosk: one socket, one camera, one workflow
// instance. Text frames are actions, binary frames are camera images.
func (h *CheckinHandler) handleSession(c *websocket.Conn) {
	mode := entity.FlowMode(c.Query("mode", string(entity.ModeCheckin)))

	requestID, _ := c.Locals(middleware.RequestIDKey).(string)
	operatorID, _ := c.Locals("operator_id").(string)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = contextPkg.WithRequestID(ctx, requestID)
	ctx = contextPkg.WithOperatorID(ctx, operatorID)

	session := &kioskSession{
		conn: c,
		ctx:  ctx,
		log: h.log.WithFields(logrus.Fields{
			"request_id":  requestID,
			"operator_id": operatorID,
			"mode":        mode,
		}),
	}
	defer session.markClosed()

	if mode != entity.ModeCheckin && mode != entity.ModeOpenDoor {
		session.sendError(checkin.ErrInvalidMessage)
		return
	}

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	session.log.Info("Kiosk session opened")
	defer session.log.Info("Kiosk session closed")

	camera := newStreamCamera(session.send, h.utils, h.readyTimeout)
	orchestrator := h.checkinService.NewSession(checkinService.SessionOptions{
		Mode:       mode,
		OperatorID: operatorID,
		Camera:     camera,
		Observer: func(snap checkin.Snapshot) {
			_ = session.send(checkin.ServerMessage{Type: checkin.MsgState, Snapshot: &snap})
		},
	})

	var wg sync.WaitGroup
	defer func() {
		orchestrator.Close()
		cancel()
		wg.Wait()
	}()

	snap := orchestrator.Snapshot()
	_ = session.send(checkin.ServerMessage{Type: checkin.MsgState, Snapshot: &snap})

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			session.log.Debugf("Error sending pong: %v", err)
		}
		return nil
	})

	for {
		if err := c.SetReadDeadline(time.Now().Add(h.readTimeout)); err != nil {
			session.log.Errorf("Error setting read deadline: %v", err)
			return
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				session.log.WithField("error", err.Error()).Warn("Kiosk socket error")
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			camera.pushFrame(message)

		case websocket.TextMessage:
			var msg checkin.ClientMessage
			if err := jsoniter.Unmarshal(message, &msg); err != nil {
				session.sendError(checkin.ErrInvalidMessage)
				continue
			}
			if err := h.validator.Struct(msg); err != nil {
				session.log.WithField("error", err.Error()).Debug("Invalid kiosk message")
				session.sendError(checkin.ErrInvalidMessage)
				continue
			}
			h.dispatch(session, orchestrator, camera, &wg, msg)

		default:
			session.log.Warnf("Received unexpected message type: %d", messageType)
		}
	}
}

// dispatch routes one action. Actions that wait on I/O run on their own
// goroutine so the read loop keeps receiving frames and cancels.
func (h *CheckinHandler) dispatch(
	session *kioskSession,
	orchestrator *checkinService.Orchestrator,
	camera *streamCamera,
	wg *sync.WaitGroup,
	msg checkin.ClientMessage,
) {
	async := func(fn func(ctx context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(session.ctx); err != nil {
				session.sendError(err)
			}
		}()
	}

	switch msg.Type {
	case checkin.MsgOpenScanner:
		async(orchestrator.OpenScanner)

	case checkin.MsgScan:
		token := msg.Token
		async(func(ctx context.Context) error {
			return orchestrator.Scan(ctx, token)
		})

	case checkin.MsgScanImage:
		image, err := h.utils.DecodeBase64Image(msg.ImageBase64)
		if err != nil {
			session.sendError(checkin.ErrInvalidMessage)
			return
		}
		async(func(ctx context.Context) error {
			return orchestrator.ScanImage(ctx, bytes.NewReader(image))
		})

	case checkin.MsgCapture:
		async(func(ctx context.Context) error {
			orchestrator.Capture(ctx)
			return nil
		})

	case checkin.MsgCancel:
		if err := orchestrator.Cancel(); err != nil {
			session.sendError(err)
		}

	case checkin.MsgRestart:
		if err := orchestrator.Restart(); err != nil {
			session.sendError(err)
		}

	case checkin.MsgRetry:
		async(orchestrator.Retry)

	case checkin.MsgAcknowledge:
		if err := orchestrator.Acknowledge(); err != nil {
			session.sendError(err)
		}

	case checkin.MsgCameraRetry:
		async(orchestrator.RetryCamera)

	case checkin.MsgCameraState:
		camera.setState(msg.Paused, msg.Ended)
	}
}
