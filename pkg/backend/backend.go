package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"HotelGate/pkg/log"
	"HotelGate/pkg/metrics"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotFound = errors.New("backend: resource not found")
)

// StatusError is returned by the lookup calls for any non-2xx, non-404 reply.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: unexpected status %d", e.Status)
}

// RawResponse is an HTTP reply handed back uninterpreted so the caller can
// apply its own domain classification.
type RawResponse struct {
	Status int
	Body   []byte
}

type VerificationRequest struct {
	Path        string
	BookingID   int64
	SubjectID   string
	Image       []byte
	ImageName   string
	IsReference bool
}

type IBackend interface {
	GetBooking(ctx context.Context, bookingID int64) ([]byte, error)
	GetUser(ctx context.Context, userID string) ([]byte, error)
	GetRoom(ctx context.Context, roomID string) ([]byte, error)
	SubmitVerification(ctx context.Context, req VerificationRequest) (*RawResponse, error)
	GetPayment(ctx context.Context, orderID string) ([]byte, error)
	CompleteCheckout(ctx context.Context, bookingID int64, orderID string) error
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	Token   string
}

type client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *logrus.Logger
}

func New(cfg Config, log *logrus.Logger) IBackend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

func (c *client) GetBooking(ctx context.Context, bookingID int64) ([]byte, error) {
	return c.getJSON(ctx, "get_booking", "/bookings/"+strconv.FormatInt(bookingID, 10))
}

func (c *client) GetUser(ctx context.Context, userID string) ([]byte, error) {
	return c.getJSON(ctx, "get_user", "/users/"+url.PathEscape(userID))
}

func (c *client) GetRoom(ctx context.Context, roomID string) ([]byte, error) {
	return c.getJSON(ctx, "get_room", "/rooms/"+url.PathEscape(roomID))
}

func (c *client) GetPayment(ctx context.Context, orderID string) ([]byte, error) {
	return c.getJSON(ctx, "get_payment", "/payments/"+url.PathEscape(orderID))
}

func (c *client) SubmitVerification(ctx context.Context, req VerificationRequest) (*RawResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	_ = writer.WriteField("bookingId", strconv.FormatInt(req.BookingID, 10))
	_ = writer.WriteField("userId", req.SubjectID)
	_ = writer.WriteField("isReference", strconv.FormatBool(req.IsReference))

	name := req.ImageName
	if name == "" {
		name = "capture.jpg"
	}
	part, err := writer.CreateFormFile("image", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, fmt.Errorf("failed to write image part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+req.Path, &body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	status, payload, err := c.do(httpReq, "submit_verification")
	if err != nil {
		return nil, err
	}

	return &RawResponse{Status: status, Body: payload}, nil
}

func (c *client) CompleteCheckout(ctx context.Context, bookingID int64, orderID string) error {
	payload, err := jsoniter.Marshal(map[string]interface{}{
		"orderId": orderID,
	})
	if err != nil {
		return err
	}

	path := "/bookings/" + strconv.FormatInt(bookingID, 10) + "/checkout"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	status, body, err := c.do(httpReq, "complete_checkout")
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return ErrNotFound
	}
	if status < 200 || status >= 300 {
		return &StatusError{Status: status, Body: body}
	}

	return nil
}

func (c *client) getJSON(ctx context.Context, operation string, path string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")

	status, body, err := c.do(httpReq, operation)
	if err != nil {
		return nil, err
	}

	if status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if status < 200 || status >= 300 {
		return nil, &StatusError{Status: status, Body: body}
	}

	return body, nil
}

func (c *client) do(req *http.Request, operation string) (int, []byte, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.BackendRequestDuration.WithLabelValues(operation, "error").Observe(time.Since(start).Seconds())
		log.WithContext(c.log, req.Context()).WithFields(logrus.Fields{
			"operation": operation,
			"url":       req.URL.String(),
			"error":     err.Error(),
		}).Warn("Backend request failed")
		return 0, nil, fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.BackendRequestDuration.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, nil, fmt.Errorf("%s: failed to read body: %w", operation, err)
	}

	log.WithContext(c.log, req.Context()).WithFields(logrus.Fields{
		"operation":  operation,
		"status":     resp.StatusCode,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Debug("Backend request completed")

	return resp.StatusCode, body, nil
}
