package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) IBackend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return New(Config{BaseURL: srv.URL + "/", Token: "secret"}, logger)
}

func TestGetBooking(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/bookings/12", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":{"id":12}}`))
	})

	body, err := client.GetBooking(context.Background(), 12)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"id":12}}`, string(body))
}

func TestGetJSON_Statuses(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		_, err := client.GetUser(context.Background(), "abc")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("server error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("down"))
		})
		_, err := client.GetRoom(context.Background(), "r-1")

		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusServiceUnavailable, statusErr.Status)
		assert.Equal(t, "down", string(statusErr.Body))
	})

	t.Run("path is escaped", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/payments/INV%2F01", r.URL.RawPath)
			_, _ = w.Write([]byte(`{}`))
		})
		_, err := client.GetPayment(context.Background(), "INV/01")
		require.NoError(t, err)
	})
}

func TestSubmitVerification(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkin/face-verify", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "12", r.FormValue("bookingId"))
		assert.Equal(t, "abc", r.FormValue("userId"))
		assert.Equal(t, "true", r.FormValue("isReference"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "a1.jpg", header.Filename)
		assert.Equal(t, []byte{1, 2, 3}, data)

		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":"NO_MATCH"}`))
	})

	resp, err := client.SubmitVerification(context.Background(), VerificationRequest{
		Path:        "/checkin/face-verify",
		BookingID:   12,
		SubjectID:   "abc",
		Image:       []byte{1, 2, 3},
		ImageName:   "a1.jpg",
		IsReference: true,
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)
	assert.JSONEq(t, `{"code":"NO_MATCH"}`, string(resp.Body))
}

func TestCompleteCheckout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bookings/7/checkout", r.URL.Path)

		var payload map[string]string
		require.NoError(t, jsoniter.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "ORD-1", payload["orderId"])

		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.CompleteCheckout(context.Background(), 7, "ORD-1"))
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	client := New(Config{BaseURL: srv.URL}, logger)

	_, err := client.SubmitVerification(context.Background(), VerificationRequest{Path: "/doors/open"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
