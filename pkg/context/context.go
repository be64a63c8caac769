package context

import (
	"context"
	"github.com/gofiber/fiber/v2"
)

type ctxKey string

const (
	RequestIDKey  ctxKey = "request_id"
	AttemptIDKey  ctxKey = "attempt_id"
	OperatorIDKey ctxKey = "operator_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(RequestIDKey).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

func WithAttemptID(ctx context.Context, attemptID string) context.Context {
	return context.WithValue(ctx, AttemptIDKey, attemptID)
}

func GetAttemptID(ctx context.Context) string {
	attemptID, _ := ctx.Value(AttemptIDKey).(string)
	return attemptID
}

func WithOperatorID(ctx context.Context, operatorID string) context.Context {
	return context.WithValue(ctx, OperatorIDKey, operatorID)
}

func GetOperatorID(ctx context.Context) string {
	operatorID, _ := ctx.Value(OperatorIDKey).(string)
	return operatorID
}

func FromFiberCtx(c *fiber.Ctx) context.Context {
	ctx := context.Background()

	requestID, ok := c.Locals("X-Request-ID").(string)
	if !ok || requestID == "" {
		requestID = c.Get("X-Request-ID")

		if requestID == "" {
			requestID = "unknown"
		}
	}

	ctx = WithRequestID(ctx, requestID)

	if operatorID, ok := c.Locals("operator_id").(string); ok && operatorID != "" {
		ctx = WithOperatorID(ctx, operatorID)
	}

	return ctx
}
