package checkoutHandler

import (
	checkoutService "HotelGate/internal/api/checkout/service"
	"HotelGate/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type CheckoutHandler struct {
	log             *logrus.Logger
	validator       *validator.Validate
	middleware      middleware.Middleware
	checkoutService checkoutService.ICheckoutService
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	cs checkoutService.ICheckoutService,
) *CheckoutHandler {
	return &CheckoutHandler{
		log:             log,
		validator:       validator,
		middleware:      middleware,
		checkoutService: cs,
	}
}

func (h *CheckoutHandler) Start(srv fiber.Router) {
	orders := srv.Group("/checkout/orders")
	orders.Use(h.middleware.NewTokenMiddleware)

	orders.Post("/:id/await", h.AwaitPayment)
}
