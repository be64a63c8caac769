package accessHandler

import (
	accessService "HotelGate/internal/api/access/service"
	"HotelGate/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type AccessHandler struct {
	log           *logrus.Logger
	validator     *validator.Validate
	middleware    middleware.Middleware
	accessService accessService.IAccessService
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	as accessService.IAccessService,
) *AccessHandler {
	return &AccessHandler{
		log:           log,
		validator:     validator,
		middleware:    middleware,
		accessService: as,
	}
}

func (h *AccessHandler) Start(srv fiber.Router) {
	events := srv.Group("/access")
	events.Use(h.middleware.NewTokenMiddleware, h.middleware.RequireRole("security", "admin"))

	events.Get("/events", h.ListRecent)
	events.Get("/bookings/:id/events", h.ListByBooking)
}
