package checkinHandler

import (
	checkinService "HotelGate/internal/api/checkin/service"
	"HotelGate/internal/middleware"
	"HotelGate/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"time"
)

type CheckinHandler struct {
	log            *logrus.Logger
	validator      *validator.Validate
	middleware     middleware.Middleware
	checkinService checkinService.ICheckinService
	utils          utils.IUtils
	readTimeout    time.Duration
	readyTimeout   time.Duration
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	cs checkinService.ICheckinService,
	utils utils.IUtils,
) *CheckinHandler {
	return &CheckinHandler{
		log:            log,
		validator:      validator,
		middleware:     middleware,
		checkinService: cs,
		utils:          utils,
		readTimeout:    60 * time.Second,
		readyTimeout:   3 * time.Second,
	}
}

func (h *CheckinHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	checkin := srv.Group("/checkin")
	checkin.Use(h.middleware.NewTokenMiddleware, h.middleware.RequireRole("security", "admin"))

	checkin.Use("/ws", wsMiddleware)
	checkin.Get("/ws", websocket.New(h.handleSession))

	checkin.Post("/qr/decode", h.middleware.NewRateLimiter, h.DecodeQR)
	checkin.Post("/resolve", h.middleware.NewRateLimiter, h.Resolve)
}
