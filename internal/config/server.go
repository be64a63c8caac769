package config

import (
	"context"
	"fmt"
	"time"

	"HotelGate/database/postgres"
	accessHandler "HotelGate/internal/api/access/handler"
	accessRepository "HotelGate/internal/api/access/repository"
	accessService "HotelGate/internal/api/access/service"
	checkinHandler "HotelGate/internal/api/checkin/handler"
	checkinService "HotelGate/internal/api/checkin/service"
	checkoutHandler "HotelGate/internal/api/checkout/handler"
	checkoutService "HotelGate/internal/api/checkout/service"
	"HotelGate/internal/middleware"
	"HotelGate/pkg/backend"
	"HotelGate/pkg/detector"
	"HotelGate/pkg/redis"
	"HotelGate/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	db          *sqlx.DB
	log         *logrus.Logger
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	handlers    []handler
	redisServer redis.IRedis
	backend     backend.IBackend
	detector    detector.IDetector
	gate        GateConfig
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.backend == nil {
		return nil, fmt.Errorf("booking backend is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithGateConfig(gate GateConfig) ServerOption {
	return func(s *Server) error {
		s.gate = gate
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

// WithBackend builds the booking backend client from the gate config, so it
// must come after WithGateConfig.
func WithBackend() ServerOption {
	return func(s *Server) error {
		if s.gate.Backend.BaseURL == "" {
			return fmt.Errorf("BACKEND_BASE_URL is not set")
		}
		s.backend = backend.New(s.gate.Backend, s.log)
		return nil
	}
}

func WithDetector(d detector.IDetector) ServerOption {
	return func(s *Server) error {
		s.detector = d
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Access journal
	var accessRepo accessRepository.Repository
	if s.db != nil {
		accessRepo = accessRepository.New(s.db, s.log)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := accessRepo.EnsureSchema(ctx); err != nil {
			s.log.Errorf("Failed to prepare access journal schema: %v", err)
		}
		cancel()
	}
	accessServices := accessService.NewAccessService(s.log, accessRepo, s.redisServer)
	accessHandlers := accessHandler.New(s.log, s.validator, s.middleware, accessServices)

	// Check-in and door access
	checkinServices := checkinService.NewCheckinService(s.log, s.gate.Checkin, s.backend, s.detector, accessServices)
	checkinHandlers := checkinHandler.New(s.log, s.validator, s.middleware, checkinServices, s.utils)

	// Checkout
	checkoutServices := checkoutService.NewCheckoutService(s.log, s.backend, s.gate.Checkout)
	checkoutHandlers := checkoutHandler.New(s.log, s.validator, s.middleware, checkoutServices)

	s.setupHealthCheck()
	s.setupMetrics()
	s.handlers = append(s.handlers, accessHandlers, checkinHandlers, checkoutHandlers)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())
	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := s.gate.Port
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown stops accepting connections and closes the shared clients.
func (s *Server) Shutdown(timeout time.Duration) error {
	err := s.engine.ShutdownWithTimeout(timeout)

	if s.detector != nil {
		s.detector.Close()
	}
	if s.redisServer != nil {
		if cerr := s.redisServer.Close(); cerr != nil {
			s.log.Warnf("Failed to close Redis client: %v", cerr)
		}
	}
	if s.db != nil {
		if cerr := s.db.Close(); cerr != nil {
			s.log.Warnf("Failed to close database: %v", cerr)
		}
	}

	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		status := fiber.Map{
			"message":  "Server is Healthy!",
			"detector": s.detector != nil && s.detector.IsLoaded(),
		}

		if s.redisServer != nil {
			pingCtx, cancel := context.WithTimeout(ctx.UserContext(), time.Second)
			status["redis"] = s.redisServer.Ping(pingCtx) == nil
			cancel()
		}
		if s.db != nil {
			pingCtx, cancel := context.WithTimeout(ctx.UserContext(), time.Second)
			status["database"] = s.db.PingContext(pingCtx) == nil
			cancel()
		}

		return ctx.JSON(status)
	})
}

func (s *Server) setupMetrics() {
	s.engine.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
